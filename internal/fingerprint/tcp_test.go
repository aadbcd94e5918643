package fingerprint

import (
	"testing"

	"github.com/gamelinux/prads/internal/sigs"
)

func TestNormalizeTTLBoundaries(t *testing.T) {
	cases := map[int]int{1: 32, 32: 32, 33: 64, 64: 64, 65: 128, 128: 128, 129: 255, 254: 255, 255: 255}
	for in, want := range cases {
		if got := NormalizeTTL(in); got != want {
			t.Errorf("NormalizeTTL(%d) = %d, want %d", in, got, want)
		}
		if NormalizeTTL(in) < in {
			t.Errorf("NormalizeTTL(%d) = %d should be >= input", in, NormalizeTTL(in))
		}
	}
}

func TestNormalizeWSS(t *testing.T) {
	if got := NormalizeWSS(5840, 1460); got != "S4" {
		t.Errorf("got %q, want S4", got)
	}
	if got := NormalizeWSS(1500, 1460); got != "T1" {
		t.Errorf("got %q, want T1 (1460+40=1500)", got)
	}
	if got := NormalizeWSS(12345, 1460); got != "12345" {
		t.Errorf("got %q, want literal", got)
	}
}

func TestParseOptionsLinuxSYN(t *testing.T) {
	// kind2 len4 mss=1460; kind4 len2 sack-ok; kind8 len10 ts(1,0); kind1 nop; kind3 len3 wscale=7
	raw := []byte{
		2, 4, 0x05, 0xb4,
		4, 2,
		8, 10, 0, 0, 0, 1, 0, 0, 0, 0,
		1,
		3, 3, 7,
	}
	res := ParseOptions(raw)
	if res.OptStr != "M1460,S,T,N,W7" {
		t.Fatalf("optstr = %q", res.OptStr)
	}
	if res.MSS != "1460" || res.WSC != "7" {
		t.Errorf("mss=%q wsc=%q", res.MSS, res.WSC)
	}
	if res.OptCnt != 4 {
		t.Errorf("optcnt = %d, want 4", res.OptCnt)
	}
	if res.T0 {
		t.Errorf("expected T0=false since TSval != 0")
	}
}

func TestParseOptionsT0(t *testing.T) {
	raw := []byte{8, 10, 0, 0, 0, 0, 0, 0, 0, 0}
	res := ParseOptions(raw)
	if res.OptStr != "T0" || !res.T0 {
		t.Fatalf("expected T0 token and T0 flag, got %+v", res)
	}
}

func TestParseOptionsMalformedRaisesBang(t *testing.T) {
	raw := []byte{2, 4, 0x05} // MSS option truncated
	res := ParseOptions(raw)
	if res.Quirks&sigs.QuirkBang == 0 {
		t.Fatal("expected ! quirk on truncated option")
	}
}

func TestMatchOpts(t *testing.T) {
	cases := []struct {
		spec, pkt string
		want      bool
	}{
		{"M1460,S,T0,N,W7", "M1460,S,T0,N,W7", true},
		{"M*,S,T0,N,W7", "M1380,S,T0,N,W7", true},
		{"M1460,S,T0,N,W*", "M1460,S,T0,N,W7", true},
		{"M1460,S,T0,N,W7", "M1460,S,T0,N,W8", false},
		{".", ".", true},
		{"N,N", "N", false},
	}
	for _, c := range cases {
		if got := MatchOpts(c.spec, c.pkt); got != c.want {
			t.Errorf("MatchOpts(%q, %q) = %v, want %v", c.spec, c.pkt, got, c.want)
		}
	}
}

func TestMatchTCPLinuxScenario(t *testing.T) {
	tree := sigs.NewTCPTree()
	sig, err := sigs.ParseTCPSigLine("S4:64:1:60:M1460,S,T0,N,W7:.:Linux:2.6")
	if err != nil {
		t.Fatal(err)
	}
	tree.Insert(sig, nil)

	raw := []byte{
		2, 4, 0x05, 0xb4, // MSS 1460
		4, 2, // SACK ok
		8, 10, 0, 0, 0, 0, 0, 0, 0, 0, // TS 0,0 -> T0
		1,          // NOP
		3, 3, 7,    // WSCALE 7
	}
	f := BuildFeatures(PacketInputs{
		TotalLen:   60,
		GTTL:       64,
		DF:         true,
		WinSize:    5840,
		RawOptions: raw,
	})
	matches, ok := MatchTCP(tree, f)
	if !ok || len(matches) != 1 {
		t.Fatalf("expected one match, got %+v ok=%v", matches, ok)
	}
	if matches[0].OS != "Linux" || matches[0].Details != "2.6" {
		t.Fatalf("unexpected match %+v", matches[0])
	}
	if matches[0].Fuzzy {
		t.Error("expected a primary (non-fuzzy) match")
	}
}

func TestMatchTCPGenericFilter(t *testing.T) {
	tree := sigs.NewTCPTree()
	generic, _ := sigs.ParseTCPSigLine("S4:64:1:60:M1460,S,T0,N,W7:.:@unix:Any")
	tree.Insert(generic, nil)

	raw := []byte{
		2, 4, 0x05, 0xb4,
		4, 2,
		8, 10, 0, 0, 0, 0, 0, 0, 0, 0,
		1,
		3, 3, 7,
	}
	f := BuildFeatures(PacketInputs{TotalLen: 60, GTTL: 64, DF: true, WinSize: 5840, RawOptions: raw})
	matches, ok := MatchTCP(tree, f)
	if !ok || len(matches) != 1 || matches[0].OS != "@unix" {
		t.Fatalf("expected lone generic match when no specific exists, got %+v ok=%v", matches, ok)
	}
}

func TestMatchICMPFallbackToUnknown(t *testing.T) {
	tree := sigs.NewICMPTree()
	os, details := MatchICMP(tree, "8", "0", "64", "0", "0", "0", "0", "0", "0")
	if os != "UNKNOWN" || details != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN/UNKNOWN, got %q/%q", os, details)
	}
}

func TestMatchUDPDropsOnMiss(t *testing.T) {
	tree := sigs.NewUDPTree()
	_, _, ok := MatchUDP(tree, "0", "64", "0", "0", "0", "0")
	if ok {
		t.Fatal("expected no match on empty tree")
	}
}

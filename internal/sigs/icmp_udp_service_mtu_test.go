package sigs

import (
	"strings"
	"testing"
)

func TestICMPTreeWildcardFallback(t *testing.T) {
	tree := NewICMPTree()
	sig, err := ParseICMPSigLine("8:0:64:0:.:0:0:0:0:Linux:2.x")
	if err != nil {
		t.Fatal(err)
	}
	if sig.IO != "0" {
		t.Fatalf("expected . normalized to 0, got %q", sig.IO)
	}
	tree.Insert(sig, nil)

	if _, ok := tree.Lookup("8", "0", "64", "0", "0", "0", "0", "0", "0"); !ok {
		t.Fatal("expected exact match")
	}
	if _, ok := tree.Lookup("8", "0", "99", "0", "0", "0", "0", "0", "0"); ok {
		t.Fatal("expected no match without wildcard")
	}

	wild, err := ParseICMPSigLine("8:0:*:0:.:0:0:0:0:Generic:any")
	if err != nil {
		t.Fatal(err)
	}
	tree.Insert(wild, nil)
	leaf, ok := tree.Lookup("8", "0", "99", "0", "0", "0", "0", "0", "0")
	if !ok || leaf.OS != "Generic" {
		t.Fatalf("expected wildcard ttl fallback, got %+v ok=%v", leaf, ok)
	}
}

func TestUDPTreeLookup(t *testing.T) {
	tree := NewUDPTree()
	sig, err := ParseUDPSigLine("0:64:0:.:0:0:Linux:any")
	if err != nil {
		t.Fatal(err)
	}
	tree.Insert(sig, nil)
	leaf, ok := tree.Lookup("0", "64", "0", "0", "0", "0")
	if !ok || leaf.OS != "Linux" {
		t.Fatalf("expected match, got %+v ok=%v", leaf, ok)
	}
}

func TestServiceSigsDedupAndOrderByLength(t *testing.T) {
	data := `ssh,v/OpenSSH/$1/,^SSH-2\.0-OpenSSH_(\S+)
ssh,v/OpenSSH/$1/,^SSH-2\.0-OpenSSH_(\S+)
ftp,v/FTP//,^220
`
	sigs, err := LoadServiceSigs(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(sigs) != 2 {
		t.Fatalf("expected dedup to 2 signatures, got %d", len(sigs))
	}
	if sigs[0].Service != "ssh" {
		t.Fatalf("expected longer ssh regex first, got %q", sigs[0].Service)
	}
	if sigs[0].Template != "OpenSSH/$1/" {
		t.Fatalf("expected v/ prefix stripped, got %q", sigs[0].Template)
	}
}

func TestMTUTable(t *testing.T) {
	data := `1500,"ethernet"
# a comment
576,"pppoe (DSL)"
`
	tbl, err := LoadMTUTable(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.GetLink(1500) != "ethernet" {
		t.Errorf("got %q", tbl.GetLink(1500))
	}
	if tbl.GetLink(9999) != "UNKNOWN" {
		t.Errorf("expected UNKNOWN for missing mtu, got %q", tbl.GetLink(9999))
	}
}

package sigs

import "testing"

func TestParseTCPSigLine(t *testing.T) {
	line := "S4:64:1:60:M1460,S,T0,N,W7:.:Linux:2.6"
	sig, err := ParseTCPSigLine(line)
	if err != nil {
		t.Fatal(err)
	}
	if sig.TTL != 64 || !sig.DF || sig.SZ != 60 {
		t.Fatalf("unexpected fields: %+v", sig)
	}
	if sig.OS != "Linux" || sig.Details != "2.6" {
		t.Fatalf("unexpected os/details: %+v", sig)
	}
	if sig.MSS != "1460" {
		t.Errorf("mss = %q, want 1460", sig.MSS)
	}
	if sig.WSC != "7" {
		t.Errorf("wsc = %q, want 7", sig.WSC)
	}
	if !sig.T0 {
		t.Errorf("expected T0 set")
	}
	// "M1460,S,T0,N,W7" has 4 commas
	if sig.OptCnt != 4 {
		t.Errorf("optcnt = %d, want 4", sig.OptCnt)
	}
	if sig.Quirks != 0 {
		t.Errorf("expected no quirks, got %v", sig.Quirks)
	}
}

func TestParseTCPSigLineRejectsMalformed(t *testing.T) {
	if _, err := ParseTCPSigLine("S4:64:1:60:M1460"); err == nil {
		t.Fatal("expected error for too few fields")
	}
}

func TestTCPTreeDescendAndCollision(t *testing.T) {
	tree := NewTCPTree()
	sig, err := ParseTCPSigLine("S4:64:1:60:M1460,S,T0,N,W7:.:Linux:2.6")
	if err != nil {
		t.Fatal(err)
	}
	var warned []string
	tree.Insert(sig, func(s string) { warned = append(warned, s) })
	if len(warned) != 0 {
		t.Fatalf("unexpected warning on first insert: %v", warned)
	}

	qn, ok := tree.Descend(60, sig.OptCnt, sig.T0, sig.DF)
	if !ok {
		t.Fatal("expected descent to succeed")
	}
	var leaf TCPLeaf
	var found bool
	qn.Each(func(key Quirk, mss *MSSNode) {
		if key != 0 {
			return
		}
		mss.Each(func(k string, wsc *WSCNode) {
			wsc.Each(func(k2 string, wss *WSSNode) {
				wss.Each(func(k3 string, opts *OptsNode) {
					opts.Each(func(spec string, ttls *TTLNode) {
						if l, ok := ttls.Lookup(64); ok {
							leaf, found = l, true
						}
					})
				})
			})
		})
	})
	if !found || leaf.OS != "Linux" {
		t.Fatalf("expected to find Linux leaf, got %+v found=%v", leaf, found)
	}

	// Re-inserting the same (sz,optcnt,t0,df,quirks,mss,wsc,wss,opts,ttl)
	// path should warn and overwrite per §4.A.
	dup, _ := ParseTCPSigLine("S4:64:1:60:M1460,S,T0,N,W7:.:Windows:XP")
	tree.Insert(dup, func(s string) { warned = append(warned, s) })
	if len(warned) != 1 {
		t.Fatalf("expected exactly one collision warning, got %d", len(warned))
	}
}

func TestQuirkStringRoundTrip(t *testing.T) {
	for _, s := range []string{".", "Z", "ZI", "PZIUXAFDT!"} {
		q := ParseQuirks(s)
		if got := q.String(); got != s {
			t.Errorf("round trip %q -> %v -> %q", s, q, got)
		}
	}
}

func TestQuirkSetEqualityIsOrderIndependent(t *testing.T) {
	a := ParseQuirks("ZI")
	b := ParseQuirks("IZ")
	if !a.SetEqual(b) {
		t.Fatalf("expected order-independent equality")
	}
}

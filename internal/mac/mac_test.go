package mac

import (
	"strings"
	"testing"
)

func TestTrieSpecificity(t *testing.T) {
	trie := New()
	p1, _ := SplitBytes("00:1b:21")
	if err := trie.Insert(p1, 24, Leaf{Vendor: "Intel"}); err != nil {
		t.Fatal(err)
	}
	p2, _ := SplitBytes("00:1b:21:aa")
	if err := trie.Insert(p2, 32, Leaf{Vendor: "IntelNIC"}); err != nil {
		t.Fatal(err)
	}

	q2, _ := SplitBytes("00:1b:21:aa:bb:cc")
	leaf, ok := trie.Lookup(q2)
	if !ok || leaf.Vendor != "IntelNIC" {
		t.Fatalf("expected longer prefix to win, got %+v ok=%v", leaf, ok)
	}

	q1, _ := SplitBytes("00:1b:21:cc:dd:ee")
	leaf, ok = trie.Lookup(q1)
	if !ok || leaf.Vendor != "Intel" {
		t.Fatalf("expected shorter prefix fallback, got %+v ok=%v", leaf, ok)
	}
}

func TestArpScenarioVendorLookup(t *testing.T) {
	trie := New()
	p, _ := SplitBytes("00:1b:21")
	trie.Insert(p, 24, Leaf{Vendor: "Intel"})

	leaf, ok := trie.LookupString("00:1b:21:aa:bb:cc")
	if !ok || leaf.Vendor != "Intel" {
		t.Fatalf("expected Intel vendor resolution, got %+v ok=%v", leaf, ok)
	}
}

func TestMaskedPrefix(t *testing.T) {
	trie := New()
	// 20 bits: 2 full bytes + 4 bits of a 3rd byte.
	p, _ := SplitBytes("aa:bb:c0")
	if err := trie.Insert(p, 20, Leaf{Vendor: "Masked"}); err != nil {
		t.Fatal(err)
	}

	// Top 4 bits of 0xc0 are 0xc; 0xcf shares them, 0xd0 does not.
	hit, _ := SplitBytes("aa:bb:cf:00:00:00")
	if leaf, ok := trie.Lookup(hit); !ok || leaf.Vendor != "Masked" {
		t.Fatalf("expected mask match, got %+v ok=%v", leaf, ok)
	}
	miss, _ := SplitBytes("aa:bb:d0:00:00:00")
	if _, ok := trie.Lookup(miss); ok {
		t.Fatal("expected no match outside the mask")
	}
}

func TestLoadFileFormat(t *testing.T) {
	data := `00:1B:21/24 Intel Corporate
# comment line
00:1B:21:AA/32 Intel SpecificNIC # trailing comment
`
	trie, err := Load(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	leaf, ok := trie.LookupString("00:1b:21:aa:bb:cc")
	if !ok || leaf.Vendor != "Intel" || leaf.Details != "SpecificNIC" {
		t.Fatalf("expected most specific entry, got %+v ok=%v", leaf, ok)
	}
	leaf, ok = trie.LookupString("00:1b:21:ff:ee:dd")
	if !ok || leaf.Details != "Corporate" {
		t.Fatalf("expected fallback to /24 entry, got %+v ok=%v", leaf, ok)
	}
}

func TestDefaultBitsIs48(t *testing.T) {
	trie := New()
	p, _ := SplitBytes("aa:bb:cc:dd:ee:ff")
	if err := trie.Insert(p, defaultBits, Leaf{Vendor: "Exact"}); err != nil {
		t.Fatal(err)
	}
	q, _ := SplitBytes("aa:bb:cc:dd:ee:ff")
	if leaf, ok := trie.Lookup(q); !ok || leaf.Vendor != "Exact" {
		t.Fatalf("expected exact 48-bit match, got %+v ok=%v", leaf, ok)
	}
}

package sigs

import "fmt"

// TCPLeaf is what a fully-descended TCP signature path resolves to.
type TCPLeaf struct {
	OS      string
	Details string
}

// TTLNode holds the final level of the TCP tree: a set of (ttl -> leaf)
// pairs under one options spec. Matching tries the exact generalized TTL
// first, then one extra hop away (NormalizeTTL(gttl+1), the next TTL
// bucket) per §4.C step 9.
type TTLNode struct {
	entries []ttlEntry
}

type ttlEntry struct {
	ttl  int
	leaf TCPLeaf
}

func (n *TTLNode) insert(ttl int, leaf TCPLeaf, warn func(string)) {
	for i := range n.entries {
		if n.entries[i].ttl == ttl {
			if warn != nil {
				warn(fmt.Sprintf("duplicate ttl=%d signature, overwriting", ttl))
			}
			n.entries[i].leaf = leaf
			return
		}
	}
	n.entries = append(n.entries, ttlEntry{ttl: ttl, leaf: leaf})
}

// Lookup returns the leaf whose ttl equals gttl (insert keeps at most
// one entry per ttl).
func (n *TTLNode) Lookup(gttl int) (TCPLeaf, bool) {
	for _, e := range n.entries {
		if e.ttl == gttl {
			return e.leaf, true
		}
	}
	return TCPLeaf{}, false
}

// OptsNode is an ordered set of (option-spec -> TTLNode); the matcher
// scans it in insertion order and takes the first spec that matches via
// MatchOpts (§4.C step 8).
type OptsNode struct {
	entries []optsEntry
}

type optsEntry struct {
	spec string
	ttls *TTLNode
}

func (n *OptsNode) insertAt(spec string) *TTLNode {
	for i := range n.entries {
		if n.entries[i].spec == spec {
			return n.entries[i].ttls
		}
	}
	tn := &TTLNode{}
	n.entries = append(n.entries, optsEntry{spec: spec, ttls: tn})
	return tn
}

// Each calls fn for every (spec, node) pair in insertion order.
func (n *OptsNode) Each(fn func(spec string, ttls *TTLNode)) {
	for _, e := range n.entries {
		fn(e.spec, e.ttls)
	}
}

// WSSNode holds wss keys: literal numbers, "S<n>", "M<n>", "%n", or "*".
type WSSNode struct {
	entries []wssEntry
}

type wssEntry struct {
	key  string
	opts *OptsNode
}

func (n *WSSNode) insertAt(key string) *OptsNode {
	for i := range n.entries {
		if n.entries[i].key == key {
			return n.entries[i].opts
		}
	}
	o := &OptsNode{}
	n.entries = append(n.entries, wssEntry{key: key, opts: o})
	return o
}

func (n *WSSNode) Each(fn func(key string, opts *OptsNode)) {
	for _, e := range n.entries {
		fn(e.key, e.opts)
	}
}

// WSCNode holds window-scale keys: a literal number or "*".
type WSCNode struct {
	entries []wscEntry
}

type wscEntry struct {
	key string
	wss *WSSNode
}

func (n *WSCNode) insertAt(key string) *WSSNode {
	for i := range n.entries {
		if n.entries[i].key == key {
			return n.entries[i].wss
		}
	}
	w := &WSSNode{}
	n.entries = append(n.entries, wscEntry{key: key, wss: w})
	return w
}

func (n *WSCNode) Each(fn func(key string, wss *WSSNode)) {
	for _, e := range n.entries {
		fn(e.key, e.wss)
	}
}

// MSSNode holds mss keys: a literal number, "%n", or "*".
type MSSNode struct {
	entries []mssEntry
}

type mssEntry struct {
	key string
	wsc *WSCNode
}

func (n *MSSNode) insertAt(key string) *WSCNode {
	for i := range n.entries {
		if n.entries[i].key == key {
			return n.entries[i].wsc
		}
	}
	w := &WSCNode{}
	n.entries = append(n.entries, mssEntry{key: key, wsc: w})
	return w
}

func (n *MSSNode) Each(fn func(key string, wsc *WSCNode)) {
	for _, e := range n.entries {
		fn(e.key, e.wsc)
	}
}

// QuirksNode holds quirk-set keys: "." (no quirks) or a bitmask.
type QuirksNode struct {
	entries []quirksEntry
}

type quirksEntry struct {
	key Quirk
	mss *MSSNode
}

func (n *QuirksNode) insertAt(key Quirk) *MSSNode {
	for i := range n.entries {
		if n.entries[i].key == key {
			return n.entries[i].mss
		}
	}
	m := &MSSNode{}
	n.entries = append(n.entries, quirksEntry{key: key, mss: m})
	return m
}

func (n *QuirksNode) Each(fn func(key Quirk, mss *MSSNode)) {
	for _, e := range n.entries {
		fn(e.key, e.mss)
	}
}

// dfNode/t0Node hold the two small-cardinality boolean levels as
// 2-element arrays (df, t0 ∈ {0,1}) per DESIGN NOTES §9.
type dfNode [2]*QuirksNode
type t0Node [2]*dfNode
type optCntNode map[int]*t0Node

// TCPTree is the root of a SYN or SYN+ACK signature tree, keyed first by
// packet-size bucket (sz).
type TCPTree struct {
	sz map[int]optCntNode
}

func NewTCPTree() *TCPTree {
	return &TCPTree{sz: make(map[int]optCntNode)}
}

// Insert adds one parsed signature line to the tree.
func (t *TCPTree) Insert(sig TCPSigLine, warn func(string)) {
	oc, ok := t.sz[sig.SZ]
	if !ok {
		oc = make(optCntNode)
		t.sz[sig.SZ] = oc
	}
	t0n, ok := oc[sig.OptCnt]
	if !ok {
		t0n = &t0Node{}
		oc[sig.OptCnt] = t0n
	}
	t0idx := 0
	if sig.T0 {
		t0idx = 1
	}
	dfn := t0n[t0idx]
	if dfn == nil {
		dfn = &dfNode{}
		t0n[t0idx] = dfn
	}
	dfidx := 0
	if sig.DF {
		dfidx = 1
	}
	qn := dfn[dfidx]
	if qn == nil {
		qn = &QuirksNode{}
		dfn[dfidx] = qn
	}
	mssn := qn.insertAt(sig.Quirks)
	wscn := mssn.insertAt(sig.MSS)
	wssn := wscn.insertAt(sig.WSC)
	optsn := wssn.insertAt(sig.WSS)
	ttln := optsn.insertAt(sig.Opts)
	ttln.insert(sig.TTL, TCPLeaf{OS: sig.OS, Details: sig.Details}, warn)
}

// Descend performs the exact sz/optcnt/t0/df descent of §4.C step 3.
func (t *TCPTree) Descend(sz, optcnt int, t0, df bool) (*QuirksNode, bool) {
	oc, ok := t.sz[sz]
	if !ok {
		return nil, false
	}
	t0n, ok := oc[optcnt]
	if !ok {
		return nil, false
	}
	t0idx := 0
	if t0 {
		t0idx = 1
	}
	dfn := t0n[t0idx]
	if dfn == nil {
		return nil, false
	}
	dfidx := 0
	if df {
		dfidx = 1
	}
	qn := dfn[dfidx]
	if qn == nil {
		return nil, false
	}
	return qn, true
}

package sigs

import "fmt"

// Leaf is the (os, details) pair every ICMP/UDP signature resolves to.
type Leaf struct {
	OS      string
	Details string
}

// wildNode is a generic hierarchical signature tree node used by the
// ICMP and UDP matchers: §4.D descends with an exact key at each level,
// falling back to the wildcard key "*" on a miss.
type wildNode struct {
	children map[string]*wildNode
	leaf     *Leaf
	hasLeaf  bool
}

func newWildNode() *wildNode {
	return &wildNode{children: make(map[string]*wildNode)}
}

func (n *wildNode) insert(keys []string, leaf Leaf, warn func(string)) {
	cur := n
	for _, k := range keys {
		child, ok := cur.children[k]
		if !ok {
			child = newWildNode()
			cur.children[k] = child
		}
		cur = child
	}
	if cur.hasLeaf && warn != nil {
		warn(fmt.Sprintf("duplicate signature at %v, overwriting", keys))
	}
	l := leaf
	cur.leaf = &l
	cur.hasLeaf = true
}

// lookup descends keys in order, preferring an exact match at each level
// and falling back to "*"; a level with neither fails the whole lookup.
func (n *wildNode) lookup(keys []string) (Leaf, bool) {
	cur := n
	for _, k := range keys {
		child, ok := cur.children[k]
		if !ok {
			child, ok = cur.children["*"]
			if !ok {
				return Leaf{}, false
			}
		}
		cur = child
	}
	if !cur.hasLeaf {
		return Leaf{}, false
	}
	return *cur.leaf, true
}

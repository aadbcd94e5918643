package fingerprint

import "github.com/gamelinux/prads/internal/sigs"

// MatchICMP resolves an ICMP OS fingerprint via wildcard descent
// (§4.D). On a miss it still reports a record, using "UNKNOWN" for both
// fields, per the component's per-protocol reporting rule.
func MatchICMP(tree *sigs.ICMPTree, itype, icode, ttl, df, io, il, iff, fo, tos string) (os, details string) {
	leaf, ok := tree.Lookup(itype, icode, ttl, df, io, il, iff, fo, tos)
	if !ok {
		return "UNKNOWN", "UNKNOWN"
	}
	return leaf.OS, leaf.Details
}

// MatchUDP resolves a UDP OS fingerprint via wildcard descent. On a
// miss the caller should drop the record rather than emit one.
func MatchUDP(tree *sigs.UDPTree, fplen, ttl, df, io, iff, fo string) (os, details string, ok bool) {
	leaf, ok := tree.Lookup(fplen, ttl, df, io, iff, fo)
	if !ok {
		return "", "", false
	}
	return leaf.OS, leaf.Details, true
}

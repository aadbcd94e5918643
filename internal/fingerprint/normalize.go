// Package fingerprint implements the p0f-style TCP OS matcher and the
// simpler wildcard-descent ICMP/UDP matchers.
package fingerprint

import "strconv"

// NormalizeTTL returns the smallest of {32, 64, 128, 255} that is >= ttl.
func NormalizeTTL(ttl int) int {
	switch {
	case ttl <= 32:
		return 32
	case ttl <= 64:
		return 64
	case ttl <= 128:
		return 128
	default:
		return 255
	}
}

// NormalizeWSS renders the observed TCP window size in p0f's canonical
// forms: S<n> if it's an exact multiple of the MSS, T<n> if it's an
// exact multiple of (MSS+40), else the literal decimal value.
func NormalizeWSS(winsize, mss int) string {
	if mss > 0 {
		if winsize%mss == 0 {
			return "S" + strconv.Itoa(winsize/mss)
		}
		if winsize%(mss+40) == 0 {
			return "T" + strconv.Itoa(winsize/(mss+40))
		}
	}
	return strconv.Itoa(winsize)
}

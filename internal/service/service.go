// Package service implements the ordered regex service matcher of
// §4.E: the first signature whose regex matches a payload prefix wins.
package service

import (
	"strconv"
	"strings"

	"github.com/gamelinux/prads/internal/sigs"
)

// Match is the (vendor, version, info) triple derived from a matched
// signature's substitution template.
type Match struct {
	Service string
	Vendor  string
	Version string
	Info    string
}

// MatchPayload scans sigList in order (already sorted longest-regex-first
// by the loader) and returns the first hit.
func MatchPayload(sigList []sigs.ServiceSig, payload []byte) (Match, bool) {
	s := string(payload)
	for _, sig := range sigList {
		loc := sig.Regex.FindStringSubmatchIndex(s)
		if loc == nil {
			continue
		}
		rendered := string(sig.Regex.ExpandString(nil, sig.Template, s, loc))
		return splitTemplate(sig.Service, rendered), true
	}
	return Match{}, false
}

// splitTemplate splits an interpolated template on "/" into
// (vendor, version, info); missing trailing fields are "".
func splitTemplate(serviceName, rendered string) Match {
	parts := strings.SplitN(rendered, "/", 3)
	m := Match{Service: serviceName}
	if len(parts) > 0 {
		m.Vendor = parts[0]
	}
	if len(parts) > 1 {
		m.Version = parts[1]
	}
	if len(parts) > 2 {
		m.Info = parts[2]
	}
	return m
}

// WellKnownUDP applies the two hard-coded UDP matches of §4.E. It is
// only consulted when regex-based UDP service matching is disabled.
func WellKnownUDP(srcPort int) (Match, bool) {
	switch srcPort {
	case 53:
		return Match{Service: "udp", Vendor: "-", Info: "DNS"}, true
	case 1194:
		return Match{Service: "udp", Vendor: "-", Info: "OpenVPN"}, true
	default:
		return Match{}, false
	}
}

func portKey(ip string, port int) string {
	return ip + ":" + strconv.Itoa(port)
}

// AssetKey is the "ip:port" key SERVICE_TCP/SERVICE_UDP assets are
// keyed on (§4.E), exported so callers wiring the asset store don't
// duplicate the format.
func AssetKey(ip string, port int) string {
	return portKey(ip, port)
}

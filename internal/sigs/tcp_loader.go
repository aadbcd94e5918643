package sigs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// TCPSigLine is one fully-parsed record from a p0f-v2-compatible TCP OS
// signature file: `wss:ttl:df:sz:opts:quirks:os:details`.
type TCPSigLine struct {
	WSS     string
	TTL     int
	DF      bool
	SZ      int
	Opts    string
	Quirks  Quirk
	OS      string
	Details string

	OptCnt int
	MSS    string
	WSC    string
	T0     bool
}

// ParseTCPSigLine parses one non-comment, non-blank line of a TCP OS
// signature file per spec.md §4.A.
func ParseTCPSigLine(line string) (TCPSigLine, error) {
	fields := strings.Split(line, ":")
	if len(fields) != 8 {
		return TCPSigLine{}, fmt.Errorf("expected 8 colon-separated fields, got %d: %q", len(fields), line)
	}
	var sig TCPSigLine
	sig.WSS = fields[0]

	ttl, err := strconv.Atoi(fields[1])
	if err != nil {
		return TCPSigLine{}, fmt.Errorf("bad ttl %q: %w", fields[1], err)
	}
	sig.TTL = ttl

	switch fields[2] {
	case "0":
		sig.DF = false
	case "1":
		sig.DF = true
	default:
		return TCPSigLine{}, fmt.Errorf("bad df %q", fields[2])
	}

	sz, err := strconv.Atoi(fields[3])
	if err != nil {
		return TCPSigLine{}, fmt.Errorf("bad sz %q: %w", fields[3], err)
	}
	sig.SZ = sz

	sig.Opts = fields[4]
	sig.Quirks = ParseQuirks(fields[5])
	sig.OS = fields[6]
	sig.Details = fields[7]

	sig.OptCnt, sig.MSS, sig.WSC, sig.T0 = deriveOptFeatures(sig.Opts)

	return sig, nil
}

// deriveOptFeatures implements the option-field derivation of §4.A:
// optcnt is the comma count in the opts string (0 if "."), mss/wsc come
// from any M.../W... token. t0 mirrors the packet-side disjunction in
// fingerprint.ParseOptions exactly: true when there is no timestamp
// option at all, or when the timestamp option's value is zero — not
// just when a literal "T0" token appears.
func deriveOptFeatures(opts string) (optcnt int, mss, wsc string, t0 bool) {
	mss, wsc = "*", "*"
	if opts == "." || opts == "" {
		return 0, mss, wsc, true
	}
	optcnt = strings.Count(opts, ",")
	sawTS, tsZero := false, false
	for _, tok := range strings.Split(opts, ",") {
		switch {
		case tok == "T0":
			sawTS, tsZero = true, true
		case tok == "T":
			sawTS = true
		case strings.HasPrefix(tok, "M") && len(tok) > 1:
			mss = tok[1:]
		case strings.HasPrefix(tok, "W") && len(tok) > 1:
			wsc = tok[1:]
		}
	}
	t0 = !sawTS || tsZero
	return
}

// LoadTCPSigFile loads a whole TCP OS signature file into a tree.
func LoadTCPSigFile(path string, warn func(string)) (*TCPTree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadTCPSigs(f, warn)
}

// LoadTCPSigs parses every record from r. Malformed records are fatal,
// per spec.md §4.A ("reject malformed records as fatal").
func LoadTCPSigs(r io.Reader, warn func(string)) (*TCPTree, error) {
	tree := NewTCPTree()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}
		sig, err := ParseTCPSigLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		tree.Insert(sig, warn)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return tree, nil
}

// stripComment removes a trailing `#...` comment and surrounding
// whitespace; it returns "" for blank or comment-only lines.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

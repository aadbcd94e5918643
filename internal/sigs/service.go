package sigs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

// ServiceSig is one compiled service-fingerprint signature.
type ServiceSig struct {
	Service   string
	Template  string
	RegexText string
	Regex     *regexp.Regexp
}

// ParseServiceSigLine parses one `service,template,regex` record. The
// regex itself may contain commas, so only the first two fields are
// split off.
func ParseServiceSigLine(line string) (ServiceSig, error) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) != 3 {
		return ServiceSig{}, fmt.Errorf("expected service,template,regex: %q", line)
	}
	tmpl := strings.TrimPrefix(parts[1], "v/")
	re, err := regexp.Compile(parts[2])
	if err != nil {
		return ServiceSig{}, fmt.Errorf("bad regex %q: %w", parts[2], err)
	}
	return ServiceSig{Service: parts[0], Template: tmpl, RegexText: parts[2], Regex: re}, nil
}

// LoadServiceSigFile loads a service signature file into a slice
// deduplicated by regex text and ordered by descending regex length, so
// the most specific signature is tried first (§4.A).
func LoadServiceSigFile(path string) ([]ServiceSig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadServiceSigs(f)
}

func LoadServiceSigs(r io.Reader) ([]ServiceSig, error) {
	seen := make(map[string]ServiceSig)
	var order []string
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}
		sig, err := ParseServiceSigLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if _, dup := seen[sig.RegexText]; !dup {
			order = append(order, sig.RegexText)
		}
		seen[sig.RegexText] = sig
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	out := make([]ServiceSig, 0, len(order))
	for _, k := range order {
		out = append(out, seen[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].RegexText) > len(out[j].RegexText)
	})
	return out, nil
}

package sigs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// UDPTree holds UDP OS signatures. The fingerprint string order is
// fplen:ttl:df:io:if:fo (§3) but the tree is descended in the order
// fplen -> ttl -> df -> if -> fo -> io (§3 "Signature trees").
type UDPTree struct {
	root *wildNode
}

func NewUDPTree() *UDPTree {
	return &UDPTree{root: newWildNode()}
}

// UDPSigLine is one parsed record of an 8-field UDP signature file.
type UDPSigLine struct {
	FPLen, TTL, DF, IO, IF, FO string
	OS, Details                string
}

func ParseUDPSigLine(line string) (UDPSigLine, error) {
	f := strings.Split(line, ":")
	if len(f) != 8 {
		return UDPSigLine{}, fmt.Errorf("expected 8 colon-separated fields, got %d: %q", len(f), line)
	}
	sig := UDPSigLine{
		FPLen: f[0], TTL: f[1], DF: f[2], IO: normalizeDotZero(f[3]), IF: f[4], FO: f[5],
		OS: f[6], Details: f[7],
	}
	return sig, nil
}

func (sig UDPSigLine) treeKeys() []string {
	return []string{sig.FPLen, sig.TTL, sig.DF, sig.IF, sig.FO, sig.IO}
}

func (t *UDPTree) Insert(sig UDPSigLine, warn func(string)) {
	t.root.insert(sig.treeKeys(), Leaf{OS: sig.OS, Details: sig.Details}, warn)
}

// Lookup takes keys in fingerprint-field order (fplen,ttl,df,io,iff,fo).
func (t *UDPTree) Lookup(fplen, ttl, df, io, iff, fo string) (Leaf, bool) {
	keys := []string{fplen, ttl, df, iff, fo, io}
	return t.root.lookup(keys)
}

func LoadUDPSigFile(path string, warn func(string)) (*UDPTree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadUDPSigs(f, warn)
}

func LoadUDPSigs(r io.Reader, warn func(string)) (*UDPTree, error) {
	tree := NewUDPTree()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}
		sig, err := ParseUDPSigLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		tree.Insert(sig, warn)
	}
	return tree, sc.Err()
}

package sigs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ICMPTree holds ICMP OS signatures. The fingerprint string order is
// itype:icode:ttl:df:io:il:if:fo:tos (§3) but the tree is descended in
// the order itype -> icode -> il -> ttl -> df -> if -> fo -> io -> tos
// (§3 "Signature trees").
type ICMPTree struct {
	root *wildNode
}

func NewICMPTree() *ICMPTree {
	return &ICMPTree{root: newWildNode()}
}

// ICMPSigLine is one parsed record of an 11-field ICMP signature file.
type ICMPSigLine struct {
	IType, ICode, TTL, DF, IO, IL, IF, FO, TOS string
	OS, Details                                string
}

func ParseICMPSigLine(line string) (ICMPSigLine, error) {
	f := strings.Split(line, ":")
	if len(f) != 11 {
		return ICMPSigLine{}, fmt.Errorf("expected 11 colon-separated fields, got %d: %q", len(f), line)
	}
	sig := ICMPSigLine{
		IType: f[0], ICode: f[1], TTL: f[2], DF: f[3],
		IO: normalizeDotZero(f[4]), IL: f[5], IF: f[6], FO: f[7], TOS: f[8],
		OS: f[9], Details: f[10],
	}
	return sig, nil
}

func normalizeDotZero(s string) string {
	if s == "." {
		return "0"
	}
	return s
}

// treeKeys returns the insertion/lookup key order for the tree, which is
// NOT the fingerprint-string field order (see type doc).
func (sig ICMPSigLine) treeKeys() []string {
	return []string{sig.IType, sig.ICode, sig.IL, sig.TTL, sig.DF, sig.IF, sig.FO, sig.IO, sig.TOS}
}

func (t *ICMPTree) Insert(sig ICMPSigLine, warn func(string)) {
	t.root.insert(sig.treeKeys(), Leaf{OS: sig.OS, Details: sig.Details}, warn)
}

// Lookup takes keys in fingerprint-field order (itype,icode,ttl,df,io,il,if,fo,tos)
// and reorders them to the tree's descent order before searching.
func (t *ICMPTree) Lookup(itype, icode, ttl, df, io, il, iff, fo, tos string) (Leaf, bool) {
	keys := []string{itype, icode, il, ttl, df, iff, fo, io, tos}
	return t.root.lookup(keys)
}

func LoadICMPSigFile(path string, warn func(string)) (*ICMPTree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadICMPSigs(f, warn)
}

func LoadICMPSigs(r io.Reader, warn func(string)) (*ICMPTree, error) {
	tree := NewICMPTree()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}
		sig, err := ParseICMPSigLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		tree.Insert(sig, warn)
	}
	return tree, sc.Err()
}

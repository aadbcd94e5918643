package fingerprint

import (
	"strconv"
	"strings"

	"github.com/gamelinux/prads/internal/sigs"
)

// Features is the TCP feature vector built from one SYN or SYN-ACK
// packet, per §4.C step 2.
type Features struct {
	SZ      int
	OptCnt  int
	T0      bool
	DF      bool
	Quirks  sigs.Quirk
	MSS     string
	MSSNum  int
	WSC     string
	WinSize int
	WSS     string
	OptStr  string
	TTL     int // generalized ttl (gttl)
}

// PacketInputs are the raw values a dissector extracts from the IP/TCP
// headers, before quirk derivation.
type PacketInputs struct {
	TotalLen     int
	GTTL         int
	DF           bool
	WinSize      int
	IPIDZero     bool
	IPOptsPresent bool
	URG          bool
	Reserved     bool
	AckNonZero   bool
	ExtraFlags   bool // flags & ^(SYN|ACK) != 0
	PayloadPresent bool
	RawOptions   []byte
}

// BuildFeatures derives the full feature vector from raw packet inputs.
func BuildFeatures(in PacketInputs) Features {
	opt := ParseOptions(in.RawOptions)
	quirks := opt.Quirks
	if in.IPIDZero {
		quirks |= sigs.QuirkZ
	}
	if in.IPOptsPresent {
		quirks |= sigs.QuirkI
	}
	if in.URG {
		quirks |= sigs.QuirkU
	}
	if in.Reserved {
		quirks |= sigs.QuirkX
	}
	if in.AckNonZero {
		quirks |= sigs.QuirkA
	}
	if in.ExtraFlags {
		quirks |= sigs.QuirkF
	}
	if in.PayloadPresent {
		quirks |= sigs.QuirkD
	}

	sz := in.TotalLen
	if sz >= 100 {
		sz = 0
	}

	return Features{
		SZ:      sz,
		OptCnt:  opt.OptCnt,
		T0:      opt.T0,
		DF:      in.DF,
		Quirks:  quirks,
		MSS:     opt.MSS,
		MSSNum:  opt.MSSNum,
		WSC:     opt.WSC,
		WinSize: in.WinSize,
		WSS:     NormalizeWSS(in.WinSize, opt.MSSNum),
		OptStr:  opt.OptStr,
		TTL:     in.GTTL,
	}
}

// FP renders the p0f-compatible fingerprint string wss:ttl:df:sz:opts:quirks.
func (f Features) FP() string {
	df := "0"
	if f.DF {
		df = "1"
	}
	return f.WSS + ":" + strconv.Itoa(f.TTL) + ":" + df + ":" + strconv.Itoa(f.SZ) + ":" + f.OptStr + ":" + f.Quirks.String()
}

// Match is one candidate result out of the TCP matcher.
type Match struct {
	OS      string
	Details string
	Fuzzy   bool
}

// MatchTCP descends tree per §4.C steps 3-11 and returns the surviving
// leaves, or ok=false if nothing matched.
func MatchTCP(tree *sigs.TCPTree, f Features) ([]Match, bool) {
	qn, ok := tree.Descend(f.SZ, f.OptCnt, f.T0, f.DF)
	if !ok {
		return nil, false
	}

	// step 4: quirk set match, order-independent.
	var mssNode *sigs.MSSNode
	qn.Each(func(key sigs.Quirk, mss *sigs.MSSNode) {
		if mssNode != nil {
			return
		}
		if f.Quirks == 0 {
			if key == 0 {
				mssNode = mss
			}
			return
		}
		if key.SetEqual(f.Quirks) {
			mssNode = mss
		}
	})
	if mssNode == nil {
		return nil, false
	}

	// step 5: mss match (literal, %n, or *).
	var wscNodes []*sigs.WSCNode
	mssNode.Each(func(key string, wsc *sigs.WSCNode) {
		if matchMSSKey(key, f.MSSNum) {
			wscNodes = append(wscNodes, wsc)
		}
	})
	if len(wscNodes) == 0 {
		return nil, false
	}

	// step 6a: wsc match, exact then wildcard.
	var wssNodes []*sigs.WSSNode
	for _, wscn := range wscNodes {
		var exact, wildcard *sigs.WSSNode
		wscn.Each(func(key string, wss *sigs.WSSNode) {
			switch key {
			case f.WSC:
				exact = wss
			case "*":
				wildcard = wss
			}
		})
		if exact != nil {
			wssNodes = append(wssNodes, exact)
		} else if wildcard != nil {
			wssNodes = append(wssNodes, wildcard)
		}
	}
	if len(wssNodes) == 0 {
		return nil, false
	}

	// step 6b: wss match, classified primary vs fuzzy.
	var primary, fuzzy []*sigs.OptsNode
	for _, wssn := range wssNodes {
		wssn.Each(func(key string, opts *sigs.OptsNode) {
			switch matchWSSKey(key, f.WinSize, f.MSSNum) {
			case matchPrimary:
				primary = append(primary, opts)
			case matchFuzzy:
				fuzzy = append(fuzzy, opts)
			}
		})
	}

	candidates := primary
	isFuzzy := false
	if len(candidates) == 0 {
		candidates = fuzzy
		isFuzzy = true
	}
	if len(candidates) == 0 {
		return nil, false
	}

	// step 8/9: option-string match then ttl match with one-hop retry.
	var leaves []Match
	for _, optsn := range candidates {
		var ttlNode *sigs.TTLNode
		optsn.Each(func(spec string, ttls *sigs.TTLNode) {
			if ttlNode != nil {
				return
			}
			if MatchOpts(spec, f.OptStr) {
				ttlNode = ttls
			}
		})
		if ttlNode == nil {
			continue
		}
		if leaf, ok := ttlNode.Lookup(f.TTL); ok {
			leaves = append(leaves, Match{OS: leaf.OS, Details: leaf.Details, Fuzzy: isFuzzy})
		} else if f.TTL < 255 {
			if leaf, ok := ttlNode.Lookup(NormalizeTTL(f.TTL + 1)); ok {
				leaves = append(leaves, Match{OS: leaf.OS, Details: leaf.Details, Fuzzy: isFuzzy})
			}
		}
	}

	// step 10: generic filter — drop "@"-prefixed matches if a
	// non-generic match also exists.
	hasSpecific := false
	for _, l := range leaves {
		if !strings.HasPrefix(l.OS, "@") {
			hasSpecific = true
			break
		}
	}
	if hasSpecific {
		filtered := leaves[:0]
		for _, l := range leaves {
			if !strings.HasPrefix(l.OS, "@") {
				filtered = append(filtered, l)
			}
		}
		leaves = filtered
	}

	return leaves, len(leaves) > 0
}

func matchMSSKey(key string, mss int) bool {
	if key == "*" {
		return true
	}
	if strings.HasPrefix(key, "%") {
		n, err := strconv.Atoi(key[1:])
		return err == nil && n != 0 && mss%n == 0
	}
	n, err := strconv.Atoi(key)
	return err == nil && n == mss
}

type matchKind int

const (
	matchNone matchKind = iota
	matchPrimary
	matchFuzzy
)

func matchWSSKey(key string, winsize, mss int) matchKind {
	switch {
	case key == "*":
		return matchFuzzy
	case key == strconv.Itoa(winsize):
		return matchPrimary
	case strings.HasPrefix(key, "S"):
		n, err := strconv.Atoi(key[1:])
		if err == nil && mss > 0 && n*mss == winsize {
			return matchPrimary
		}
	case strings.HasPrefix(key, "M"):
		n, err := strconv.Atoi(key[1:])
		if err == nil && mss > 0 && n*(mss+40) == winsize {
			return matchPrimary
		}
	case strings.HasPrefix(key, "%"):
		n, err := strconv.Atoi(key[1:])
		if err == nil && n != 0 && winsize%n == 0 {
			return matchPrimary
		}
	}
	return matchNone
}

// MatchOpts implements §4.C step 8's token-wise option-spec match.
func MatchOpts(spec, packetOpts string) bool {
	specToks := splitOptTokens(spec)
	pktToks := splitOptTokens(packetOpts)
	if len(specToks) != len(pktToks) {
		return false
	}
	for i := range specToks {
		if !matchOptToken(specToks[i], pktToks[i]) {
			return false
		}
	}
	return true
}

func splitOptTokens(s string) []string {
	if s == "." || s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func matchOptToken(spec, pkt string) bool {
	if spec == pkt {
		return true
	}
	if strings.HasPrefix(spec, "M") {
		if spec == "M*" {
			return strings.HasPrefix(pkt, "M")
		}
		return pkt == "M*"
	}
	if strings.HasPrefix(spec, "W") {
		if spec == "W*" {
			return strings.HasPrefix(pkt, "W")
		}
		return pkt == "W*"
	}
	return false
}

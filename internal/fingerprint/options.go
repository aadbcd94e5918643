package fingerprint

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/gamelinux/prads/internal/sigs"
)

// OptionsResult is the outcome of walking a TCP option list (§4.C step 1).
type OptionsResult struct {
	Tokens []string
	OptStr string
	OptCnt int
	Quirks sigs.Quirk
	MSS    string // numeric string, or "*" if no MSS option
	MSSNum int
	WSC    string // numeric string, or "*" if no window-scale option
	T0     bool   // no timestamp option, or TSval == 0
}

// ParseOptions walks raw TCP option bytes and derives the option string,
// quirk bits, mss/wsc tokens, and t0 per §4.C step 1.
func ParseOptions(raw []byte) OptionsResult {
	var tokens []string
	var quirks sigs.Quirk
	mss, mssNum := "*", 0
	wsc := "*"
	sawTS := false
	tsZero := false

	i := 0
	for i < len(raw) {
		kind := raw[i]
		switch kind {
		case 0: // EOL
			tokens = append(tokens, "E")
			if i+1 < len(raw) {
				quirks |= sigs.QuirkP
			}
			i = len(raw)
		case 1: // NOP
			tokens = append(tokens, "N")
			i++
		case 2: // MSS
			if i+4 > len(raw) {
				quirks |= sigs.QuirkBang
				i = len(raw)
				break
			}
			val := binary.BigEndian.Uint16(raw[i+2 : i+4])
			tokens = append(tokens, fmt.Sprintf("M%d", val))
			mss = strconv.Itoa(int(val))
			mssNum = int(val)
			i += 4
		case 3: // Window scale
			if i+3 > len(raw) {
				quirks |= sigs.QuirkBang
				i = len(raw)
				break
			}
			val := raw[i+2]
			tokens = append(tokens, fmt.Sprintf("W%d", val))
			wsc = strconv.Itoa(int(val))
			i += 3
		case 4: // SACK permitted
			tokens = append(tokens, "S")
			i += 2
		case 8: // Timestamps
			if i+10 > len(raw) {
				quirks |= sigs.QuirkBang
				i = len(raw)
				break
			}
			tsval := binary.BigEndian.Uint32(raw[i+2 : i+6])
			tsecr := binary.BigEndian.Uint32(raw[i+6 : i+10])
			sawTS = true
			if tsval != 0 {
				tokens = append(tokens, "T")
			} else {
				tokens = append(tokens, "T0")
				tsZero = true
			}
			if tsecr != 0 {
				quirks |= sigs.QuirkT
			}
			i += 10
		default:
			if i+2 > len(raw) {
				quirks |= sigs.QuirkBang
				i = len(raw)
				break
			}
			length := int(raw[i+1])
			if length < 2 || i+length > len(raw) {
				quirks |= sigs.QuirkBang
				i = len(raw)
				break
			}
			tokens = append(tokens, fmt.Sprintf("?%d", kind))
			i += length
		}
	}

	optStr := "."
	if len(tokens) > 0 {
		optStr = strings.Join(tokens, ",")
	}
	return OptionsResult{
		Tokens: tokens,
		OptStr: optStr,
		OptCnt: strings.Count(optStr, ","),
		Quirks: quirks,
		MSS:    mss,
		MSSNum: mssNum,
		WSC:    wsc,
		T0:     !sawTS || tsZero,
	}
}

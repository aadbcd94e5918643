package mac

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const defaultBits = 48

// LoadFile loads a prads-ether-codes-format vendor file: lines of
// `prefix[/bits]<ws>vendor<ws>details`, `#` starts a trailing comment.
func LoadFile(path string) (*Trie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Trie, error) {
	t := New()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}
		prefix, bits, vendor, details, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		bytes, err := SplitBytes(prefix)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		need := bits / 8
		if bits%8 != 0 {
			need++
		}
		if len(bytes) > need {
			bytes = bytes[:need]
		}
		if err := t.Insert(bytes, bits, Leaf{Vendor: vendor, Details: details}); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return t, sc.Err()
}

func stripComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}

// parseLine splits `prefix[/bits]<ws>vendor<ws>details`. vendor and
// details are themselves whitespace-separated fields; details may be
// absent.
func parseLine(line string) (prefix string, bits int, vendor string, details string, err error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", 0, "", "", fmt.Errorf("expected prefix vendor [details...]: %q", line)
	}
	prefix = fields[0]
	bits = defaultBits
	if idx := strings.IndexByte(prefix, '/'); idx >= 0 {
		b, perr := strconv.Atoi(prefix[idx+1:])
		if perr != nil {
			return "", 0, "", "", fmt.Errorf("bad bit count in %q: %w", prefix, perr)
		}
		bits = b
		prefix = prefix[:idx]
	}
	vendor = fields[1]
	if len(fields) > 2 {
		details = strings.Join(fields[2:], " ")
	}
	return prefix, bits, vendor, details, nil
}

// Package dissect decodes one captured link-layer frame into the
// header fields the OS/service matchers need, per §4.B.
package dissect

import (
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Frame is the decoded result of one captured packet.
type Frame struct {
	Timestamp time.Time
	SrcMAC    net.HardwareAddr
	DstMAC    net.HardwareAddr
	ARP       *ARP
	IP        *IP
}

type ARP struct {
	Operation uint16
	SenderMAC net.HardwareAddr
	SenderIP  net.IP
	TargetIP  net.IP
}

// IP carries the fields §4.B extracts from the IPv4 header, plus the
// decoded transport-layer payload (at most one of TCP/UDP/ICMP is set;
// none for any other IP protocol).
type IP struct {
	TTL        uint8
	OptsToken  string // "." if no IP options, else raw option bytes present
	TotalLen   int
	ID         uint16
	DF         bool
	FragOffset uint16
	MoreFrags  bool
	TOS        uint8
	Src, Dst   net.IP
	Proto      int

	GTTL     int
	Distance int

	TCP  *TCP
	UDP  *UDP
	ICMP *ICMP
}

type TCP struct {
	SrcPort, DstPort uint16
	SYN, ACK, FIN, RST, PSH, URG bool
	Reserved                     bool
	Seq, Ack                     uint32
	WinSize                      uint16
	RawOptions                   []byte
	Payload                      []byte
	PayloadLen                   int
}

type UDP struct {
	SrcPort, DstPort uint16
	Len              int // UDP-declared length
	Payload          []byte
}

type ICMP struct {
	Type uint8
	Code uint8
}

// Parse decodes one Ethernet frame, stripping 802.1Q/QinQ tags and
// routing by ethertype per §4.B steps 1-4. Non-ARP/IPv4 frames return
// (nil, nil) — dropped, not an error. An IPv4 frame whose payload is not
// TCP, UDP or ICMP is returned with IP set and all three transport
// fields nil.
func Parse(data []byte, arrival time.Time) (*Frame, error) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	if err := pkt.ErrorLayer(); err != nil {
		return nil, fmt.Errorf("decode error: %w", err)
	}
	ethLayer := pkt.LinkLayer()
	eth, ok := ethLayer.(*layers.Ethernet)
	if !ok {
		return nil, fmt.Errorf("no ethernet layer")
	}

	f := &Frame{Timestamp: arrival, SrcMAC: eth.SrcMAC, DstMAC: eth.DstMAC}

	for _, l := range pkt.Layers() {
		switch v := l.(type) {
		case *layers.ARP:
			f.ARP = &ARP{
				Operation: v.Operation,
				SenderMAC: net.HardwareAddr(v.SourceHwAddress),
				SenderIP:  net.IP(v.SourceProtAddress),
				TargetIP:  net.IP(v.DstProtAddress),
			}
		case *layers.IPv4:
			ip := &IP{
				TTL:        v.TTL,
				TotalLen:   int(v.Length),
				ID:         v.Id,
				DF:         v.Flags&layers.IPv4DontFragment != 0,
				MoreFrags:  v.Flags&layers.IPv4MoreFragments != 0,
				FragOffset: v.FragOffset,
				TOS:        v.TOS,
				Src:        v.SrcIP,
				Dst:        v.DstIP,
				Proto:      int(v.Protocol),
			}
			ip.OptsToken = "."
			if len(v.Options) > 0 {
				ip.OptsToken = "opts"
			}
			ip.GTTL = normalizeTTL(int(ip.TTL))
			ip.Distance = ip.GTTL - int(ip.TTL)
			f.IP = ip
		case *layers.TCP:
			if f.IP == nil {
				continue
			}
			f.IP.TCP = &TCP{
				SrcPort: uint16(v.SrcPort), DstPort: uint16(v.DstPort),
				SYN: v.SYN, ACK: v.ACK, FIN: v.FIN, RST: v.RST, PSH: v.PSH, URG: v.URG,
				Reserved:   v.NS || v.ECE || v.CWR,
				Seq:        v.Seq, Ack: v.Ack,
				WinSize:    v.Window,
				RawOptions: encodeOptions(v.Options, v.Padding),
				Payload:    v.Payload,
				PayloadLen: len(v.Payload),
			}
		case *layers.UDP:
			if f.IP == nil {
				continue
			}
			f.IP.UDP = &UDP{
				SrcPort: uint16(v.SrcPort), DstPort: uint16(v.DstPort),
				Len:     int(v.Length),
				Payload: v.Payload,
			}
		case *layers.ICMPv4:
			if f.IP == nil {
				continue
			}
			f.IP.ICMP = &ICMP{
				Type: uint8(v.TypeCode.Type()),
				Code: uint8(v.TypeCode.Code()),
			}
		}
	}

	if f.ARP == nil && f.IP == nil {
		return nil, nil
	}
	return f, nil
}

// encodeOptions re-serializes gopacket's parsed TCP options back into
// raw TLV bytes so fingerprint.ParseOptions can walk them the way §4.C
// step 1 describes (kind/length/value), matching on option kind rather
// than gopacket's already-decoded option type. gopacket's decoder stops
// parsing at an EndList option and stuffs anything after it into a
// separate Padding field; that padding is appended here too, or the "P"
// quirk (opts past EOL) could never fire on a real capture.
func encodeOptions(opts []layers.TCPOption, padding []byte) []byte {
	var out []byte
	for _, o := range opts {
		switch o.OptionType {
		case layers.TCPOptionKindEndList:
			out = append(out, 0)
		case layers.TCPOptionKindNop:
			out = append(out, 1)
		default:
			out = append(out, byte(o.OptionType), byte(o.OptionLength))
			out = append(out, o.OptionData...)
		}
	}
	out = append(out, padding...)
	return out
}

func normalizeTTL(ttl int) int {
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

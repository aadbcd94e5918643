package dissect

import (
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func buildSYN(t *testing.T) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x1b, 0x21, 0xaa, 0xbb, 0xcc},
		DstMAC:       net.HardwareAddr{0x00, 0x0c, 0x29, 0x11, 0x22, 0x33},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version: 4, IHL: 5, TTL: 64, Id: 0x1234,
		Flags:    layers.IPv4DontFragment,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(10, 0, 0, 5),
		DstIP:    net.IPv4(10, 0, 0, 1),
	}
	tcp := &layers.TCP{
		SrcPort: 54321, DstPort: 80,
		SYN: true, Window: 5840,
		Options: []layers.TCPOption{
			{OptionType: layers.TCPOptionKindMSS, OptionLength: 4, OptionData: []byte{0x05, 0xb4}},
			{OptionType: layers.TCPOptionKindSACKPermitted, OptionLength: 2},
			{OptionType: layers.TCPOptionKindTimestamps, OptionLength: 10, OptionData: make([]byte, 8)},
			{OptionType: layers.TCPOptionKindNop, OptionLength: 1},
			{OptionType: layers.TCPOptionKindWindowScale, OptionLength: 3, OptionData: []byte{0x07}},
		},
	}
	tcp.SetNetworkLayerForChecksum(ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseTCPSYN(t *testing.T) {
	data := buildSYN(t)
	f, err := Parse(data, time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if f == nil || f.IP == nil || f.IP.TCP == nil {
		t.Fatalf("expected decoded IP+TCP frame, got %+v", f)
	}
	if f.IP.TTL != 64 || !f.IP.DF {
		t.Errorf("ttl=%d df=%v", f.IP.TTL, f.IP.DF)
	}
	if f.IP.GTTL != 64 || f.IP.Distance != 0 {
		t.Errorf("gttl=%d distance=%d", f.IP.GTTL, f.IP.Distance)
	}
	if !f.IP.TCP.SYN {
		t.Error("expected SYN set")
	}
	if f.IP.TCP.WinSize != 5840 {
		t.Errorf("winsize = %d", f.IP.TCP.WinSize)
	}
	if len(f.IP.TCP.RawOptions) == 0 {
		t.Error("expected non-empty raw options")
	}
}

func TestParseNonIPDropped(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC: net.HardwareAddr{0, 1, 2, 3, 4, 5}, DstMAC: net.HardwareAddr{0, 1, 2, 3, 4, 6},
		EthernetType: layers.EthernetTypeLLC,
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth); err != nil {
		t.Fatal(err)
	}
	f, err := Parse(buf.Bytes(), time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if f != nil {
		t.Errorf("expected nil frame for non-ARP/IPv4 ethertype, got %+v", f)
	}
}

// Package engine wires the loaded signature databases, asset store,
// and persistence handle into one context object threaded through
// dissection and matching, replacing global mutable state (§5: "the
// signature trees are read-only after load").
package engine

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/gamelinux/prads/internal/asset"
	"github.com/gamelinux/prads/internal/config"
	"github.com/gamelinux/prads/internal/dissect"
	"github.com/gamelinux/prads/internal/fingerprint"
	"github.com/gamelinux/prads/internal/log"
	"github.com/gamelinux/prads/internal/mac"
	"github.com/gamelinux/prads/internal/persist"
	"github.com/gamelinux/prads/internal/service"
	"github.com/gamelinux/prads/internal/sigs"
)

// Signatures bundles every read-only database loaded at startup.
type Signatures struct {
	SYN         *sigs.TCPTree
	SYNACK      *sigs.TCPTree
	ICMP        *sigs.ICMPTree
	UDP         *sigs.UDPTree
	ServiceTCP  []sigs.ServiceSig
	ServiceUDP  []sigs.ServiceSig
	MTU         *sigs.MTUTable
	MAC         *mac.Trie
}

// Engine is the explicit context object threaded through the capture
// loop: everything a dissected frame needs to become asset updates.
type Engine struct {
	Cfg   *config.Config
	Sigs  *Signatures
	Log   *log.Logger
	Store *asset.Store
	DB    *persist.Store

	Hostname string

	Stats struct {
		Packets, ARP, IPv4, TCP, UDP, ICMP, Dropped uint64
	}
}

// New builds the Engine, wiring the asset store's "new asset" callback
// to the asset-log logger (§4.G); nothing is written when assetLog is nil.
func New(cfg *config.Config, sigset *Signatures, logger *log.Logger, db *persist.Store, assetLog *log.Logger) *Engine {
	e := &Engine{Cfg: cfg, Sigs: sigset, Log: logger, DB: db}
	e.Hostname, _ = os.Hostname()
	e.Store = asset.New(func(a *asset.Asset) {
		if assetLog != nil {
			assetLog.Info(asset.Line(a))
		}
	})
	return e
}

// HandleFrame dispatches one dissected frame through the matchers and
// into the asset store (§2 data flow: Capture -> Dissector -> matcher
// -> Asset store -> Persistence).
func (e *Engine) HandleFrame(f *dissect.Frame) {
	e.Stats.Packets++
	switch {
	case f.ARP != nil:
		e.Stats.ARP++
		if e.Cfg.ARP {
			e.handleARP(f)
		}
	case f.IP != nil:
		e.Stats.IPv4++
		e.handleIP(f)
	default:
		e.Stats.Dropped++
	}
}

func (e *Engine) handleARP(f *dissect.Frame) {
	ip := f.ARP.SenderIP.String()
	macStr := f.ARP.SenderMAC.String()
	vendor, details := "?", "?"
	if e.Sigs.MAC != nil {
		if leaf, ok := e.Sigs.MAC.LookupString(macStr); ok {
			vendor, details = leaf.Vendor, leaf.Details
		}
	}
	fp := macPrefixFP(f.ARP.SenderMAC)
	e.Store.Update(asset.KindARP, ip, fp, macStr, vendor, details, "ethernet", e.Hostname, 1, time.Now())
}

func macPrefixFP(hw net.HardwareAddr) string {
	if len(hw) < 3 {
		return hw.String()
	}
	b := hw[:3]
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, 6)
	for _, v := range b {
		out = append(out, hexDigits[v>>4], hexDigits[v&0xf])
	}
	return string(out)
}

func (e *Engine) handleIP(f *dissect.Frame) {
	ip := f.IP
	switch {
	case ip.TCP != nil:
		e.Stats.TCP++
		e.handleTCP(f)
	case ip.UDP != nil:
		e.Stats.UDP++
		e.handleUDP(f)
	case ip.ICMP != nil:
		e.Stats.ICMP++
		e.handleICMP(f)
	default:
		e.Stats.Dropped++
	}
}

func (e *Engine) handleTCP(f *dissect.Frame) {
	ip, tcp := f.IP, f.IP.TCP
	if !tcp.SYN {
		e.maybeServiceTCP(f)
		return
	}
	isSynAck := tcp.ACK
	tree := e.Sigs.SYN
	kind := asset.KindSYN
	if isSynAck {
		if !e.Cfg.OSSynAck {
			return
		}
		tree = e.Sigs.SYNACK
		kind = asset.KindSYNACK
	} else if !e.Cfg.OSSyn {
		return
	}

	feat := fingerprint.BuildFeatures(fingerprint.PacketInputs{
		TotalLen:       ip.TotalLen,
		GTTL:           ip.GTTL,
		DF:             ip.DF,
		WinSize:        int(tcp.WinSize),
		IPIDZero:       ip.ID == 0,
		IPOptsPresent:  ip.OptsToken != ".",
		URG:            tcp.URG,
		Reserved:       tcp.Reserved,
		AckNonZero:     tcp.Ack != 0,
		ExtraFlags:     tcp.FIN || tcp.RST || tcp.PSH || tcp.URG,
		PayloadPresent: tcp.PayloadLen > 0,
		RawOptions:     tcp.RawOptions,
	})

	matches, ok := fingerprint.MatchTCP(tree, feat)
	osName, details := "?", "?"
	if ok {
		osName, details = matches[0].OS, matches[0].Details
		if matches[0].Fuzzy {
			details += " (guess)"
		}
	}
	link := e.Sigs.MTU.GetLink(feat.MSSNum + 40)
	e.Store.Update(kind, ip.Src.String(), feat.FP(), f.SrcMAC.String(), osName, details, link, e.Hostname, ip.Distance, time.Now())
}

func (e *Engine) maybeServiceTCP(f *dissect.Frame) {
	if !e.Cfg.ServiceTCP || len(e.Sigs.ServiceTCP) == 0 {
		return
	}
	ip, tcp := f.IP, f.IP.TCP
	if len(tcp.Payload) == 0 {
		return
	}
	m, ok := service.MatchPayload(e.Sigs.ServiceTCP, tcp.Payload)
	if !ok {
		return
	}
	key := service.AssetKey(ip.Src.String(), int(tcp.SrcPort))
	e.Store.Update(asset.KindServiceTCP, ip.Src.String(), key, f.SrcMAC.String(),
		m.Vendor, m.Version+" "+m.Info, "", e.Hostname, ip.Distance, time.Now())
}

func (e *Engine) handleUDP(f *dissect.Frame) {
	ip, udp := f.IP, f.IP.UDP
	if e.Cfg.ServiceUDP && len(e.Sigs.ServiceUDP) > 0 {
		if m, ok := service.MatchPayload(e.Sigs.ServiceUDP, udp.Payload); ok {
			e.Store.Update(asset.KindServiceUDP, ip.Src.String(), service.AssetKey(ip.Src.String(), int(udp.SrcPort)),
				f.SrcMAC.String(), m.Vendor, m.Version+" "+m.Info, "", e.Hostname, ip.Distance, time.Now())
			return
		}
	} else if m, ok := service.WellKnownUDP(int(udp.SrcPort)); ok {
		e.Store.Update(asset.KindServiceUDP, ip.Src.String(), service.AssetKey(ip.Src.String(), int(udp.SrcPort)),
			f.SrcMAC.String(), m.Vendor, m.Info, "", e.Hostname, ip.Distance, time.Now())
		return
	}

	if !e.Cfg.OSUDP {
		return
	}
	fplen := ip.TotalLen - udp.Len
	if fplen < 0 {
		fplen = 0
	}
	osName, details, ok := fingerprint.MatchUDP(e.Sigs.UDP,
		strconv.Itoa(fplen), strconv.Itoa(ip.GTTL), boolDigit(ip.DF), boolDigit(ip.ID != 0), boolDigit(ip.MoreFrags), boolDigit(ip.FragOffset != 0))
	if !ok {
		return
	}
	e.Store.Update(asset.KindUDP, ip.Src.String(), udpFP(fplen, ip), f.SrcMAC.String(), osName, details, "", e.Hostname, ip.Distance, time.Now())
}

func (e *Engine) handleICMP(f *dissect.Frame) {
	if !e.Cfg.ICMP || !e.Cfg.OSICMP {
		return
	}
	ip, icmp := f.IP, f.IP.ICMP
	osName, details := fingerprint.MatchICMP(e.Sigs.ICMP,
		strconv.Itoa(int(icmp.Type)), strconv.Itoa(int(icmp.Code)), strconv.Itoa(ip.GTTL), boolDigit(ip.DF),
		boolDigit(ip.ID != 0), boolDigit(ip.OptsToken != "."), boolDigit(ip.MoreFrags), boolDigit(ip.FragOffset != 0), strconv.Itoa(int(ip.TOS)))
	fp := icmpFP(ip, icmp)
	e.Store.Update(asset.KindICMP, ip.Src.String(), fp, f.SrcMAC.String(), osName, details, "", e.Hostname, ip.Distance, time.Now())
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func udpFP(fplen int, ip *dissect.IP) string {
	return strconv.Itoa(fplen) + ":" + strconv.Itoa(ip.GTTL) + ":" + boolDigit(ip.DF) + ":" + boolDigit(ip.ID != 0) + ":" + boolDigit(ip.MoreFrags) + ":" + boolDigit(ip.FragOffset != 0)
}

func icmpFP(ip *dissect.IP, icmp *dissect.ICMP) string {
	return strconv.Itoa(int(icmp.Type)) + ":" + strconv.Itoa(int(icmp.Code)) + ":" + strconv.Itoa(ip.GTTL) + ":" + boolDigit(ip.DF) + ":" +
		boolDigit(ip.ID != 0) + ":" + boolDigit(ip.OptsToken != ".") + ":" + boolDigit(ip.MoreFrags) + ":" +
		boolDigit(ip.FragOffset != 0) + ":" + strconv.Itoa(int(ip.TOS))
}

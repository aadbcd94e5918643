// Package capture drives the pcap read loop and the signal-driven
// lifecycle of §4.I/§5: a single goroutine pulls frames and checks
// flags set by signal handlers between frames.
package capture

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gopacket/pcap"
)

const snapLen = 65535

var pktTimeout = 500 * time.Millisecond

// Handle wraps the live pcap capture device.
type Handle struct {
	hnd *pcap.Handle
}

// Open opens device in promiscuous mode with the fixed snaplen/timeout
// of §4.I and installs bpfFilter if non-empty.
func Open(device, bpfFilter string) (*Handle, error) {
	hnd, err := pcap.OpenLive(device, snapLen, true, pktTimeout)
	if err != nil {
		return nil, fmt.Errorf("open device %s: %w", device, err)
	}
	if bpfFilter != "" {
		if err := hnd.SetBPFFilter(bpfFilter); err != nil {
			hnd.Close()
			return nil, fmt.Errorf("bad bpf filter %q: %w", bpfFilter, err)
		}
	}
	return &Handle{hnd: hnd}, nil
}

func (h *Handle) Close() {
	h.hnd.Close()
}

// ReadPacketData blocks until a frame arrives or the read timeout
// expires (reported as pcap.NextErrorTimeoutExpired so the caller can
// check the cooperative flags below and loop again).
func (h *Handle) ReadPacketData() ([]byte, time.Time, error) {
	data, ci, err := h.hnd.ReadPacketData()
	return data, ci.Timestamp, err
}

func IsTimeout(err error) bool {
	return err == pcap.NextErrorTimeoutExpired
}

// Stats returns the pcap packets-received/dropped counters. The HUP
// dump in cmd/prads reports the engine's own counters, not these.
func (h *Handle) Stats() (*pcap.Stats, error) {
	return h.hnd.Stats()
}

// Signals is the cooperative event queue of §5: handlers only ever set
// flags here; the capture loop drains them between frames.
type Signals struct {
	ch       chan os.Signal
	Shutdown bool
	DumpReq  bool
	FlushReq bool
}

// NewSignals registers for the signals §4.I names. SIGKILL cannot
// actually be intercepted by any process (the kernel delivers it
// unconditionally) so it is listed here for documentation parity with
// the spec but os/signal silently ignores the registration.
func NewSignals() *Signals {
	s := &Signals{ch: make(chan os.Signal, 4)}
	signal.Notify(s.ch,
		os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGKILL,
		syscall.SIGHUP, syscall.SIGALRM,
	)
	return s
}

// Poll drains any pending signals into the sticky flags without
// blocking. Call between frames (§5: "signals do not interrupt packet
// processing").
func (s *Signals) Poll() {
	for {
		select {
		case sig := <-s.ch:
			switch sig {
			case os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT:
				s.Shutdown = true
			case syscall.SIGHUP:
				s.DumpReq = true
			case syscall.SIGALRM:
				s.FlushReq = true
			}
		default:
			return
		}
	}
}

func (s *Signals) Stop() {
	signal.Stop(s.ch)
	close(s.ch)
}

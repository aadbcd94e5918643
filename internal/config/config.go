// Package config loads the PRADS configuration file and merges CLI flag
// overrides on top of it. The file format is flat `key = value` with `#`
// comments — exactly what github.com/magiconair/properties parses, so
// that library does the line splitting and comment stripping instead of
// a hand-rolled scanner.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/magiconair/properties"
)

// Config holds every recognized key from the PRADS configuration file,
// after CLI-flag overrides have been applied.
type Config struct {
	Daemon bool
	User   string
	Group  string

	Interface string
	BPFilter  string

	ARP         bool
	ServiceTCP  bool
	ClientTCP   bool // accepted but unused in the core; reserved (spec.md §9 Open Question)
	ServiceUDP  bool
	ICMP        bool
	OSSyn       bool
	OSSynAck    bool
	OSAck       bool
	OSRst       bool
	OSFin       bool
	OSUDP       bool
	OSICMP      bool

	LogFile  string
	PidFile  string
	AssetLog string

	SigFileSyn     string
	SigFileSynAck  string
	SigFileICMP    string
	SigFileOSUDP   string
	SigFileServTCP string
	SigFileCliTCP  string // accepted but unused in the core; reserved (spec.md §9 Open Question)
	SigFileServUDP string
	SigFileCliUDP  string // accepted but unused in the core; reserved (spec.md §9 Open Question)
	MacFile        string
	MTUFile        string

	DB         string
	DBUsername string
	DBPassword string

	FlushInterval int // seconds between persistence flushes; default 10 (§4.H)
}

// Defaults mirrors the hard-coded defaults spec.md §6 requires for any
// key missing from the config file.
func Defaults() *Config {
	return &Config{
		Interface:      "eth0",
		BPFilter:       "",
		ARP:            true,
		ServiceTCP:     true,
		ClientTCP:      false,
		ServiceUDP:     true,
		ICMP:           true,
		OSSyn:          true,
		OSSynAck:       true,
		OSAck:          false,
		OSRst:          false,
		OSFin:          false,
		OSUDP:          true,
		OSICMP:         true,
		LogFile:        "/var/log/prads/prads.log",
		PidFile:        "/var/run/prads.pid",
		AssetLog:       "/var/log/prads/prads-asset.log",
		SigFileSyn:     "/etc/prads/tcp-syn.fp",
		SigFileSynAck:  "/etc/prads/tcp-synack.fp",
		SigFileICMP:    "/etc/prads/icmp.fp",
		SigFileOSUDP:   "/etc/prads/udp.fp",
		SigFileServTCP: "/etc/prads/tcp-service.sig",
		SigFileCliTCP:  "/etc/prads/tcp-client.sig",
		SigFileServUDP: "/etc/prads/udp-service.sig",
		SigFileCliUDP:  "/etc/prads/udp-client.sig",
		MacFile:        "/etc/prads/prads-ether-codes.conf",
		MTUFile:        "/etc/prads/prads-mtu.conf",
		DB:             "",
		FlushInterval:  10,
	}
}

// LoadFile reads the `key = value` config file at path and overlays it on
// top of Defaults(). An empty path returns Defaults() unchanged; a path
// that cannot be read is an error, so callers for which the file is
// optional check for it first (cmd/prads uses Exists).
func LoadFile(path string) (*Config, error) {
	c := Defaults()
	if path == "" {
		return c, nil
	}
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	apply(c, p)
	return c, nil
}

func apply(c *Config, p *properties.Properties) {
	str := func(key string, dst *string) {
		if v, ok := p.Get(key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := p.Get(key); ok {
			*dst = v == "1"
		}
	}
	integer := func(key string, dst *int) {
		*dst = p.GetInt(key, *dst)
	}

	boolean("daemon", &c.Daemon)
	str("user", &c.User)
	str("group", &c.Group)
	str("interface", &c.Interface)
	str("bpfilter", &c.BPFilter)

	boolean("arp", &c.ARP)
	boolean("service_tcp", &c.ServiceTCP)
	boolean("client_tcp", &c.ClientTCP)
	boolean("service_udp", &c.ServiceUDP)
	boolean("icmp", &c.ICMP)
	boolean("os_syn_fingerprint", &c.OSSyn)
	boolean("os_synack_fingerprint", &c.OSSynAck)
	boolean("os_ack_fingerprint", &c.OSAck)
	boolean("os_rst_fingerprint", &c.OSRst)
	boolean("os_fin_fingerprint", &c.OSFin)
	boolean("os_udp", &c.OSUDP)
	boolean("os_icmp", &c.OSICMP)

	str("log_file", &c.LogFile)
	str("pid_file", &c.PidFile)
	str("asset_log", &c.AssetLog)

	str("sig_file_syn", &c.SigFileSyn)
	str("sig_file_synack", &c.SigFileSynAck)
	str("sig_file_icmp", &c.SigFileICMP)
	str("sig_file_udp", &c.SigFileOSUDP)
	str("sig_file_serv_tcp", &c.SigFileServTCP)
	str("sig_file_cli_tcp", &c.SigFileCliTCP)
	str("sig_file_serv_udp", &c.SigFileServUDP)
	str("sig_file_cli_udp", &c.SigFileCliUDP)
	str("mac_file", &c.MacFile)
	str("sig_file_mtu", &c.MTUFile)

	str("db", &c.DB)
	str("db_username", &c.DBUsername)
	str("db_password", &c.DBPassword)

	integer("flush_interval", &c.FlushInterval)
}

// Flags holds the parsed CLI overrides described in spec.md §6.
type Flags struct {
	Device            string
	ConfigFile        string
	ConfDir           string
	ServiceSignatures string
	OSFingerprints    string
	Debug             int
	Verbose           bool
	Dump              bool
	DumpDB            bool
	Daemon            bool
	ARP               bool
	ServiceTCP        bool
	ServiceUDP        bool
	OS                bool
	DB                string
}

// ParseFlags registers and parses the CLI flag set. It does not call
// flag.Parse on the global CommandLine set so it is safe to call from
// tests with a throwaway FlagSet.
func ParseFlags(args []string) (*Flags, error) {
	fs := flag.NewFlagSet("prads", flag.ContinueOnError)
	f := &Flags{}

	fs.StringVar(&f.Device, "d", "", "capture device (also --dev, --iface)")
	fs.StringVar(&f.Device, "dev", "", "capture device")
	fs.StringVar(&f.Device, "iface", "", "capture device")

	fs.StringVar(&f.ConfigFile, "c", "", "config file path (also --config)")
	fs.StringVar(&f.ConfigFile, "config", "", "config file path")
	fs.StringVar(&f.ConfDir, "confdir", "", "config directory")

	fs.StringVar(&f.ServiceSignatures, "s", "", "service signature file (also --service-signatures)")
	fs.StringVar(&f.ServiceSignatures, "service-signatures", "", "service signature file")
	fs.StringVar(&f.OSFingerprints, "o", "", "OS fingerprint file (also --os-fingerprints)")
	fs.StringVar(&f.OSFingerprints, "os-fingerprints", "", "OS fingerprint file")

	fs.IntVar(&f.Debug, "debug", 0, "debug verbosity level")
	fs.BoolVar(&f.Verbose, "verbose", false, "verbose output")
	fs.BoolVar(&f.Dump, "dump", false, "load all signatures, print them, and exit")
	fs.BoolVar(&f.DumpDB, "dumpdb", false, "dump the asset database and exit")
	fs.BoolVar(&f.Daemon, "daemon", false, "run as a daemon")
	fs.BoolVar(&f.ARP, "arp", false, "enable ARP asset tracking")
	fs.BoolVar(&f.ServiceTCP, "service-tcp", false, "enable TCP service fingerprinting")
	fs.BoolVar(&f.ServiceUDP, "service-udp", false, "enable UDP service fingerprinting")
	fs.BoolVar(&f.OS, "os", false, "enable OS fingerprinting")
	fs.StringVar(&f.DB, "db", "", "database connection string")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// Merge overlays CLI flag overrides onto a loaded Config, per spec.md §6
// ("CLI flags override config").
func Merge(c *Config, f *Flags) {
	if f.Device != "" {
		c.Interface = f.Device
	}
	if f.ServiceSignatures != "" {
		c.SigFileServTCP = f.ServiceSignatures
	}
	if f.OSFingerprints != "" {
		c.SigFileSyn = f.OSFingerprints
	}
	if f.Daemon {
		c.Daemon = true
	}
	if f.ARP {
		c.ARP = true
	}
	if f.ServiceTCP {
		c.ServiceTCP = true
	}
	if f.ServiceUDP {
		c.ServiceUDP = true
	}
	if f.OS {
		c.OSSyn = true
		c.OSSynAck = true
	}
	if f.DB != "" {
		c.DB = f.DB
	}
}

// ResolveConfigPath applies the -c/--config/--confdir precedence.
func ResolveConfigPath(f *Flags, defaultPath string) string {
	if f.ConfigFile != "" {
		return f.ConfigFile
	}
	if f.ConfDir != "" {
		return f.ConfDir + "/prads.conf"
	}
	return defaultPath
}

// Exists reports whether path names a readable regular file.
func Exists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

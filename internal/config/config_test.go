package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "prads.conf")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	p := writeTemp(t, `
# a comment
interface = eth1
arp = 0
flush_interval = 30
`)
	c, err := LoadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.Interface != "eth1" {
		t.Errorf("interface = %q, want eth1", c.Interface)
	}
	if c.ARP {
		t.Errorf("arp should be disabled")
	}
	if c.FlushInterval != 30 {
		t.Errorf("flush_interval = %d, want 30", c.FlushInterval)
	}
	// untouched keys keep their defaults
	if !c.ServiceTCP {
		t.Errorf("service_tcp should retain default true")
	}
}

func TestEmptyPathReturnsDefaults(t *testing.T) {
	c, err := LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Interface != Defaults().Interface {
		t.Errorf("expected defaults when no path given")
	}
}

func TestCLIFlagsOverrideConfig(t *testing.T) {
	c, err := LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	f, err := ParseFlags([]string{"-dev", "eth2", "--arp"})
	if err != nil {
		t.Fatal(err)
	}
	Merge(c, f)
	if c.Interface != "eth2" {
		t.Errorf("interface = %q, want eth2", c.Interface)
	}
	if !c.ARP {
		t.Errorf("expected --arp to force ARP on")
	}
}

func TestParseFlagsDump(t *testing.T) {
	f, err := ParseFlags([]string{"--dump"})
	if err != nil {
		t.Fatal(err)
	}
	if !f.Dump {
		t.Fatal("expected Dump flag set")
	}
}

// Package asset implements the in-memory asset store of §4.G: a
// write-once-per-key "new asset" log plus continuously refreshed
// records, later walked by internal/persist for write-through.
package asset

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the service_kind discriminator of §3.
type Kind string

const (
	KindARP         Kind = "ARP"
	KindSYN         Kind = "SYN"
	KindSYNACK      Kind = "SYNACK"
	KindICMP        Kind = "ICMP"
	KindUDP         Kind = "UDP"
	KindServiceTCP  Kind = "SERVICE_TCP"
	KindServiceUDP  Kind = "SERVICE_UDP"
)

// Asset is one tracked host/fingerprint record (§3).
type Asset struct {
	IP         string
	Service    Kind
	FirstSeen  time.Time
	LastSeen   time.Time
	Fingerprint string
	MAC        string
	OS         string
	Details    string
	Link       string
	Distance   int
	Hostname   string

	// Dirty is true if this entry has changed since the last
	// persistence flush (§4.H walks entries with Time >= db cursor
	// instead; Dirty is kept for callers that want a cheap filter).
	Dirty bool
}

// Store is the mapping "<service>:<ip>:<fp>" -> Asset (§4.G).
type Store struct {
	entries map[string]*Asset
	// logger receives exactly one line per newly observed key (I2).
	logNew func(a *Asset)
}

func New(logNew func(a *Asset)) *Store {
	return &Store{entries: make(map[string]*Asset), logNew: logNew}
}

func key(service Kind, ip, fp string) string {
	return fmt.Sprintf("%s:%s:%s", service, ip, fp)
}

func normalize(s string) string {
	if s == "" || strings.EqualFold(s, "unknown") {
		return "?"
	}
	return s
}

// Update inserts or refreshes the record for (service, ip, fp). On
// first sight it logs the "new asset" line exactly once (I2) and sets
// FirstSeen; on every sight it stamps LastSeen. An empty ip is rejected
// (I1): nothing is stored and nil is returned.
func (s *Store) Update(service Kind, ip, fp, mac, osName, details, link, hostname string, distance int, now time.Time) *Asset {
	if ip == "" {
		return nil
	}
	k := key(service, ip, fp)
	osName = normalize(osName)
	details = normalize(details)

	a, exists := s.entries[k]
	if !exists {
		a = &Asset{
			IP: ip, Service: service, Fingerprint: fp,
			FirstSeen: now,
		}
		s.entries[k] = a
	}
	a.LastSeen = now
	a.MAC = mac
	a.OS = osName
	a.Details = details
	a.Link = link
	a.Distance = distance
	a.Hostname = hostname
	a.Dirty = true

	if !exists && s.logNew != nil {
		s.logNew(a)
	}
	return a
}

// Each calls fn for every entry in the store. fn must not mutate the
// map (no Update from inside fn); it may mutate the Asset it's given.
func (s *Store) Each(fn func(key string, a *Asset)) {
	for k, a := range s.entries {
		fn(k, a)
	}
}

func (s *Store) Len() int {
	return len(s.entries)
}

// Line renders the fixed-width asset log line of §6:
// "%11d [%-8s] ip:%-15s %s - %s [%s] distance:%d link:%s\n"
func Line(a *Asset) string {
	return fmt.Sprintf("%11d [%-8s] ip:%-15s %s - %s [%s] distance:%d link:%s\n",
		a.FirstSeen.Unix(), a.Service, a.IP, a.OS, a.Details, a.Fingerprint, a.Distance, a.Link)
}

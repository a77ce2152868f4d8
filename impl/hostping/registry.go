// Package hostping tracks per-host update-ping negotiation state: a
// chronological event log per client IP and a one-shot override label that
// an operator can queue to force the response to a host's next ping.
package hostping

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/flatcar-linux/dev-util/impl/dverr"

	log "github.com/sirupsen/logrus"
)

// LogEntry is one update event reported by a host.
type LogEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   int       `json:"event_type"`
	EventStatus int       `json:"event_status"`
	Version     string    `json:"version"`
}

// HostRecord is the externally visible state for one host. See the update
// engine's Omaha event definitions for the type and status codes.
type HostRecord struct {
	Ip                string     `json:"ip"`
	LastEventType     int        `json:"last_event_type"`
	LastEventStatus   int        `json:"last_event_status"`
	LastKnownVersion  string     `json:"last_known_version"`
	ForcedUpdateLabel string     `json:"forced_update_label,omitempty"`
	Log               []LogEntry `json:"-"`
}

// Registry holds the per-host records. Records are created lazily on first
// contact and live for the process lifetime; the mapping is unbounded by
// design since the population of developer devices is small.
type Registry struct {
	mu    sync.RWMutex
	hosts map[string]*HostRecord
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{hosts: make(map[string]*HostRecord)}
}

// record returns the host's record, creating it if absent. Callers must
// hold the write lock.
func (r *Registry) record(ip string) *HostRecord {
	rec, exists := r.hosts[ip]
	if !exists {
		rec = &HostRecord{Ip: ip}
		r.hosts[ip] = rec
	}
	return rec
}

// RecordPing appends an event to the host's log and updates its last-known
// fields, creating the record on first contact.
func (r *Registry) RecordPing(ip string, eventType int, eventStatus int, version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.record(ip)
	rec.LastEventType = eventType
	rec.LastEventStatus = eventStatus
	rec.LastKnownVersion = version
	rec.Log = append(rec.Log, LogEntry{
		Timestamp:   time.Now(),
		EventType:   eventType,
		EventStatus: eventStatus,
		Version:     version,
	})
}

// ComputeResponseLabel resolves the label to answer a ping with. If an
// override is pending for the host it is returned and consumed in the same
// critical section, so exactly one ping - even among concurrent pings from
// the same host - observes it. Otherwise the negotiated label passes
// through unchanged.
func (r *Registry) ComputeResponseLabel(ip string, negotiated string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, exists := r.hosts[ip]
	if !exists || rec.ForcedUpdateLabel == "" {
		return negotiated
	}
	label := rec.ForcedUpdateLabel
	rec.ForcedUpdateLabel = ""
	log.Infof("forcing update label %q for host %s", label, ip)
	return label
}

// SetOverride queues a label to answer the host's next ping with. The label
// is trimmed of surrounding whitespace; an empty result is rejected and any
// previously queued override is left untouched.
func (r *Registry) SetOverride(ip string, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("%w: no label provided", dverr.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(ip).ForcedUpdateLabel = label
	return nil
}

// Snapshot returns a copy of the host's record. A host that has never
// pinged yields a zero record and false - never an error.
func (r *Registry) Snapshot(ip string) (HostRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, exists := r.hosts[ip]
	if !exists {
		return HostRecord{}, false
	}
	cp := *rec
	cp.Log = append([]LogEntry(nil), rec.Log...)
	return cp, true
}

// Log returns the chronological event log for one host, empty if the host
// is unknown.
func (r *Registry) Log(ip string) []LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, exists := r.hosts[ip]
	if !exists {
		return []LogEntry{}
	}
	return append([]LogEntry(nil), rec.Log...)
}

// LogAll returns every host's event log keyed by IP, each chronological
// within its host.
func (r *Registry) LogAll() map[string][]LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make(map[string][]LogEntry, len(r.hosts))
	for ip, rec := range r.hosts {
		all[ip] = append([]LogEntry(nil), rec.Log...)
	}
	return all
}

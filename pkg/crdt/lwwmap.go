package crdt

import (
	"encoding/json"
	"sort"
)

type lwwMapEntry struct {
	Value     json.RawMessage
	Timestamp uint64
	NodeID    string
}

// LWWMap is an ordered sequence of (key, value, timestamp, node_id)
// with per-key last-write-wins resolution.
type LWWMap struct {
	entries map[string]lwwMapEntry
}

// NewLWWMap returns an empty LWWMap.
func NewLWWMap() *LWWMap {
	return &LWWMap{entries: make(map[string]lwwMapEntry)}
}

// Kind implements Value.
func (m *LWWMap) Kind() Kind { return KindLWWMap }

// Set records a (value, timestamp, node_id) write for key.
func (m *LWWMap) Set(key string, value json.RawMessage, timestamp uint64, nodeID string) {
	cand := lwwMapEntry{Value: value, Timestamp: timestamp, NodeID: nodeID}
	if cur, ok := m.entries[key]; !ok || greaterWins(cand.Timestamp, cur.Timestamp, cand.NodeID, cur.NodeID) {
		m.entries[key] = cand
	}
}

// Get returns key's current value and whether it exists.
func (m *LWWMap) Get(key string) (json.RawMessage, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Keys returns the map's keys in sorted order.
func (m *LWWMap) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EntryMeta returns key's timestamp and node id alongside its
// presence, for callers that need the tie-break fields directly.
func (m *LWWMap) EntryMeta(key string) (timestamp uint64, nodeID string, ok bool) {
	e, ok := m.entries[key]
	return e.Timestamp, e.NodeID, ok
}

// Merge takes, per key, the entry with the greater (timestamp, nodeID).
func (m *LWWMap) Merge(other *LWWMap) *LWWMap {
	out := NewLWWMap()
	for k, e := range m.entries {
		out.entries[k] = e
	}
	for k, cand := range other.entries {
		if cur, ok := out.entries[k]; !ok || greaterWins(cand.Timestamp, cur.Timestamp, cand.NodeID, cur.NodeID) {
			out.entries[k] = cand
		}
	}
	return out
}

type lwwMapEntryWire struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Timestamp uint64          `json:"timestamp"`
	NodeID    string          `json:"node_id"`
}

type lwwMapWire struct {
	Entries []lwwMapEntryWire `json:"entries"`
}

// MarshalJSON renders {"entries": [{"key":..., "value":..., "timestamp":..., "node_id":...}, ...]} sorted by key.
func (m *LWWMap) MarshalJSON() ([]byte, error) {
	w := lwwMapWire{}
	for _, key := range m.Keys() {
		e := m.entries[key]
		w.Entries = append(w.Entries, lwwMapEntryWire{Key: key, Value: e.Value, Timestamp: e.Timestamp, NodeID: e.NodeID})
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the shape produced by MarshalJSON.
func (m *LWWMap) UnmarshalJSON(data []byte) error {
	var w lwwMapWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.entries = make(map[string]lwwMapEntry, len(w.Entries))
	for _, e := range w.Entries {
		m.entries[e.Key] = lwwMapEntry{Value: e.Value, Timestamp: e.Timestamp, NodeID: e.NodeID}
	}
	return nil
}

package crdt

import (
	"encoding/json"
	"sort"
)

// ORMap applies OR-Set semantics to keys, each carrying a JSON payload.
// When a key survives the tag union on both sides, the stored payload
// is resolved deterministically: greater byte-lex payload wins (a
// future revision may elevate payloads to their own nested CRDT, but
// this release keeps the tie-break flat).
type ORMap struct {
	payloads map[string]json.RawMessage
	tags     map[string]map[ORTag]struct{}
}

// NewORMap returns an empty ORMap.
func NewORMap() *ORMap {
	return &ORMap{payloads: make(map[string]json.RawMessage), tags: make(map[string]map[ORTag]struct{})}
}

// Kind implements Value.
func (m *ORMap) Kind() Kind { return KindORMap }

// Set mints a fresh tag for key and stores payload, returning the tag.
func (m *ORMap) Set(key string, payload json.RawMessage, nodeID string) ORTag {
	m.payloads[key] = payload
	if m.tags[key] == nil {
		m.tags[key] = make(map[ORTag]struct{})
	}
	ctr := m.nextCounterFor(key, nodeID)
	tag := ORTag{NodeID: nodeID, Counter: ctr}
	m.tags[key][tag] = struct{}{}
	return tag
}

// SetTag attaches an already-minted tag and payload to key, for
// callers reconstructing an ORMap from a serialized tag set.
func (m *ORMap) SetTag(key string, payload json.RawMessage, nodeID string, counter uint64) {
	if payload != nil {
		m.payloads[key] = payload
	}
	if m.tags[key] == nil {
		m.tags[key] = make(map[ORTag]struct{})
	}
	m.tags[key][ORTag{NodeID: nodeID, Counter: counter}] = struct{}{}
}

func (m *ORMap) nextCounterFor(key, nodeID string) uint64 {
	var max uint64
	found := false
	for tag := range m.tags[key] {
		if tag.NodeID == nodeID && (!found || tag.Counter > max) {
			max = tag.Counter
			found = true
		}
	}
	if !found {
		return 1
	}
	return max + 1
}

// Delete discards every tag this replica has observed for key.
func (m *ORMap) Delete(key string) {
	delete(m.tags, key)
}

// Get returns key's payload and whether the key is present.
func (m *ORMap) Get(key string) (json.RawMessage, bool) {
	if len(m.tags[key]) == 0 {
		return nil, false
	}
	return m.payloads[key], true
}

// TagsFor returns the sorted tag set observed for key.
func (m *ORMap) TagsFor(key string) []ORTag {
	tags := make([]ORTag, 0, len(m.tags[key]))
	for t := range m.tags[key] {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].less(tags[j]) })
	return tags
}

// Keys returns the present keys in sorted order.
func (m *ORMap) Keys() []string {
	keys := make([]string, 0, len(m.payloads))
	for k := range m.payloads {
		if len(m.tags[k]) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Merge unions tag sets per key; keys with an empty tag set after
// union are dropped. When a key's payload differs across inputs, the
// greater byte-lex payload wins.
func (m *ORMap) Merge(other *ORMap) *ORMap {
	out := NewORMap()
	allKeys := make(map[string]struct{}, len(m.payloads)+len(other.payloads))
	for k := range m.payloads {
		allKeys[k] = struct{}{}
	}
	for k := range other.payloads {
		allKeys[k] = struct{}{}
	}
	for key := range allKeys {
		merged := make(map[ORTag]struct{})
		for tag := range m.tags[key] {
			merged[tag] = struct{}{}
		}
		for tag := range other.tags[key] {
			merged[tag] = struct{}{}
		}
		if len(merged) == 0 {
			continue
		}
		out.tags[key] = merged
		out.payloads[key] = resolvePayload(m.payloads[key], other.payloads[key])
	}
	return out
}

func resolvePayload(a, b json.RawMessage) json.RawMessage {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case compareBytes(b, a) > 0:
		return b
	default:
		return a
	}
}

type orMapEntryWire struct {
	Key     string     `json:"key"`
	Payload json.RawMessage `json:"payload"`
	Tags    [][2]any   `json:"tags"`
}

type orMapWire struct {
	Entries []orMapEntryWire `json:"entries"`
}

// MarshalJSON renders {"entries": [{"key":..., "payload":..., "tags": [[node,counter],...]}, ...]}.
func (m *ORMap) MarshalJSON() ([]byte, error) {
	w := orMapWire{}
	for _, key := range m.Keys() {
		tags := make([]ORTag, 0, len(m.tags[key]))
		for t := range m.tags[key] {
			tags = append(tags, t)
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i].less(tags[j]) })
		pairs := make([][2]any, 0, len(tags))
		for _, t := range tags {
			pairs = append(pairs, [2]any{t.NodeID, t.Counter})
		}
		w.Entries = append(w.Entries, orMapEntryWire{Key: key, Payload: m.payloads[key], Tags: pairs})
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the shape produced by MarshalJSON.
func (m *ORMap) UnmarshalJSON(data []byte) error {
	var w orMapWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.payloads = make(map[string]json.RawMessage)
	m.tags = make(map[string]map[ORTag]struct{})
	for _, e := range w.Entries {
		m.payloads[e.Key] = e.Payload
		set := make(map[ORTag]struct{}, len(e.Tags))
		for _, pair := range e.Tags {
			nodeID, _ := pair[0].(string)
			freq, _ := pair[1].(float64)
			set[ORTag{NodeID: nodeID, Counter: uint64(freq)}] = struct{}{}
		}
		m.tags[e.Key] = set
	}
	return nil
}

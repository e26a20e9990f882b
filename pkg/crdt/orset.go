package crdt

import (
	"encoding/base64"
	"encoding/json"
	"sort"
)

// ORTag uniquely identifies a single add-event.
type ORTag struct {
	NodeID  string
	Counter uint64
}

func (t ORTag) less(o ORTag) bool {
	if t.NodeID != o.NodeID {
		return t.NodeID < o.NodeID
	}
	return t.Counter < o.Counter
}

// ORSet is an Observed-Remove Set: each element carries the set of
// add-tags observed for it. An element is present iff its tag set is
// non-empty. A remove only discards the tags the remover has actually
// observed, so a concurrent re-add with a fresh tag survives.
type ORSet struct {
	// key is the base64 encoding of the element bytes.
	elements map[string][]byte
	tags     map[string]map[ORTag]struct{}
}

// NewORSet returns an empty ORSet.
func NewORSet() *ORSet {
	return &ORSet{
		elements: make(map[string][]byte),
		tags:     make(map[string]map[ORTag]struct{}),
	}
}

// Kind implements Value.
func (s *ORSet) Kind() Kind { return KindORSet }

// Add mints a fresh (nodeID, counter) tag for element and attaches it.
// The minted counter is 1 + the highest counter this node has already
// used for this element.
func (s *ORSet) Add(element []byte, nodeID string) ORTag {
	key := base64.StdEncoding.EncodeToString(element)
	s.elements[key] = element
	if s.tags[key] == nil {
		s.tags[key] = make(map[ORTag]struct{})
	}
	ctr := s.nextCounterFor(key, nodeID)
	tag := ORTag{NodeID: nodeID, Counter: ctr}
	s.tags[key][tag] = struct{}{}
	return tag
}

// AddTag attaches an already-minted tag to element, for callers
// reconstructing an ORSet from a serialized tag set rather than
// minting fresh tags locally.
func (s *ORSet) AddTag(element []byte, nodeID string, counter uint64) {
	key := base64.StdEncoding.EncodeToString(element)
	s.elements[key] = element
	if s.tags[key] == nil {
		s.tags[key] = make(map[ORTag]struct{})
	}
	s.tags[key][ORTag{NodeID: nodeID, Counter: counter}] = struct{}{}
}

func (s *ORSet) nextCounterFor(key, nodeID string) uint64 {
	var max uint64
	found := false
	for tag := range s.tags[key] {
		if tag.NodeID == nodeID {
			if !found || tag.Counter > max {
				max = tag.Counter
				found = true
			}
		}
	}
	if !found {
		return 1
	}
	return max + 1
}

// Remove discards every tag currently observed by this replica for
// element. A concurrent add minting a fresh tag on another replica is
// unaffected once merged in.
func (s *ORSet) Remove(element []byte) {
	key := base64.StdEncoding.EncodeToString(element)
	delete(s.tags, key)
}

// Contains reports whether element has at least one live tag.
func (s *ORSet) Contains(element []byte) bool {
	key := base64.StdEncoding.EncodeToString(element)
	return len(s.tags[key]) > 0
}

// TagsFor returns the sorted tag set observed for element.
func (s *ORSet) TagsFor(element []byte) []ORTag {
	key := base64.StdEncoding.EncodeToString(element)
	tags := make([]ORTag, 0, len(s.tags[key]))
	for t := range s.tags[key] {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].less(tags[j]) })
	return tags
}

// Elements returns the present elements, sorted byte-lexically.
func (s *ORSet) Elements() [][]byte {
	out := make([][]byte, 0, len(s.elements))
	for key, raw := range s.elements {
		if len(s.tags[key]) > 0 {
			out = append(out, raw)
		}
	}
	sort.Slice(out, func(i, j int) bool { return compareBytes(out[i], out[j]) < 0 })
	return out
}

// Merge unions the tag sets per element; elements whose tag set is
// empty after the union are dropped.
func (s *ORSet) Merge(other *ORSet) *ORSet {
	out := NewORSet()
	for key, raw := range s.elements {
		out.elements[key] = raw
	}
	for key, raw := range other.elements {
		out.elements[key] = raw
	}
	for key := range out.elements {
		merged := make(map[ORTag]struct{})
		for tag := range s.tags[key] {
			merged[tag] = struct{}{}
		}
		for tag := range other.tags[key] {
			merged[tag] = struct{}{}
		}
		if len(merged) > 0 {
			out.tags[key] = merged
		} else {
			delete(out.elements, key)
		}
	}
	return out
}

type orsetWire struct {
	Elements map[string][][2]any `json:"elements"`
}

// MarshalJSON renders {"elements": {<element_b64>: [[<node>, <counter>], ...]}}.
func (s *ORSet) MarshalJSON() ([]byte, error) {
	w := orsetWire{Elements: make(map[string][][2]any)}
	for key := range s.elements {
		if len(s.tags[key]) == 0 {
			continue
		}
		tags := make([]ORTag, 0, len(s.tags[key]))
		for tag := range s.tags[key] {
			tags = append(tags, tag)
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i].less(tags[j]) })
		pairs := make([][2]any, 0, len(tags))
		for _, tag := range tags {
			pairs = append(pairs, [2]any{tag.NodeID, tag.Counter})
		}
		w.Elements[key] = pairs
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the shape produced by MarshalJSON.
func (s *ORSet) UnmarshalJSON(data []byte) error {
	var raw struct {
		Elements map[string][][2]json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.elements = make(map[string][]byte)
	s.tags = make(map[string]map[ORTag]struct{})
	for key, pairs := range raw.Elements {
		elemBytes, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return err
		}
		s.elements[key] = elemBytes
		set := make(map[ORTag]struct{}, len(pairs))
		for _, pair := range pairs {
			var nodeID string
			var counter uint64
			if err := json.Unmarshal(pair[0], &nodeID); err != nil {
				return err
			}
			if err := json.Unmarshal(pair[1], &counter); err != nil {
				return err
			}
			set[ORTag{NodeID: nodeID, Counter: counter}] = struct{}{}
		}
		s.tags[key] = set
	}
	return nil
}

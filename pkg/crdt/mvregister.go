package crdt

import (
	"encoding/json"

	"github.com/transilluminate/crdt-data-types/pkg/vclock"
)

// MVEntry is one surviving value in a MVRegister.
type MVEntry struct {
	Value json.RawMessage
	Clock *vclock.Clock
}

// MVRegister holds every value whose vector clock is concurrent with
// every other surviving entry's clock: a "multi-value" register.
type MVRegister struct {
	entries []MVEntry
}

// NewMVRegister returns an empty MVRegister.
func NewMVRegister() *MVRegister {
	return &MVRegister{}
}

// Kind implements Value.
func (r *MVRegister) Kind() Kind { return KindMVRegister }

// Set replaces the register with a single entry that causally
// succeeds every prior value (the caller is expected to have merged
// in the clocks it observed before calling Set).
func (r *MVRegister) Set(value json.RawMessage, clock *vclock.Clock) {
	r.entries = []MVEntry{{Value: value, Clock: clock}}
}

// Entries returns the surviving, pairwise-concurrent values.
func (r *MVRegister) Entries() []MVEntry { return r.entries }

// SetEntries replaces the register's entries outright, for callers
// reconstructing a register from an already-resolved sibling set.
func (r *MVRegister) SetEntries(entries []MVEntry) { r.entries = entries }

// Merge unions all entries from both sides, then drops any entry whose
// clock is strictly before another remaining entry's clock. The
// survivors are pairwise concurrent.
func (r *MVRegister) Merge(other *MVRegister) *MVRegister {
	union := make([]MVEntry, 0, len(r.entries)+len(other.entries))
	union = append(union, r.entries...)
	union = append(union, other.entries...)

	var survivors []MVEntry
	for i, candidate := range union {
		dominated := false
		for j, rival := range union {
			if i == j {
				continue
			}
			if vclock.Compare(candidate.Clock, rival.Clock) == vclock.Before {
				dominated = true
				break
			}
		}
		if !dominated {
			survivors = append(survivors, candidate)
		}
	}
	return &MVRegister{entries: dedupeMVEntries(survivors)}
}

// dedupeMVEntries collapses entries with clocks that compare Equal,
// since union can otherwise carry exact duplicates forward. Of two
// Equal-clock entries the greater byte-lex value is kept, so the
// result does not depend on input order.
func dedupeMVEntries(entries []MVEntry) []MVEntry {
	var out []MVEntry
	for _, e := range entries {
		dup := false
		for i, seen := range out {
			if vclock.Compare(e.Clock, seen.Clock) == vclock.Equal {
				if compareBytes(e.Value, seen.Value) > 0 {
					out[i] = e
				}
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out
}

type mvEntryWire struct {
	Value  json.RawMessage   `json:"value"`
	VClock map[string][2]uint64 `json:"vclock"`
}

type mvRegisterWire struct {
	Values []mvEntryWire `json:"values"`
}

// MarshalJSON renders {"values": [{"value":..., "vclock":{...}}, ...]}.
func (r *MVRegister) MarshalJSON() ([]byte, error) {
	w := mvRegisterWire{}
	for _, e := range r.entries {
		vc := make(map[string][2]uint64, len(e.Clock.Entries()))
		for _, entry := range e.Clock.Entries() {
			vc[entry.NodeID] = [2]uint64{entry.Logical, entry.EpochSeconds}
		}
		w.Values = append(w.Values, mvEntryWire{Value: e.Value, VClock: vc})
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the shape produced by MarshalJSON.
func (r *MVRegister) UnmarshalJSON(data []byte) error {
	var w mvRegisterWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.entries = make([]MVEntry, 0, len(w.Values))
	for _, ew := range w.Values {
		clock := vclock.New()
		for nodeID, pair := range ew.VClock {
			for i := uint64(0); i < pair[0]; i++ {
				clock.Increment(nodeID, pair[1])
			}
		}
		r.entries = append(r.entries, MVEntry{Value: ew.Value, Clock: clock})
	}
	return nil
}

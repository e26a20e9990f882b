package crdt

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/transilluminate/crdt-data-types/pkg/vclock"
)

// GCounter is a grow-only counter: each node may only increment its own
// entry, and merge takes the per-node maximum.
type GCounter struct {
	counts map[string]int64
	clock  *vclock.Clock
}

// NewGCounter returns an empty GCounter.
func NewGCounter() *GCounter {
	return &GCounter{counts: make(map[string]int64), clock: vclock.New()}
}

// Kind implements Value.
func (c *GCounter) Kind() Kind { return KindGCounter }

// Increment adds delta (which must be positive) to nodeID's entry.
func (c *GCounter) Increment(nodeID string, delta int64, nowEpochSeconds uint64) {
	if delta <= 0 {
		return
	}
	c.counts[nodeID] += delta
	c.clock.Increment(nodeID, nowEpochSeconds)
}

// Value returns the sum of all node contributions.
func (c *GCounter) Value() int64 {
	var total int64
	for _, v := range c.counts {
		total += v
	}
	return total
}

// Clock exposes the counter's vector clock.
func (c *GCounter) Clock() *vclock.Clock { return c.clock }

// NodeIDs returns the counter's contributing nodes in sorted order.
func (c *GCounter) NodeIDs() []string {
	ids := make([]string, 0, len(c.counts))
	for id := range c.counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CountFor returns nodeID's contribution (0 if never incremented).
func (c *GCounter) CountFor(nodeID string) int64 { return c.counts[nodeID] }

// Merge combines other into a new GCounter taking the per-node maximum
// count and the componentwise-max vector clock. Commutative,
// associative, idempotent.
func (c *GCounter) Merge(other *GCounter) *GCounter {
	out := NewGCounter()
	for nodeID, v := range c.counts {
		out.counts[nodeID] = v
	}
	for nodeID, v := range other.counts {
		if v > out.counts[nodeID] {
			out.counts[nodeID] = v
		}
	}
	out.clock = vclock.Merge(c.clock, other.clock)
	return out
}

// AddAccumulated sums per-node counts rather than taking the maximum.
// Not idempotent: calling it twice with the same delta doubles it.
// Intended for flushing a temporary counter into a main one under
// at-most-once delivery. Returns ErrArithmeticOverflow if any node's
// sum would overflow int64, leaving out unset.
func (c *GCounter) AddAccumulated(other *GCounter) (*GCounter, error) {
	out := NewGCounter()
	for nodeID, v := range c.counts {
		out.counts[nodeID] = v
	}
	for nodeID, v := range other.counts {
		sum := out.counts[nodeID] + v
		if sum < out.counts[nodeID] {
			return nil, fmt.Errorf("%w: node %q", ErrArithmeticOverflow, nodeID)
		}
		out.counts[nodeID] = sum
	}
	out.clock = vclock.Merge(c.clock, other.clock)
	return out, nil
}

// Compact drops vclock entries whose node no longer appears in counts
// and whose logical counter has not advanced for the policy's epoch
// window. Lossless with respect to Value() and Merge().
func (c *GCounter) Compact(nowEpochSeconds, epochWindowSeconds uint64) {
	kept := make([]vclock.Entry, 0, len(c.clock.Entries()))
	for _, e := range c.clock.Entries() {
		_, stillTracked := c.counts[e.NodeID]
		stale := nowEpochSeconds > e.EpochSeconds && nowEpochSeconds-e.EpochSeconds > epochWindowSeconds
		if stillTracked || !stale {
			kept = append(kept, e)
		}
	}
	newClock := vclock.New()
	for _, e := range kept {
		for i := uint64(0); i < e.Logical; i++ {
			newClock.Increment(e.NodeID, e.EpochSeconds)
		}
	}
	c.clock = newClock
}

type gcounterWire struct {
	Counters map[string]int64  `json:"counters"`
	VClock   map[string][2]uint64 `json:"vclock,omitempty"`
}

// MarshalJSON renders {"counters": {node: count}, "vclock"?: {...}}.
func (c *GCounter) MarshalJSON() ([]byte, error) {
	w := gcounterWire{Counters: c.counts}
	if len(c.clock.Entries()) > 0 {
		w.VClock = make(map[string][2]uint64, len(c.clock.Entries()))
		for _, e := range c.clock.Entries() {
			w.VClock[e.NodeID] = [2]uint64{e.Logical, e.EpochSeconds}
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the shape produced by MarshalJSON.
func (c *GCounter) UnmarshalJSON(data []byte) error {
	var w gcounterWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.counts = w.Counters
	if c.counts == nil {
		c.counts = make(map[string]int64)
	}
	c.clock = vclock.New()
	nodeIDs := make([]string, 0, len(w.VClock))
	for nodeID := range w.VClock {
		nodeIDs = append(nodeIDs, nodeID)
	}
	sort.Strings(nodeIDs)
	for _, nodeID := range nodeIDs {
		pair := w.VClock[nodeID]
		for i := uint64(0); i < pair[0]; i++ {
			c.clock.Increment(nodeID, pair[1])
		}
	}
	return nil
}

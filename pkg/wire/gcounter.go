package wire

import (
	"container/heap"
	"fmt"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
	"github.com/transilluminate/crdt-data-types/pkg/vclock"
)

// gcounterEntry is one node's contribution: discriminator is NodeID.
type gcounterEntry struct {
	NodeID string
	Count  uint64
}

// GCounterReader borrows an encoded GCounter and iterates its sorted
// node entries without allocating an owned map.
type GCounterReader struct {
	entries []gcounterEntry
	clock   *vclock.Clock
}

// Entries returns the reader's node entries in sorted NodeID order.
func (r *GCounterReader) Entries() []gcounterEntry { return r.entries }

// Clock returns the embedded vector clock.
func (r *GCounterReader) Clock() *vclock.Clock { return r.clock }

// ToGCounter materializes the reader's contents as an owned
// crdt.GCounter, for callers (pkg/delta, pkg/compact) that need to
// mutate through the kernel's own methods rather than the wire gear.
func (r *GCounterReader) ToGCounter() *crdt.GCounter {
	c := crdt.NewGCounter()
	epoch := make(map[string]uint64, len(r.clock.Entries()))
	logical := make(map[string]uint64, len(r.clock.Entries()))
	for _, e := range r.clock.Entries() {
		epoch[e.NodeID] = e.EpochSeconds
		logical[e.NodeID] = e.Logical
	}
	counted := make(map[string]bool, len(r.entries))
	for _, e := range r.entries {
		if e.Count == 0 {
			continue
		}
		// The whole count goes into the first Increment, which also
		// records the node's first clock tick.
		c.Increment(e.NodeID, int64(e.Count), epoch[e.NodeID])
		counted[e.NodeID] = true
	}
	// Replay the remaining clock ticks, including those of nodes with no
	// count entry, so the reconstructed clock matches the encoded one.
	for nodeID, reps := range logical {
		start := uint64(0)
		if counted[nodeID] {
			start = 1
		}
		for i := start; i < reps; i++ {
			c.Clock().Increment(nodeID, epoch[nodeID])
		}
	}
	return c
}

// NewGCounterReader parses a GCounter wire payload (header already
// stripped) into a Reader.
func NewGCounterReader(payload []byte) (*GCounterReader, error) {
	count, rest, err := getUvarint(payload)
	if err != nil {
		return nil, err
	}
	entries := make([]gcounterEntry, 0, count)
	var prevNode string
	for i := uint64(0); i < count; i++ {
		node, after, err := getBytesField(rest)
		if err != nil {
			return nil, err
		}
		val, after2, err := getUvarint(after)
		if err != nil {
			return nil, err
		}
		if i > 0 && string(node) <= prevNode {
			return nil, ErrUnsortedInput
		}
		prevNode = string(node)
		entries = append(entries, gcounterEntry{NodeID: string(node), Count: val})
		rest = after2
	}
	clock, n, err := vclock.FromBytes(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeError, err)
	}
	_ = n
	return &GCounterReader{entries: entries, clock: clock}, nil
}

// EncodeGCounter renders a GCounter into the canonical wire layout:
// header, varint entry count, sorted (node, count) pairs, then the
// embedded vector clock.
func EncodeGCounter(c *crdt.GCounter) []byte {
	buf := putHeader(nil, crdt.KindGCounter)
	counts := sortedCounts(c)
	buf = putUvarint(buf, uint64(len(counts)))
	for _, e := range counts {
		buf = putBytesField(buf, []byte(e.NodeID))
		buf = putUvarint(buf, e.Count)
	}
	buf = append(buf, c.Clock().Bytes()...)
	return buf
}

func sortedCounts(c *crdt.GCounter) []gcounterEntry {
	nodes := c.NodeIDs()
	out := make([]gcounterEntry, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, gcounterEntry{NodeID: n, Count: uint64(c.CountFor(n))})
	}
	return out
}

// gcounterHeapItem tracks which reader an in-flight entry came from,
// so the k-way merge can pull the next entry from the same source
// after consuming the current minimum.
type gcounterHeapItem struct {
	entry  gcounterEntry
	reader int
	idx    int
}

type gcounterHeap []gcounterHeapItem

func (h gcounterHeap) Len() int            { return len(h) }
func (h gcounterHeap) Less(i, j int) bool  { return h[i].entry.NodeID < h[j].entry.NodeID }
func (h gcounterHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *gcounterHeap) Push(x interface{}) { *h = append(*h, x.(gcounterHeapItem)) }
func (h *gcounterHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MergeGCounterReaders computes the componentwise max over every node
// seen across readers, writing a fresh GCounter wire payload. For
// R <= 4 inputs it does a linear scan per-step; for more it promotes
// to a small binary heap keyed by NodeID, never materializing an
// owned map of counts.
func MergeGCounterReaders(readers [][]byte) ([]byte, error) {
	payloads, err := checkSameKind(crdt.KindGCounter, readers)
	if err != nil {
		return nil, err
	}
	parsed := make([]*GCounterReader, len(payloads))
	for i, p := range payloads {
		r, err := NewGCounterReader(p)
		if err != nil {
			return nil, err
		}
		parsed[i] = r
	}

	var merged []gcounterEntry
	if len(parsed) <= 4 {
		merged = linearMergeGCounters(parsed)
	} else {
		merged = heapMergeGCounters(parsed)
	}

	clocks := make([]*vclock.Clock, len(parsed))
	for i, r := range parsed {
		clocks[i] = r.Clock()
	}
	mergedClock := vclock.MergeReaders(clocks)

	buf := putHeader(nil, crdt.KindGCounter)
	buf = putUvarint(buf, uint64(len(merged)))
	for _, e := range merged {
		buf = putBytesField(buf, []byte(e.NodeID))
		buf = putUvarint(buf, e.Count)
	}
	buf = append(buf, mergedClock.Bytes()...)
	return buf, nil
}

func linearMergeGCounters(readers []*GCounterReader) []gcounterEntry {
	idx := make([]int, len(readers))
	var out []gcounterEntry
	for {
		var minNode string
		found := false
		for i, r := range readers {
			if idx[i] >= len(r.entries) {
				continue
			}
			n := r.entries[idx[i]].NodeID
			if !found || n < minNode {
				minNode, found = n, true
			}
		}
		if !found {
			break
		}
		var maxCount uint64
		for i, r := range readers {
			if idx[i] < len(r.entries) && r.entries[idx[i]].NodeID == minNode {
				if r.entries[idx[i]].Count > maxCount {
					maxCount = r.entries[idx[i]].Count
				}
				idx[i]++
			}
		}
		out = append(out, gcounterEntry{NodeID: minNode, Count: maxCount})
	}
	return out
}

func heapMergeGCounters(readers []*GCounterReader) []gcounterEntry {
	h := &gcounterHeap{}
	heap.Init(h)
	for ri, r := range readers {
		if len(r.entries) > 0 {
			heap.Push(h, gcounterHeapItem{entry: r.entries[0], reader: ri, idx: 0})
		}
	}
	var out []gcounterEntry
	for h.Len() > 0 {
		item := heap.Pop(h).(gcounterHeapItem)
		node := item.entry.NodeID
		maxCount := item.entry.Count
		advance := func(it gcounterHeapItem) {
			r := readers[it.reader]
			if it.idx+1 < len(r.entries) {
				heap.Push(h, gcounterHeapItem{entry: r.entries[it.idx+1], reader: it.reader, idx: it.idx + 1})
			}
		}
		advance(item)
		for h.Len() > 0 && (*h)[0].entry.NodeID == node {
			next := heap.Pop(h).(gcounterHeapItem)
			if next.entry.Count > maxCount {
				maxCount = next.entry.Count
			}
			advance(next)
		}
		out = append(out, gcounterEntry{NodeID: node, Count: maxCount})
	}
	return out
}

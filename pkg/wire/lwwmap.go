package wire

import (
	"bytes"
	"container/heap"
	"encoding/binary"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

// lwwMapEntryWire is one key's current winning write.
type lwwMapEntryWire struct {
	Key       []byte
	Value     []byte
	Timestamp uint64
	NodeID    string
}

// LWWMapReader borrows an encoded LWWMap and iterates its sorted keys.
type LWWMapReader struct {
	entries []lwwMapEntryWire
}

// Entries returns the reader's entries in sorted key order.
func (r *LWWMapReader) Entries() []lwwMapEntryWire { return r.entries }

// ToLWWMap materializes the reader's contents as an owned crdt.LWWMap.
func (r *LWWMapReader) ToLWWMap() *crdt.LWWMap {
	m := crdt.NewLWWMap()
	for _, e := range r.entries {
		m.Set(string(e.Key), e.Value, e.Timestamp, e.NodeID)
	}
	return m
}

// NewLWWMapReader parses an LWWMap wire payload (header already
// stripped).
func NewLWWMapReader(payload []byte) (*LWWMapReader, error) {
	count, rest, err := getUvarint(payload)
	if err != nil {
		return nil, err
	}
	entries := make([]lwwMapEntryWire, 0, count)
	var prevKey string
	for i := uint64(0); i < count; i++ {
		key, after, err := getBytesField(rest)
		if err != nil {
			return nil, err
		}
		if i > 0 && string(key) <= prevKey {
			return nil, ErrUnsortedInput
		}
		prevKey = string(key)
		val, after2, err := getBytesField(after)
		if err != nil {
			return nil, err
		}
		if len(after2) < 8 {
			return nil, ErrDecodeError
		}
		ts := binary.BigEndian.Uint64(after2[:8])
		node, after3, err := getBytesField(after2[8:])
		if err != nil {
			return nil, err
		}
		entries = append(entries, lwwMapEntryWire{Key: key, Value: val, Timestamp: ts, NodeID: string(node)})
		rest = after3
	}
	return &LWWMapReader{entries: entries}, nil
}

// EncodeLWWMap renders an LWWMap into the canonical wire layout:
// header, varint entry count, then per key its value, timestamp, and
// winning node id, sorted by key.
func EncodeLWWMap(m *crdt.LWWMap) []byte {
	buf := putHeader(nil, crdt.KindLWWMap)
	keys := m.Keys()
	buf = putUvarint(buf, uint64(len(keys)))
	for _, key := range keys {
		val, _ := m.Get(key)
		ts, node, _ := m.EntryMeta(key)
		buf = putBytesField(buf, []byte(key))
		buf = putBytesField(buf, val)
		buf = binary.BigEndian.AppendUint64(buf, ts)
		buf = putBytesField(buf, []byte(node))
	}
	return buf
}

// MergeLWWMapReaders keeps, per key, the entry with the greatest
// (timestamp, node_id) pair across readers, via a sorted k-way cursor
// merge over key byte-lex order: a linear scan per step for R<=4
// inputs, a heap for more.
func MergeLWWMapReaders(readers [][]byte) ([]byte, error) {
	payloads, err := checkSameKind(crdt.KindLWWMap, readers)
	if err != nil {
		return nil, err
	}
	lists := make([][]lwwMapEntryWire, len(payloads))
	for i, p := range payloads {
		r, err := NewLWWMapReader(p)
		if err != nil {
			return nil, err
		}
		lists[i] = r.entries
	}

	var winners []lwwMapEntryWire
	if len(lists) <= 4 {
		winners = linearMergeLWWMapEntries(lists)
	} else {
		winners = heapMergeLWWMapEntries(lists)
	}

	buf := putHeader(nil, crdt.KindLWWMap)
	buf = putUvarint(buf, uint64(len(winners)))
	for _, e := range winners {
		buf = putBytesField(buf, e.Key)
		buf = putBytesField(buf, e.Value)
		buf = binary.BigEndian.AppendUint64(buf, e.Timestamp)
		buf = putBytesField(buf, []byte(e.NodeID))
	}
	return buf, nil
}

func greaterWinsLocal(candTS, incTS uint64, candNode, incNode string) bool {
	if candTS != incTS {
		return candTS > incTS
	}
	return candNode > incNode
}

func linearMergeLWWMapEntries(lists [][]lwwMapEntryWire) []lwwMapEntryWire {
	idx := make([]int, len(lists))
	var out []lwwMapEntryWire
	for {
		var minKey []byte
		found := false
		for i, l := range lists {
			if idx[i] >= len(l) {
				continue
			}
			k := l[idx[i]].Key
			if !found || bytes.Compare(k, minKey) < 0 {
				minKey, found = k, true
			}
		}
		if !found {
			break
		}
		var winner lwwMapEntryWire
		haveWinner := false
		for i, l := range lists {
			if idx[i] < len(l) && bytes.Equal(l[idx[i]].Key, minKey) {
				cand := l[idx[i]]
				if !haveWinner || greaterWinsLocal(cand.Timestamp, winner.Timestamp, cand.NodeID, winner.NodeID) {
					winner, haveWinner = cand, true
				}
				idx[i]++
			}
		}
		out = append(out, winner)
	}
	return out
}

// lwwMapHeapItem tracks which list an in-flight entry came from, so
// the k-way merge can pull the next entry from the same source after
// consuming the current minimum.
type lwwMapHeapItem struct {
	entry lwwMapEntryWire
	list  int
	idx   int
}

type lwwMapHeap []lwwMapHeapItem

func (h lwwMapHeap) Len() int { return len(h) }
func (h lwwMapHeap) Less(i, j int) bool {
	return bytes.Compare(h[i].entry.Key, h[j].entry.Key) < 0
}
func (h lwwMapHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *lwwMapHeap) Push(x interface{}) { *h = append(*h, x.(lwwMapHeapItem)) }
func (h *lwwMapHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func heapMergeLWWMapEntries(lists [][]lwwMapEntryWire) []lwwMapEntryWire {
	h := &lwwMapHeap{}
	heap.Init(h)
	for li, l := range lists {
		if len(l) > 0 {
			heap.Push(h, lwwMapHeapItem{entry: l[0], list: li, idx: 0})
		}
	}
	var out []lwwMapEntryWire
	for h.Len() > 0 {
		item := heap.Pop(h).(lwwMapHeapItem)
		key := item.entry.Key
		winner := item.entry
		advance := func(it lwwMapHeapItem) {
			l := lists[it.list]
			if it.idx+1 < len(l) {
				heap.Push(h, lwwMapHeapItem{entry: l[it.idx+1], list: it.list, idx: it.idx + 1})
			}
		}
		advance(item)
		for h.Len() > 0 && bytes.Equal((*h)[0].entry.Key, key) {
			next := heap.Pop(h).(lwwMapHeapItem)
			if greaterWinsLocal(next.entry.Timestamp, winner.Timestamp, next.entry.NodeID, winner.NodeID) {
				winner = next.entry
			}
			advance(next)
		}
		out = append(out, winner)
	}
	return out
}

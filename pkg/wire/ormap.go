package wire

import (
	"bytes"
	"container/heap"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

// orMapEntryWire is one key's payload and observed tag set.
type orMapEntryWire struct {
	Key     []byte
	Payload []byte
	Tags    []orTagWire
}

// ORMapReader borrows an encoded ORMap and iterates its sorted,
// present keys.
type ORMapReader struct {
	entries []orMapEntryWire
}

// Entries returns the reader's entries in sorted key order.
func (r *ORMapReader) Entries() []orMapEntryWire { return r.entries }

// ToORMap materializes the reader's contents as an owned crdt.ORMap.
func (r *ORMapReader) ToORMap() *crdt.ORMap {
	m := crdt.NewORMap()
	for _, e := range r.entries {
		for i, t := range e.Tags {
			var payload []byte
			if i == 0 {
				payload = e.Payload
			}
			m.SetTag(string(e.Key), payload, t.NodeID, t.Counter)
		}
	}
	return m
}

// NewORMapReader parses an ORMap wire payload (header already
// stripped).
func NewORMapReader(payload []byte) (*ORMapReader, error) {
	count, rest, err := getUvarint(payload)
	if err != nil {
		return nil, err
	}
	entries := make([]orMapEntryWire, 0, count)
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
		payload, after2, err := getBytesField(after)
		if err != nil {
			return nil, err
		}
		tagCount, after3, err := getUvarint(after2)
		if err != nil {
			return nil, err
		}
		tags := make([]orTagWire, 0, tagCount)
		cur := after3
		for j := uint64(0); j < tagCount; j++ {
			node, a, err := getBytesField(cur)
			if err != nil {
				return nil, err
			}
			ctr, a2, err := getUvarint(a)
			if err != nil {
				return nil, err
			}
			tags = append(tags, orTagWire{NodeID: string(node), Counter: ctr})
			cur = a2
		}
		entries = append(entries, orMapEntryWire{Key: key, Payload: payload, Tags: tags})
		rest = cur
	}
	return &ORMapReader{entries: entries}, nil
}

// EncodeORMap renders an ORMap into the canonical wire layout: header,
// varint entry count, then per present key its payload and sorted tag
// set.
func EncodeORMap(m *crdt.ORMap) []byte {
	buf := putHeader(nil, crdt.KindORMap)
	keys := m.Keys()
	buf = putUvarint(buf, uint64(len(keys)))
	for _, key := range keys {
		payload, _ := m.Get(key)
		tags := m.TagsFor(key)
		buf = putBytesField(buf, []byte(key))
		buf = putBytesField(buf, payload)
		buf = putUvarint(buf, uint64(len(tags)))
		for _, t := range tags {
			buf = putBytesField(buf, []byte(t.NodeID))
			buf = putUvarint(buf, t.Counter)
		}
	}
	return buf
}

// MergeORMapReaders unions each key's tag set across readers via a
// sorted k-way cursor merge over key byte-lex order (a linear scan per
// step for R<=4 inputs, a heap for more), dropping keys whose union
// ends up empty, and resolves surviving payload conflicts by greater
// byte-lex value.
func MergeORMapReaders(readers [][]byte) ([]byte, error) {
	payloads, err := checkSameKind(crdt.KindORMap, readers)
	if err != nil {
		return nil, err
	}
	lists := make([][]orMapEntryWire, len(payloads))
	for i, p := range payloads {
		r, err := NewORMapReader(p)
		if err != nil {
			return nil, err
		}
		lists[i] = r.entries
	}

	var merged []orMapEntryWire
	if len(lists) <= 4 {
		merged = linearMergeORMapEntries(lists)
	} else {
		merged = heapMergeORMapEntries(lists)
	}

	buf := putHeader(nil, crdt.KindORMap)
	buf = putUvarint(buf, uint64(len(merged)))
	for _, e := range merged {
		buf = putBytesField(buf, e.Key)
		buf = putBytesField(buf, e.Payload)
		buf = putUvarint(buf, uint64(len(e.Tags)))
		for _, t := range e.Tags {
			buf = putBytesField(buf, []byte(t.NodeID))
			buf = putUvarint(buf, t.Counter)
		}
	}
	return buf, nil
}

func bytesGreater(a, b []byte) bool {
	if len(a) == 0 {
		return false
	}
	if len(b) == 0 {
		return true
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return len(a) > len(b)
}

func resolveORMapEntry(key []byte, candidates []orMapEntryWire) orMapEntryWire {
	var payload []byte
	var tagLists [][]orTagWire
	for _, c := range candidates {
		if bytesGreater(c.Payload, payload) {
			payload = c.Payload
		}
		tagLists = append(tagLists, c.Tags)
	}
	return orMapEntryWire{Key: key, Payload: payload, Tags: mergeTagLists(tagLists)}
}

func linearMergeORMapEntries(lists [][]orMapEntryWire) []orMapEntryWire {
	idx := make([]int, len(lists))
	var out []orMapEntryWire
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
		var candidates []orMapEntryWire
		for i, l := range lists {
			if idx[i] < len(l) && bytes.Equal(l[idx[i]].Key, minKey) {
				candidates = append(candidates, l[idx[i]])
				idx[i]++
			}
		}
		resolved := resolveORMapEntry(minKey, candidates)
		if len(resolved.Tags) > 0 {
			out = append(out, resolved)
		}
	}
	return out
}

// orMapHeapItem tracks which list an in-flight entry came from, so the
// k-way merge can pull the next entry from the same source after
// consuming the current minimum.
type orMapHeapItem struct {
	entry orMapEntryWire
	list  int
	idx   int
}

type orMapHeap []orMapHeapItem

func (h orMapHeap) Len() int { return len(h) }
func (h orMapHeap) Less(i, j int) bool {
	return bytes.Compare(h[i].entry.Key, h[j].entry.Key) < 0
}
func (h orMapHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *orMapHeap) Push(x interface{}) { *h = append(*h, x.(orMapHeapItem)) }
func (h *orMapHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func heapMergeORMapEntries(lists [][]orMapEntryWire) []orMapEntryWire {
	h := &orMapHeap{}
	heap.Init(h)
	for li, l := range lists {
		if len(l) > 0 {
			heap.Push(h, orMapHeapItem{entry: l[0], list: li, idx: 0})
		}
	}
	var out []orMapEntryWire
	for h.Len() > 0 {
		item := heap.Pop(h).(orMapHeapItem)
		key := item.entry.Key
		candidates := []orMapEntryWire{item.entry}
		advance := func(it orMapHeapItem) {
			l := lists[it.list]
			if it.idx+1 < len(l) {
				heap.Push(h, orMapHeapItem{entry: l[it.idx+1], list: it.list, idx: it.idx + 1})
			}
		}
		advance(item)
		for h.Len() > 0 && bytes.Equal((*h)[0].entry.Key, key) {
			next := heap.Pop(h).(orMapHeapItem)
			candidates = append(candidates, next.entry)
			advance(next)
		}
		resolved := resolveORMapEntry(key, candidates)
		if len(resolved.Tags) > 0 {
			out = append(out, resolved)
		}
	}
	return out
}

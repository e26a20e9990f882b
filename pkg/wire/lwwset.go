package wire

import (
	"bytes"
	"container/heap"
	"encoding/binary"
	"sort"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

type lwwSetEntryWire struct {
	Element   []byte
	Timestamp uint64
	NodeID    string
}

// LWWSetReader borrows an encoded LWWSet and exposes its sorted add
// and remove entry lists.
type LWWSetReader struct {
	Adds    []lwwSetEntryWire
	Removes []lwwSetEntryWire
}

func readLWWSetEntryList(data []byte) ([]lwwSetEntryWire, []byte, error) {
	count, rest, err := getUvarint(data)
	if err != nil {
		return nil, nil, err
	}
	out := make([]lwwSetEntryWire, 0, count)
	var prev []byte
	for i := uint64(0); i < count; i++ {
		elem, after, err := getBytesField(rest)
		if err != nil {
			return nil, nil, err
		}
		if i > 0 && bytes.Compare(elem, prev) <= 0 {
			return nil, nil, ErrUnsortedInput
		}
		prev = elem
		if len(after) < 8 {
			return nil, nil, ErrDecodeError
		}
		ts := binary.BigEndian.Uint64(after[:8])
		node, after2, err := getBytesField(after[8:])
		if err != nil {
			return nil, nil, err
		}
		out = append(out, lwwSetEntryWire{Element: elem, Timestamp: ts, NodeID: string(node)})
		rest = after2
	}
	return out, rest, nil
}

func writeLWWSetEntryList(buf []byte, entries []lwwSetEntryWire) []byte {
	buf = putUvarint(buf, uint64(len(entries)))
	for _, e := range entries {
		buf = putBytesField(buf, e.Element)
		buf = binary.BigEndian.AppendUint64(buf, e.Timestamp)
		buf = putBytesField(buf, []byte(e.NodeID))
	}
	return buf
}

// NewLWWSetReader parses an LWWSet wire payload (header already
// stripped): an add-entry list followed by a remove-entry list.
func NewLWWSetReader(payload []byte) (*LWWSetReader, error) {
	adds, rest, err := readLWWSetEntryList(payload)
	if err != nil {
		return nil, err
	}
	removes, _, err := readLWWSetEntryList(rest)
	if err != nil {
		return nil, err
	}
	return &LWWSetReader{Adds: adds, Removes: removes}, nil
}

// ToLWWSet materializes the reader's contents as an owned crdt.LWWSet.
func (r *LWWSetReader) ToLWWSet() *crdt.LWWSet {
	s := crdt.NewLWWSet()
	for _, e := range r.Adds {
		s.Add(e.Element, e.Timestamp, e.NodeID)
	}
	for _, e := range r.Removes {
		s.Remove(e.Element, e.Timestamp, e.NodeID)
	}
	return s
}

// EncodeLWWSet renders an LWWSet into the canonical wire layout:
// header, add-entry list, remove-entry list, each sorted by element.
func EncodeLWWSet(s *crdt.LWWSet) []byte {
	buf := putHeader(nil, crdt.KindLWWSet)
	buf = writeLWWSetEntryList(buf, sortedLWWSetEntries(s.AddEntries(), s))
	buf = writeLWWSetEntryList(buf, sortedLWWSetEntries(s.RemoveEntries(), s))
	return buf
}

func sortedLWWSetEntries(m map[string]crdt.LWWEntryPublic, s *crdt.LWWSet) []lwwSetEntryWire {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]lwwSetEntryWire, 0, len(keys))
	for _, k := range keys {
		e := m[k]
		out = append(out, lwwSetEntryWire{Element: s.ElementBytes(k), Timestamp: e.Timestamp, NodeID: e.NodeID})
	}
	return out
}

// MergeLWWSetReaders takes, per element, the winning add entry and the
// winning remove entry across readers via a sorted k-way cursor merge
// over element byte-lex order: a linear scan per step for R<=4
// inputs, a heap for more.
func MergeLWWSetReaders(readers [][]byte) ([]byte, error) {
	payloads, err := checkSameKind(crdt.KindLWWSet, readers)
	if err != nil {
		return nil, err
	}
	parsed := make([]*LWWSetReader, len(payloads))
	for i, p := range payloads {
		r, err := NewLWWSetReader(p)
		if err != nil {
			return nil, err
		}
		parsed[i] = r
	}

	addLists := make([][]lwwSetEntryWire, len(parsed))
	removeLists := make([][]lwwSetEntryWire, len(parsed))
	for i, r := range parsed {
		addLists[i] = r.Adds
		removeLists[i] = r.Removes
	}

	var winAdds, winRemoves []lwwSetEntryWire
	if len(parsed) <= 4 {
		winAdds = linearMergeLWWSetEntries(addLists)
		winRemoves = linearMergeLWWSetEntries(removeLists)
	} else {
		winAdds = heapMergeLWWSetEntries(addLists)
		winRemoves = heapMergeLWWSetEntries(removeLists)
	}

	buf := putHeader(nil, crdt.KindLWWSet)
	buf = writeLWWSetEntryList(buf, winAdds)
	buf = writeLWWSetEntryList(buf, winRemoves)
	return buf, nil
}

func linearMergeLWWSetEntries(lists [][]lwwSetEntryWire) []lwwSetEntryWire {
	idx := make([]int, len(lists))
	var out []lwwSetEntryWire
	for {
		var minElem []byte
		found := false
		for i, l := range lists {
			if idx[i] >= len(l) {
				continue
			}
			e := l[idx[i]].Element
			if !found || bytes.Compare(e, minElem) < 0 {
				minElem, found = e, true
			}
		}
		if !found {
			break
		}
		var winner lwwSetEntryWire
		haveWinner := false
		for i, l := range lists {
			if idx[i] < len(l) && bytes.Equal(l[idx[i]].Element, minElem) {
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

// lwwSetHeapItem tracks which list an in-flight entry came from, so
// the k-way merge can pull the next entry from the same source after
// consuming the current minimum.
type lwwSetHeapItem struct {
	entry lwwSetEntryWire
	list  int
	idx   int
}

type lwwSetHeap []lwwSetHeapItem

func (h lwwSetHeap) Len() int      { return len(h) }
func (h lwwSetHeap) Less(i, j int) bool {
	return bytes.Compare(h[i].entry.Element, h[j].entry.Element) < 0
}
func (h lwwSetHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *lwwSetHeap) Push(x interface{}) { *h = append(*h, x.(lwwSetHeapItem)) }
func (h *lwwSetHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func heapMergeLWWSetEntries(lists [][]lwwSetEntryWire) []lwwSetEntryWire {
	h := &lwwSetHeap{}
	heap.Init(h)
	for li, l := range lists {
		if len(l) > 0 {
			heap.Push(h, lwwSetHeapItem{entry: l[0], list: li, idx: 0})
		}
	}
	var out []lwwSetEntryWire
	for h.Len() > 0 {
		item := heap.Pop(h).(lwwSetHeapItem)
		elem := item.entry.Element
		winner := item.entry
		advance := func(it lwwSetHeapItem) {
			l := lists[it.list]
			if it.idx+1 < len(l) {
				heap.Push(h, lwwSetHeapItem{entry: l[it.idx+1], list: it.list, idx: it.idx + 1})
			}
		}
		advance(item)
		for h.Len() > 0 && bytes.Equal((*h)[0].entry.Element, elem) {
			next := heap.Pop(h).(lwwSetHeapItem)
			if greaterWinsLocal(next.entry.Timestamp, winner.Timestamp, next.entry.NodeID, winner.NodeID) {
				winner = next.entry
			}
			advance(next)
		}
		out = append(out, winner)
	}
	return out
}

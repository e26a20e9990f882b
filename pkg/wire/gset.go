package wire

import (
	"bytes"
	"container/heap"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

// GSetReader borrows an encoded GSet and iterates its sorted elements.
type GSetReader struct {
	elements [][]byte
}

// Elements returns the reader's elements in sorted byte-lex order.
func (r *GSetReader) Elements() [][]byte { return r.elements }

// ToGSet materializes the reader's contents as an owned crdt.GSet.
func (r *GSetReader) ToGSet() *crdt.GSet {
	s := crdt.NewGSet()
	for _, e := range r.elements {
		s.Add(e)
	}
	return s
}

// NewGSetReader parses a GSet wire payload (header already stripped).
func NewGSetReader(payload []byte) (*GSetReader, error) {
	count, rest, err := getUvarint(payload)
	if err != nil {
		return nil, err
	}
	elems := make([][]byte, 0, count)
	var prev []byte
	for i := uint64(0); i < count; i++ {
		elem, after, err := getBytesField(rest)
		if err != nil {
			return nil, err
		}
		if i > 0 && bytes.Compare(elem, prev) <= 0 {
			return nil, ErrUnsortedInput
		}
		prev = elem
		elems = append(elems, elem)
		rest = after
	}
	return &GSetReader{elements: elems}, nil
}

// EncodeGSet renders a GSet into the canonical wire layout: header,
// varint element count, sorted element bytes.
func EncodeGSet(s *crdt.GSet) []byte {
	buf := putHeader(nil, crdt.KindGSet)
	elems := s.Elements()
	buf = putUvarint(buf, uint64(len(elems)))
	for _, e := range elems {
		buf = putBytesField(buf, e)
	}
	return buf
}

// MergeGSetReaders unions the elements of every reader via a sorted
// k-way cursor merge: a linear scan per step for R<=4 inputs, a
// byte-lex heap for more, never building a map keyed by element.
func MergeGSetReaders(readers [][]byte) ([]byte, error) {
	payloads, err := checkSameKind(crdt.KindGSet, readers)
	if err != nil {
		return nil, err
	}
	parsed := make([]*GSetReader, len(payloads))
	for i, p := range payloads {
		r, err := NewGSetReader(p)
		if err != nil {
			return nil, err
		}
		parsed[i] = r
	}

	var elems [][]byte
	if len(parsed) <= 4 {
		elems = linearMergeGSets(parsed)
	} else {
		elems = heapMergeGSets(parsed)
	}

	buf := putHeader(nil, crdt.KindGSet)
	buf = putUvarint(buf, uint64(len(elems)))
	for _, e := range elems {
		buf = putBytesField(buf, e)
	}
	return buf, nil
}

func linearMergeGSets(readers []*GSetReader) [][]byte {
	idx := make([]int, len(readers))
	var out [][]byte
	for {
		var min []byte
		found := false
		for i, r := range readers {
			if idx[i] >= len(r.elements) {
				continue
			}
			e := r.elements[idx[i]]
			if !found || bytes.Compare(e, min) < 0 {
				min, found = e, true
			}
		}
		if !found {
			break
		}
		for i, r := range readers {
			if idx[i] < len(r.elements) && bytes.Equal(r.elements[idx[i]], min) {
				idx[i]++
			}
		}
		out = append(out, min)
	}
	return out
}

// gsetHeapItem tracks which reader an in-flight element came from, so
// the k-way merge can pull the next element from the same source
// after consuming the current minimum.
type gsetHeapItem struct {
	elem   []byte
	reader int
	idx    int
}

type gsetHeap []gsetHeapItem

func (h gsetHeap) Len() int            { return len(h) }
func (h gsetHeap) Less(i, j int) bool  { return bytes.Compare(h[i].elem, h[j].elem) < 0 }
func (h gsetHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *gsetHeap) Push(x interface{}) { *h = append(*h, x.(gsetHeapItem)) }
func (h *gsetHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func heapMergeGSets(readers []*GSetReader) [][]byte {
	h := &gsetHeap{}
	heap.Init(h)
	for ri, r := range readers {
		if len(r.elements) > 0 {
			heap.Push(h, gsetHeapItem{elem: r.elements[0], reader: ri, idx: 0})
		}
	}
	var out [][]byte
	for h.Len() > 0 {
		item := heap.Pop(h).(gsetHeapItem)
		elem := item.elem
		advance := func(it gsetHeapItem) {
			r := readers[it.reader]
			if it.idx+1 < len(r.elements) {
				heap.Push(h, gsetHeapItem{elem: r.elements[it.idx+1], reader: it.reader, idx: it.idx + 1})
			}
		}
		advance(item)
		for h.Len() > 0 && bytes.Equal((*h)[0].elem, elem) {
			next := heap.Pop(h).(gsetHeapItem)
			advance(next)
		}
		out = append(out, elem)
	}
	return out
}


package wire

import (
	"bytes"
	"container/heap"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

// orTagWire is a (node_id, counter) add-event tag in sorted order.
type orTagWire struct {
	NodeID  string
	Counter uint64
}

func (t orTagWire) less(o orTagWire) bool {
	if t.NodeID != o.NodeID {
		return t.NodeID < o.NodeID
	}
	return t.Counter < o.Counter
}

// orsetElementWire is one element and its sorted tag set.
type orsetElementWire struct {
	Element []byte
	Tags    []orTagWire
}

// ORSetReader borrows an encoded ORSet and iterates its sorted,
// tag-bearing elements.
type ORSetReader struct {
	elements []orsetElementWire
}

// Elements returns the reader's elements in sorted byte-lex order.
func (r *ORSetReader) Elements() []orsetElementWire { return r.elements }

// ToORSet materializes the reader's contents as an owned crdt.ORSet,
// attaching every recorded tag as-is so a later local Add mints a
// counter past the highest one recorded for its node.
func (r *ORSetReader) ToORSet() *crdt.ORSet {
	s := crdt.NewORSet()
	for _, e := range r.elements {
		for _, t := range e.Tags {
			s.AddTag(e.Element, t.NodeID, t.Counter)
		}
	}
	return s
}

// NewORSetReader parses an ORSet wire payload (header already
// stripped).
func NewORSetReader(payload []byte) (*ORSetReader, error) {
	count, rest, err := getUvarint(payload)
	if err != nil {
		return nil, err
	}
	elems := make([]orsetElementWire, 0, count)
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
		tagCount, after2, err := getUvarint(after)
		if err != nil {
			return nil, err
		}
		tags := make([]orTagWire, 0, tagCount)
		cur := after2
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
		elems = append(elems, orsetElementWire{Element: elem, Tags: tags})
		rest = cur
	}
	return &ORSetReader{elements: elems}, nil
}

// EncodeORSet renders an ORSet into the canonical wire layout: header,
// varint element count, then per element its bytes and sorted tag set.
func EncodeORSet(s *crdt.ORSet) []byte {
	buf := putHeader(nil, crdt.KindORSet)
	elems := s.Elements()
	buf = putUvarint(buf, uint64(len(elems)))
	for _, e := range elems {
		buf = putBytesField(buf, e)
		tags := s.TagsFor(e)
		buf = putUvarint(buf, uint64(len(tags)))
		for _, t := range tags {
			buf = putBytesField(buf, []byte(t.NodeID))
			buf = putUvarint(buf, t.Counter)
		}
	}
	return buf
}

// mergeTagPair merges two sorted, deduplicated tag lists into one.
func mergeTagPair(a, b []orTagWire) []orTagWire {
	out := make([]orTagWire, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].less(b[j]):
			out = append(out, a[i])
			i++
		case b[j].less(a[i]):
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// mergeTagLists folds N already-sorted tag lists (one per reader that
// carries this element) into a single sorted, deduplicated union.
func mergeTagLists(lists [][]orTagWire) []orTagWire {
	if len(lists) == 0 {
		return nil
	}
	merged := lists[0]
	for _, l := range lists[1:] {
		merged = mergeTagPair(merged, l)
	}
	return merged
}

// MergeORSetReaders unions the tag sets of every element seen across
// readers via a sorted k-way cursor merge over element byte-lex
// order: a linear scan per step for R<=4 inputs, a heap for more.
// Elements whose union ends up empty are dropped (never observed on
// the wire today, since an absent element simply isn't encoded, but
// kept as a guard against a future tombstoning remove path).
func MergeORSetReaders(readers [][]byte) ([]byte, error) {
	payloads, err := checkSameKind(crdt.KindORSet, readers)
	if err != nil {
		return nil, err
	}
	parsed := make([]*ORSetReader, len(payloads))
	for i, p := range payloads {
		r, err := NewORSetReader(p)
		if err != nil {
			return nil, err
		}
		parsed[i] = r
	}

	var merged []orsetElementWire
	if len(parsed) <= 4 {
		merged = linearMergeORSets(parsed)
	} else {
		merged = heapMergeORSets(parsed)
	}

	buf := putHeader(nil, crdt.KindORSet)
	buf = putUvarint(buf, uint64(len(merged)))
	for _, e := range merged {
		buf = putBytesField(buf, e.Element)
		buf = putUvarint(buf, uint64(len(e.Tags)))
		for _, t := range e.Tags {
			buf = putBytesField(buf, []byte(t.NodeID))
			buf = putUvarint(buf, t.Counter)
		}
	}
	return buf, nil
}

func linearMergeORSets(readers []*ORSetReader) []orsetElementWire {
	idx := make([]int, len(readers))
	var out []orsetElementWire
	for {
		var minElem []byte
		found := false
		for i, r := range readers {
			if idx[i] >= len(r.elements) {
				continue
			}
			e := r.elements[idx[i]].Element
			if !found || bytes.Compare(e, minElem) < 0 {
				minElem, found = e, true
			}
		}
		if !found {
			break
		}
		var tagLists [][]orTagWire
		for i, r := range readers {
			if idx[i] < len(r.elements) && bytes.Equal(r.elements[idx[i]].Element, minElem) {
				tagLists = append(tagLists, r.elements[idx[i]].Tags)
				idx[i]++
			}
		}
		tags := mergeTagLists(tagLists)
		if len(tags) > 0 {
			out = append(out, orsetElementWire{Element: minElem, Tags: tags})
		}
	}
	return out
}

// orsetHeapItem tracks which reader an in-flight element came from,
// so the k-way merge can pull the next element from the same source
// after consuming the current minimum.
type orsetHeapItem struct {
	elem   orsetElementWire
	reader int
	idx    int
}

type orsetHeap []orsetHeapItem

func (h orsetHeap) Len() int            { return len(h) }
func (h orsetHeap) Less(i, j int) bool  { return bytes.Compare(h[i].elem.Element, h[j].elem.Element) < 0 }
func (h orsetHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *orsetHeap) Push(x interface{}) { *h = append(*h, x.(orsetHeapItem)) }
func (h *orsetHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func heapMergeORSets(readers []*ORSetReader) []orsetElementWire {
	h := &orsetHeap{}
	heap.Init(h)
	for ri, r := range readers {
		if len(r.elements) > 0 {
			heap.Push(h, orsetHeapItem{elem: r.elements[0], reader: ri, idx: 0})
		}
	}
	var out []orsetElementWire
	for h.Len() > 0 {
		item := heap.Pop(h).(orsetHeapItem)
		elem := item.elem.Element
		tagLists := [][]orTagWire{item.elem.Tags}
		advance := func(it orsetHeapItem) {
			r := readers[it.reader]
			if it.idx+1 < len(r.elements) {
				heap.Push(h, orsetHeapItem{elem: r.elements[it.idx+1], reader: it.reader, idx: it.idx + 1})
			}
		}
		advance(item)
		for h.Len() > 0 && bytes.Equal((*h)[0].elem.Element, elem) {
			next := heap.Pop(h).(orsetHeapItem)
			tagLists = append(tagLists, next.elem.Tags)
			advance(next)
		}
		tags := mergeTagLists(tagLists)
		if len(tags) > 0 {
			out = append(out, orsetElementWire{Element: elem, Tags: tags})
		}
	}
	return out
}

package wire

import (
	"bytes"
	"sort"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
	"github.com/transilluminate/crdt-data-types/pkg/vclock"
)

// mvEntryWire is one surviving sibling value and its vector clock.
type mvEntryWire struct {
	Value []byte
	Clock *vclock.Clock
}

// MVRegisterReader borrows an encoded MVRegister and exposes its
// surviving sibling values, sorted by their encoded clock bytes (the
// discriminator for this wire layout, since siblings are otherwise
// unordered).
type MVRegisterReader struct {
	entries []mvEntryWire
}

// Entries returns the reader's surviving entries.
func (r *MVRegisterReader) Entries() []mvEntryWire { return r.entries }

// ToMVRegister materializes the reader's contents as an owned
// crdt.MVRegister.
func (r *MVRegisterReader) ToMVRegister() *crdt.MVRegister {
	m := crdt.NewMVRegister()
	entries := make([]crdt.MVEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, crdt.MVEntry{Value: e.Value, Clock: e.Clock})
	}
	m.SetEntries(entries)
	return m
}

// NewMVRegisterReader parses an MVRegister wire payload (header
// already stripped).
func NewMVRegisterReader(payload []byte) (*MVRegisterReader, error) {
	count, rest, err := getUvarint(payload)
	if err != nil {
		return nil, err
	}
	entries := make([]mvEntryWire, 0, count)
	var prevClock []byte
	for i := uint64(0); i < count; i++ {
		val, after, err := getBytesField(rest)
		if err != nil {
			return nil, err
		}
		clock, n, err := vclock.FromBytes(after)
		if err != nil {
			return nil, ErrDecodeError
		}
		clockBytes := after[:n]
		if i > 0 && bytes.Compare(clockBytes, prevClock) <= 0 {
			return nil, ErrUnsortedInput
		}
		prevClock = clockBytes
		entries = append(entries, mvEntryWire{Value: val, Clock: clock})
		rest = after[n:]
	}
	return &MVRegisterReader{entries: entries}, nil
}

// EncodeMVRegister renders an MVRegister into the canonical wire
// layout: header, varint entry count, then per surviving sibling its
// value and vector clock, sorted by the clock's canonical bytes.
func EncodeMVRegister(r *crdt.MVRegister) []byte {
	type pair struct {
		value []byte
		clock []byte
	}
	pairs := make([]pair, 0, len(r.Entries()))
	for _, e := range r.Entries() {
		pairs = append(pairs, pair{value: e.Value, clock: e.Clock.Bytes()})
	}
	sort.Slice(pairs, func(i, j int) bool { return bytes.Compare(pairs[i].clock, pairs[j].clock) < 0 })

	buf := putHeader(nil, crdt.KindMVRegister)
	buf = putUvarint(buf, uint64(len(pairs)))
	for _, p := range pairs {
		buf = putBytesField(buf, p.value)
		buf = append(buf, p.clock...)
	}
	return buf
}

// MergeMVRegisterReaders unions all sibling values from every reader,
// then drops any whose clock is strictly dominated by another
// remaining entry's clock.
func MergeMVRegisterReaders(readers [][]byte) ([]byte, error) {
	payloads, err := checkSameKind(crdt.KindMVRegister, readers)
	if err != nil {
		return nil, err
	}
	var union []mvEntryWire
	for _, p := range payloads {
		r, err := NewMVRegisterReader(p)
		if err != nil {
			return nil, err
		}
		union = append(union, r.entries...)
	}

	var survivors []mvEntryWire
	for i, cand := range union {
		dominated := false
		for j, rival := range union {
			if i == j {
				continue
			}
			if vclock.Compare(cand.Clock, rival.Clock) == vclock.Before {
				dominated = true
				break
			}
		}
		if !dominated {
			survivors = append(survivors, cand)
		}
	}
	survivors = dedupeByClock(survivors)

	sort.Slice(survivors, func(i, j int) bool {
		return bytes.Compare(survivors[i].Clock.Bytes(), survivors[j].Clock.Bytes()) < 0
	})

	buf := putHeader(nil, crdt.KindMVRegister)
	buf = putUvarint(buf, uint64(len(survivors)))
	for _, s := range survivors {
		buf = putBytesField(buf, s.Value)
		buf = append(buf, s.Clock.Bytes()...)
	}
	return buf, nil
}

// dedupeByClock collapses entries whose clocks compare Equal, keeping
// the greater byte-lex value, as crdt.MVRegister.Merge does.
func dedupeByClock(entries []mvEntryWire) []mvEntryWire {
	var out []mvEntryWire
	for _, e := range entries {
		dup := false
		for i, seen := range out {
			if vclock.Compare(e.Clock, seen.Clock) == vclock.Equal {
				if bytes.Compare(e.Value, seen.Value) > 0 {
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

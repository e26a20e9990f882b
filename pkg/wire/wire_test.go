package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
	"github.com/transilluminate/crdt-data-types/pkg/wire"
)

func TestGCounterWireRoundTrip(t *testing.T) {
	c := crdt.NewGCounter()
	c.Increment("n1", 10, 1)
	c.Increment("n2", 20, 1)

	encoded := wire.EncodeGCounter(c)
	kind, payload, err := wire.Header(encoded)
	require.NoError(t, err)
	assert.Equal(t, crdt.KindGCounter, kind)

	r, err := wire.NewGCounterReader(payload)
	require.NoError(t, err)
	assert.Len(t, r.Entries(), 2)
}

func TestMergeReadersGCounterMatchesJSONGear(t *testing.T) {
	// the binary gear must agree with the JSON gear on the merged value.
	a := crdt.NewGCounter()
	a.Increment("node1", 10, 1)
	b := crdt.NewGCounter()
	b.Increment("node2", 20, 1)

	jsonMerged := a.Merge(b)

	encodedA := wire.EncodeGCounter(a)
	encodedB := wire.EncodeGCounter(b)
	merged, err := wire.MergeReaders(crdt.KindGCounter, [][]byte{encodedA, encodedB})
	require.NoError(t, err)

	_, payload, err := wire.Header(merged)
	require.NoError(t, err)
	r, err := wire.NewGCounterReader(payload)
	require.NoError(t, err)

	var total uint64
	for _, e := range r.Entries() {
		total += e.Count
	}
	assert.EqualValues(t, jsonMerged.Value(), total)
}

func TestMergeReadersRejectsSchemaMismatch(t *testing.T) {
	gc := crdt.NewGCounter()
	gc.Increment("n1", 1, 1)
	encodedCounter := wire.EncodeGCounter(gc)

	s := crdt.NewGSet()
	s.Add([]byte("x"))
	encodedSet := wire.EncodeGSet(s)

	_, err := wire.MergeReaders(crdt.KindGCounter, [][]byte{encodedCounter, encodedSet})
	assert.ErrorIs(t, err, wire.ErrSchemaMismatch)
}

func TestORSetWireMergePreservesConcurrentAdd(t *testing.T) {
	a := crdt.NewORSet()
	a.Add([]byte("x"), "nodeA")
	a.Remove([]byte("x"))

	b := crdt.NewORSet()
	b.Add([]byte("x"), "nodeB")

	merged, err := wire.MergeReaders(crdt.KindORSet, [][]byte{wire.EncodeORSet(a), wire.EncodeORSet(b)})
	require.NoError(t, err)

	_, payload, err := wire.Header(merged)
	require.NoError(t, err)
	r, err := wire.NewORSetReader(payload)
	require.NoError(t, err)
	require.Len(t, r.Elements(), 1)
	assert.Equal(t, "x", string(r.Elements()[0].Element))
}

func TestLWWSetReaderRejectsUnsortedInput(t *testing.T) {
	s := crdt.NewLWWSet()
	s.Add([]byte("a"), 1, "nodeA")
	s.Add([]byte("b"), 1, "nodeA")
	encoded := wire.EncodeLWWSet(s)

	_, payload, err := wire.Header(encoded)
	require.NoError(t, err)

	// Both add entries encode to the same length (same timestamp and
	// node id, single-byte elements), so swapping them in place yields
	// a structurally valid but out-of-order add list.
	const entrySize = 16
	tampered := append([]byte{}, payload...)
	copy(tampered[1:1+entrySize], payload[1+entrySize:1+2*entrySize])
	copy(tampered[1+entrySize:1+2*entrySize], payload[1:1+entrySize])

	_, err = wire.NewLWWSetReader(tampered)
	assert.ErrorIs(t, err, wire.ErrUnsortedInput)
}

func TestGCounterHeapMergeMatchesLinearMergeAboveFourReaders(t *testing.T) {
	var encoded [][]byte
	var expected int64
	for i := 0; i < 6; i++ {
		c := crdt.NewGCounter()
		c.Increment(string(rune('a'+i)), int64(i+1), 1)
		expected += int64(i + 1)
		encoded = append(encoded, wire.EncodeGCounter(c))
	}
	merged, err := wire.MergeReaders(crdt.KindGCounter, encoded)
	require.NoError(t, err)

	_, payload, err := wire.Header(merged)
	require.NoError(t, err)
	r, err := wire.NewGCounterReader(payload)
	require.NoError(t, err)

	var total int64
	for _, e := range r.Entries() {
		total += int64(e.Count)
	}
	assert.Equal(t, expected, total)
}

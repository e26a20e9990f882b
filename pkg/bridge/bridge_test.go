package bridge_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transilluminate/crdt-data-types/pkg/bridge"
	"github.com/transilluminate/crdt-data-types/pkg/compact"
	"github.com/transilluminate/crdt-data-types/pkg/crdt"
	"github.com/transilluminate/crdt-data-types/pkg/delta"
	"github.com/transilluminate/crdt-data-types/pkg/wire"
)

func TestMergeJSONGCounter(t *testing.T) {
	br := bridge.New()
	a := json.RawMessage(`{"counters":{"node1":10}}`)
	b := json.RawMessage(`{"counters":{"node2":20}}`)

	out, err := br.MergeJSON("gcounter", a, b)
	require.NoError(t, err)

	merged := crdt.NewGCounter()
	require.NoError(t, merged.UnmarshalJSON(out))
	assert.Equal(t, int64(30), merged.Value())
}

func TestMergeJSONAcceptsEveryCaseAndSeparatorVariant(t *testing.T) {
	br := bridge.New()
	a := json.RawMessage(`{"counters":{"node1":1}}`)
	b := json.RawMessage(`{"counters":{"node2":2}}`)

	for _, tag := range []string{"g_counter", "GCounter", "gcounter", "GCOUNTER", "g-counter"} {
		out, err := br.MergeJSON(tag, a, b)
		require.NoError(t, err, "tag %q should normalize", tag)
		merged := crdt.NewGCounter()
		require.NoError(t, merged.UnmarshalJSON(out))
		assert.Equal(t, int64(3), merged.Value())
	}
}

func TestMergeJSONRejectsUnknownTypeTag(t *testing.T) {
	br := bridge.New()
	_, err := br.MergeJSON("not_a_real_type", json.RawMessage(`{}`), json.RawMessage(`{}`))
	var unknown *bridge.UnknownType
	assert.ErrorAs(t, err, &unknown)
}

func TestMergeJSONRejectsMalformedShape(t *testing.T) {
	br := bridge.New()
	_, err := br.MergeJSON("gcounter", json.RawMessage(`{"counters":[1,2,3]}`), json.RawMessage(`{"counters":{}}`))
	var invalid *bridge.InvalidShape
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "/counters", invalid.Pointer)
}

func TestMergeBytesRejectsUnsortedWireBuffer(t *testing.T) {
	br := bridge.New()

	a := crdt.NewGCounter()
	a.Increment("node1", 1, 0)
	a.Increment("node2", 2, 0)
	good := wire.EncodeGCounter(a)

	// Hand-craft a buffer whose entries are out of discriminator
	// order: swap the two sorted entries so node2 precedes node1. After
	// the kind byte and the 1-byte entry count, each entry is 7 bytes (a
	// length-prefixed 5-byte node id and a 1-byte varint count).
	const entrySize = 7
	tampered := append([]byte{}, good...)
	copy(tampered[2:2+entrySize], good[2+entrySize:2+2*entrySize])
	copy(tampered[2+entrySize:2+2*entrySize], good[2:2+entrySize])

	_, err := br.MergeBytes("gcounter", [][]byte{tampered})
	assert.Error(t, err)
}

func TestMergeBytesMatchesMergeJSON(t *testing.T) {
	br := bridge.New()
	a := crdt.NewGCounter()
	a.Increment("node1", 10, 0)
	b := crdt.NewGCounter()
	b.Increment("node2", 20, 0)

	viaBytes, err := br.MergeBytes("gcounter", [][]byte{wire.EncodeGCounter(a), wire.EncodeGCounter(b)})
	require.NoError(t, err)
	_, payload, err := wire.Header(viaBytes)
	require.NoError(t, err)
	r, err := wire.NewGCounterReader(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(30), r.ToGCounter().Value())

	aj, _ := a.MarshalJSON()
	bj, _ := b.MarshalJSON()
	viaJSON, err := br.MergeJSON("gcounter", aj, bj)
	require.NoError(t, err)
	merged := crdt.NewGCounter()
	require.NoError(t, merged.UnmarshalJSON(viaJSON))
	assert.Equal(t, int64(30), merged.Value())
}

func TestApplyBatchDeltasAccumulatesIncrements(t *testing.T) {
	br := bridge.New()
	deltas := []delta.Delta{
		{IncrementBy: 5},
		{IncrementBy: 3},
		{IncrementBy: 2},
	}
	out, err := br.ApplyBatchDeltas("gcounter", nil, deltas, "node1")
	require.NoError(t, err)

	_, payload, err := wire.Header(out)
	require.NoError(t, err)
	r, err := wire.NewGCounterReader(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(10), r.ToGCounter().Value())
}

func TestApplyDeltaRejectsMismatchedKind(t *testing.T) {
	br := bridge.New()
	_, err := br.ApplyDelta("gcounter", nil, delta.Delta{Kind: crdt.KindORSet}, "node1")
	assert.ErrorIs(t, err, bridge.ErrSchemaMismatch)
}

func TestCompactJSONGCounterPreservesValue(t *testing.T) {
	br := bridge.New()
	c := crdt.NewGCounter()
	c.Increment("node1", 5, 100)
	c.Increment("node1", 3, 200)
	data, err := c.MarshalJSON()
	require.NoError(t, err)

	out, err := br.CompactJSON("gcounter", data, compact.Policy{EpochWindowSeconds: 50, NowEpochSeconds: 200})
	require.NoError(t, err)

	compacted := crdt.NewGCounter()
	require.NoError(t, compacted.UnmarshalJSON(out))
	assert.Equal(t, int64(8), compacted.Value())
}

func TestAddAccumulatedStateSumsRatherThanMax(t *testing.T) {
	br := bridge.New()
	a := json.RawMessage(`{"counters":{"node1":10}}`)
	b := json.RawMessage(`{"counters":{"node1":5}}`)

	asMerge, err := br.MergeJSON("gcounter", a, b)
	require.NoError(t, err)
	mergedVal := crdt.NewGCounter()
	require.NoError(t, mergedVal.UnmarshalJSON(asMerge))
	assert.Equal(t, int64(10), mergedVal.Value())

	asAccumulated, err := br.AddAccumulatedState("gcounter", a, b)
	require.NoError(t, err)
	accumulatedVal := crdt.NewGCounter()
	require.NoError(t, accumulatedVal.UnmarshalJSON(asAccumulated))
	assert.Equal(t, int64(15), accumulatedVal.Value())
}

func TestAddAccumulatedStateRejectsNonCounterKind(t *testing.T) {
	br := bridge.New()
	_, err := br.AddAccumulatedState("gset", json.RawMessage(`{"elements":[]}`), json.RawMessage(`{"elements":[]}`))
	assert.ErrorIs(t, err, bridge.ErrSchemaMismatch)
}

func TestAddAccumulatedStateReportsOverflow(t *testing.T) {
	br := bridge.New()
	a := json.RawMessage(`{"counters":{"node1":9223372036854775807}}`)
	b := json.RawMessage(`{"counters":{"node1":1}}`)

	_, err := br.AddAccumulatedState("gcounter", a, b)
	assert.ErrorIs(t, err, bridge.ErrArithmeticOverflow)
}

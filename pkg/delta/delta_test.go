package delta_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
	"github.com/transilluminate/crdt-data-types/pkg/delta"
	"github.com/transilluminate/crdt-data-types/pkg/wire"
)

func TestApplyBatchAccumulatesGCounterIncrements(t *testing.T) {
	// deltas [+5, +3, +2] from a single node fold to a running total of 10.
	deltas := []delta.Delta{
		{Kind: crdt.KindGCounter, IncrementBy: 5},
		{Kind: crdt.KindGCounter, IncrementBy: 3},
		{Kind: crdt.KindGCounter, IncrementBy: 2},
	}
	out, err := delta.ApplyBatch(nil, deltas, "node1")
	require.NoError(t, err)

	_, payload, err := wire.Header(out)
	require.NoError(t, err)
	r, err := wire.NewGCounterReader(payload)
	require.NoError(t, err)

	var total uint64
	for _, e := range r.Entries() {
		total += e.Count
	}
	assert.EqualValues(t, 10, total)
}

func TestApplyDeltaORSetAddThenRemove(t *testing.T) {
	out, err := delta.ApplyDelta(nil, delta.Delta{Kind: crdt.KindORSet, AddElement: []byte("x")}, "n1")
	require.NoError(t, err)

	out, err = delta.ApplyDelta(out, delta.Delta{Kind: crdt.KindORSet, RemoveElement: []byte("x")}, "n1")
	require.NoError(t, err)

	_, payload, err := wire.Header(out)
	require.NoError(t, err)
	r, err := wire.NewORSetReader(payload)
	require.NoError(t, err)
	assert.Empty(t, r.Elements())
}

package crdt_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

func TestGCounterJSONMerge(t *testing.T) {
	// {counters:{node1:10}} merged with {counters:{node2:20}}
	// -> {counters:{node1:10,node2:20}}, value 30.
	a := crdt.NewGCounter()
	require.NoError(t, a.UnmarshalJSON([]byte(`{"counters":{"node1":10}}`)))

	b := crdt.NewGCounter()
	require.NoError(t, b.UnmarshalJSON([]byte(`{"counters":{"node2":20}}`)))

	merged := a.Merge(b)
	assert.EqualValues(t, 30, merged.Value())

	out, err := merged.MarshalJSON()
	require.NoError(t, err)
	var w struct {
		Counters map[string]int64 `json:"counters"`
	}
	require.NoError(t, json.Unmarshal(out, &w))
	assert.Equal(t, map[string]int64{"node1": 10, "node2": 20}, w.Counters)
}

func TestGCounterMergeIsIdempotentCommutativeAssociative(t *testing.T) {
	a := crdt.NewGCounter()
	a.Increment("n1", 5, 1)
	b := crdt.NewGCounter()
	b.Increment("n2", 3, 1)
	c := crdt.NewGCounter()
	c.Increment("n3", 7, 1)

	assert.Equal(t, a.Merge(a).Value(), a.Value(), "idempotent")
	assert.Equal(t, a.Merge(b).Value(), b.Merge(a).Value(), "commutative")
	assert.Equal(t, a.Merge(b).Merge(c).Value(), a.Merge(b.Merge(c)).Value(), "associative")
}

func TestGCounterAddAccumulatedIsNotIdempotent(t *testing.T) {
	// current {node1:10}, delta {node1:5}: Merge takes the max, AddAccumulated sums.
	current := crdt.NewGCounter()
	current.Increment("node1", 10, 1)
	delta := crdt.NewGCounter()
	delta.Increment("node1", 5, 1)

	merged := current.Merge(delta)
	assert.EqualValues(t, 10, merged.Value(), "merge takes the max, not the sum")

	accumulated, err := current.AddAccumulated(delta)
	require.NoError(t, err)
	assert.EqualValues(t, 15, accumulated.Value(), "add_accumulated sums")

	doubled, err := accumulated.AddAccumulated(delta)
	require.NoError(t, err)
	assert.NotEqual(t, accumulated.Value(), doubled.Value(), "add_accumulated is non-idempotent: repeated application keeps adding")
}

func TestGCounterAddAccumulatedReportsOverflow(t *testing.T) {
	current := crdt.NewGCounter()
	current.Increment("node1", math.MaxInt64, 1)
	delta := crdt.NewGCounter()
	delta.Increment("node1", 1, 1)

	_, err := current.AddAccumulated(delta)
	assert.ErrorIs(t, err, crdt.ErrArithmeticOverflow)
}

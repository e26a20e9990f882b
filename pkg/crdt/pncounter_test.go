package crdt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

func TestPNCounterIncrementDecrement(t *testing.T) {
	a := crdt.NewPNCounter()
	a.Increment("n1", 10, 1)
	a.Decrement("n1", 3, 1)
	assert.EqualValues(t, 7, a.Value())
}

func TestPNCounterMergeTakesComponentwiseMaxOnBothSides(t *testing.T) {
	a := crdt.NewPNCounter()
	a.Increment("n1", 10, 1)
	a.Decrement("n1", 2, 1)

	b := crdt.NewPNCounter()
	b.Increment("n1", 4, 1)
	b.Decrement("n1", 5, 1)

	merged := a.Merge(b)
	assert.EqualValues(t, 10, merged.P.Value())
	assert.EqualValues(t, 5, merged.N.Value())
	assert.EqualValues(t, 5, merged.Value())
}

func TestPNCounterJSONRoundTrip(t *testing.T) {
	a := crdt.NewPNCounter()
	a.Increment("n1", 10, 1)
	a.Decrement("n2", 3, 1)

	data, err := a.MarshalJSON()
	assert.NoError(t, err)

	b := crdt.NewPNCounter()
	assert.NoError(t, b.UnmarshalJSON(data))
	assert.Equal(t, a.Value(), b.Value())
}

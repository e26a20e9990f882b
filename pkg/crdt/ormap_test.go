package crdt_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

func TestORMapDeleteThenMergeWithConcurrentSet(t *testing.T) {
	a := crdt.NewORMap()
	a.Set("k", json.RawMessage(`1`), "nodeA")
	a.Delete("k")
	_, present := a.Get("k")
	assert.False(t, present)

	b := crdt.NewORMap()
	b.Set("k", json.RawMessage(`2`), "nodeB")

	merged := a.Merge(b)
	val, present := merged.Get("k")
	require.True(t, present, "concurrent set must survive a delete that never observed its tag")
	assert.Equal(t, json.RawMessage(`2`), val)
}

func TestORMapJSONRoundTrip(t *testing.T) {
	a := crdt.NewORMap()
	a.Set("k1", json.RawMessage(`"v1"`), "n1")
	a.Set("k2", json.RawMessage(`"v2"`), "n2")

	data, err := a.MarshalJSON()
	require.NoError(t, err)

	b := crdt.NewORMap()
	require.NoError(t, b.UnmarshalJSON(data))
	assert.Equal(t, a.Keys(), b.Keys())
}

func TestLWWMapPerKeyLastWriteWins(t *testing.T) {
	a := crdt.NewLWWMap()
	a.Set("k", json.RawMessage(`"old"`), 1, "n1")

	b := crdt.NewLWWMap()
	b.Set("k", json.RawMessage(`"new"`), 2, "n2")

	merged := a.Merge(b)
	val, ok := merged.Get("k")
	require.True(t, ok)
	assert.Equal(t, json.RawMessage(`"new"`), val)
}

func TestGSetMergeIsUnion(t *testing.T) {
	a := crdt.NewGSet()
	a.Add([]byte("x"))
	b := crdt.NewGSet()
	b.Add([]byte("y"))

	merged := a.Merge(b)
	assert.ElementsMatch(t, [][]byte{[]byte("x"), []byte("y")}, merged.Elements())
}

func TestLWWSetAddWinsOverEarlierRemove(t *testing.T) {
	s := crdt.NewLWWSet()
	s.Remove([]byte("x"), 1, "n1")
	s.Add([]byte("x"), 2, "n2")
	assert.True(t, s.Contains([]byte("x")))
}

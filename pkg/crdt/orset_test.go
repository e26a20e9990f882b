package crdt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

func TestORSetConcurrentAddSurvivesRemove(t *testing.T) {
	// replica A adds "x" and removes it; replica B concurrently re-adds
	// "x" with a fresh tag. After merge, "x" must still be present
	// because the remove only discarded the tags A had observed at the
	// time.
	a := crdt.NewORSet()
	tag := a.Add([]byte("x"), "nodeA")
	a.Remove([]byte("x"))
	assert.False(t, a.Contains([]byte("x")))

	b := crdt.NewORSet()
	b.Add([]byte("x"), "nodeB")

	merged := a.Merge(b)
	assert.True(t, merged.Contains([]byte("x")), "concurrent re-add must survive a remove that never observed its tag")
	_ = tag
}

func TestORSetMergeIsIdempotentCommutativeAssociative(t *testing.T) {
	a := crdt.NewORSet()
	a.Add([]byte("x"), "n1")
	b := crdt.NewORSet()
	b.Add([]byte("y"), "n2")
	c := crdt.NewORSet()
	c.Add([]byte("z"), "n3")

	assert.Equal(t, a.Merge(a).Elements(), a.Elements())
	assert.Equal(t, a.Merge(b).Elements(), b.Merge(a).Elements())
	assert.Equal(t, a.Merge(b).Merge(c).Elements(), a.Merge(b.Merge(c)).Elements())
}

func TestORSetJSONRoundTrip(t *testing.T) {
	a := crdt.NewORSet()
	a.Add([]byte("hello"), "n1")
	a.Add([]byte("world"), "n2")

	data, err := a.MarshalJSON()
	assert.NoError(t, err)

	b := crdt.NewORSet()
	assert.NoError(t, b.UnmarshalJSON(data))
	assert.Equal(t, a.Elements(), b.Elements())
}

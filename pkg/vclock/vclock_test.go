package vclock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transilluminate/crdt-data-types/pkg/vclock"
)

func TestIncrement(t *testing.T) {
	c := vclock.New()
	c.Increment("n1", 100)
	c.Increment("n1", 101)
	c.Increment("n2", 50)

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "n1", entries[0].NodeID)
	assert.Equal(t, uint64(2), entries[0].Logical)
	assert.Equal(t, uint64(101), entries[0].EpochSeconds)
	assert.Equal(t, "n2", entries[1].NodeID)
	assert.Equal(t, uint64(1), entries[1].Logical)
}

func TestMergeTakesComponentwiseMax(t *testing.T) {
	a := vclock.New()
	a.Increment("n1", 10)
	a.Increment("n1", 11)

	b := vclock.New()
	b.Increment("n1", 20)
	b.Increment("n2", 5)

	merged := vclock.Merge(a, b)
	entries := merged.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "n1", entries[0].NodeID)
	assert.Equal(t, uint64(2), entries[0].Logical) // max(2 from a, 1 from b)
	assert.Equal(t, "n2", entries[1].NodeID)
	assert.Equal(t, uint64(1), entries[1].Logical)
}

func TestMergeReadersMatchesPairwiseMergeFold(t *testing.T) {
	a := vclock.New()
	a.Increment("n1", 10)
	b := vclock.New()
	b.Increment("n1", 20)
	b.Increment("n2", 5)
	c := vclock.New()
	c.Increment("n3", 7)

	folded := vclock.Merge(vclock.Merge(a, b), c)

	for _, clocks := range [][]*vclock.Clock{{a, b, c}, {c, b, a}, {b, a, c}} {
		merged := vclock.MergeReaders(clocks)
		assert.Equal(t, folded.Entries(), merged.Entries())
	}
}

func TestMergeReadersPromotesToHeapAboveFourInputs(t *testing.T) {
	var clocks []*vclock.Clock
	var folded *vclock.Clock
	for i := 0; i < 6; i++ {
		c := vclock.New()
		c.Increment("shared", uint64(i))
		c.Increment("n", uint64(i))
		clocks = append(clocks, c)
		if folded == nil {
			folded = c
		} else {
			folded = vclock.Merge(folded, c)
		}
	}

	merged := vclock.MergeReaders(clocks)
	assert.Equal(t, folded.Entries(), merged.Entries())
}

func TestCompare(t *testing.T) {
	t.Run("equal", func(t *testing.T) {
		a := vclock.New()
		a.Increment("n1", 1)
		b := a.Clone()
		assert.Equal(t, vclock.Equal, vclock.Compare(a, b))
	})

	t.Run("before and after", func(t *testing.T) {
		a := vclock.New()
		a.Increment("n1", 1)
		b := a.Clone()
		b.Increment("n1", 2)

		assert.Equal(t, vclock.Before, vclock.Compare(a, b))
		assert.Equal(t, vclock.After, vclock.Compare(b, a))
	})

	t.Run("concurrent", func(t *testing.T) {
		a := vclock.New()
		a.Increment("n1", 1)

		b := vclock.New()
		b.Increment("n2", 1)

		assert.Equal(t, vclock.Concurrent, vclock.Compare(a, b))
	})
}

func TestBytesRoundTrip(t *testing.T) {
	c := vclock.New()
	c.Increment("alpha", 5)
	c.Increment("beta", 9)

	data := c.Bytes()
	decoded, n, err := vclock.FromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, c.Entries(), decoded.Entries())
}

package compact_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transilluminate/crdt-data-types/pkg/compact"
	"github.com/transilluminate/crdt-data-types/pkg/crdt"
	"github.com/transilluminate/crdt-data-types/pkg/wire"
)

func TestCompactGCounterPreservesValue(t *testing.T) {
	c := crdt.NewGCounter()
	c.Increment("live", 5, 1000)
	encoded := wire.EncodeGCounter(c)

	out, err := compact.Compact(crdt.KindGCounter, encoded, compact.Policy{
		EpochWindowSeconds: 10,
		NowEpochSeconds:    1000,
	})
	require.NoError(t, err)

	_, payload, err := wire.Header(out)
	require.NoError(t, err)
	r, err := wire.NewGCounterReader(payload)
	require.NoError(t, err)

	var total uint64
	for _, e := range r.Entries() {
		total += e.Count
	}
	assert.EqualValues(t, 5, total, "compaction must not change the counter's value")
}

func TestCompactIsIdentityForTombstoneFreeTypes(t *testing.T) {
	s := crdt.NewORSet()
	s.Add([]byte("x"), "n1")
	encoded := wire.EncodeORSet(s)

	out, err := compact.Compact(crdt.KindORSet, encoded, compact.Policy{})
	require.NoError(t, err)
	assert.Equal(t, encoded, out)
}

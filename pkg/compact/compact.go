// Package compact squashes a wire-encoded value's history without
// changing its merge-equivalence class: stale vector clock entries are
// dropped, tombstone-free structures are left untouched (an ORSet has
// nothing to squash since removes carry no tombstone), and MVRegister
// entries whose clock is strictly before another entry's are dropped.
package compact

import (
	"fmt"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
	"github.com/transilluminate/crdt-data-types/pkg/wire"
)

// Policy parameterizes compaction. EpochWindowSeconds bounds how long
// a vector clock entry for a node with no live contribution is kept
// before being dropped.
type Policy struct {
	EpochWindowSeconds uint64
	NowEpochSeconds    uint64
}

// Compact applies kind's compaction rule directly to the wire form,
// returning a new encoded value with the same merge-equivalence class
// as the input.
func Compact(kind crdt.Kind, data []byte, policy Policy) ([]byte, error) {
	k, payload, err := wire.Header(data)
	if err != nil {
		return nil, err
	}
	if k != kind {
		return nil, fmt.Errorf("%w: expected %s, got %s", wire.ErrSchemaMismatch, kind, k)
	}

	switch kind {
	case crdt.KindGCounter:
		r, err := wire.NewGCounterReader(payload)
		if err != nil {
			return nil, err
		}
		c := r.ToGCounter()
		c.Compact(policy.NowEpochSeconds, policy.EpochWindowSeconds)
		return wire.EncodeGCounter(c), nil

	case crdt.KindPNCounter:
		r, err := wire.NewPNCounterReader(payload)
		if err != nil {
			return nil, err
		}
		c := r.ToPNCounter()
		c.P.Compact(policy.NowEpochSeconds, policy.EpochWindowSeconds)
		c.N.Compact(policy.NowEpochSeconds, policy.EpochWindowSeconds)
		return wire.EncodePNCounter(c), nil

	case crdt.KindMVRegister:
		r, err := wire.NewMVRegisterReader(payload)
		if err != nil {
			return nil, err
		}
		// Merging into an empty register drops every entry whose clock is
		// strictly before another entry's clock.
		return wire.EncodeMVRegister(crdt.NewMVRegister().Merge(r.ToMVRegister())), nil

	// GSet, ORSet, LWWSet, LWWRegister, FWWRegister, LWWMap, and ORMap
	// carry no vector clock / tombstone history beyond their live tag or
	// entry set: their wire form is already minimal, so compaction is
	// the identity function (lossless by construction, per their merge
	// rules dropping dead tags and superseded writes on every Merge
	// already).
	case crdt.KindGSet, crdt.KindORSet, crdt.KindLWWSet, crdt.KindLWWRegister,
		crdt.KindFWWRegister, crdt.KindLWWMap, crdt.KindORMap:
		return data, nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %s", wire.ErrSchemaMismatch, kind)
	}
}

// Package delta implements incremental, operation-based updates over
// the wire gear: one Delta variant per CRDT family, with a single
// populated payload field per kind rather than an untyped Value.
package delta

import (
	"encoding/json"
	"fmt"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
	"github.com/transilluminate/crdt-data-types/pkg/vclock"
	"github.com/transilluminate/crdt-data-types/pkg/wire"
)

// Delta is a tagged update: Kind selects which payload field is
// populated. Exactly one field group is meaningful per Kind.
type Delta struct {
	Kind crdt.Kind

	// Counter family (GCounter, PNCounter)
	IncrementBy int64
	DecrementBy int64

	// Set family (GSet, ORSet, LWWSet)
	AddElement    []byte
	RemoveElement []byte
	Timestamp     uint64

	// Register family (LWWRegister, FWWRegister, MVRegister)
	Value json.RawMessage

	// Map family (LWWMap, ORMap)
	Key     string
	Payload json.RawMessage
}

// ApplyDelta decodes baseBytes (a pkg/wire encoded value, or nil for a
// fresh zero value), applies delta as nodeID, and re-encodes the
// result.
func ApplyDelta(baseBytes []byte, d Delta, nodeID string) ([]byte, error) {
	switch d.Kind {
	case crdt.KindGCounter:
		c, err := decodeOrNewGCounter(baseBytes)
		if err != nil {
			return nil, err
		}
		c.Increment(nodeID, d.IncrementBy, 0)
		return wire.EncodeGCounter(c), nil

	case crdt.KindPNCounter:
		c, err := decodeOrNewPNCounter(baseBytes)
		if err != nil {
			return nil, err
		}
		if d.IncrementBy > 0 {
			c.Increment(nodeID, d.IncrementBy, 0)
		}
		if d.DecrementBy > 0 {
			c.Decrement(nodeID, d.DecrementBy, 0)
		}
		return wire.EncodePNCounter(c), nil

	case crdt.KindGSet:
		s, err := decodeOrNewGSet(baseBytes)
		if err != nil {
			return nil, err
		}
		s.Add(d.AddElement)
		return wire.EncodeGSet(s), nil

	case crdt.KindORSet:
		s, err := decodeOrNewORSet(baseBytes)
		if err != nil {
			return nil, err
		}
		if d.AddElement != nil {
			s.Add(d.AddElement, nodeID)
		}
		if d.RemoveElement != nil {
			s.Remove(d.RemoveElement)
		}
		return wire.EncodeORSet(s), nil

	case crdt.KindLWWSet:
		s, err := decodeOrNewLWWSet(baseBytes)
		if err != nil {
			return nil, err
		}
		if d.AddElement != nil {
			s.Add(d.AddElement, d.Timestamp, nodeID)
		}
		if d.RemoveElement != nil {
			s.Remove(d.RemoveElement, d.Timestamp, nodeID)
		}
		return wire.EncodeLWWSet(s), nil

	case crdt.KindLWWRegister:
		write := crdt.NewLWWRegister()
		write.Set(d.Value, d.Timestamp, nodeID)
		if len(baseBytes) == 0 {
			return wire.EncodeLWWRegister(write), nil
		}
		base, err := decodeOrNewLWWRegister(baseBytes)
		if err != nil {
			return nil, err
		}
		return wire.EncodeLWWRegister(base.Merge(write)), nil

	case crdt.KindFWWRegister:
		write := crdt.NewFWWRegister()
		write.Set(d.Value, d.Timestamp, nodeID)
		if len(baseBytes) == 0 {
			return wire.EncodeFWWRegister(write), nil
		}
		base, err := decodeOrNewFWWRegister(baseBytes)
		if err != nil {
			return nil, err
		}
		return wire.EncodeFWWRegister(base.Merge(write)), nil

	case crdt.KindMVRegister:
		base, err := decodeOrNewMVRegister(baseBytes)
		if err != nil {
			return nil, err
		}
		observed := vclock.New()
		for _, e := range base.Entries() {
			observed = vclock.Merge(observed, e.Clock)
		}
		observed.Increment(nodeID, 0)
		write := crdt.NewMVRegister()
		write.Set(d.Value, observed)
		return wire.EncodeMVRegister(base.Merge(write)), nil

	case crdt.KindLWWMap:
		m, err := decodeOrNewLWWMap(baseBytes)
		if err != nil {
			return nil, err
		}
		m.Set(d.Key, d.Payload, d.Timestamp, nodeID)
		return wire.EncodeLWWMap(m), nil

	case crdt.KindORMap:
		m, err := decodeOrNewORMap(baseBytes)
		if err != nil {
			return nil, err
		}
		m.Set(d.Key, d.Payload, nodeID)
		return wire.EncodeORMap(m), nil

	default:
		return nil, fmt.Errorf("%w: deltas are not supported for %s", wire.ErrSchemaMismatch, d.Kind)
	}
}

// ApplyBatch folds a sequence of deltas over baseBytes in order,
// attributed to a single nodeID, re-decoding and re-encoding between
// each step.
func ApplyBatch(baseBytes []byte, deltas []Delta, nodeID string) ([]byte, error) {
	cur := baseBytes
	for _, d := range deltas {
		next, err := ApplyDelta(cur, d, nodeID)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func decodeOrNewGCounter(data []byte) (*crdt.GCounter, error) {
	if len(data) == 0 {
		return crdt.NewGCounter(), nil
	}
	_, payload, err := wire.Header(data)
	if err != nil {
		return nil, err
	}
	r, err := wire.NewGCounterReader(payload)
	if err != nil {
		return nil, err
	}
	return r.ToGCounter(), nil
}

func decodeOrNewPNCounter(data []byte) (*crdt.PNCounter, error) {
	if len(data) == 0 {
		return crdt.NewPNCounter(), nil
	}
	_, payload, err := wire.Header(data)
	if err != nil {
		return nil, err
	}
	r, err := wire.NewPNCounterReader(payload)
	if err != nil {
		return nil, err
	}
	return r.ToPNCounter(), nil
}

func decodeOrNewGSet(data []byte) (*crdt.GSet, error) {
	if len(data) == 0 {
		return crdt.NewGSet(), nil
	}
	_, payload, err := wire.Header(data)
	if err != nil {
		return nil, err
	}
	r, err := wire.NewGSetReader(payload)
	if err != nil {
		return nil, err
	}
	return r.ToGSet(), nil
}

func decodeOrNewORSet(data []byte) (*crdt.ORSet, error) {
	if len(data) == 0 {
		return crdt.NewORSet(), nil
	}
	_, payload, err := wire.Header(data)
	if err != nil {
		return nil, err
	}
	r, err := wire.NewORSetReader(payload)
	if err != nil {
		return nil, err
	}
	return r.ToORSet(), nil
}

func decodeOrNewLWWRegister(data []byte) (*crdt.LWWRegister, error) {
	_, payload, err := wire.Header(data)
	if err != nil {
		return nil, err
	}
	r, err := wire.NewLWWRegisterReader(payload)
	if err != nil {
		return nil, err
	}
	return r.ToLWWRegister(), nil
}

func decodeOrNewFWWRegister(data []byte) (*crdt.FWWRegister, error) {
	_, payload, err := wire.Header(data)
	if err != nil {
		return nil, err
	}
	r, err := wire.NewFWWRegisterReader(payload)
	if err != nil {
		return nil, err
	}
	return r.ToFWWRegister(), nil
}

func decodeOrNewLWWSet(data []byte) (*crdt.LWWSet, error) {
	if len(data) == 0 {
		return crdt.NewLWWSet(), nil
	}
	_, payload, err := wire.Header(data)
	if err != nil {
		return nil, err
	}
	r, err := wire.NewLWWSetReader(payload)
	if err != nil {
		return nil, err
	}
	return r.ToLWWSet(), nil
}

func decodeOrNewMVRegister(data []byte) (*crdt.MVRegister, error) {
	if len(data) == 0 {
		return crdt.NewMVRegister(), nil
	}
	_, payload, err := wire.Header(data)
	if err != nil {
		return nil, err
	}
	r, err := wire.NewMVRegisterReader(payload)
	if err != nil {
		return nil, err
	}
	return r.ToMVRegister(), nil
}

func decodeOrNewLWWMap(data []byte) (*crdt.LWWMap, error) {
	if len(data) == 0 {
		return crdt.NewLWWMap(), nil
	}
	_, payload, err := wire.Header(data)
	if err != nil {
		return nil, err
	}
	r, err := wire.NewLWWMapReader(payload)
	if err != nil {
		return nil, err
	}
	return r.ToLWWMap(), nil
}

func decodeOrNewORMap(data []byte) (*crdt.ORMap, error) {
	if len(data) == 0 {
		return crdt.NewORMap(), nil
	}
	_, payload, err := wire.Header(data)
	if err != nil {
		return nil, err
	}
	r, err := wire.NewORMapReader(payload)
	if err != nil {
		return nil, err
	}
	return r.ToORMap(), nil
}

// Package bridge dispatches on a user-supplied type tag to the right
// CRDT kind, validating JSON structural shape before handing off to
// pkg/crdt, and wiring together the JSON gear (pkg/crdt), the binary
// gear (pkg/wire), the delta subsystem (pkg/delta), and compaction
// (pkg/compact) behind one small surface.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/transilluminate/crdt-data-types/pkg/compact"
	"github.com/transilluminate/crdt-data-types/pkg/crdt"
	"github.com/transilluminate/crdt-data-types/pkg/delta"
	"github.com/transilluminate/crdt-data-types/pkg/wire"
)

// NewNodeID mints a fresh replica identifier for callers that don't
// already have a stable one of their own (e.g. a one-shot CLI
// invocation rather than a long-lived replica process).
func NewNodeID() string { return uuid.New().String() }

// Bridge is the stateless dispatch surface: every method is pure and
// safe for concurrent use since no CRDT value outlives a single call.
type Bridge struct{}

// New returns a Bridge. There is no configuration: normalization and
// validation rules are fixed.
func New() *Bridge { return &Bridge{} }

func newValue(kind crdt.Kind) crdt.Value {
	switch kind {
	case crdt.KindGCounter:
		return crdt.NewGCounter()
	case crdt.KindPNCounter:
		return crdt.NewPNCounter()
	case crdt.KindGSet:
		return crdt.NewGSet()
	case crdt.KindORSet:
		return crdt.NewORSet()
	case crdt.KindLWWSet:
		return crdt.NewLWWSet()
	case crdt.KindLWWRegister:
		return crdt.NewLWWRegister()
	case crdt.KindFWWRegister:
		return crdt.NewFWWRegister()
	case crdt.KindMVRegister:
		return crdt.NewMVRegister()
	case crdt.KindLWWMap:
		return crdt.NewLWWMap()
	case crdt.KindORMap:
		return crdt.NewORMap()
	default:
		return nil
	}
}

func encodeWire(kind crdt.Kind, v crdt.Value) ([]byte, error) {
	switch kind {
	case crdt.KindGCounter:
		return wire.EncodeGCounter(v.(*crdt.GCounter)), nil
	case crdt.KindPNCounter:
		return wire.EncodePNCounter(v.(*crdt.PNCounter)), nil
	case crdt.KindGSet:
		return wire.EncodeGSet(v.(*crdt.GSet)), nil
	case crdt.KindORSet:
		return wire.EncodeORSet(v.(*crdt.ORSet)), nil
	case crdt.KindLWWSet:
		return wire.EncodeLWWSet(v.(*crdt.LWWSet)), nil
	case crdt.KindLWWRegister:
		return wire.EncodeLWWRegister(v.(*crdt.LWWRegister)), nil
	case crdt.KindFWWRegister:
		return wire.EncodeFWWRegister(v.(*crdt.FWWRegister)), nil
	case crdt.KindMVRegister:
		return wire.EncodeMVRegister(v.(*crdt.MVRegister)), nil
	case crdt.KindLWWMap:
		return wire.EncodeLWWMap(v.(*crdt.LWWMap)), nil
	case crdt.KindORMap:
		return wire.EncodeORMap(v.(*crdt.ORMap)), nil
	default:
		return nil, &UnknownType{Tag: string(kind)}
	}
}

// MergeJSON normalizes typeTag, validates a's and b's structural
// shape, merges them through the in-memory JSON gear, and returns the
// merged JSON wire form.
func (br *Bridge) MergeJSON(typeTag string, a, b json.RawMessage) (json.RawMessage, error) {
	kind, err := normalizeKind(typeTag)
	if err != nil {
		return nil, err
	}
	if err := validateShape(kind, a); err != nil {
		return nil, err
	}
	if err := validateShape(kind, b); err != nil {
		return nil, err
	}

	av, bv := newValue(kind), newValue(kind)
	if err := av.UnmarshalJSON(a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeError, err)
	}
	if err := bv.UnmarshalJSON(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeError, err)
	}

	merged, err := mergeValues(kind, av, bv)
	if err != nil {
		return nil, err
	}
	return merged.MarshalJSON()
}

// MergeBytes normalizes typeTag and k-way merges the given pkg/wire
// encoded buffers, never materializing an owned JSON-gear value.
func (br *Bridge) MergeBytes(typeTag string, readers [][]byte) ([]byte, error) {
	kind, err := normalizeKind(typeTag)
	if err != nil {
		return nil, err
	}
	out, err := wire.MergeReaders(kind, readers)
	if err != nil {
		return nil, translateWireErr(err)
	}
	return out, nil
}

func mergeValues(kind crdt.Kind, a, b crdt.Value) (crdt.Value, error) {
	switch kind {
	case crdt.KindGCounter:
		return a.(*crdt.GCounter).Merge(b.(*crdt.GCounter)), nil
	case crdt.KindPNCounter:
		return a.(*crdt.PNCounter).Merge(b.(*crdt.PNCounter)), nil
	case crdt.KindGSet:
		return a.(*crdt.GSet).Merge(b.(*crdt.GSet)), nil
	case crdt.KindORSet:
		return a.(*crdt.ORSet).Merge(b.(*crdt.ORSet)), nil
	case crdt.KindLWWSet:
		return a.(*crdt.LWWSet).Merge(b.(*crdt.LWWSet)), nil
	case crdt.KindLWWRegister:
		return a.(*crdt.LWWRegister).Merge(b.(*crdt.LWWRegister)), nil
	case crdt.KindFWWRegister:
		return a.(*crdt.FWWRegister).Merge(b.(*crdt.FWWRegister)), nil
	case crdt.KindMVRegister:
		return a.(*crdt.MVRegister).Merge(b.(*crdt.MVRegister)), nil
	case crdt.KindLWWMap:
		return a.(*crdt.LWWMap).Merge(b.(*crdt.LWWMap)), nil
	case crdt.KindORMap:
		return a.(*crdt.ORMap).Merge(b.(*crdt.ORMap)), nil
	default:
		return nil, &UnknownType{Tag: string(kind)}
	}
}

// ApplyDelta normalizes typeTag and applies a single delta to
// baseBytes (a pkg/wire encoded value, or nil for a fresh value).
func (br *Bridge) ApplyDelta(typeTag string, baseBytes []byte, d delta.Delta, nodeID string) ([]byte, error) {
	kind, err := normalizeKind(typeTag)
	if err != nil {
		return nil, err
	}
	if d.Kind == "" {
		d.Kind = kind
	}
	if d.Kind != kind {
		return nil, ErrSchemaMismatch
	}
	if nodeID == "" {
		nodeID = NewNodeID()
	}
	out, err := delta.ApplyDelta(baseBytes, d, nodeID)
	if err != nil {
		return nil, translateWireErr(err)
	}
	return out, nil
}

// ApplyBatchDeltas folds a sequence of deltas over baseBytes in order.
func (br *Bridge) ApplyBatchDeltas(typeTag string, baseBytes []byte, deltas []delta.Delta, nodeID string) ([]byte, error) {
	kind, err := normalizeKind(typeTag)
	if err != nil {
		return nil, err
	}
	for i := range deltas {
		if deltas[i].Kind == "" {
			deltas[i].Kind = kind
		}
		if deltas[i].Kind != kind {
			return nil, ErrSchemaMismatch
		}
	}
	if nodeID == "" {
		nodeID = NewNodeID()
	}
	out, err := delta.ApplyBatch(baseBytes, deltas, nodeID)
	if err != nil {
		return nil, translateWireErr(err)
	}
	return out, nil
}

// CompactJSON decodes a JSON value, compacts it through the wire gear,
// and re-encodes as JSON.
func (br *Bridge) CompactJSON(typeTag string, data json.RawMessage, policy compact.Policy) (json.RawMessage, error) {
	kind, err := normalizeKind(typeTag)
	if err != nil {
		return nil, err
	}
	if err := validateShape(kind, data); err != nil {
		return nil, err
	}
	v := newValue(kind)
	if err := v.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeError, err)
	}
	encoded, err := encodeWire(kind, v)
	if err != nil {
		return nil, err
	}
	compacted, err := compact.Compact(kind, encoded, policy)
	if err != nil {
		return nil, translateWireErr(err)
	}
	decoded, err := decodeWireToValue(kind, compacted)
	if err != nil {
		return nil, err
	}
	return decoded.MarshalJSON()
}

// CompactBytes compacts a pkg/wire encoded value directly.
func (br *Bridge) CompactBytes(typeTag string, data []byte, policy compact.Policy) ([]byte, error) {
	kind, err := normalizeKind(typeTag)
	if err != nil {
		return nil, err
	}
	out, err := compact.Compact(kind, data, policy)
	if err != nil {
		return nil, translateWireErr(err)
	}
	return out, nil
}

// AddAccumulatedState sums a and b's per-node counter contributions
// rather than taking the componentwise max: the non-idempotent
// counterpart to MergeJSON, for flushing a temporary delta counter
// into a running total exactly once.
func (br *Bridge) AddAccumulatedState(typeTag string, a, b json.RawMessage) (json.RawMessage, error) {
	kind, err := normalizeKind(typeTag)
	if err != nil {
		return nil, err
	}
	if kind != crdt.KindGCounter && kind != crdt.KindPNCounter {
		return nil, fmt.Errorf("%w: add_accumulated_state only applies to counters, got %s", ErrSchemaMismatch, kind)
	}
	if err := validateShape(kind, a); err != nil {
		return nil, err
	}
	if err := validateShape(kind, b); err != nil {
		return nil, err
	}

	if kind == crdt.KindGCounter {
		av, bv := crdt.NewGCounter(), crdt.NewGCounter()
		if err := av.UnmarshalJSON(a); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeError, err)
		}
		if err := bv.UnmarshalJSON(b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeError, err)
		}
		sum, err := av.AddAccumulated(bv)
		if err != nil {
			return nil, translateCRDTErr(err)
		}
		return sum.MarshalJSON()
	}

	av, bv := crdt.NewPNCounter(), crdt.NewPNCounter()
	if err := av.UnmarshalJSON(a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeError, err)
	}
	if err := bv.UnmarshalJSON(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeError, err)
	}
	sum, err := av.AddAccumulated(bv)
	if err != nil {
		return nil, translateCRDTErr(err)
	}
	return sum.MarshalJSON()
}

func translateCRDTErr(err error) error {
	if errors.Is(err, crdt.ErrArithmeticOverflow) {
		return fmt.Errorf("%w: %v", ErrArithmeticOverflow, err)
	}
	return err
}

func decodeWireToValue(kind crdt.Kind, data []byte) (crdt.Value, error) {
	_, payload, err := wire.Header(data)
	if err != nil {
		return nil, translateWireErr(err)
	}
	switch kind {
	case crdt.KindGCounter:
		r, err := wire.NewGCounterReader(payload)
		if err != nil {
			return nil, translateWireErr(err)
		}
		return r.ToGCounter(), nil
	case crdt.KindPNCounter:
		r, err := wire.NewPNCounterReader(payload)
		if err != nil {
			return nil, translateWireErr(err)
		}
		return r.ToPNCounter(), nil
	case crdt.KindGSet:
		r, err := wire.NewGSetReader(payload)
		if err != nil {
			return nil, translateWireErr(err)
		}
		return r.ToGSet(), nil
	case crdt.KindORSet:
		r, err := wire.NewORSetReader(payload)
		if err != nil {
			return nil, translateWireErr(err)
		}
		return r.ToORSet(), nil
	case crdt.KindLWWSet:
		r, err := wire.NewLWWSetReader(payload)
		if err != nil {
			return nil, translateWireErr(err)
		}
		return r.ToLWWSet(), nil
	case crdt.KindLWWRegister:
		r, err := wire.NewLWWRegisterReader(payload)
		if err != nil {
			return nil, translateWireErr(err)
		}
		return r.ToLWWRegister(), nil
	case crdt.KindFWWRegister:
		r, err := wire.NewFWWRegisterReader(payload)
		if err != nil {
			return nil, translateWireErr(err)
		}
		return r.ToFWWRegister(), nil
	case crdt.KindMVRegister:
		r, err := wire.NewMVRegisterReader(payload)
		if err != nil {
			return nil, translateWireErr(err)
		}
		return r.ToMVRegister(), nil
	case crdt.KindLWWMap:
		r, err := wire.NewLWWMapReader(payload)
		if err != nil {
			return nil, translateWireErr(err)
		}
		return r.ToLWWMap(), nil
	case crdt.KindORMap:
		r, err := wire.NewORMapReader(payload)
		if err != nil {
			return nil, translateWireErr(err)
		}
		return r.ToORMap(), nil
	default:
		return nil, &UnknownType{Tag: string(kind)}
	}
}

func translateWireErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, wire.ErrUnsortedInput):
		return fmt.Errorf("%w: %v", ErrUnsortedInput, err)
	case errors.Is(err, wire.ErrSchemaMismatch):
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	case errors.Is(err, wire.ErrDecodeError):
		return fmt.Errorf("%w: %v", ErrDecodeError, err)
	default:
		return err
	}
}

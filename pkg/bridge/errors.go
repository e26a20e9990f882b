package bridge

import (
	"errors"
	"fmt"
)

// UnknownType is returned when a type tag doesn't normalize to any
// known CRDT kind.
type UnknownType struct {
	Tag string
}

func (e *UnknownType) Error() string { return fmt.Sprintf("bridge: unknown type tag %q", e.Tag) }

// InvalidShape is returned when a JSON payload doesn't match the
// expected structural shape for its declared kind.
type InvalidShape struct {
	Pointer string
	Reason  string
}

func (e *InvalidShape) Error() string {
	return fmt.Sprintf("bridge: invalid shape at %s: %s", e.Pointer, e.Reason)
}

// ErrDecodeError wraps any malformed wire-byte condition surfaced
// through the bridge (see pkg/wire.ErrDecodeError for the source).
var ErrDecodeError = errors.New("bridge: decode error")

// ErrSchemaMismatch is returned when a delta's kind doesn't match its
// base value's kind, or a merge spans mismatched kinds.
var ErrSchemaMismatch = errors.New("bridge: schema mismatch")

// ErrUnsortedInput is returned when a merge-path invariant (sorted
// discriminator run) is violated.
var ErrUnsortedInput = errors.New("bridge: unsorted input")

// ErrArithmeticOverflow is returned when a counter sum would overflow
// its 64-bit accumulator.
var ErrArithmeticOverflow = errors.New("bridge: arithmetic overflow")

// ErrProbabilisticParamMismatch names the error kind for merging
// sketches (HyperLogLog, CountMinSketch, TopK) of differing
// dimensions. No Bridge method dispatches sketch merges, so none
// returns it; pkg/probabilistic reports the condition as its own
// ErrParamMismatch.
var ErrProbabilisticParamMismatch = errors.New("bridge: probabilistic sketch parameters differ")

package wire

import (
	"fmt"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

// MergeReaders is the zero-copy k-way merge entry point: given N
// encoded values of the same kind, it produces one encoded merged
// value without decoding any input into an owned pkg/crdt value.
func MergeReaders(kind crdt.Kind, readers [][]byte) ([]byte, error) {
	if len(readers) == 0 {
		return nil, fmt.Errorf("%w: no readers given", ErrDecodeError)
	}
	switch kind {
	case crdt.KindGCounter:
		return MergeGCounterReaders(readers)
	case crdt.KindPNCounter:
		return MergePNCounterReaders(readers)
	case crdt.KindGSet:
		return MergeGSetReaders(readers)
	case crdt.KindORSet:
		return MergeORSetReaders(readers)
	case crdt.KindLWWSet:
		return MergeLWWSetReaders(readers)
	case crdt.KindLWWRegister:
		return MergeLWWRegisterReaders(readers)
	case crdt.KindFWWRegister:
		return MergeFWWRegisterReaders(readers)
	case crdt.KindMVRegister:
		return MergeMVRegisterReaders(readers)
	case crdt.KindLWWMap:
		return MergeLWWMapReaders(readers)
	case crdt.KindORMap:
		return MergeORMapReaders(readers)
	default:
		return nil, fmt.Errorf("%w: unknown kind %s", ErrSchemaMismatch, kind)
	}
}

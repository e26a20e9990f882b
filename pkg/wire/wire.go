// Package wire implements the zero-copy binary gear: one canonical
// sorted-entry layout per CRDT type family, Readers that borrow a
// []byte without materializing an owned value, and a merge engine that
// copies byte ranges directly from input to output.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

// ErrUnsortedInput is returned when a Reader's discriminator run is not
// in strictly increasing order, which the merge engine requires to do
// a linear or heap-based k-way merge without re-sorting.
var ErrUnsortedInput = errors.New("wire: entries are not sorted by discriminator")

// ErrSchemaMismatch is returned when a merge is attempted across
// readers whose kind-tag header bytes disagree.
var ErrSchemaMismatch = errors.New("wire: schema mismatch")

// ErrDecodeError wraps any malformed-encoding condition (truncated
// buffer, bad varint, length that runs past the end of the buffer).
var ErrDecodeError = errors.New("wire: decode error")

// kindTag maps a crdt.Kind to its 1-byte wire header.
var kindTag = map[crdt.Kind]byte{
	crdt.KindGCounter:    1,
	crdt.KindPNCounter:   2,
	crdt.KindGSet:        3,
	crdt.KindORSet:       4,
	crdt.KindLWWSet:      5,
	crdt.KindLWWRegister: 6,
	crdt.KindFWWRegister: 7,
	crdt.KindMVRegister:  8,
	crdt.KindLWWMap:      9,
	crdt.KindORMap:       10,
}

var tagKind = func() map[byte]crdt.Kind {
	out := make(map[byte]crdt.Kind, len(kindTag))
	for k, v := range kindTag {
		out[v] = k
	}
	return out
}()

// Header reads the 1-byte kind tag from the front of an encoded value,
// returning the remaining payload.
func Header(data []byte) (crdt.Kind, []byte, error) {
	if len(data) < 1 {
		return "", nil, fmt.Errorf("%w: empty buffer", ErrDecodeError)
	}
	kind, ok := tagKind[data[0]]
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown kind tag %d", ErrDecodeError, data[0])
	}
	return kind, data[1:], nil
}

func putHeader(buf []byte, kind crdt.Kind) []byte {
	return append(buf, kindTag[kind])
}

func checkSameKind(kind crdt.Kind, readers [][]byte) ([][]byte, error) {
	payloads := make([][]byte, len(readers))
	for i, r := range readers {
		k, rest, err := Header(r)
		if err != nil {
			return nil, err
		}
		if k != kind {
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrSchemaMismatch, kind, k)
		}
		payloads[i] = rest
	}
	return payloads, nil
}

func putUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func getUvarint(data []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, nil, fmt.Errorf("%w: malformed varint", ErrDecodeError)
	}
	return v, data[n:], nil
}

func putBytesField(buf []byte, b []byte) []byte {
	buf = putUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

func getBytesField(data []byte) ([]byte, []byte, error) {
	n, rest, err := getUvarint(data)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < n {
		return nil, nil, fmt.Errorf("%w: truncated length-prefixed field", ErrDecodeError)
	}
	return rest[:n], rest[n:], nil
}

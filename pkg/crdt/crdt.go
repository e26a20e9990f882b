// Package crdt implements the in-memory structural (JSON-shaped) gear:
// one Go type per CRDT datatype, each with merge/compact semantics that
// are commutative, associative, and idempotent.
package crdt

import (
	"bytes"
	"errors"
	"fmt"
)

// Kind identifies a CRDT datatype for dispatch purposes.
type Kind string

const (
	KindGCounter     Kind = "gcounter"
	KindPNCounter    Kind = "pncounter"
	KindGSet         Kind = "gset"
	KindORSet        Kind = "orset"
	KindLWWSet       Kind = "lwwset"
	KindLWWRegister  Kind = "lwwregister"
	KindFWWRegister  Kind = "fwwregister"
	KindMVRegister   Kind = "mvregister"
	KindLWWMap       Kind = "lwwmap"
	KindORMap        Kind = "ormap"
)

// ErrIncompatibleTypes is wrapped into a more specific error whenever
// Merge receives a Value of the wrong concrete type.
var ErrIncompatibleTypes = errors.New("crdt: incompatible types")

// ErrArithmeticOverflow is returned when accumulating two counters
// would overflow a node's int64 contribution.
var ErrArithmeticOverflow = errors.New("crdt: arithmetic overflow")

// Value is implemented by every CRDT datatype in this package.
type Value interface {
	// Kind reports this value's datatype tag.
	Kind() Kind
	// MarshalJSON renders the value using its canonical wire JSON shape.
	MarshalJSON() ([]byte, error)
	// UnmarshalJSON parses the wire JSON shape into this value,
	// replacing its current contents.
	UnmarshalJSON(data []byte) error
}

// Tie-break rule shared by every LWW-family datatype: the entry with
// the lexicographically greater (timestamp, nodeID) pair wins, with
// nodeID compared byte-wise. greaterWins reports whether candidate
// strictly beats incumbent.
func greaterWins(candTS, incTS uint64, candNode, incNode string) bool {
	if candTS != incTS {
		return candTS > incTS
	}
	return candNode > incNode
}

// lesserWins is the FWW mirror of greaterWins.
func lesserWins(candTS, incTS uint64, candNode, incNode string) bool {
	if candTS != incTS {
		return candTS < incTS
	}
	return candNode < incNode
}

func typeMismatch(kind Kind, other Value) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrIncompatibleTypes, kind, other.Kind())
}

// compareBytes is a byte-lex three-way comparison (-1, 0, +1); used by
// the sorted element listings and by ORMap's deterministic payload
// tie-break.
func compareBytes(a, b []byte) int {
	return bytes.Compare(a, b)
}

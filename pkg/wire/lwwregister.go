package wire

import (
	"encoding/binary"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

// LWWRegisterReader borrows an encoded LWWRegister or FWWRegister.
type LWWRegisterReader struct {
	Value     []byte
	Timestamp uint64
	NodeID    string
}

func parseRegisterPayload(payload []byte) (*LWWRegisterReader, error) {
	val, rest, err := getBytesField(payload)
	if err != nil {
		return nil, err
	}
	if len(rest) < 8 {
		return nil, ErrDecodeError
	}
	ts := binary.BigEndian.Uint64(rest[:8])
	node, _, err := getBytesField(rest[8:])
	if err != nil {
		return nil, err
	}
	return &LWWRegisterReader{Value: val, Timestamp: ts, NodeID: string(node)}, nil
}

// NewLWWRegisterReader parses an LWWRegister wire payload (header
// already stripped).
func NewLWWRegisterReader(payload []byte) (*LWWRegisterReader, error) {
	return parseRegisterPayload(payload)
}

// ToLWWRegister materializes the reader as an owned crdt.LWWRegister.
func (r *LWWRegisterReader) ToLWWRegister() *crdt.LWWRegister {
	return &crdt.LWWRegister{Val: r.Value, Timestamp: r.Timestamp, NodeID: r.NodeID}
}

// ToFWWRegister materializes the reader as an owned crdt.FWWRegister.
func (r *LWWRegisterReader) ToFWWRegister() *crdt.FWWRegister {
	return &crdt.FWWRegister{Val: r.Value, Timestamp: r.Timestamp, NodeID: r.NodeID}
}

// NewFWWRegisterReader parses an FWWRegister wire payload (header
// already stripped).
func NewFWWRegisterReader(payload []byte) (*LWWRegisterReader, error) {
	return parseRegisterPayload(payload)
}

func encodeRegister(kind crdt.Kind, value []byte, timestamp uint64, nodeID string) []byte {
	buf := putHeader(nil, kind)
	buf = putBytesField(buf, value)
	buf = binary.BigEndian.AppendUint64(buf, timestamp)
	buf = putBytesField(buf, []byte(nodeID))
	return buf
}

// EncodeLWWRegister renders an LWWRegister into the canonical layout:
// header, length-prefixed value, 8-byte BE timestamp, length-prefixed
// node id.
func EncodeLWWRegister(r *crdt.LWWRegister) []byte {
	return encodeRegister(crdt.KindLWWRegister, r.Val, r.Timestamp, r.NodeID)
}

// EncodeFWWRegister renders an FWWRegister using the same layout as
// EncodeLWWRegister, tagged with the FWW kind.
func EncodeFWWRegister(r *crdt.FWWRegister) []byte {
	return encodeRegister(crdt.KindFWWRegister, r.Val, r.Timestamp, r.NodeID)
}

// MergeLWWRegisterReaders keeps the entry with the greatest
// (timestamp, node_id) pair, per the universal tie-break rule.
func MergeLWWRegisterReaders(readers [][]byte) ([]byte, error) {
	return mergeRegisterReaders(crdt.KindLWWRegister, readers, func(candTS, incTS uint64, candNode, incNode string) bool {
		if candTS != incTS {
			return candTS > incTS
		}
		return candNode > incNode
	})
}

// MergeFWWRegisterReaders keeps the entry with the least
// (timestamp, node_id) pair.
func MergeFWWRegisterReaders(readers [][]byte) ([]byte, error) {
	return mergeRegisterReaders(crdt.KindFWWRegister, readers, func(candTS, incTS uint64, candNode, incNode string) bool {
		if candTS != incTS {
			return candTS < incTS
		}
		return candNode < incNode
	})
}

func mergeRegisterReaders(kind crdt.Kind, readers [][]byte, wins func(candTS, incTS uint64, candNode, incNode string) bool) ([]byte, error) {
	payloads, err := checkSameKind(kind, readers)
	if err != nil {
		return nil, err
	}
	var winner *LWWRegisterReader
	for _, p := range payloads {
		r, err := parseRegisterPayload(p)
		if err != nil {
			return nil, err
		}
		if winner == nil || wins(r.Timestamp, winner.Timestamp, r.NodeID, winner.NodeID) {
			winner = r
		}
	}
	if winner == nil {
		return putHeader(nil, kind), nil
	}
	return encodeRegister(kind, winner.Value, winner.Timestamp, winner.NodeID), nil
}

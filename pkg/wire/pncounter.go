package wire

import (
	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

// PNCounterReader borrows an encoded PNCounter's P and N sides.
type PNCounterReader struct {
	P *GCounterReader
	N *GCounterReader
}

// NewPNCounterReader parses a PNCounter wire payload (header already
// stripped): a length-prefixed P-side GCounter payload (without its
// own header) followed by an N-side payload of the same shape.
func NewPNCounterReader(payload []byte) (*PNCounterReader, error) {
	pBytes, rest, err := getBytesField(payload)
	if err != nil {
		return nil, err
	}
	nBytes, _, err := getBytesField(rest)
	if err != nil {
		return nil, err
	}
	p, err := NewGCounterReader(pBytes)
	if err != nil {
		return nil, err
	}
	n, err := NewGCounterReader(nBytes)
	if err != nil {
		return nil, err
	}
	return &PNCounterReader{P: p, N: n}, nil
}

// ToPNCounter materializes the reader's contents as an owned
// crdt.PNCounter.
func (r *PNCounterReader) ToPNCounter() *crdt.PNCounter {
	return &crdt.PNCounter{P: r.P.ToGCounter(), N: r.N.ToGCounter()}
}

// EncodePNCounter renders a PNCounter by embedding its P and N
// GCounter payloads (each without the 1-byte kind header, since the
// outer PNCounter header already identifies the family).
func EncodePNCounter(c *crdt.PNCounter) []byte {
	buf := putHeader(nil, crdt.KindPNCounter)
	pPayload := EncodeGCounter(c.P)[1:]
	nPayload := EncodeGCounter(c.N)[1:]
	buf = putBytesField(buf, pPayload)
	buf = putBytesField(buf, nPayload)
	return buf
}

// MergePNCounterReaders merges the P and N sides independently via
// MergeGCounterReaders, then re-assembles a PNCounter payload.
func MergePNCounterReaders(readers [][]byte) ([]byte, error) {
	payloads, err := checkSameKind(crdt.KindPNCounter, readers)
	if err != nil {
		return nil, err
	}
	pReaders := make([][]byte, len(payloads))
	nReaders := make([][]byte, len(payloads))
	for i, p := range payloads {
		r, err := NewPNCounterReader(p)
		if err != nil {
			return nil, err
		}
		_ = r
		pBytes, rest, err := getBytesField(p)
		if err != nil {
			return nil, err
		}
		nBytes, _, err := getBytesField(rest)
		if err != nil {
			return nil, err
		}
		pReaders[i] = append(putHeader(nil, crdt.KindGCounter), pBytes...)
		nReaders[i] = append(putHeader(nil, crdt.KindGCounter), nBytes...)
	}

	mergedP, err := MergeGCounterReaders(pReaders)
	if err != nil {
		return nil, err
	}
	mergedN, err := MergeGCounterReaders(nReaders)
	if err != nil {
		return nil, err
	}

	buf := putHeader(nil, crdt.KindPNCounter)
	buf = putBytesField(buf, mergedP[1:])
	buf = putBytesField(buf, mergedN[1:])
	return buf, nil
}

package crdt

import "encoding/json"

// PNCounter supports both increment and decrement by pairing two
// GCounters: P (increments) and N (decrements). Value = sum(P) - sum(N).
type PNCounter struct {
	P *GCounter
	N *GCounter
}

// NewPNCounter returns a zeroed PNCounter.
func NewPNCounter() *PNCounter {
	return &PNCounter{P: NewGCounter(), N: NewGCounter()}
}

// Kind implements Value.
func (c *PNCounter) Kind() Kind { return KindPNCounter }

// Increment adds delta (must be positive) to nodeID's positive side.
func (c *PNCounter) Increment(nodeID string, delta int64, nowEpochSeconds uint64) {
	c.P.Increment(nodeID, delta, nowEpochSeconds)
}

// Decrement adds delta (must be positive) to nodeID's negative side.
func (c *PNCounter) Decrement(nodeID string, delta int64, nowEpochSeconds uint64) {
	c.N.Increment(nodeID, delta, nowEpochSeconds)
}

// Value returns sum(P) - sum(N).
func (c *PNCounter) Value() int64 {
	return c.P.Value() - c.N.Value()
}

// Merge merges P and N independently against other's P and N.
func (c *PNCounter) Merge(other *PNCounter) *PNCounter {
	return &PNCounter{P: c.P.Merge(other.P), N: c.N.Merge(other.N)}
}

// AddAccumulated sums both sides independently rather than taking the
// max: a delta's negative-side entries are summed into N the same way
// its positive-side entries are summed into P, never cross-subtracted.
func (c *PNCounter) AddAccumulated(other *PNCounter) (*PNCounter, error) {
	p, err := c.P.AddAccumulated(other.P)
	if err != nil {
		return nil, err
	}
	n, err := c.N.AddAccumulated(other.N)
	if err != nil {
		return nil, err
	}
	return &PNCounter{P: p, N: n}, nil
}

type pncounterWire struct {
	P gcounterWire `json:"p"`
	N gcounterWire `json:"n"`
}

// MarshalJSON renders {"p": {...}, "n": {...}}.
func (c *PNCounter) MarshalJSON() ([]byte, error) {
	pBytes, err := c.P.MarshalJSON()
	if err != nil {
		return nil, err
	}
	nBytes, err := c.N.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(json.RawMessage(`{"p":` + string(pBytes) + `,"n":` + string(nBytes) + `}`))
}

// UnmarshalJSON parses the shape produced by MarshalJSON.
func (c *PNCounter) UnmarshalJSON(data []byte) error {
	var aux struct {
		P json.RawMessage `json:"p"`
		N json.RawMessage `json:"n"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.P = NewGCounter()
	c.N = NewGCounter()
	if aux.P != nil {
		if err := c.P.UnmarshalJSON(aux.P); err != nil {
			return err
		}
	}
	if aux.N != nil {
		if err := c.N.UnmarshalJSON(aux.N); err != nil {
			return err
		}
	}
	return nil
}

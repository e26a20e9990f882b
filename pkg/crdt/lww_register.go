package crdt

import "encoding/json"

// LWWRegister holds a single value with last-write-wins resolution:
// on merge, the entry with the greater (timestamp, nodeID) pair wins.
type LWWRegister struct {
	Val       json.RawMessage
	Timestamp uint64
	NodeID    string
}

// NewLWWRegister returns a register with a nil value at timestamp 0.
func NewLWWRegister() *LWWRegister {
	return &LWWRegister{Val: json.RawMessage("null")}
}

// Kind implements Value.
func (r *LWWRegister) Kind() Kind { return KindLWWRegister }

// Set overwrites the register's contents unconditionally; callers
// merge the result against peers afterward.
func (r *LWWRegister) Set(value json.RawMessage, timestamp uint64, nodeID string) {
	r.Val = value
	r.Timestamp = timestamp
	r.NodeID = nodeID
}

// Merge keeps the entry with the greater (timestamp, nodeID) pair.
func (r *LWWRegister) Merge(other *LWWRegister) *LWWRegister {
	if greaterWins(other.Timestamp, r.Timestamp, other.NodeID, r.NodeID) {
		return &LWWRegister{Val: other.Val, Timestamp: other.Timestamp, NodeID: other.NodeID}
	}
	return &LWWRegister{Val: r.Val, Timestamp: r.Timestamp, NodeID: r.NodeID}
}

type lwwRegisterWire struct {
	Value     json.RawMessage `json:"value"`
	Timestamp uint64          `json:"timestamp"`
	NodeID    string          `json:"node_id"`
}

// MarshalJSON renders {"value":..., "timestamp":..., "node_id":...}.
func (r *LWWRegister) MarshalJSON() ([]byte, error) {
	return json.Marshal(lwwRegisterWire{Value: r.Val, Timestamp: r.Timestamp, NodeID: r.NodeID})
}

// UnmarshalJSON parses the shape produced by MarshalJSON.
func (r *LWWRegister) UnmarshalJSON(data []byte) error {
	var w lwwRegisterWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Val, r.Timestamp, r.NodeID = w.Value, w.Timestamp, w.NodeID
	return nil
}

// FWWRegister is the First-Write-Wins mirror of LWWRegister: merge
// keeps the lesser (timestamp, nodeID) pair.
type FWWRegister struct {
	Val       json.RawMessage
	Timestamp uint64
	NodeID    string
}

// NewFWWRegister returns a register with a nil value at timestamp 0.
func NewFWWRegister() *FWWRegister {
	return &FWWRegister{Val: json.RawMessage("null")}
}

// Kind implements Value.
func (r *FWWRegister) Kind() Kind { return KindFWWRegister }

// Set overwrites the register's contents unconditionally.
func (r *FWWRegister) Set(value json.RawMessage, timestamp uint64, nodeID string) {
	r.Val = value
	r.Timestamp = timestamp
	r.NodeID = nodeID
}

// Merge keeps the entry with the lesser (timestamp, nodeID) pair.
func (r *FWWRegister) Merge(other *FWWRegister) *FWWRegister {
	if lesserWins(other.Timestamp, r.Timestamp, other.NodeID, r.NodeID) {
		return &FWWRegister{Val: other.Val, Timestamp: other.Timestamp, NodeID: other.NodeID}
	}
	return &FWWRegister{Val: r.Val, Timestamp: r.Timestamp, NodeID: r.NodeID}
}

// MarshalJSON renders {"value":..., "timestamp":..., "node_id":...}.
func (r *FWWRegister) MarshalJSON() ([]byte, error) {
	return json.Marshal(lwwRegisterWire{Value: r.Val, Timestamp: r.Timestamp, NodeID: r.NodeID})
}

// UnmarshalJSON parses the shape produced by MarshalJSON.
func (r *FWWRegister) UnmarshalJSON(data []byte) error {
	var w lwwRegisterWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Val, r.Timestamp, r.NodeID = w.Value, w.Timestamp, w.NodeID
	return nil
}

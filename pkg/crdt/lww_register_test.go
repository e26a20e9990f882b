package crdt_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

func TestLWWRegisterTieBreakOnEqualTimestamp(t *testing.T) {
	// equal timestamps break the tie on node ID: n2 > n1 byte-lexically, so "a" wins.
	left := &crdt.LWWRegister{Val: json.RawMessage(`"b"`), Timestamp: 5, NodeID: "n1"}
	right := &crdt.LWWRegister{Val: json.RawMessage(`"a"`), Timestamp: 5, NodeID: "n2"}

	merged := left.Merge(right)
	assert.Equal(t, json.RawMessage(`"a"`), merged.Val)
	assert.Equal(t, "n2", merged.NodeID)
}

func TestLWWRegisterHigherTimestampWins(t *testing.T) {
	left := &crdt.LWWRegister{Val: json.RawMessage(`"old"`), Timestamp: 1, NodeID: "n9"}
	right := &crdt.LWWRegister{Val: json.RawMessage(`"new"`), Timestamp: 2, NodeID: "n1"}

	assert.Equal(t, json.RawMessage(`"new"`), left.Merge(right).Val)
	assert.Equal(t, json.RawMessage(`"new"`), right.Merge(left).Val, "merge must be commutative")
}

func TestFWWRegisterKeepsEarlierWrite(t *testing.T) {
	left := &crdt.FWWRegister{Val: json.RawMessage(`"first"`), Timestamp: 1, NodeID: "n1"}
	right := &crdt.FWWRegister{Val: json.RawMessage(`"second"`), Timestamp: 2, NodeID: "n2"}

	assert.Equal(t, json.RawMessage(`"first"`), left.Merge(right).Val)
	assert.Equal(t, json.RawMessage(`"first"`), right.Merge(left).Val)
}

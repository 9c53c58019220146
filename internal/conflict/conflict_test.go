package conflict

import (
	"testing"

	"github.com/arjunv/wavesyncdb/internal/ids"
	"github.com/arjunv/wavesyncdb/internal/messages"
)

func TestShouldApply_LaterHLCWins(t *testing.T) {
	current := messages.SyncOperation{HLCTime: 100, HLCCounter: 0, NodeID: ids.NewNodeID()}
	incoming := messages.SyncOperation{HLCTime: 200, HLCCounter: 0, NodeID: ids.NewNodeID()}

	if !ShouldApply(incoming, current) {
		t.Error("expected later hlc_time to win")
	}
	if ShouldApply(current, incoming) {
		t.Error("expected earlier hlc_time to lose")
	}
}

func TestShouldApply_CounterTieBreak(t *testing.T) {
	node := ids.NewNodeID()
	current := messages.SyncOperation{HLCTime: 100, HLCCounter: 1, NodeID: node}
	incoming := messages.SyncOperation{HLCTime: 100, HLCCounter: 2, NodeID: node}

	if !ShouldApply(incoming, current) {
		t.Error("expected higher counter to win at equal physical time")
	}
}

func TestShouldApply_NodeIDTieBreak(t *testing.T) {
	var lo, hi ids.NodeID
	lo[0] = 0x01
	hi[0] = 0x02

	current := messages.SyncOperation{HLCTime: 100, HLCCounter: 1, NodeID: lo}
	incoming := messages.SyncOperation{HLCTime: 100, HLCCounter: 1, NodeID: hi}

	if !ShouldApply(incoming, current) {
		t.Error("expected greater node_id to win full tie-break")
	}
	if ShouldApply(current, incoming) {
		t.Error("expected lesser node_id to lose full tie-break")
	}
}

func TestShouldApply_ExactDuplicateDoesNotReapply(t *testing.T) {
	op := messages.SyncOperation{HLCTime: 100, HLCCounter: 1, NodeID: ids.NewNodeID()}
	if ShouldApply(op, op) {
		t.Error("expected identical operation to not require reapplication")
	}
}

func TestCompare_Total(t *testing.T) {
	a := messages.SyncOperation{HLCTime: 1, HLCCounter: 1}
	b := messages.SyncOperation{HLCTime: 1, HLCCounter: 2}
	c := messages.SyncOperation{HLCTime: 2, HLCCounter: 0}

	if Compare(a, b) >= 0 {
		t.Error("expected a before b")
	}
	if Compare(b, c) >= 0 {
		t.Error("expected b before c")
	}
	if Compare(a, c) >= 0 {
		t.Error("expected a before c (transitivity)")
	}
}

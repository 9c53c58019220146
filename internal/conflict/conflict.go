// Package conflict implements last-write-wins resolution between two
// SyncOperations touching the same row.
package conflict

import (
	"bytes"

	"github.com/arjunv/wavesyncdb/internal/messages"
)

// Compare orders two operations by (hlc_time, hlc_counter, node_id),
// lexicographically. It returns -1 if a precedes b, 1 if a follows b,
// and 0 only when every field is identical (the same operation).
func Compare(a, b messages.SyncOperation) int {
	if a.HLCTime != b.HLCTime {
		if a.HLCTime < b.HLCTime {
			return -1
		}
		return 1
	}
	if a.HLCCounter != b.HLCCounter {
		if a.HLCCounter < b.HLCCounter {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.NodeID[:], b.NodeID[:])
}

// ShouldApply reports whether incoming should replace current,
// applying last-write-wins: incoming wins on a later (hlc_time,
// hlc_counter), and on a NodeID tie-break when those are equal. A
// duplicate replay of the same operation (equal on every tie-break
// field) is reported as not needing reapplication.
func ShouldApply(incoming, current messages.SyncOperation) bool {
	return Compare(incoming, current) > 0
}

// ShouldApplyToEmpty reports whether incoming should apply given no
// known current operation for the row.
func ShouldApplyToEmpty() bool {
	return true
}

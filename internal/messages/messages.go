// Package messages defines the data that travels the gossip mesh and
// the compact binary codec used to serialize it on the wire.
package messages

import "github.com/arjunv/wavesyncdb/internal/ids"

// WriteKind classifies the SQL statement that produced an operation.
type WriteKind uint8

const (
	KindInsert WriteKind = iota + 1
	KindUpdate
	KindDelete
)

func (k WriteKind) String() string {
	switch k {
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// SyncOperation is a single intercepted write, stamped and ready to
// gossip. Data carries the literal-inlined SQL statement to replay on
// a remote node (statement-shipping).
type SyncOperation struct {
	OpID       ids.OpID
	HLCTime    int64
	HLCCounter int64
	NodeID     ids.NodeID
	Table      string
	Kind       WriteKind
	PrimaryKey string
	Data       []byte
	Columns    []string
}

// ChangeNotification is emitted locally once an operation (local or
// remote) has been durably applied.
type ChangeNotification struct {
	Table      string
	Kind       WriteKind
	PrimaryKey string
}

// TableMeta describes a table registered for sync.
type TableMeta struct {
	TableName        string
	PrimaryKeyColumn string
	Columns          []string
}

// Package ids generates the identifiers WaveSyncDB stamps onto
// operations and nodes: a 16-byte NodeID persisted alongside the
// database file, and a 128-bit OpID for every intercepted write.
package ids

import "github.com/google/uuid"

// NodeID identifies a single database replica. By default it is
// generated once when a database is first opened and persisted in the
// _wavesync_meta table thereafter (see oplog.LoadOrCreateNodeID); a
// caller may instead pin an explicit NodeID (WithNodeID, NODE_ID), in
// which case no meta-table lookup happens at all.
type NodeID [16]byte

func NewNodeID() NodeID {
	return NodeID(uuid.New())
}

func (n NodeID) String() string {
	return uuid.UUID(n).String()
}

func (n NodeID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, n[:])
	return b
}

func NodeIDFromBytes(b []byte) (NodeID, error) {
	var n NodeID
	if len(b) != 16 {
		return n, errLen
	}
	copy(n[:], b)
	return n, nil
}

func ParseNodeID(s string) (NodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NodeID{}, err
	}
	return NodeID(u), nil
}

// OpID uniquely identifies a single sync operation across the mesh.
// Anti-entropy replays mint a fresh OpID for the same row state, so
// OpID equality is a transport-level dedup key, not a row identity.
type OpID [16]byte

func NewOpID() OpID {
	return OpID(uuid.New())
}

func (o OpID) String() string {
	return uuid.UUID(o).String()
}

func (o OpID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, o[:])
	return b
}

func OpIDFromBytes(b []byte) (OpID, error) {
	var o OpID
	if len(b) != 16 {
		return o, errLen
	}
	copy(o[:], b)
	return o, nil
}

func ParseOpID(s string) (OpID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return OpID{}, err
	}
	return OpID(u), nil
}

type lengthError struct{}

func (lengthError) Error() string { return "ids: expected 16-byte identifier" }

var errLen = lengthError{}

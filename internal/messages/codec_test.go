package messages

import (
	"bytes"
	"testing"

	"github.com/arjunv/wavesyncdb/internal/ids"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		op   SyncOperation
	}{
		{
			name: "insert with columns",
			op: SyncOperation{
				OpID:       ids.NewOpID(),
				HLCTime:    1234567890,
				HLCCounter: 3,
				NodeID:     ids.NewNodeID(),
				Table:      "tasks",
				Kind:       KindInsert,
				PrimaryKey: "42",
				Data:       []byte(`INSERT INTO tasks (id, title) VALUES (42, 'hello')`),
				Columns:    []string{"id", "title"},
			},
		},
		{
			name: "delete with no data, no columns",
			op: SyncOperation{
				OpID:       ids.NewOpID(),
				HLCTime:    42,
				HLCCounter: 0,
				NodeID:     ids.NewNodeID(),
				Table:      "tasks",
				Kind:       KindDelete,
				PrimaryKey: "42",
			},
		},
		{
			name: "empty table name edge case",
			op: SyncOperation{
				OpID:       ids.NewOpID(),
				HLCTime:    0,
				HLCCounter: 0,
				NodeID:     ids.NewNodeID(),
				Kind:       KindUpdate,
				Data:       []byte{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.op)
			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}

			if decoded.OpID != tt.op.OpID {
				t.Errorf("op_id mismatch: got %v, want %v", decoded.OpID, tt.op.OpID)
			}
			if decoded.HLCTime != tt.op.HLCTime || decoded.HLCCounter != tt.op.HLCCounter {
				t.Errorf("hlc mismatch: got (%d,%d), want (%d,%d)",
					decoded.HLCTime, decoded.HLCCounter, tt.op.HLCTime, tt.op.HLCCounter)
			}
			if decoded.NodeID != tt.op.NodeID {
				t.Errorf("node_id mismatch")
			}
			if decoded.Table != tt.op.Table {
				t.Errorf("table mismatch: got %q, want %q", decoded.Table, tt.op.Table)
			}
			if decoded.Kind != tt.op.Kind {
				t.Errorf("kind mismatch: got %v, want %v", decoded.Kind, tt.op.Kind)
			}
			if decoded.PrimaryKey != tt.op.PrimaryKey {
				t.Errorf("primary_key mismatch")
			}
			if !bytes.Equal(decoded.Data, tt.op.Data) {
				t.Errorf("data mismatch: got %q, want %q", decoded.Data, tt.op.Data)
			}
			if len(decoded.Columns) != len(tt.op.Columns) {
				t.Fatalf("columns length mismatch: got %d, want %d", len(decoded.Columns), len(tt.op.Columns))
			}
			for i := range tt.op.Columns {
				if decoded.Columns[i] != tt.op.Columns[i] {
					t.Errorf("column %d mismatch: got %q, want %q", i, decoded.Columns[i], tt.op.Columns[i])
				}
			}
		})
	}
}

func TestEncode_WireLayoutMatchesSpec(t *testing.T) {
	op := SyncOperation{
		OpID:       ids.NewOpID(),
		HLCTime:    1,
		HLCCounter: 7,
		NodeID:     ids.NewNodeID(),
		Table:      "",
		Kind:       KindInsert,
	}
	buf := Encode(op)

	// op_id(16) + hlc_time(8) + hlc_counter(4) = 28 bytes before node_id.
	counterOff := 16 + 8
	got := uint32(buf[counterOff]) | uint32(buf[counterOff+1])<<8 | uint32(buf[counterOff+2])<<16 | uint32(buf[counterOff+3])<<24
	if got != 7 {
		t.Errorf("hlc_counter not encoded as 4-byte LE at offset %d: got %d", counterOff, got)
	}

	kindOff := 16 + 8 + 4 + 16 + 4 // + table length prefix (table is empty)
	if buf[kindOff] != 0 {
		t.Errorf("Insert should encode to wire kind 0, got %d", buf[kindOff])
	}

	for kind, want := range map[WriteKind]byte{KindInsert: 0, KindUpdate: 1, KindDelete: 2} {
		encoded := Encode(SyncOperation{OpID: ids.NewOpID(), NodeID: ids.NewNodeID(), Kind: kind})
		if encoded[kindOff] != want {
			t.Errorf("%v should encode to wire kind %d, got %d", kind, want, encoded[kindOff])
		}
	}
}

func TestDecode_TruncatedBuffer(t *testing.T) {
	op := SyncOperation{OpID: ids.NewOpID(), NodeID: ids.NewNodeID(), Table: "tasks"}
	encoded := Encode(op)

	if _, err := Decode(encoded[:10]); err == nil {
		t.Error("expected error decoding truncated buffer")
	}
}

package messages

import (
	"encoding/binary"
	"fmt"

	"github.com/arjunv/wavesyncdb/internal/ids"
)

// Encode serializes a SyncOperation to the wire format: little-endian
// fixed-width integers, length-prefixed (uint32) byte/string fields,
// in declaration order of SyncOperation.
func Encode(op SyncOperation) []byte {
	size := 16 + 8 + 4 + 16 + 4 + len(op.Table) + 1 + 4 + len(op.PrimaryKey) + 4 + len(op.Data) + 4
	for _, c := range op.Columns {
		size += 4 + len(c)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, op.OpID.Bytes()...)
	buf = appendUint64(buf, uint64(op.HLCTime))
	buf = appendUint32(buf, uint32(op.HLCCounter))
	buf = append(buf, op.NodeID.Bytes()...)
	buf = appendString(buf, op.Table)
	buf = append(buf, byte(op.Kind-1))
	buf = appendString(buf, op.PrimaryKey)
	buf = appendBytes(buf, op.Data)
	buf = appendUint32(buf, uint32(len(op.Columns)))
	for _, c := range op.Columns {
		buf = appendString(buf, c)
	}
	return buf
}

// Decode parses a SyncOperation previously produced by Encode.
func Decode(b []byte) (SyncOperation, error) {
	var op SyncOperation
	r := reader{buf: b}

	opIDBytes, err := r.take(16)
	if err != nil {
		return op, fmt.Errorf("messages: decode op_id: %w", err)
	}
	op.OpID, _ = ids.OpIDFromBytes(opIDBytes)

	hlcTime, err := r.uint64()
	if err != nil {
		return op, fmt.Errorf("messages: decode hlc_time: %w", err)
	}
	op.HLCTime = int64(hlcTime)

	hlcCounter, err := r.uint32()
	if err != nil {
		return op, fmt.Errorf("messages: decode hlc_counter: %w", err)
	}
	op.HLCCounter = int64(hlcCounter)

	nodeIDBytes, err := r.take(16)
	if err != nil {
		return op, fmt.Errorf("messages: decode node_id: %w", err)
	}
	op.NodeID, _ = ids.NodeIDFromBytes(nodeIDBytes)

	op.Table, err = r.str()
	if err != nil {
		return op, fmt.Errorf("messages: decode table: %w", err)
	}

	kind, err := r.byte()
	if err != nil {
		return op, fmt.Errorf("messages: decode kind: %w", err)
	}
	op.Kind = WriteKind(kind) + 1

	op.PrimaryKey, err = r.str()
	if err != nil {
		return op, fmt.Errorf("messages: decode primary_key: %w", err)
	}

	op.Data, err = r.bytes()
	if err != nil {
		return op, fmt.Errorf("messages: decode data: %w", err)
	}

	colCount, err := r.uint32()
	if err != nil {
		return op, fmt.Errorf("messages: decode column count: %w", err)
	}
	op.Columns = make([]string, 0, colCount)
	for i := uint32(0); i < colCount; i++ {
		col, err := r.str()
		if err != nil {
			return op, fmt.Errorf("messages: decode column %d: %w", i, err)
		}
		op.Columns = append(op.Columns, col)
	}

	return op, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = appendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func appendString(buf []byte, s string) []byte {
	return appendBytes(buf, []byte(s))
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("messages: unexpected end of buffer (need %d, have %d)", n, len(r.buf)-r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

func (r *reader) str() (string, error) {
	b, err := r.bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

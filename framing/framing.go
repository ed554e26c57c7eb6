// Package framing implements the wire framing used by schema-registry-aware
// consumers to locate the schema of a binary-encoded protobuf message.
//
// A frame is a zero magic byte, followed by a 4-byte big-endian schema ID,
// optionally followed by the message-index path of the encoded message within
// its schema (as zig-zag varints), followed by payload bytes.
package framing

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// MagicByte leads every frame.
const MagicByte byte = 0x0

// HeaderLength is the number of header bytes preceding the optional
// message indexes: the magic byte and the 4-byte schema ID.
const HeaderLength = 5

// Framer encodes messages of a single registered schema.
type Framer struct {
	// SchemaID assigned to the schema by the registry.
	SchemaID int
	// Indexes of the framed message within its schema file, or nil if
	// message indexes are omitted from frames.
	Indexes []int
}

// Encode |msg| into a frame, appending into buffer |b| which will be grown
// if needed and returned.
func (f *Framer) Encode(msg proto.Message, b []byte) ([]byte, error) {
	b = AppendHeader(b, f.SchemaID, f.Indexes)

	var out, err = proto.MarshalOptions{Deterministic: true}.MarshalAppend(b, msg)
	if err != nil {
		return nil, errors.Wrap(err, "marshal")
	}
	return out, nil
}

// Frame |msg| into a new buffer drawn from a pool. The returned release
// function returns the buffer to the pool, after which it must not be used.
func (f *Framer) Frame(msg proto.Message) ([]byte, func(), error) {
	var buf = bufferPool.Get().([]byte)
	var b, err = f.Encode(msg, buf[:0])
	if err != nil {
		bufferPool.Put(buf[:0])
		return nil, nil, err
	}
	return b, func() { bufferPool.Put(b[:0]) }, nil
}

// AppendHeader appends a frame header of |schemaID| and, if non-nil,
// message |indexes| to |b|.
func AppendHeader(b []byte, schemaID int, indexes []int) []byte {
	b = append(b, MagicByte)
	b = binary.BigEndian.AppendUint32(b, uint32(schemaID))

	if indexes == nil {
		return b
	} else if len(indexes) == 1 && indexes[0] == 0 {
		// Common case of the first message is encoded as a single zero.
		return append(b, 0)
	}
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(len(indexes))))
	for _, ind := range indexes {
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(ind)))
	}
	return b
}

// Header of a decoded frame.
type Header struct {
	SchemaID int
	Indexes  []int
}

// Unpack the Header and payload of frame |b|. If |withIndexes|, message
// indexes are expected to follow the schema ID. If the frame doesn't begin
// with MagicByte, ErrDesyncDetected is returned.
func Unpack(b []byte, withIndexes bool) (Header, []byte, error) {
	if len(b) < HeaderLength {
		return Header{}, nil, fmt.Errorf("frame is too short (%d bytes)", len(b))
	} else if b[0] != MagicByte {
		return Header{}, nil, ErrDesyncDetected
	}
	var h = Header{SchemaID: int(binary.BigEndian.Uint32(b[1:5]))}
	b = b[HeaderLength:]

	if !withIndexes {
		return h, b, nil
	}

	var next = func() (int, error) {
		var v, n = protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, errors.Wrap(protowire.ParseError(n), "decoding message index")
		}
		b = b[n:]
		return int(protowire.DecodeZigZag(v)), nil
	}

	var count, err = next()
	if err != nil {
		return Header{}, nil, err
	} else if count == 0 {
		h.Indexes = []int{0}
		return h, b, nil
	} else if count < 0 || count > len(b) {
		return Header{}, nil, fmt.Errorf("invalid message index count %d", count)
	}
	h.Indexes = make([]int, count)

	for i := range h.Indexes {
		if h.Indexes[i], err = next(); err != nil {
			return Header{}, nil, err
		}
	}
	return h, b, nil
}

var (
	// ErrDesyncDetected is returned by Unpack upon a frame not beginning
	// with MagicByte.
	ErrDesyncDetected = errors.New("detected de-synchronization")
	// bufferPool pools buffers used for frame encodings.
	bufferPool = sync.Pool{New: func() interface{} { return make([]byte, 0, 1024) }}
)

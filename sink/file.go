package sink

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.gazette.dev/protofake/codecs"
	"go.gazette.dev/protofake/metrics"
	"go.gazette.dev/protofake/schema"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Written files begin with a little-endian uint32 count of messages,
// followed by a compressed stream of:
//
//	[u32 length][FileDescriptorSet of the message type and its imports]
//	[u32 length][full name of the message type]
//	per message: [u32 length][key][u32 length][marshaled message]
//
// All lengths are little-endian. The count is written after all messages.

// Write is a Sink of a compressed message file.
type Write struct {
	file  afero.File
	cw    codecs.Compressor
	bw    *bufio.Writer
	key   *KeyExtractor
	buf   []byte
	count uint32
	bytes int64
	// err is the first write error. Once set, the Write fails.
	err error
}

// NewWrite creates file |path| of |fs| and returns a Write sink of messages
// |md| into it, compressed with |codec|.
func NewWrite(fs afero.Fs, path string, codec codecs.Codec, md protoreflect.MessageDescriptor, key *KeyExtractor) (*Write, error) {
	var fdset, err = proto.Marshal(schema.FileDescriptorSet(md))
	if err != nil {
		return nil, errors.Wrap(err, "marshal FileDescriptorSet")
	}

	file, err := fs.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "creating output file")
	}
	// Placeholder for the message count.
	if _, err = file.Write(make([]byte, 4)); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "writing output file")
	}
	cw, err := codecs.NewCodecWriter(file, codec)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	var w = &Write{
		file: file,
		cw:   cw,
		bw:   bufio.NewWriterSize(cw, 1<<16),
		key:  key,
	}
	if err = w.writeChunk(fdset); err == nil {
		err = w.writeChunk([]byte(md.FullName()))
	}
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	log.WithFields(log.Fields{
		"path":    path,
		"codec":   codec,
		"message": md.FullName(),
	}).Info("writing messages")

	return w, nil
}

// Put implements Sink.
func (w *Write) Put(_ context.Context, msg protoreflect.Message) error {
	if w.err != nil {
		return w.err
	}
	var err error
	if w.buf, err = (proto.MarshalOptions{Deterministic: true}).MarshalAppend(w.buf[:0], msg.Interface()); err != nil {
		return errors.Wrap(err, "marshal")
	} else if w.count == math.MaxUint32 {
		return errors.New("too many messages")
	}

	if err = w.writeChunk(w.key.Key(msg)); err != nil {
		return err
	} else if err = w.writeChunk(w.buf); err != nil {
		return err
	}
	w.count++
	w.bytes += int64(len(w.buf))

	metrics.SinkBytesTotal.WithLabelValues("write").Add(float64(len(w.buf)))
	return nil
}

func (w *Write) writeChunk(b []byte) error {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(b)))

	var _, err = w.bw.Write(l[:])
	if err == nil {
		_, err = w.bw.Write(b)
	}
	if err != nil {
		w.err = errors.Wrap(err, "writing output file")
	}
	return w.err
}

// Close implements Sink. It flushes the compressed stream and patches the
// message count into the file head. The head is left zeroed if any prior
// write failed.
func (w *Write) Close(context.Context) error {
	var err = w.err
	if err == nil {
		err = w.bw.Flush()
	}
	if err == nil {
		err = w.cw.Close()
	}
	if err == nil {
		var c [4]byte
		binary.LittleEndian.PutUint32(c[:], w.count)
		_, err = w.file.WriteAt(c[:], 0)
	}
	if closeErr := w.file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrap(err, "finishing output file")
	}

	log.WithFields(log.Fields{
		"path":     w.file.Name(),
		"messages": w.count,
		"size":     humanize.Bytes(uint64(w.bytes)),
	}).Info("wrote messages")

	return nil
}

// Reader reads messages of a file produced by a Write sink.
type Reader struct {
	// Count of messages recorded by the file.
	Count uint32
	// Codec of the file's compressed stream.
	Codec codecs.Codec
	// Message type of the file.
	Message protoreflect.MessageDescriptor

	dec codecs.Decompressor
	br  *bufio.Reader
	buf []byte
}

// NewReader returns a Reader of |r|, detecting its compression codec.
func NewReader(r io.Reader) (*Reader, error) {
	var br = bufio.NewReader(r)

	var count [4]byte
	if _, err := io.ReadFull(br, count[:]); err != nil {
		return nil, errors.Wrap(err, "reading message count")
	}
	// Peek may return fewer bytes and an error near EOF. Detect by what's
	// available.
	var head, _ = br.Peek(codecs.MagicLength)
	var codec = codecs.Detect(head)

	dec, err := codecs.NewCodecReader(br, codec)
	if err != nil {
		return nil, err
	}
	var fr = &Reader{
		Count: binary.LittleEndian.Uint32(count[:]),
		Codec: codec,
		dec:   dec,
		br:    bufio.NewReader(dec),
	}

	fdsetBytes, err := fr.readChunk()
	if err != nil {
		return nil, errors.WithMessage(err, "reading FileDescriptorSet")
	}
	var fdset = new(descriptorpb.FileDescriptorSet)
	if err = proto.Unmarshal(fdsetBytes, fdset); err != nil {
		return nil, errors.Wrap(err, "unmarshal FileDescriptorSet")
	}
	name, err := fr.readChunk()
	if err != nil {
		return nil, errors.WithMessage(err, "reading message type")
	}
	if fr.Message, err = schema.MessageOf(fdset, string(name)); err != nil {
		return nil, err
	}
	return fr, nil
}

// Next returns the key and marshaled value of the next message, or io.EOF
// if no messages remain. Returned slices are valid until the next call.
func (r *Reader) Next() (key, value []byte, err error) {
	if key, err = r.readChunk(); err == io.EOF {
		return nil, nil, io.EOF
	} else if err != nil {
		return nil, nil, errors.WithMessage(err, "reading key")
	}
	key = append([]byte(nil), key...)

	if value, err = r.readChunk(); err == io.EOF {
		return nil, nil, io.ErrUnexpectedEOF
	} else if err != nil {
		return nil, nil, errors.WithMessage(err, "reading message")
	}
	return key, value, nil
}

// Close the Reader.
func (r *Reader) Close() error { return r.dec.Close() }

func (r *Reader) readChunk() ([]byte, error) {
	var l [4]byte
	if _, err := io.ReadFull(r.br, l[:]); err == io.EOF {
		return nil, io.EOF
	} else if err != nil {
		return nil, errors.Wrap(err, "reading length")
	}
	var n = binary.LittleEndian.Uint32(l[:])

	if cap(r.buf) < int(n) {
		r.buf = make([]byte, n)
	}
	r.buf = r.buf[:n]

	if _, err := io.ReadFull(r.br, r.buf); err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	} else if err != nil {
		return nil, errors.Wrap(err, "reading chunk")
	}
	return r.buf, nil
}

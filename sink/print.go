package sink

import (
	"bufio"
	"cmp"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.gazette.dev/protofake/metrics"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Format of printed messages.
type Format string

const (
	// Tree prints one indented "name: value" line per field.
	Tree Format = "tree"
	// Text prints messages in protobuf text format.
	Text Format = "text"
	// JSON prints each message as a single line of protobuf JSON.
	JSON Format = "json"
)

// Print is a Sink which prints messages to a Writer.
type Print struct {
	bw        *bufio.Writer
	format    Format
	separated bool
	n         int
}

// NewPrint returns a Print sink of |format| to |w|. If |separated|, each
// message is preceded by a numbered separator line.
func NewPrint(w io.Writer, format Format, separated bool) (*Print, error) {
	switch format {
	case Tree, Text, JSON:
	default:
		return nil, errors.Errorf("unknown print format %q", format)
	}
	return &Print{bw: bufio.NewWriter(w), format: format, separated: separated}, nil
}

// Put implements Sink.
func (p *Print) Put(_ context.Context, msg protoreflect.Message) error {
	p.n++

	if p.separated && p.format != JSON {
		if p.n != 1 {
			_ = p.bw.WriteByte('\n')
		}
		fmt.Fprintf(p.bw, "--- Message %d ---\n", p.n)
	}

	var before = p.bw.Buffered()
	switch p.format {
	case Tree:
		writeTree(p.bw, msg, 0)
	case Text:
		var b, err = prototext.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg.Interface())
		if err != nil {
			return errors.Wrap(err, "prototext")
		}
		_, _ = p.bw.Write(b)
	case JSON:
		var b, err = protojson.Marshal(msg.Interface())
		if err != nil {
			return errors.Wrap(err, "protojson")
		}
		_, _ = p.bw.Write(b)
		_ = p.bw.WriteByte('\n')
	}
	if d := p.bw.Buffered() - before; d > 0 {
		metrics.SinkBytesTotal.WithLabelValues("print").Add(float64(d))
	}
	return nil
}

// Close implements Sink.
func (p *Print) Close(context.Context) error {
	return errors.Wrap(p.bw.Flush(), "flushing printed messages")
}

// writeTree writes fields of |msg| in declaration order, as indented lines.
// Fields having presence are written only if set.
func writeTree(w *bufio.Writer, msg protoreflect.Message, depth int) {
	var fields = msg.Descriptor().Fields()

	for i := 0; i != fields.Len(); i++ {
		var fd = fields.Get(i)
		if fd.HasPresence() && !msg.Has(fd) {
			continue
		}
		var v = msg.Get(fd)

		switch {
		case fd.IsMap():
			var mp = v.Map()
			if mp.Len() == 0 {
				writeLine(w, depth, string(fd.Name()), "{}")
				continue
			}
			writeLine(w, depth, string(fd.Name()), "")

			var keys []protoreflect.MapKey
			mp.Range(func(k protoreflect.MapKey, _ protoreflect.Value) bool {
				keys = append(keys, k)
				return true
			})
			sortMapKeys(keys)

			for _, k := range keys {
				var name = "[" + formatScalar(fd.MapKey(), k.Value()) + "]"
				writeValue(w, depth+1, name, fd.MapValue(), mp.Get(k))
			}

		case fd.IsList():
			var list = v.List()
			if list.Len() == 0 {
				writeLine(w, depth, string(fd.Name()), "[]")
				continue
			}
			writeLine(w, depth, string(fd.Name()), "")

			for j := 0; j != list.Len(); j++ {
				writeValue(w, depth+1, "["+strconv.Itoa(j)+"]", fd, list.Get(j))
			}

		default:
			writeValue(w, depth, string(fd.Name()), fd, v)
		}
	}
}

func writeValue(w *bufio.Writer, depth int, name string, fd protoreflect.FieldDescriptor, v protoreflect.Value) {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		var msg = v.Message()

		if ts, ok := timestampOf(msg); ok {
			writeLine(w, depth, name, ts.Format(time.RFC3339Nano))
			return
		}
		writeLine(w, depth, name, "")
		writeTree(w, msg, depth+1)
	default:
		writeLine(w, depth, name, formatScalar(fd, v))
	}
}

func writeLine(w *bufio.Writer, depth int, name, value string) {
	_, _ = w.WriteString(strings.Repeat("  ", depth))
	_, _ = w.WriteString(name)
	_ = w.WriteByte(':')
	if value != "" {
		_ = w.WriteByte(' ')
		_, _ = w.WriteString(value)
	}
	_ = w.WriteByte('\n')
}

func formatScalar(fd protoreflect.FieldDescriptor, v protoreflect.Value) string {
	switch fd.Kind() {
	case protoreflect.StringKind:
		return strconv.Quote(v.String())
	case protoreflect.BytesKind:
		return "0x" + hex.EncodeToString(v.Bytes())
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			return fmt.Sprintf("%s (%d)", ev.Name(), v.Enum())
		}
		return fmt.Sprintf("ENUM_VALUE (%d)", v.Enum())
	default:
		return v.String()
	}
}

// timestampOf returns the time of a google.protobuf.Timestamp |msg|.
func timestampOf(msg protoreflect.Message) (time.Time, bool) {
	var md = msg.Descriptor()
	if md.FullName() != "google.protobuf.Timestamp" {
		return time.Time{}, false
	}
	var secs = msg.Get(md.Fields().ByName("seconds")).Int()
	var nanos = msg.Get(md.Fields().ByName("nanos")).Int()
	return time.Unix(secs, nanos).UTC(), true
}

func sortMapKeys(keys []protoreflect.MapKey) {
	slices.SortFunc(keys, func(a, b protoreflect.MapKey) int {
		switch av := a.Interface().(type) {
		case string:
			return strings.Compare(av, b.String())
		case bool:
			return cmpBool(av, b.Bool())
		case int32, int64:
			return cmp.Compare(a.Int(), b.Int())
		default:
			return cmp.Compare(a.Uint(), b.Uint())
		}
	})
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	} else if !a {
		return -1
	}
	return 1
}

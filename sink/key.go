package sink

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// KeyExtractor extracts record keys from messages of a single type. Keys
// are addressed by a dotted path of field names, where all but the last
// element name singular message fields, and the last names a singular
// scalar field.
type KeyExtractor struct {
	path []protoreflect.FieldDescriptor
}

// NewKeyExtractor returns a KeyExtractor of |path| within messages of |md|.
// An empty |path| yields an extractor of empty keys.
func NewKeyExtractor(md protoreflect.MessageDescriptor, path string) (*KeyExtractor, error) {
	var ke = new(KeyExtractor)
	if path == "" {
		return ke, nil
	}

	var names = strings.Split(path, ".")
	for i, name := range names {
		var notFound = &KeyFieldNotFoundError{Message: md.FullName(), Path: path}

		var fd = md.Fields().ByName(protoreflect.Name(name))
		if fd == nil {
			notFound.Reason = fmt.Sprintf("%s has no field %q", md.FullName(), name)
			return nil, notFound
		} else if fd.IsList() || fd.IsMap() {
			notFound.Reason = fmt.Sprintf("%s is repeated", fd.FullName())
			return nil, notFound
		}

		var last = i == len(names)-1
		var isMessage = fd.Kind() == protoreflect.MessageKind || fd.Kind() == protoreflect.GroupKind

		if last && isMessage {
			notFound.Reason = fmt.Sprintf("%s is a message", fd.FullName())
			return nil, notFound
		} else if !last && !isMessage {
			notFound.Reason = fmt.Sprintf("%s is not a message", fd.FullName())
			return nil, notFound
		}
		ke.path = append(ke.path, fd)
		md = fd.Message()
	}
	return ke, nil
}

// Key returns the key of |msg|, which must be of the KeyExtractor's type.
// A nil key is returned if the extractor is nil or its path is empty.
func (ke *KeyExtractor) Key(msg protoreflect.Message) []byte {
	if ke == nil || len(ke.path) == 0 {
		return nil
	}
	for _, fd := range ke.path[:len(ke.path)-1] {
		msg = msg.Get(fd).Message()
	}
	var fd = ke.path[len(ke.path)-1]
	var v = msg.Get(fd)

	switch fd.Kind() {
	case protoreflect.StringKind:
		return []byte(v.String())
	case protoreflect.BytesKind:
		return v.Bytes()
	case protoreflect.BoolKind:
		return strconv.AppendBool(nil, v.Bool())
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			return []byte(ev.Name())
		}
		return strconv.AppendInt(nil, int64(v.Enum()), 10)
	case protoreflect.FloatKind:
		return strconv.AppendFloat(nil, v.Float(), 'g', -1, 32)
	case protoreflect.DoubleKind:
		return strconv.AppendFloat(nil, v.Float(), 'g', -1, 64)
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return strconv.AppendUint(nil, v.Uint(), 10)
	default:
		return strconv.AppendInt(nil, v.Int(), 10)
	}
}

// KeyFieldNotFoundError is returned when a key path does not address a
// singular scalar field of the message type.
type KeyFieldNotFoundError struct {
	Message protoreflect.FullName
	Path    string
	Reason  string
}

func (e *KeyFieldNotFoundError) Error() string {
	return fmt.Sprintf("key field %q not found in %s: %s", e.Path, e.Message, e.Reason)
}

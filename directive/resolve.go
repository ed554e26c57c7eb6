package directive

import (
	"fmt"

	"go.gazette.dev/protofake/distribution"
	"go.gazette.dev/protofake/pool"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Default ranges of fields not bearing an explicit directive.
var (
	DefaultWords       = Range{Min: 1, Max: 5}
	DefaultCount       = Range{Min: 0, Max: 3}
	DefaultBytesLength = Range{Min: 4, Max: 20}

	// Undirected numeric fields are bounded to keep generated values
	// readable. An explicit `distribution=uniform` spans the full range.
	DefaultSigned   = distribution.NewUniformRange(-10000, 10000)
	DefaultUnsigned = distribution.NewUniformRange(0, 20000)
	DefaultFloat    = distribution.NewUniformRange(-1000, 1000)
)

// Pools is the view of declared pools required for resolution.
// It's implemented by *pool.Manager.
type Pools interface {
	Type(name string) (pool.Type, bool)
}

// Field is the resolved generation policy of a field. Every attribute is
// populated, by directive or by default, for the field's kind.
type Field struct {
	// Name is the full name of the field.
	Name protoreflect.FullName
	// Kind is the kind of the field (or of its elements, if repeated).
	Kind protoreflect.Kind

	// Words is the word-count range of FormatWords strings.
	Words Range
	// Length is the length range of bytes values.
	Length Range
	// Count is the cardinality range of repeated or map fields.
	Count Range
	// Format of string values.
	Format StringFormat
	// Pool from which values are picked, or empty.
	Pool string
	// Distribution of numeric values, or of enum or pool indices.
	Distribution distribution.Spec

	// Directives which were explicitly present in the field's comment.
	Directives []Directive
}

// Resolve the directives of |comment| against field |fd|, applying
// defaults for the field's kind. Malformed or inapplicable directives fail
// with a *ParseError. A pool which is undeclared or of a type incompatible
// with the field fails with a *ReferenceError.
func Resolve(fd protoreflect.FieldDescriptor, comment string, pools Pools) (*Field, error) {
	var name = string(fd.FullName())

	var directives, err = Parse(comment)
	if err != nil {
		err.(*ParseError).Field = name
		return nil, err
	}

	var f = &Field{
		Name:       fd.FullName(),
		Kind:       fd.Kind(),
		Directives: directives,
	}
	var multi = fd.IsList() || fd.IsMap()

	switch f.Kind {
	case protoreflect.StringKind:
		f.Words = DefaultWords
	case protoreflect.BytesKind:
		f.Length = DefaultBytesLength
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		f.Distribution = DefaultSigned
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		f.Distribution = DefaultUnsigned
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		f.Distribution = DefaultFloat
	default:
		f.Distribution = distribution.NewUniform()
	}
	if multi {
		f.Count = DefaultCount
	}

	var inapplicable = func(d Directive) error {
		var what = f.Kind.String()
		if fd.IsMap() {
			what = "map"
		} else if fd.IsList() {
			what = "repeated " + what
		}
		return &ParseError{
			Field:  name,
			Token:  d.Token,
			Reason: fmt.Sprintf("%s does not apply to %s field", d.Kind, what),
		}
	}

	// Apply pools first, as they determine whether distribution applies.
	for _, d := range directives {
		if d.Kind != Pool {
			continue
		}
		var typ, ok = pools.Type(d.Pool)
		if !ok {
			return nil, &ReferenceError{Field: name, Pool: d.Pool}
		} else if fd.IsMap() || !Compatible(f.Kind, typ) {
			return nil, &ReferenceError{
				Field:  name,
				Pool:   d.Pool,
				Reason: fmt.Sprintf("of type %s is incompatible with %s field", typ, f.Kind),
			}
		} else if f.Kind == protoreflect.EnumKind && fd.Enum().IsClosed() {
			// Undeclared numbers of a closed enum don't survive decoding.
			return nil, &ReferenceError{
				Field:  name,
				Pool:   d.Pool,
				Reason: fmt.Sprintf("of type %s is incompatible with closed enum %s", typ, fd.Enum().FullName()),
			}
		}
		f.Pool = d.Pool
		f.Distribution = distribution.NewUniform()
	}

	for _, d := range directives {
		switch d.Kind {
		case Words:
			if f.Kind == protoreflect.StringKind {
				f.Words = d.Range
			} else if f.Kind == protoreflect.BytesKind && !fd.IsMap() {
				f.Length = d.Range
			} else {
				return nil, inapplicable(d)
			}
		case Count:
			if multi {
				f.Count = d.Range
			} else if f.Kind == protoreflect.BytesKind {
				if !hasKind(directives, Words) {
					f.Length = d.Range
				}
			} else {
				return nil, inapplicable(d)
			}
		case String:
			if f.Kind != protoreflect.StringKind || fd.IsMap() {
				return nil, inapplicable(d)
			}
			f.Format = d.Format
		case Distribution:
			if fd.IsMap() || !(IsNumeric(f.Kind) || f.Kind == protoreflect.EnumKind || f.Pool != "") {
				return nil, inapplicable(d)
			}
			f.Distribution = d.Distribution
		}
	}
	return f, nil
}

// Compatible returns whether values of pool Type |typ| may populate a field
// of Kind |kind|.
func Compatible(kind protoreflect.Kind, typ pool.Type) bool {
	switch kind {
	case protoreflect.StringKind:
		return typ == pool.String || typ == pool.UUID
	case protoreflect.BytesKind:
		return typ == pool.Bytes
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind, protoreflect.EnumKind:
		return typ == pool.I32
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return typ == pool.I64
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return typ == pool.U32
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return typ == pool.U64
	case protoreflect.FloatKind:
		return typ == pool.F32
	case protoreflect.DoubleKind:
		return typ == pool.F64
	default:
		return false
	}
}

// IsNumeric returns whether |k| is an integer or floating-point Kind.
func IsNumeric(k protoreflect.Kind) bool {
	switch k {
	case protoreflect.BoolKind, protoreflect.EnumKind, protoreflect.StringKind,
		protoreflect.BytesKind, protoreflect.MessageKind, protoreflect.GroupKind:
		return false
	default:
		return true
	}
}

func hasKind(directives []Directive, k Kind) bool {
	for _, d := range directives {
		if d.Kind == k {
			return true
		}
	}
	return false
}

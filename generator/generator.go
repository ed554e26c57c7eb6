// Package generator assembles dynamic messages of arbitrary descriptors,
// populating each field as steered by its resolved directive.
//
// A Context holds all mutable state of a run: its random source, value pools,
// and resolved field directives. Messages are generated one at a time and
// fields in declaration order, which makes a run reproducible for a fixed
// seed. A Context is not safe for concurrent use.
package generator

import (
	"encoding/binary"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/protofake/directive"
	"go.gazette.dev/protofake/fake"
	"go.gazette.dev/protofake/pool"
	"go.gazette.dev/protofake/schema"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// DefaultMaxDepth is the default nesting depth beyond which message fields
// are left empty.
const DefaultMaxDepth = 8

// ErrInconsistent is returned by Generate upon a field which wasn't
// resolved by Prepare, or which has no generation rule.
// It indicates a defect, and isn't recoverable.
var ErrInconsistent = errors.New("internal consistency error")

// wellKnown types have JSON mappings which constrain their values, and are
// populated directly rather than field by field.
var wellKnown = map[protoreflect.FullName]func(*Context, protoreflect.Message){
	"google.protobuf.Timestamp": (*Context).timestamp,
	"google.protobuf.Duration":  (*Context).duration,
	"google.protobuf.FieldMask": (*Context).fieldMask,
	"google.protobuf.Struct":    (*Context).jsonStruct,
	"google.protobuf.Value":     (*Context).jsonValue,
	"google.protobuf.ListValue": (*Context).jsonList,

	// Any is left empty, as a packed type URL must resolve when decoded.
	"google.protobuf.Any": func(*Context, protoreflect.Message) {},
}

// WellKnown returns whether messages |name| are populated as a whole,
// without resolving directives of their fields.
func WellKnown(name protoreflect.FullName) bool {
	var _, ok = wellKnown[name]
	return ok
}

// Options of a Context.
type Options struct {
	// Seed of the random source.
	Seed uint64
	// Pools referenced by pool directives. If nil, an empty
	// *pool.Manager is used.
	Pools *pool.Manager
	// Epoch about which google.protobuf.Timestamp values are generated.
	// If zero, the current time is used.
	Epoch time.Time
	// MaxDepth of nested messages. If zero, DefaultMaxDepth is used.
	MaxDepth int
	// Comment returns comment text bearing the directives of a field.
	// If nil, schema.Comment is used.
	Comment func(protoreflect.Descriptor) string
}

// Context is the state of a generation run.
type Context struct {
	rand     *rand.Rand
	pools    *pool.Manager
	fields   map[protoreflect.FullName]*directive.Field
	epoch    time.Time
	maxDepth int
	comment  func(protoreflect.Descriptor) string
}

// NewContext returns a Context of the Options.
func NewContext(opts Options) *Context {
	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[:], opts.Seed)

	var c = &Context{
		rand:     rand.New(rand.NewChaCha8(seed)),
		pools:    opts.Pools,
		fields:   make(map[protoreflect.FullName]*directive.Field),
		epoch:    opts.Epoch,
		maxDepth: opts.MaxDepth,
		comment:  opts.Comment,
	}
	if c.pools == nil {
		c.pools = pool.NewManager()
	}
	if c.epoch.IsZero() {
		c.epoch = time.Now()
	}
	if c.maxDepth == 0 {
		c.maxDepth = DefaultMaxDepth
	}
	if c.comment == nil {
		c.comment = schema.Comment
	}
	return c
}

// Rand returns the random source of the Context. Pools should be created
// from it, so that they're reproducible under the Context seed.
func (c *Context) Rand() *rand.Rand { return c.rand }

// Pools returns the pool Manager of the Context.
func (c *Context) Pools() *pool.Manager { return c.pools }

// Field returns the resolved directive of |fd|, if it's been prepared.
func (c *Context) Field(fd protoreflect.FieldDescriptor) (*directive.Field, bool) {
	var f, ok = c.fields[fd.FullName()]
	return f, ok
}

// Prepare resolves and caches the directives of every field reachable
// from |md|. Any configuration error of a field directive is returned.
// Prepare must be called before Generate, after all pools are created.
func (c *Context) Prepare(md protoreflect.MessageDescriptor) error {
	var visited = make(map[protoreflect.FullName]bool)
	if err := c.prepare(md, visited); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"message": md.FullName(),
		"fields":  len(c.fields),
	}).Debug("prepared field directives")

	return nil
}

func (c *Context) prepare(md protoreflect.MessageDescriptor, visited map[protoreflect.FullName]bool) error {
	if visited[md.FullName()] || WellKnown(md.FullName()) {
		return nil
	}
	visited[md.FullName()] = true

	var fields = md.Fields()
	for i := 0; i != fields.Len(); i++ {
		var fd = fields.Get(i)
		if err := c.resolve(fd, c.comment); err != nil {
			return err
		}

		if fd.IsMap() {
			if err := c.resolve(fd.MapKey(), noComment); err != nil {
				return err
			} else if err = c.resolve(fd.MapValue(), noComment); err != nil {
				return err
			}
			fd = fd.MapValue()
		}
		if fd.Message() != nil {
			if err := c.prepare(fd.Message(), visited); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Context) resolve(fd protoreflect.FieldDescriptor, comment func(protoreflect.Descriptor) string) error {
	if _, ok := c.fields[fd.FullName()]; ok {
		return nil
	}
	var f, err = directive.Resolve(fd, comment(fd), c.pools)
	if err != nil {
		return err
	}
	c.fields[fd.FullName()] = f
	return nil
}

func noComment(protoreflect.Descriptor) string { return "" }

// Generate a message of |md|.
func (c *Context) Generate(md protoreflect.MessageDescriptor) (*dynamicpb.Message, error) {
	var m = dynamicpb.NewMessage(md)
	if err := c.populate(m, 0); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Context) populate(m protoreflect.Message, depth int) error {
	var md = m.Descriptor()

	if fn, ok := wellKnown[md.FullName()]; ok {
		fn(c, m)
		return nil
	} else if depth > c.maxDepth {
		return nil
	}

	var fields = md.Fields()
	for i := 0; i != fields.Len(); i++ {
		var fd = fields.Get(i)

		// A oneof is generated at the position of its first member,
		// as exactly one uniformly chosen member.
		if od := fd.ContainingOneof(); od != nil && !od.IsSynthetic() {
			if od.Fields().Get(0) != fd {
				continue
			}
			fd = od.Fields().Get(c.rand.IntN(od.Fields().Len()))
		}
		if err := c.field(m, fd, depth); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) field(m protoreflect.Message, fd protoreflect.FieldDescriptor, depth int) error {
	var f, ok = c.fields[fd.FullName()]
	if !ok {
		return errors.WithMessagef(ErrInconsistent, "field %s was not prepared", fd.FullName())
	}

	switch {
	case fd.IsMap():
		var mp = m.Mutable(fd).Map()
		for n := c.between(f.Count); n != 0; n-- {
			var k, err = c.value(fd.MapKey(), nil, depth)
			if err != nil {
				return err
			}
			v, err := c.value(fd.MapValue(), mp.NewValue, depth)
			if err != nil {
				return err
			}
			mp.Set(k.MapKey(), v)
		}
	case fd.IsList():
		var list = m.Mutable(fd).List()
		for n := c.between(f.Count); n != 0; n-- {
			var v, err = c.value(fd, list.NewElement, depth)
			if err != nil {
				return err
			}
			list.Append(v)
		}
	default:
		var v, err = c.value(fd, func() protoreflect.Value { return m.NewField(fd) }, depth)
		if err != nil {
			return err
		}
		m.Set(fd, v)
	}
	return nil
}

// value generates a single value of |fd|. Message values are built from
// |newMessage| and populated at the next depth.
func (c *Context) value(fd protoreflect.FieldDescriptor, newMessage func() protoreflect.Value, depth int) (protoreflect.Value, error) {
	var f, ok = c.fields[fd.FullName()]
	if !ok {
		return protoreflect.Value{}, errors.WithMessagef(ErrInconsistent, "field %s was not prepared", fd.FullName())
	}
	var r, dist = c.rand, f.Distribution

	if f.Pool != "" {
		var v, err = c.pools.PickWith(r, f.Pool, dist)
		if err != nil {
			return v, errors.WithMessagef(ErrInconsistent, "field %s: %s", fd.FullName(), err)
		}
		if fd.Kind() == protoreflect.EnumKind {
			v = protoreflect.ValueOfEnum(protoreflect.EnumNumber(v.Int()))
		}
		return v, nil
	}

	switch fd.Kind() {
	case protoreflect.BoolKind:
		return protoreflect.ValueOfBool(r.IntN(2) == 1), nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return protoreflect.ValueOfInt32(int32(dist.Int(r, 32))), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return protoreflect.ValueOfInt64(dist.Int(r, 64)), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return protoreflect.ValueOfUint32(uint32(dist.Uint(r, 32))), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return protoreflect.ValueOfUint64(dist.Uint(r, 64)), nil
	case protoreflect.FloatKind:
		return protoreflect.ValueOfFloat32(float32(dist.Float(r, 32))), nil
	case protoreflect.DoubleKind:
		return protoreflect.ValueOfFloat64(dist.Float(r, 64)), nil
	case protoreflect.StringKind:
		return protoreflect.ValueOfString(c.str(f)), nil
	case protoreflect.BytesKind:
		return protoreflect.ValueOfBytes(fake.Bytes(r, c.between(f.Length))), nil
	case protoreflect.EnumKind:
		var values = fd.Enum().Values()
		return protoreflect.ValueOfEnum(values.Get(dist.Index(r, values.Len())).Number()), nil
	case protoreflect.MessageKind, protoreflect.GroupKind:
		var v = newMessage()
		return v, c.populate(v.Message(), depth+1)
	default:
		return protoreflect.Value{}, errors.WithMessagef(ErrInconsistent,
			"field %s has unexpected kind %s", fd.FullName(), fd.Kind())
	}
}

func (c *Context) str(f *directive.Field) string {
	switch f.Format {
	case directive.FormatUUID:
		return fake.UUID(c.rand)
	case directive.FormatName:
		return fake.Name(c.rand)
	case directive.FormatEmail:
		return fake.Email(c.rand)
	case directive.FormatPhone:
		return fake.Phone(c.rand)
	case directive.FormatHex:
		return fake.Hex(c.rand, 8)
	case directive.FormatSentence:
		return fake.Sentence(c.rand, c.between(f.Words))
	default:
		return fake.Words(c.rand, c.between(f.Words))
	}
}

// timestamp populates a google.protobuf.Timestamp within a day of the epoch.
func (c *Context) timestamp(m protoreflect.Message) {
	const day = 24 * 60 * 60
	var fields = m.Descriptor().Fields()

	m.Set(fields.ByName("seconds"),
		protoreflect.ValueOfInt64(c.epoch.Unix()-day+c.rand.Int64N(2*day)))
	m.Set(fields.ByName("nanos"),
		protoreflect.ValueOfInt32(c.rand.Int32N(1e9)))
}

// duration populates a google.protobuf.Duration of up to a day, either
// positive or negative. Seconds and nanos share a sign.
func (c *Context) duration(m protoreflect.Message) {
	const day = 24 * 60 * 60
	var fields = m.Descriptor().Fields()

	var seconds, nanos = c.rand.Int64N(day), c.rand.Int32N(1e9)
	if c.rand.IntN(2) == 1 {
		seconds, nanos = -seconds, -nanos
	}
	m.Set(fields.ByName("seconds"), protoreflect.ValueOfInt64(seconds))
	m.Set(fields.ByName("nanos"), protoreflect.ValueOfInt32(nanos))
}

// fieldMask populates a google.protobuf.FieldMask of snake_case paths.
func (c *Context) fieldMask(m protoreflect.Message) {
	var paths = m.Mutable(m.Descriptor().Fields().ByName("paths")).List()
	for n := c.between(directive.DefaultCount); n != 0; n-- {
		var p = strings.ReplaceAll(fake.Words(c.rand, 1+c.rand.IntN(2)), " ", "_")
		paths.Append(protoreflect.ValueOfString(p))
	}
}

// jsonStruct populates a google.protobuf.Struct of scalar Values.
func (c *Context) jsonStruct(m protoreflect.Message) {
	var fd = m.Descriptor().Fields().ByName("fields")
	var mp = m.Mutable(fd).Map()

	for n := c.between(directive.DefaultCount); n != 0; n-- {
		var v = mp.NewValue()
		c.jsonValue(v.Message())
		mp.Set(protoreflect.ValueOfString(fake.Words(c.rand, 1)).MapKey(), v)
	}
}

// jsonList populates a google.protobuf.ListValue of scalar Values.
func (c *Context) jsonList(m protoreflect.Message) {
	var list = m.Mutable(m.Descriptor().Fields().ByName("values")).List()
	for n := c.between(directive.DefaultCount); n != 0; n-- {
		var v = list.NewElement()
		c.jsonValue(v.Message())
		list.Append(v)
	}
}

// jsonValue populates a google.protobuf.Value with a null, number, string,
// or bool.
func (c *Context) jsonValue(m protoreflect.Message) {
	var fields = m.Descriptor().Fields()

	switch c.rand.IntN(4) {
	case 0:
		m.Set(fields.ByName("null_value"), protoreflect.ValueOfEnum(0))
	case 1:
		m.Set(fields.ByName("number_value"),
			protoreflect.ValueOfFloat64(directive.DefaultFloat.Float(c.rand, 64)))
	case 2:
		m.Set(fields.ByName("string_value"),
			protoreflect.ValueOfString(fake.Words(c.rand, c.between(directive.DefaultWords))))
	default:
		m.Set(fields.ByName("bool_value"), protoreflect.ValueOfBool(c.rand.IntN(2) == 1))
	}
}

func (c *Context) between(r directive.Range) int {
	return r.Min + c.rand.IntN(r.Max-r.Min+1)
}

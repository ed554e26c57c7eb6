// Package pool manages named, fixed-size pools of pre-generated values.
//
// Pools are created once per run, before any message is generated, and are
// read-only thereafter. Fields which reference the same pool draw from an
// identical set of values across every generated message, which yields
// consistent "foreign-key-like" references (eg, a small set of user IDs
// recurring throughout a generated stream). Pools never grow: drawing more
// values than a pool holds necessarily produces repeats.
package pool

import (
	"fmt"
	"math/rand/v2"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/protofake/distribution"
	"go.gazette.dev/protofake/fake"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Pool is a named, typed, fixed sequence of values.
type Pool struct {
	Name   string
	Type   Type
	Values []protoreflect.Value
}

// Contains returns true if |v| is a member of the Pool.
func (p *Pool) Contains(v protoreflect.Value) bool {
	for _, pv := range p.Values {
		if pv.Equal(v) {
			return true
		}
	}
	return false
}

// Manager is a registry of Pools. It is not safe for concurrent use.
type Manager struct {
	pools map[string]*Pool
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{pools: make(map[string]*Pool)}
}

// Create a Pool of |cfg| by pre-generating its values from |r|.
// It returns a *DuplicateError if a Pool of the name already exists.
func (m *Manager) Create(r *rand.Rand, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	} else if _, ok := m.pools[cfg.Name]; ok {
		return &DuplicateError{Name: cfg.Name}
	}

	var spec = distribution.NewUniform()
	if cfg.Distribution != "" {
		var err error
		if spec, err = distribution.Parse(cfg.Distribution); err != nil {
			return errors.WithMessagef(err, "pool %q", cfg.Name)
		}
	}

	var p = &Pool{
		Name:   cfg.Name,
		Type:   cfg.Type,
		Values: make([]protoreflect.Value, cfg.Count),
	}
	for i := range p.Values {
		p.Values[i] = newValue(r, cfg.Type, spec)
	}
	m.pools[cfg.Name] = p

	log.WithFields(log.Fields{
		"name":  cfg.Name,
		"count": cfg.Count,
		"type":  cfg.Type,
	}).Debug("created pool")

	return nil
}

// Pick returns a uniformly chosen value of the named Pool, with replacement.
// It returns an *UnknownError if the Pool was never created.
func (m *Manager) Pick(r *rand.Rand, name string) (protoreflect.Value, error) {
	return m.PickWith(r, name, distribution.NewUniform())
}

// PickWith returns a value of the named Pool having an index drawn from |spec|.
func (m *Manager) PickWith(r *rand.Rand, name string, spec distribution.Spec) (protoreflect.Value, error) {
	var p, ok = m.pools[name]
	if !ok {
		return protoreflect.Value{}, &UnknownError{Name: name}
	}
	return p.Values[spec.Index(r, len(p.Values))], nil
}

// Type returns the Type of the named Pool, and whether it exists.
func (m *Manager) Type(name string) (Type, bool) {
	if p, ok := m.pools[name]; ok {
		return p.Type, true
	}
	return 0, false
}

// Pool returns the named Pool, and whether it exists.
func (m *Manager) Pool(name string) (*Pool, bool) {
	var p, ok = m.pools[name]
	return p, ok
}

func newValue(r *rand.Rand, typ Type, spec distribution.Spec) protoreflect.Value {
	switch typ {
	case I32:
		return protoreflect.ValueOfInt32(int32(spec.Int(r, 32)))
	case I64:
		return protoreflect.ValueOfInt64(spec.Int(r, 64))
	case U32:
		return protoreflect.ValueOfUint32(uint32(spec.Uint(r, 32)))
	case U64:
		return protoreflect.ValueOfUint64(spec.Uint(r, 64))
	case F32:
		return protoreflect.ValueOfFloat32(float32(spec.Float(r, 32)))
	case F64:
		return protoreflect.ValueOfFloat64(spec.Float(r, 64))
	case String:
		return protoreflect.ValueOfString(fake.Words(r, 1+r.IntN(3)))
	case Bytes:
		return protoreflect.ValueOfBytes(fake.Bytes(r, 4+r.IntN(17)))
	case UUID:
		return protoreflect.ValueOfString(fake.UUID(r))
	default:
		panic(fmt.Sprintf("unexpected pool type %s", typ))
	}
}

// UnknownError is returned when a Pool name was never created.
type UnknownError struct{ Name string }

func (e *UnknownError) Error() string { return fmt.Sprintf("unknown pool %q", e.Name) }

// DuplicateError is returned when a Pool name is created more than once.
type DuplicateError struct{ Name string }

func (e *DuplicateError) Error() string { return fmt.Sprintf("duplicate pool %q", e.Name) }

package pool

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Type is the element type of a Pool.
type Type int

const (
	I32 Type = iota
	I64
	U32
	U64
	F32
	F64
	String
	Bytes
	UUID
)

var typeNames = [...]string{"i32", "i64", "u32", "u64", "f32", "f64", "string", "bytes", "uuid"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
	return typeNames[t]
}

// ParseType parses a case-insensitive Type name.
func ParseType(s string) (Type, error) {
	for i, n := range typeNames {
		if strings.EqualFold(s, n) {
			return Type(i), nil
		}
	}
	return 0, errors.Errorf("unknown pool type %q (expected one of %s)", s, strings.Join(typeNames[:], ", "))
}

// UnmarshalYAML decodes a Type from its name.
func (t *Type) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	var err error
	*t, err = ParseType(s)
	return err
}

// MarshalYAML encodes a Type as its name.
func (t Type) MarshalYAML() (interface{}, error) { return t.String(), nil }

// Config declares a Pool to be created.
type Config struct {
	// Name of the Pool, as referenced by `pool=<name>` directives.
	Name string `yaml:"name"`
	// Count of values pre-generated into the Pool.
	Count int `yaml:"count"`
	// Type of Pool values.
	Type Type `yaml:"type"`
	// Optional distribution of numeric Pool values, in directive syntax.
	// Numeric pools default to "uniform" over the full width of Type.
	Distribution string `yaml:"distribution,omitempty"`
}

// Validate returns an error if the Config is malformed.
func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("pool name is empty")
	} else if c.Count <= 0 {
		return errors.Errorf("pool %q: count must be > 0 (got %d)", c.Name, c.Count)
	} else if c.Type < I32 || c.Type > UUID {
		return errors.Errorf("pool %q: invalid type %s", c.Name, c.Type)
	} else if c.Distribution != "" && !c.Type.Numeric() {
		return errors.Errorf("pool %q: distribution requires a numeric type (got %s)", c.Name, c.Type)
	}
	return nil
}

// Numeric returns true if the Type is an integer or float type.
func (t Type) Numeric() bool { return t <= F64 }

// ParseConfig parses a Config of the form "name:count:type", eg
// "user_ids:5:uuid".
func ParseConfig(s string) (Config, error) {
	var parts = strings.Split(s, ":")
	if len(parts) != 3 {
		return Config{}, errors.Errorf("malformed pool %q (expected name:count:type)", s)
	}
	var count, err = strconv.Atoi(parts[1])
	if err != nil {
		return Config{}, errors.Errorf("malformed pool %q: invalid count %q", s, parts[1])
	}
	typ, err := ParseType(parts[2])
	if err != nil {
		return Config{}, errors.WithMessagef(err, "malformed pool %q", s)
	}
	var cfg = Config{Name: parts[0], Count: count, Type: typ}
	return cfg, cfg.Validate()
}

// LoadConfigs decodes a YAML document of pool Configs:
//
//	pools:
//	  - name: user_ids
//	    count: 5
//	    type: uuid
//	  - name: prices
//	    count: 100
//	    type: f64
//	    distribution: lognormal(3,1)
func LoadConfigs(r io.Reader) ([]Config, error) {
	var b, err = io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading pools")
	}
	var doc struct {
		Pools []Config `yaml:"pools"`
	}
	if err = yaml.UnmarshalStrict(b, &doc); err != nil {
		return nil, errors.WithMessage(err, "decoding pools YAML")
	}
	for _, cfg := range doc.Pools {
		if err = cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return doc.Pools, nil
}

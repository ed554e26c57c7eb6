package pool

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.gazette.dev/protofake/distribution"
	"google.golang.org/protobuf/reflect/protoreflect"
	gc "gopkg.in/check.v1"
)

type ManagerSuite struct{}

func (s *ManagerSuite) TestCreateAndPickFromEveryType(c *gc.C) {
	var r = rand.New(rand.NewPCG(1, 2))
	var m = NewManager()

	for typ := I32; typ <= UUID; typ++ {
		c.Assert(m.Create(r, Config{Name: typ.String(), Count: 7, Type: typ}), gc.IsNil)
	}

	for typ := I32; typ <= UUID; typ++ {
		var p, ok = m.Pool(typ.String())
		c.Assert(ok, gc.Equals, true)
		c.Check(p.Values, gc.HasLen, 7)

		got, ok := m.Type(typ.String())
		c.Check(ok, gc.Equals, true)
		c.Check(got, gc.Equals, typ)

		for i := 0; i != 20; i++ {
			var v, err = m.Pick(r, typ.String())
			c.Assert(err, gc.IsNil)
			c.Check(p.Contains(v), gc.Equals, true)
			checkValueType(c, typ, v)
		}
	}
}

func (s *ManagerSuite) TestUUIDPoolPigeonhole(c *gc.C) {
	var r = rand.New(rand.NewPCG(3, 4))
	var m = NewManager()

	var cfg, err = ParseConfig("user_ids:5:uuid")
	c.Assert(err, gc.IsNil)
	c.Assert(m.Create(r, cfg), gc.IsNil)

	var seen = make(map[string]int)
	for i := 0; i != 20; i++ {
		var v, err = m.Pick(r, "user_ids")
		c.Assert(err, gc.IsNil)
		seen[v.String()]++
	}
	c.Check(len(seen) <= 5, gc.Equals, true)

	var p, _ = m.Pool("user_ids")
	var repeated bool
	for id, n := range seen {
		c.Check(p.Contains(protoreflect.ValueOfString(id)), gc.Equals, true)
		repeated = repeated || n > 1
	}
	c.Check(repeated, gc.Equals, true)
}

func (s *ManagerSuite) TestErrorCases(c *gc.C) {
	var r = rand.New(rand.NewPCG(5, 6))
	var m = NewManager()

	c.Assert(m.Create(r, Config{Name: "ids", Count: 3, Type: I64}), gc.IsNil)

	var err = m.Create(r, Config{Name: "ids", Count: 3, Type: I32})
	var dupErr *DuplicateError
	c.Check(errors.As(err, &dupErr), gc.Equals, true)
	c.Check(err, gc.ErrorMatches, `duplicate pool "ids"`)

	_, err = m.Pick(r, "missing")
	var unknownErr *UnknownError
	c.Check(errors.As(err, &unknownErr), gc.Equals, true)
	c.Check(err, gc.ErrorMatches, `unknown pool "missing"`)

	_, ok := m.Type("missing")
	c.Check(ok, gc.Equals, false)

	err = m.Create(r, Config{Name: "bad", Count: 3, Type: I32, Distribution: "pareto(0,1)"})
	var cfgErr *distribution.ConfigError
	c.Check(errors.As(err, &cfgErr), gc.Equals, true)
	c.Check(err, gc.ErrorMatches, `pool "bad": invalid pareto distribution: scale must be > 0`)

	c.Check(m.Create(r, Config{Name: "zero", Count: 0, Type: I32}), gc.ErrorMatches,
		`pool "zero": count must be > 0 \(got 0\)`)
}

func (s *ManagerSuite) TestPoolDistribution(c *gc.C) {
	var r = rand.New(rand.NewPCG(7, 8))
	var m = NewManager()

	c.Assert(m.Create(r, Config{Name: "dice", Count: 50, Type: I32, Distribution: "uniform(1,6)"}), gc.IsNil)

	var p, _ = m.Pool("dice")
	for _, v := range p.Values {
		c.Check(v.Int() >= 1 && v.Int() <= 6, gc.Equals, true)
	}
}

func (s *ManagerSuite) TestPickWithBiasesTowardLowIndices(c *gc.C) {
	var r = rand.New(rand.NewPCG(9, 10))
	var m = NewManager()
	c.Assert(m.Create(r, Config{Name: "ids", Count: 100, Type: U64}), gc.IsNil)

	var p, _ = m.Pool("ids")
	var spec = distribution.NewPareto(1, 3)
	var low int

	for i := 0; i != 1000; i++ {
		var v, err = m.PickWith(r, "ids", spec)
		c.Assert(err, gc.IsNil)

		if v.Equal(p.Values[0]) || v.Equal(p.Values[1]) {
			low++
		}
	}
	// pareto(1,3) places ~96% of its mass below 3.0.
	c.Check(low > 900, gc.Equals, true)
}

func (s *ManagerSuite) TestDeterministicForSeed(c *gc.C) {
	var build = func() []protoreflect.Value {
		var r = rand.New(rand.NewPCG(11, 12))
		var m = NewManager()
		c.Assert(m.Create(r, Config{Name: "words", Count: 4, Type: String}), gc.IsNil)
		var p, _ = m.Pool("words")
		return p.Values
	}
	var a, b = build(), build()
	for i := range a {
		c.Check(a[i].String(), gc.Equals, b[i].String())
	}
}

func checkValueType(c *gc.C, typ Type, v protoreflect.Value) {
	var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

	switch i := v.Interface().(type) {
	case int32:
		c.Check(typ, gc.Equals, I32)
	case int64:
		c.Check(typ, gc.Equals, I64)
	case uint32:
		c.Check(typ, gc.Equals, U32)
	case uint64:
		c.Check(typ, gc.Equals, U64)
	case float32:
		c.Check(typ, gc.Equals, F32)
	case float64:
		c.Check(typ, gc.Equals, F64)
	case []byte:
		c.Check(typ, gc.Equals, Bytes)
		c.Check(len(i) >= 4 && len(i) <= 20, gc.Equals, true)
	case string:
		if typ == UUID {
			c.Check(uuidRe.MatchString(i), gc.Equals, true)
		} else {
			c.Check(typ, gc.Equals, String)
			var n = len(strings.Fields(i))
			c.Check(n >= 1 && n <= 3, gc.Equals, true)
		}
	default:
		c.Errorf("unexpected value %#v", i)
	}
}

var _ = gc.Suite(&ManagerSuite{})

func Test(t *testing.T) { gc.TestingT(t) }

// Package distribution samples numeric values from statistical distributions.
//
// A Spec names a distribution and its parameters. Specs draw continuous
// samples from a caller-owned *rand.Rand and convert them into a target
// representation: integers are truncated toward zero and clamped to the
// representable range of the target width, while floats convert directly.
// Sampling consumes randomness only from the provided source, so a fixed
// seed yields identical sequences across runs.
package distribution

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Kind of a distribution.
type Kind int

const (
	// Uniform samples evenly over a range. Without explicit bounds, the range
	// is the full legal range of an integer target, or FloatUniformBound for
	// floats.
	Uniform Kind = iota
	// Normal samples N(mean, stddev).
	Normal
	// LogNormal samples exp(N(mean, stddev)).
	LogNormal
	// Pareto samples a Pareto(scale, shape) variate by inverse CDF.
	Pareto
)

// FloatUniformBound is the magnitude bound of an unbounded Uniform float sample.
// Sampling the full float64 range yields values which are meaningless for
// display, so Uniform floats instead fall within [-FloatUniformBound, FloatUniformBound).
const FloatUniformBound = 1e6

func (k Kind) String() string {
	switch k {
	case Uniform:
		return "uniform"
	case Normal:
		return "normal"
	case LogNormal:
		return "lognormal"
	case Pareto:
		return "pareto"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Arity returns the accepted parameter counts of the Kind.
func (k Kind) Arity() []int {
	if k == Uniform {
		return []int{0, 2}
	}
	return []int{2}
}

// KindByName returns the Kind having |name|. "log_normal" is accepted as an
// alias of "lognormal".
func KindByName(name string) (Kind, bool) {
	switch strings.ToLower(name) {
	case "uniform":
		return Uniform, true
	case "normal":
		return Normal, true
	case "lognormal", "log_normal":
		return LogNormal, true
	case "pareto":
		return Pareto, true
	}
	return 0, false
}

// Spec is a distribution and its parameters. Parameters are interpreted per
// Kind: Normal and LogNormal use (Mean, StdDev); Pareto uses (Scale, Shape);
// Uniform uses (Lo, Hi) only if Bounded.
type Spec struct {
	Kind Kind

	Mean, StdDev float64
	Scale, Shape float64

	Bounded bool
	Lo, Hi  float64
}

// NewUniform returns an unbounded Uniform Spec.
func NewUniform() Spec { return Spec{Kind: Uniform} }

// NewUniformRange returns a Uniform Spec bounded to [lo, hi].
func NewUniformRange(lo, hi float64) Spec {
	return Spec{Kind: Uniform, Bounded: true, Lo: lo, Hi: hi}
}

// NewNormal returns a Normal Spec.
func NewNormal(mean, stddev float64) Spec {
	return Spec{Kind: Normal, Mean: mean, StdDev: stddev}
}

// NewLogNormal returns a LogNormal Spec.
func NewLogNormal(mean, stddev float64) Spec {
	return Spec{Kind: LogNormal, Mean: mean, StdDev: stddev}
}

// NewPareto returns a Pareto Spec.
func NewPareto(scale, shape float64) Spec {
	return Spec{Kind: Pareto, Scale: scale, Shape: shape}
}

// New builds a Spec of Kind from positional |params|, as written in a
// directive like `normal(10,2)`. It returns a *ConfigError if the parameter
// count does not match the Kind's arity, or if parameters are invalid.
func New(kind Kind, params ...float64) (Spec, error) {
	var spec Spec

	switch {
	case kind == Uniform && len(params) == 0:
		spec = NewUniform()
	case kind == Uniform && len(params) == 2:
		spec = NewUniformRange(params[0], params[1])
	case kind == Normal && len(params) == 2:
		spec = NewNormal(params[0], params[1])
	case kind == LogNormal && len(params) == 2:
		spec = NewLogNormal(params[0], params[1])
	case kind == Pareto && len(params) == 2:
		spec = NewPareto(params[0], params[1])
	default:
		return Spec{}, &ConfigError{Spec: Spec{Kind: kind},
			Reason: fmt.Sprintf("expected %s parameters, got %d", arityString(kind), len(params))}
	}
	return spec, spec.Validate()
}

// Validate returns a *ConfigError if the Spec's parameters are invalid.
func (s Spec) Validate() error {
	var fail = func(reason string) error { return &ConfigError{Spec: s, Reason: reason} }

	switch s.Kind {
	case Uniform:
		if !s.Bounded {
			return nil
		} else if !finite(s.Lo) || !finite(s.Hi) {
			return fail("bounds must be finite")
		} else if s.Lo > s.Hi {
			return fail("lo must be <= hi")
		}
	case Normal, LogNormal:
		if !finite(s.Mean) || !finite(s.StdDev) {
			return fail("parameters must be finite")
		} else if s.StdDev < 0 {
			return fail("stddev must be >= 0")
		}
	case Pareto:
		if !finite(s.Scale) || !finite(s.Shape) {
			return fail("parameters must be finite")
		} else if s.Scale <= 0 {
			return fail("scale must be > 0")
		} else if s.Shape <= 0 {
			return fail("shape must be > 0")
		}
	default:
		return fail("unknown distribution")
	}
	return nil
}

// String renders the Spec in directive syntax.
func (s Spec) String() string {
	var f = func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	switch s.Kind {
	case Uniform:
		if s.Bounded {
			return "uniform(" + f(s.Lo) + "," + f(s.Hi) + ")"
		}
		return "uniform"
	case Normal, LogNormal:
		return s.Kind.String() + "(" + f(s.Mean) + "," + f(s.StdDev) + ")"
	case Pareto:
		return "pareto(" + f(s.Scale) + "," + f(s.Shape) + ")"
	}
	return s.Kind.String()
}

// Sample draws a continuous sample of the distribution. Unbounded Uniform
// samples fall within [-FloatUniformBound, FloatUniformBound).
func (s Spec) Sample(r *rand.Rand) float64 {
	switch s.Kind {
	case Normal:
		return s.Mean + s.StdDev*r.NormFloat64()
	case LogNormal:
		return math.Exp(s.Mean + s.StdDev*r.NormFloat64())
	case Pareto:
		// Inverse CDF. 1-Float64() lies in (0, 1], avoiding division by zero.
		return s.Scale / math.Pow(1-r.Float64(), 1/s.Shape)
	default:
		var lo, hi = -FloatUniformBound, FloatUniformBound
		if s.Bounded {
			lo, hi = s.Lo, s.Hi
		}
		return lo + r.Float64()*(hi-lo)
	}
}

// Float draws a sample for a float target of |bits| width (32 or 64).
func (s Spec) Float(r *rand.Rand, bits int) float64 {
	var v = s.Sample(r)
	if bits == 32 {
		return float64(float32(v))
	}
	return v
}

// Int draws a sample for a signed integer target of |bits| width (32 or 64).
func (s Spec) Int(r *rand.Rand, bits int) int64 {
	var lo, hi = signedLimits(bits)

	if s.Kind != Uniform {
		return TruncInt(s.Sample(r), bits)
	} else if !s.Bounded {
		if bits == 32 {
			return int64(int32(r.Uint32()))
		}
		return int64(r.Uint64())
	}

	var ilo, ihi = TruncInt(math.Ceil(s.Lo), 64), TruncInt(math.Floor(s.Hi), 64)
	if ilo < lo {
		ilo = lo
	}
	if ihi > hi {
		ihi = hi
	}
	if ilo > ihi {
		// Range contains no integer of the target type. Clamp the lower bound.
		return clampInt(ilo, lo, hi)
	}
	// Span is computed in wrapping uint64 arithmetic. A zero span indicates
	// the full 64-bit range.
	var span = uint64(ihi-ilo) + 1
	if span == 0 {
		return int64(r.Uint64())
	}
	return ilo + int64(r.Uint64N(span))
}

// Uint draws a sample for an unsigned integer target of |bits| width (32 or 64).
func (s Spec) Uint(r *rand.Rand, bits int) uint64 {
	var hi = unsignedMax(bits)

	if s.Kind != Uniform {
		return TruncUint(s.Sample(r), bits)
	} else if !s.Bounded {
		if bits == 32 {
			return uint64(r.Uint32())
		}
		return r.Uint64()
	}

	var ulo, uhi = TruncUint(math.Ceil(s.Lo), 64), TruncUint(math.Floor(s.Hi), 64)
	if uhi > hi {
		uhi = hi
	}
	if ulo > uhi {
		return min(ulo, hi)
	}
	var span = uhi - ulo + 1
	if span == 0 {
		return r.Uint64()
	}
	return ulo + r.Uint64N(span)
}

// Index draws an index in [0, n) biased by the distribution, for selecting
// among an ordered list of candidates. Uniform (bounded or not) selects
// evenly. Normal and LogNormal samples are truncated to an index and clamped
// to the list. Pareto samples are offset by Scale so that index zero is the mode.
// Index panics if n <= 0.
func (s Spec) Index(r *rand.Rand, n int) int {
	if n <= 0 {
		panic("Index requires n > 0")
	}
	var v float64

	switch s.Kind {
	case Normal, LogNormal:
		v = s.Sample(r)
	case Pareto:
		v = s.Sample(r) - s.Scale
	default:
		return r.IntN(n)
	}
	return int(clampInt(TruncInt(v, 64), 0, int64(n-1)))
}

// TruncInt converts |v| to a signed integer of |bits| width, truncating
// toward zero and clamping to the type's limits. NaN converts to zero.
func TruncInt(v float64, bits int) int64 {
	var lo, hi = signedLimits(bits)

	switch {
	case math.IsNaN(v):
		return 0
	case v <= float64(lo):
		return lo
	case v >= float64(hi):
		// float64(math.MaxInt64) rounds up to 2^63, so this comparison also
		// catches values which would overflow the conversion below.
		return hi
	}
	return int64(math.Trunc(v))
}

// TruncUint converts |v| to an unsigned integer of |bits| width, truncating
// toward zero and clamping to the type's limits. NaN converts to zero.
func TruncUint(v float64, bits int) uint64 {
	var hi = unsignedMax(bits)

	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= float64(hi):
		return hi
	}
	return uint64(math.Trunc(v))
}

func signedLimits(bits int) (int64, int64) {
	if bits == 32 {
		return math.MinInt32, math.MaxInt32
	}
	return math.MinInt64, math.MaxInt64
}

func unsignedMax(bits int) uint64 {
	if bits == 32 {
		return math.MaxUint32
	}
	return math.MaxUint64
}

func clampInt(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func arityString(k Kind) string {
	var parts []string
	for _, a := range k.Arity() {
		parts = append(parts, strconv.Itoa(a))
	}
	return strings.Join(parts, " or ")
}

// ConfigError is returned for invalid distribution parameters.
type ConfigError struct {
	Spec   Spec
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s distribution: %s", e.Spec.Kind, e.Reason)
}

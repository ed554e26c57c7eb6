package distribution

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }

func TestNewValidatesArityAndParameters(t *testing.T) {
	for _, tc := range []struct {
		kind   Kind
		params []float64
		err    string
	}{
		{Uniform, nil, ""},
		{Uniform, []float64{1, 6}, ""},
		{Uniform, []float64{1}, "invalid uniform distribution: expected 0 or 2 parameters, got 1"},
		{Uniform, []float64{6, 1}, "invalid uniform distribution: lo must be <= hi"},
		{Normal, []float64{0, 1}, ""},
		{Normal, []float64{0}, "invalid normal distribution: expected 2 parameters, got 1"},
		{Normal, []float64{0, -1}, "invalid normal distribution: stddev must be >= 0"},
		{LogNormal, []float64{0, math.Inf(1)}, "invalid lognormal distribution: parameters must be finite"},
		{Pareto, []float64{1, 2}, ""},
		{Pareto, []float64{0, 2}, "invalid pareto distribution: scale must be > 0"},
		{Pareto, []float64{1, -2}, "invalid pareto distribution: shape must be > 0"},
		{Pareto, []float64{1, 2, 3}, "invalid pareto distribution: expected 2 parameters, got 3"},
	} {
		var _, err = New(tc.kind, tc.params...)
		if tc.err == "" {
			assert.NoError(t, err)
			continue
		}
		assert.EqualError(t, err, tc.err)

		var cfgErr *ConfigError
		assert.True(t, errors.As(err, &cfgErr))
	}
}

func TestKindByNameAndString(t *testing.T) {
	for name, expect := range map[string]Kind{
		"uniform":    Uniform,
		"Normal":     Normal,
		"lognormal":  LogNormal,
		"log_normal": LogNormal,
		"PARETO":     Pareto,
	} {
		var k, ok = KindByName(name)
		assert.True(t, ok, name)
		assert.Equal(t, expect, k)
	}
	var _, ok = KindByName("poisson")
	assert.False(t, ok)

	assert.Equal(t, "uniform", NewUniform().String())
	assert.Equal(t, "uniform(1,6)", NewUniformRange(1, 6).String())
	assert.Equal(t, "normal(10,2.5)", NewNormal(10, 2.5).String())
	assert.Equal(t, "lognormal(0,1)", NewLogNormal(0, 1).String())
	assert.Equal(t, "pareto(1,3)", NewPareto(1, 3).String())
}

func TestNormalMomentsConverge(t *testing.T) {
	const n = 100000
	var (
		r          = newRand(42)
		spec       = NewNormal(50, 8)
		sum, sumSq float64
	)
	for i := 0; i != n; i++ {
		var v = spec.Float(r, 64)
		sum += v
		sumSq += v * v
	}
	var mean = sum / n
	var stddev = math.Sqrt(sumSq/n - mean*mean)

	// Standard error of the mean is sigma/sqrt(n) ~= 0.025; allow 2% of sigma.
	assert.InDelta(t, 50, mean, 0.02*8)
	assert.InEpsilon(t, 8, stddev, 0.02)
}

func TestLogNormalIsExponentiatedNormal(t *testing.T) {
	const n = 100000
	var (
		r    = newRand(7)
		spec = NewLogNormal(1, 0.5)
		sum  float64
	)
	for i := 0; i != n; i++ {
		var v = spec.Sample(r)
		require.Greater(t, v, 0.0)
		sum += math.Log(v)
	}
	assert.InDelta(t, 1, sum/n, 0.01)
}

func TestParetoRespectsScale(t *testing.T) {
	var r = newRand(3)
	var spec = NewPareto(2, 3)

	var below, total int
	for i := 0; i != 50000; i++ {
		var v = spec.Sample(r)
		require.GreaterOrEqual(t, v, 2.0)

		// P(X <= 2*2^(1/3)) = 1 - (1/2) = 0.5 for shape 3.
		if v <= 2*math.Cbrt(2) {
			below++
		}
		total++
	}
	assert.InDelta(t, 0.5, float64(below)/float64(total), 0.01)
}

func TestIntegerConversionTruncatesAndClamps(t *testing.T) {
	assert.Equal(t, int64(2), TruncInt(2.9, 32))
	assert.Equal(t, int64(-2), TruncInt(-2.9, 32))
	assert.Equal(t, int64(math.MaxInt32), TruncInt(1e12, 32))
	assert.Equal(t, int64(math.MinInt32), TruncInt(-1e12, 32))
	assert.Equal(t, int64(math.MaxInt64), TruncInt(1e30, 64))
	assert.Equal(t, int64(math.MinInt64), TruncInt(math.Inf(-1), 64))
	assert.Equal(t, int64(0), TruncInt(math.NaN(), 64))

	assert.Equal(t, uint64(0), TruncUint(-5, 32))
	assert.Equal(t, uint64(7), TruncUint(7.99, 32))
	assert.Equal(t, uint64(math.MaxUint32), TruncUint(1e12, 32))
	assert.Equal(t, uint64(math.MaxUint64), TruncUint(1e30, 64))
	assert.Equal(t, uint64(0), TruncUint(math.NaN(), 64))

	// A normal distribution far outside the int32 range clamps rather than wraps.
	var r = newRand(1)
	for i := 0; i != 100; i++ {
		assert.Equal(t, int64(math.MaxInt32), NewNormal(1e15, 1).Int(r, 32))
		assert.Equal(t, uint64(0), NewNormal(-1e15, 1).Uint(r, 32))
	}
}

func TestUniformIntegerRanges(t *testing.T) {
	var r = newRand(9)
	var seen = make(map[int64]int)

	for i := 0; i != 6000; i++ {
		var v = NewUniformRange(1, 6).Int(r, 32)
		require.True(t, v >= 1 && v <= 6, "%d", v)
		seen[v]++
	}
	assert.Len(t, seen, 6) // Bounds are inclusive.

	for i := 0; i != 1000; i++ {
		var v = NewUniformRange(10, 20).Uint(r, 64)
		require.True(t, v >= 10 && v <= 20, "%d", v)
	}

	// Unbounded uniform spans the full width of the target.
	var neg, pos bool
	for i := 0; i != 1000; i++ {
		var v = NewUniform().Int(r, 32)
		require.True(t, v >= math.MinInt32 && v <= math.MaxInt32)
		neg, pos = neg || v < 0, pos || v > 0
	}
	assert.True(t, neg && pos)

	for i := 0; i != 1000; i++ {
		var f = NewUniform().Float(r, 64)
		require.True(t, f >= -FloatUniformBound && f < FloatUniformBound)
	}

	// The full int64 range is representable without overflowing the span.
	_ = NewUniformRange(math.MinInt64, math.MaxInt64).Int(r, 64)
}

func TestIndexStaysInBounds(t *testing.T) {
	var r = newRand(11)
	for _, spec := range []Spec{NewUniform(), NewNormal(2, 5), NewLogNormal(0, 3), NewPareto(1, 0.5)} {
		for i := 0; i != 2000; i++ {
			var idx = spec.Index(r, 5)
			require.True(t, idx >= 0 && idx < 5, "%s: %d", spec, idx)
		}
	}

	// Pareto with a large shape concentrates at index zero.
	var zero int
	for i := 0; i != 1000; i++ {
		if NewPareto(1, 20).Index(r, 10) == 0 {
			zero++
		}
	}
	assert.Greater(t, zero, 900)

	assert.Panics(t, func() { NewUniform().Index(r, 0) })
}

func TestSamplingIsDeterministicForSeed(t *testing.T) {
	var draw = func() []float64 {
		var r = newRand(1234)
		var out []float64
		for _, spec := range []Spec{NewUniform(), NewNormal(0, 1), NewLogNormal(0, 1), NewPareto(1, 2)} {
			for i := 0; i != 10; i++ {
				out = append(out, spec.Sample(r))
			}
		}
		return out
	}
	assert.Equal(t, draw(), draw())
}

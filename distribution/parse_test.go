package distribution

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestParseCases(t *testing.T) {
	for _, tc := range []struct {
		in     string
		expect Spec
	}{
		{"uniform", NewUniform()},
		{"uniform()", NewUniform()},
		{"uniform(1,6)", NewUniformRange(1, 6)},
		{"normal(100, 15)", NewNormal(100, 15)},
		{"Normal(-1.5,0.25)", NewNormal(-1.5, 0.25)},
		{"log_normal(0,1)", NewLogNormal(0, 1)},
		{"lognormal(2,0.5)", NewLogNormal(2, 0.5)},
		{"pareto(1,1.16)", NewPareto(1, 1.16)},
	} {
		var spec, err = Parse(tc.in)
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.expect, spec, tc.in)
	}
}

func TestParseErrorCases(t *testing.T) {
	for _, tc := range []struct {
		in     string
		syntax bool
		err    string
	}{
		{"poisson(3)", true, `malformed distribution "poisson(3)": unknown distribution "poisson"`},
		{"normal(1,2", true, `malformed distribution "normal(1,2": missing closing parenthesis`},
		{"normal,1,2", true, `malformed distribution "normal,1,2": parameters must be parenthesized`},
		{"normal(1,x)", true, `malformed distribution "normal(1,x)": invalid parameter "x"`},
		{"normal(1,)", true, `malformed distribution "normal(1,)": invalid parameter ""`},
		{"normal(1)", false, "invalid normal distribution: expected 2 parameters, got 1"},
		{"pareto(0,1)", false, "invalid pareto distribution: scale must be > 0"},
	} {
		var _, err = Parse(tc.in)
		assert.EqualError(t, err, tc.err, tc.in)

		var syntaxErr *SyntaxError
		var configErr *ConfigError
		assert.Equal(t, tc.syntax, errors.As(err, &syntaxErr), tc.in)
		assert.Equal(t, !tc.syntax, errors.As(err, &configErr), tc.in)
	}
}

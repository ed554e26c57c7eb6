package pool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestParseConfigCases(t *testing.T) {
	var cfg, err = ParseConfig("user_ids:5:uuid")
	require.NoError(t, err)
	assert.Equal(t, Config{Name: "user_ids", Count: 5, Type: UUID}, cfg)

	cfg, err = ParseConfig("prices:100:F64")
	require.NoError(t, err)
	assert.Equal(t, Config{Name: "prices", Count: 100, Type: F64}, cfg)

	for _, tc := range []struct {
		in, err string
	}{
		{"user_ids:5", `malformed pool "user_ids:5" (expected name:count:type)`},
		{"a:b:c:d", `malformed pool "a:b:c:d" (expected name:count:type)`},
		{"ids:five:i32", `malformed pool "ids:five:i32": invalid count "five"`},
		{"ids:5:int", `malformed pool "ids:5:int": unknown pool type "int" (expected one of i32, i64, u32, u64, f32, f64, string, bytes, uuid)`},
		{":5:i32", "pool name is empty"},
		{"ids:-1:i32", `pool "ids": count must be > 0 (got -1)`},
	} {
		_, err = ParseConfig(tc.in)
		assert.EqualError(t, err, tc.err)
	}
}

func TestLoadConfigsFromYAML(t *testing.T) {
	var cfgs, err = LoadConfigs(strings.NewReader(`
pools:
  - name: user_ids
    count: 5
    type: uuid
  - name: prices
    count: 100
    type: f64
    distribution: lognormal(3,1)
`))
	require.NoError(t, err)
	assert.Equal(t, []Config{
		{Name: "user_ids", Count: 5, Type: UUID},
		{Name: "prices", Count: 100, Type: F64, Distribution: "lognormal(3,1)"},
	}, cfgs)

	// Unknown fields are rejected.
	_, err = LoadConfigs(strings.NewReader("pools:\n  - name: x\n    size: 5\n"))
	assert.Error(t, err)

	// Distributions apply only to numeric pools.
	_, err = LoadConfigs(strings.NewReader("pools:\n  - {name: x, count: 5, type: uuid, distribution: normal(1,1)}\n"))
	assert.EqualError(t, err, `pool "x": distribution requires a numeric type (got uuid)`)

	_, err = LoadConfigs(strings.NewReader("pools:\n  - {name: x, count: 5, type: decimal}\n"))
	assert.Error(t, err)
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	var b, err = yaml.Marshal(Config{Name: "ids", Count: 3, Type: U32})
	require.NoError(t, err)
	assert.Equal(t, "name: ids\ncount: 3\ntype: u32\n", string(b))
}

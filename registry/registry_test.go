package registry

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gazette.dev/protofake/metrics"
)

type memRegistry struct {
	ids   map[string]int
	calls int
	err   error
}

func (m *memRegistry) Register(subject, schema string) (int, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	if id, ok := m.ids[subject+schema]; ok {
		return id, nil
	}
	m.ids[subject+schema] = 100 + len(m.ids)
	return m.ids[subject+schema], nil
}

func TestResolverQueriesOncePerSubject(t *testing.T) {
	var reg = &memRegistry{ids: make(map[string]int)}
	var r = NewResolver(reg)
	var okBefore = testutil.ToFloat64(metrics.RegistryLookupsTotal.WithLabelValues(metrics.Ok))

	for i := 0; i != 10; i++ {
		var id, err = r.Resolve("acme.orders.Order", "syntax = \"proto3\";")
		require.NoError(t, err)
		assert.Equal(t, 100, id)
	}
	var id, err = r.Resolve("acme.orders.Card", "syntax = \"proto3\";")
	require.NoError(t, err)
	assert.Equal(t, 101, id)

	assert.Equal(t, 2, reg.calls)
	assert.Equal(t, 2, r.Lookups())
	assert.Equal(t, okBefore+2, testutil.ToFloat64(metrics.RegistryLookupsTotal.WithLabelValues(metrics.Ok)))
}

func TestResolverWrapsFailures(t *testing.T) {
	var reg = &memRegistry{ids: make(map[string]int), err: errors.New("connection refused")}
	var r = NewResolver(reg)

	var _, err = r.Resolve("orders-value", "schema")
	assert.EqualError(t, err, `schema registry: registering subject "orders-value": connection refused`)

	var regErr *Error
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "orders-value", regErr.Subject)

	// Failures are not cached.
	reg.err = nil
	id, err := r.Resolve("orders-value", "schema")
	assert.NoError(t, err)
	assert.Equal(t, 100, id)
	assert.Equal(t, 2, r.Lookups())
}

func TestSubjectStrategies(t *testing.T) {
	for _, tc := range []struct {
		strategy, expect string
	}{
		{"", "acme.orders.Order"},
		{"record", "acme.orders.Order"},
		{"topic", "orders-value"},
		{"topic-record", "orders-acme.orders.Order"},
	} {
		var s, err = Subject(tc.strategy, "orders", "acme.orders.Order")
		assert.NoError(t, err)
		assert.Equal(t, tc.expect, s)
	}
	var _, err = Subject("other", "orders", "acme.orders.Order")
	assert.EqualError(t, err, `unknown subject strategy "other"`)
}

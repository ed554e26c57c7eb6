package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gazette.dev/protofake/schema/schematest"
	"go.gazette.dev/protofake/sink"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func withFs(t *testing.T) afero.Fs {
	var orig = fs
	fs = afero.NewMemMapFs()
	t.Cleanup(func() { fs = orig })

	require.NoError(t, afero.WriteFile(fs, "/protos/"+schematest.FileName, []byte(schematest.Source), 0644))
	require.NoError(t, afero.WriteFile(fs, "/pools.yaml", []byte(`
pools:
  - name: user_ids
    count: 5
    type: uuid
`), 0644))
	return fs
}

func orderConfig() generateConfig {
	return generateConfig{
		schemaConfig: schemaConfig{
			ProtoFile: "/protos/" + schematest.FileName,
			Message:   "acme.orders.Order",
		},
		Count:     3,
		PoolsFile: "/pools.yaml",
		Seed:      7,
		Epoch:     "2024-03-01T12:00:00Z",
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	withFs(t)
	var cfg = orderConfig()

	var run = func() string {
		var _, md, err = cfg.load(context.Background())
		require.NoError(t, err)
		gen, err := cfg.newGenerator(md)
		require.NoError(t, err)

		var buf bytes.Buffer
		out, err := sink.NewPrint(&buf, sink.JSON, false)
		require.NoError(t, err)
		require.NoError(t, generate(context.Background(), gen, md, cfg.Count, out))
		require.NoError(t, out.Close(context.Background()))
		return buf.String()
	}
	var first = run()
	assert.Equal(t, 3, bytes.Count([]byte(first), []byte("\n")))
	assert.Equal(t, first, run())
}

func TestGenerateStopsOnCancel(t *testing.T) {
	withFs(t)
	var cfg = orderConfig()

	var _, md, err = cfg.load(context.Background())
	require.NoError(t, err)
	gen, err := cfg.newGenerator(md)
	require.NoError(t, err)

	var ctx, cancel = context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	out, _ := sink.NewPrint(&buf, sink.Tree, false)
	assert.Equal(t, context.Canceled, generate(ctx, gen, md, 10, out))
	assert.Zero(t, buf.Len())
}

func TestConfigurationErrors(t *testing.T) {
	withFs(t)

	var cfg = orderConfig()
	cfg.PoolsFile = ""
	var _, md, err = cfg.load(context.Background())
	require.NoError(t, err)

	_, err = cfg.newGenerator(md)
	assert.EqualError(t, err, `field acme.orders.Order.user_id: pool "user_ids" is not declared`)

	cfg.Pools = []string{"user_ids:5"}
	_, err = cfg.newGenerator(md)
	assert.Error(t, err)

	cfg = orderConfig()
	cfg.Count = -1
	_, err = cfg.newGenerator(md)
	assert.EqualError(t, err, "invalid count (-1; expected >= 0)")

	cfg = orderConfig()
	cfg.ProtoFile = ""
	_, _, err = cfg.load(context.Background())
	assert.EqualError(t, err, "one of --proto-file or --descriptor-set is required")
}

func TestDescribeRows(t *testing.T) {
	withFs(t)
	var cfg = orderConfig()

	var _, md, err = cfg.load(context.Background())
	require.NoError(t, err)
	gen, err := cfg.newGenerator(md)
	require.NoError(t, err)

	var rows [][]string
	describeMessage(gen, md, make(map[protoreflect.FullName]bool), &rows)

	var byName = make(map[string][]string)
	for _, row := range rows {
		byName[row[0]] = row
	}
	assert.Equal(t, []string{"acme.orders.Order.customer", "string", "2..3*", "", "", "words", "", ""},
		byName["acme.orders.Order.customer"])
	assert.Equal(t, []string{"acme.orders.Order.items", "repeated LineItem", "", "", "1..4*", "", "", ""},
		byName["acme.orders.Order.items"])
	assert.Equal(t, "user_ids*", byName["acme.orders.Order.user_id"][6])
	assert.Equal(t, "8*", byName["acme.orders.Order.signature"][3])
	assert.Equal(t, "map<string, int32>", byName["acme.orders.Order.attributes"][1])

	// Nested and referenced messages are described once each.
	assert.Contains(t, byName, "acme.orders.LineItem.sku")
	assert.Contains(t, byName, "acme.orders.Card.holder")
	assert.Contains(t, byName, "acme.orders.Order.Address.street")
	assert.NotContains(t, byName, "google.protobuf.Timestamp.seconds")
}

func TestPublishFlagDefaults(t *testing.T) {
	var parse = func(args ...string) *cmdPublish {
		var cmd = new(cmdPublish)
		var _, err = flags.NewParser(cmd, flags.None).ParseArgs(
			append([]string{"--message", "acme.orders.Order", "--topic", "orders"}, args...))
		require.NoError(t, err)
		return cmd
	}

	// Frames carry message indexes unless opted out.
	var cmd = parse()
	assert.False(t, cmd.NoIndexes)
	assert.Equal(t, "id", cmd.Key)
	assert.Equal(t, int64(1024), cmd.MaxInFlight)
	assert.Equal(t, "sarama", cmd.Kafka.Client)

	cmd = parse("--framing.no-indexes")
	assert.True(t, cmd.NoIndexes)
}

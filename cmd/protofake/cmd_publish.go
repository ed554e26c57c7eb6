package main

import (
	"context"

	"github.com/pkg/errors"
	"go.gazette.dev/protofake/registry"
	"go.gazette.dev/protofake/schema"
	"go.gazette.dev/protofake/sink"
	"go.gazette.dev/protofake/transport"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type cmdPublish struct {
	generateConfig
	sink.PublishConfig

	Kafka    transport.Config `group:"Kafka" namespace:"kafka" env-namespace:"KAFKA"`
	Registry registry.Config  `group:"Schema Registry" namespace:"registry" env-namespace:"REGISTRY"`
}

func init() {
	commands.AddCommand("", "publish", "Publish generated messages to Kafka", `
Generate messages and publish them to a Kafka topic.

The message's schema is registered with the schema registry before generation
begins, and each message is framed with the assigned schema ID. Records are
keyed by the --key field of each message. Deliveries proceed asynchronously,
with at most --max-in-flight awaiting acknowledgement.

protofake exits non-zero if any delivery failed.

For example:

	protofake publish --proto-file acme/orders.proto --message acme.orders.Order \
		--count 10000 --topic orders --kafka.broker localhost:9092 \
		--registry.url http://localhost:8081
`, &cmdPublish{})
}

func (cmd *cmdPublish) Execute([]string) error {
	return runGenerate(cmd.generateConfig, func(_ context.Context, index *schema.Index, md protoreflect.MessageDescriptor) (sink.Sink, error) {
		if cmd.Registry.URL == "" {
			return nil, errors.New("--registry.url is required")
		}
		var cfg = cmd.PublishConfig
		cfg.Strategy = cmd.Registry.Subject

		// Validate the key before connecting to Kafka.
		if _, err := sink.NewKeyExtractor(md, cfg.Key); err != nil {
			return nil, err
		}
		var resolver = registry.NewResolver(registry.NewClient(cmd.Registry))

		var tr, err = transport.New(cmd.Kafka)
		if err != nil {
			return nil, err
		}
		p, err := sink.NewPublish(cfg, index, md, resolver, tr)
		if err != nil {
			_ = tr.Close()
			return nil, err
		}
		return p, nil
	})
}

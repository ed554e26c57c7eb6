package main

import (
	"context"

	"go.gazette.dev/protofake/codecs"
	"go.gazette.dev/protofake/schema"
	"go.gazette.dev/protofake/sink"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type cmdWrite struct {
	generateConfig

	Output string `long:"output" short:"O" env:"OUTPUT" required:"true" description:"Path of the written file"`
	Codec  string `long:"codec" env:"CODEC" default:"zstd" choice:"none" choice:"gzip" choice:"snappy" choice:"zstd" description:"Compression codec of the written file"`
	Key    string `long:"key" env:"KEY" default:"id" description:"Dotted path of the message field used as record key. Empty for no key"`
}

func init() {
	commands.AddCommand("", "write", "Write generated messages to a file", `
Generate messages and write them to a compressed file.

The file holds a count of messages, the FileDescriptorSet of the message type,
and then each keyed and marshaled message. Use the "inspect" command to read
it back.

For example:

	protofake write --proto-file acme/orders.proto --message acme.orders.Order \
		--count 100000 --output orders.bin
`, &cmdWrite{})
}

func (cmd *cmdWrite) Execute([]string) error {
	return runGenerate(cmd.generateConfig, func(_ context.Context, _ *schema.Index, md protoreflect.MessageDescriptor) (sink.Sink, error) {
		var key, err = sink.NewKeyExtractor(md, cmd.Key)
		if err != nil {
			return nil, err
		}
		return sink.NewWrite(fs, cmd.Output, codecs.Codec(cmd.Codec), md, key)
	})
}

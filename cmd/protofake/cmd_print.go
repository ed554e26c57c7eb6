package main

import (
	"context"
	"os"

	"go.gazette.dev/protofake/schema"
	"go.gazette.dev/protofake/sink"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type cmdPrint struct {
	generateConfig
	Format string `long:"format" short:"o" env:"FORMAT" default:"tree" choice:"tree" choice:"text" choice:"json" description:"Output format of printed messages"`
}

func init() {
	commands.AddCommand("", "print", "Print generated messages", `
Generate messages and print them to stdout.

The "tree" format prints one indented "name: value" line per field, while
"text" and "json" use the protobuf text and JSON encodings. JSON output has
one message per line.

For example:

	protofake print --proto-file acme/orders.proto --message acme.orders.Order \
		--pool user_ids:10:uuid --count 3
`, &cmdPrint{})
}

func (cmd *cmdPrint) Execute([]string) error {
	return runGenerate(cmd.generateConfig, func(context.Context, *schema.Index, protoreflect.MessageDescriptor) (sink.Sink, error) {
		return sink.NewPrint(os.Stdout, sink.Format(cmd.Format), cmd.Count > 1)
	})
}

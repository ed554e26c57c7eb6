package main

import (
	"github.com/jessevdk/go-flags"
	mbp "go.gazette.dev/protofake/mainboilerplate"
)

const iniFilename = "protofake.ini"

// Config is the top-level configuration shared by all commands.
var Config = new(struct {
	Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
})

// commands registers the sub-commands of protofake.
var commands = mbp.NewCommandRegistry()

func main() {
	var parser = flags.NewParser(Config, flags.Default)
	parser.LongDescription = `protofake generates synthetic protobuf messages of a .proto schema.

Generation of each field is steered by directives within the field's comments,
such as "words=2..3", "count=1..4", "string=uuid", "pool=user_ids" or
"distribution=normal(25, 5)". Generated messages are printed, written to a
compressed file, or published to Kafka with schema registry framing.

Optionally configure protofake with a '` + iniFilename + `' file in the current
working directory, or with '~/.config/protofake/` + iniFilename + `'. Use the
'print-config' sub-command to inspect the tool's current configuration.
`
	mbp.Must(commands.AddCommands("", parser.Command), "could not add sub-command")
	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.MustParseConfig(parser, iniFilename)
}

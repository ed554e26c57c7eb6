package main

import (
	"context"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"go.gazette.dev/protofake/directive"
	"go.gazette.dev/protofake/generator"
	mbp "go.gazette.dev/protofake/mainboilerplate"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type cmdDescribe struct {
	generateConfig
}

func init() {
	commands.AddCommand("", "describe", "Describe how fields of a message are generated", `
Resolve the generation directives of each field reachable from the message
type, and print them as a table. Explicitly declared directives are marked
with '*'; others are defaults of the field's kind.

Pool directives must name declared pools, as with other commands.

For example:

	protofake describe --proto-file acme/orders.proto --message acme.orders.Order \
		--pool user_ids:10:uuid
`, &cmdDescribe{})
}

func (cmd *cmdDescribe) Execute([]string) error {
	mbp.InitLog(Config.Log)
	return exitOnError(cmd.describe())
}

func (cmd *cmdDescribe) describe() error {

	var _, md, err = cmd.load(context.Background())
	if err != nil {
		return err
	}
	gen, err := cmd.newGenerator(md)
	if err != nil {
		return err
	}

	var table = tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Kind", "Words", "Length", "Count", "String", "Pool", "Distribution")

	var visited = make(map[protoreflect.FullName]bool)
	var rows [][]string
	describeMessage(gen, md, visited, &rows)

	for _, row := range rows {
		if err = table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func describeMessage(gen *generator.Context, md protoreflect.MessageDescriptor, visited map[protoreflect.FullName]bool, rows *[][]string) {
	if visited[md.FullName()] || generator.WellKnown(md.FullName()) {
		return
	}
	visited[md.FullName()] = true

	var fields = md.Fields()
	var nested []protoreflect.MessageDescriptor

	for i := 0; i != fields.Len(); i++ {
		var fd = fields.Get(i)
		if f, ok := gen.Field(fd); ok {
			*rows = append(*rows, describeField(fd, f))
		} else {
			*rows = append(*rows, []string{string(fd.FullName()), cardinality(fd), "", "", "", "", "", ""})
		}

		var sub = fd.Message()
		if fd.IsMap() {
			sub = fd.MapValue().Message()
		}
		if sub != nil {
			nested = append(nested, sub)
		}
	}
	for _, sub := range nested {
		describeMessage(gen, sub, visited, rows)
	}
}

func describeField(fd protoreflect.FieldDescriptor, f *directive.Field) []string {
	var explicit = func(k directive.Kind, s string) string {
		for _, d := range f.Directives {
			if d.Kind == k {
				return s + "*"
			}
		}
		return s
	}
	var row = []string{string(fd.FullName()), cardinality(fd), "", "", "", "", "", ""}

	switch f.Kind {
	case protoreflect.StringKind:
		if f.Pool == "" && f.Format == directive.FormatWords {
			row[2] = explicit(directive.Words, f.Words.String())
		}
		if f.Pool == "" {
			row[5] = explicit(directive.String, f.Format.String())
		}
	case protoreflect.BytesKind:
		if f.Pool == "" {
			row[3] = explicit(directive.Words, f.Length.String())
			if !fd.IsList() && !strings.HasSuffix(row[3], "*") {
				row[3] = explicit(directive.Count, row[3])
			}
		}
	}
	if fd.IsList() || fd.IsMap() {
		row[4] = explicit(directive.Count, f.Count.String())
	}
	if f.Pool != "" {
		row[6] = explicit(directive.Pool, f.Pool)
	}
	if directive.IsNumeric(f.Kind) || f.Kind == protoreflect.EnumKind || f.Pool != "" {
		row[7] = explicit(directive.Distribution, f.Distribution.String())
	}
	return row
}

func cardinality(fd protoreflect.FieldDescriptor) string {
	switch {
	case fd.IsMap():
		return "map<" + fd.MapKey().Kind().String() + ", " + kindName(fd.MapValue()) + ">"
	case fd.IsList():
		return "repeated " + kindName(fd)
	default:
		return kindName(fd)
	}
}

func kindName(fd protoreflect.FieldDescriptor) string {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return string(fd.Message().Name())
	case protoreflect.EnumKind:
		return string(fd.Enum().Name())
	default:
		return strings.ToLower(fd.Kind().String())
	}
}

package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	mbp "go.gazette.dev/protofake/mainboilerplate"
	"go.gazette.dev/protofake/sink"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
)

type cmdInspect struct {
	Format string `long:"format" short:"o" default:"tree" choice:"tree" choice:"text" choice:"json" description:"Output format of printed messages"`
	Limit  int    `long:"limit" description:"Maximum number of messages to print. Zero for all"`

	Args struct {
		File string `positional-arg-name:"FILE" description:"Path of a file written by the \"write\" command"`
	} `positional-args:"yes" required:"yes"`
}

func init() {
	commands.AddCommand("", "inspect", "Print messages of a written file", `
Read a file produced by the "write" command, and print its messages using the
FileDescriptorSet embedded in the file.

For example:

	protofake inspect --format json --limit 10 orders.bin
`, &cmdInspect{})
}

func (cmd *cmdInspect) Execute([]string) error {
	mbp.InitLog(Config.Log)
	return exitOnError(cmd.inspect())
}

func (cmd *cmdInspect) inspect() error {

	var f, err = fs.Open(cmd.Args.File)
	if err != nil {
		return errors.Wrap(err, "opening file")
	}
	defer f.Close()

	r, err := sink.NewReader(f)
	if err != nil {
		return err
	}
	defer r.Close()

	log.WithFields(log.Fields{
		"count":   r.Count,
		"codec":   r.Codec,
		"message": r.Message.FullName(),
	}).Info("inspecting file")

	out, err := sink.NewPrint(os.Stdout, sink.Format(cmd.Format), r.Count > 1)
	if err != nil {
		return err
	}

	var n int
	for cmd.Limit == 0 || n != cmd.Limit {
		var key, value, err = r.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}

		var msg = dynamicpb.NewMessage(r.Message)
		if err = proto.Unmarshal(value, msg); err != nil {
			return errors.Wrapf(err, "unmarshal message %d", n)
		}
		log.WithFields(log.Fields{"index": n, "key": string(key)}).Debug("read message")

		if err = out.Put(context.Background(), msg); err != nil {
			return err
		}
		n++
	}
	if cmd.Limit == 0 && uint32(n) != r.Count {
		log.WithFields(log.Fields{"read": n, "count": r.Count}).Warn("file count doesn't match messages read")
	}
	return out.Close(context.Background())
}

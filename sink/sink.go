// Package sink implements destinations of generated messages: a Print sink
// for human inspection, a Write sink of compressed files, and a Publish sink
// which delivers schema-registry framed messages to Kafka.
package sink

import (
	"context"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// Sink consumes generated messages.
type Sink interface {
	// Put |msg| to the Sink. Put may retain |msg| only until it returns.
	Put(ctx context.Context, msg protoreflect.Message) error
	// Close the Sink, flushing any buffered or in-flight output. Close
	// is bounded by |ctx|, and returns an error if output could not be
	// completed.
	Close(ctx context.Context) error
}

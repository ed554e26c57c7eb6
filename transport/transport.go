// Package transport delivers framed records to Kafka topics asynchronously.
// Submission returns once a record is queued; its delivery outcome is
// reported later through a completion callback.
package transport

import (
	"context"
	"fmt"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/pkg/errors"
)

// Record is a keyed value to be delivered to a topic.
type Record struct {
	Topic string
	Key   []byte
	Value []byte
}

// Transport delivers Records asynchronously.
type Transport interface {
	// Submit queues |rec| for delivery, blocking only while the Transport
	// is unable to accept further input or until |ctx| is done. |done| is
	// invoked exactly once with the final delivery outcome, which is nil
	// on success or an *Error. If Submit returns an error, |done| is not
	// invoked.
	Submit(ctx context.Context, rec Record, done func(error)) error
	// Close stops accepting Records and blocks until all submitted Records
	// have completed.
	Close() error
}

// Config of a Kafka Transport.
type Config struct {
	Brokers     []string `long:"broker" env:"BROKERS" env-delim:"," default:"localhost:9092" description:"Kafka broker addresses"`
	Client      string   `long:"client" env:"CLIENT" default:"sarama" choice:"sarama" choice:"kafka-go" description:"Kafka client implementation"`
	ClientID    string   `long:"client-id" env:"CLIENT_ID" description:"Kafka client ID (defaults to a generated name)"`
	Acks        string   `long:"acks" env:"ACKS" default:"all" choice:"all" choice:"leader" choice:"none" description:"Required broker acknowledgements of each delivery"`
	Compression string   `long:"compression" env:"COMPRESSION" default:"none" choice:"none" choice:"gzip" choice:"snappy" choice:"lz4" choice:"zstd" description:"Compression codec of produced batches"`
}

// New returns the Transport of the Config.
func New(cfg Config) (Transport, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "protofake-" + petname.Generate(2, "-")
	}
	switch cfg.Client {
	case "", "sarama":
		var producer, err = NewSaramaProducer(cfg)
		if err != nil {
			return nil, err
		}
		return NewSarama(producer), nil
	case "kafka-go":
		return NewKafkaGo(cfg), nil
	default:
		return nil, errors.Errorf("unknown transport client %q", cfg.Client)
	}
}

// Error is a failed delivery of a Record.
type Error struct {
	Topic string
	Key   []byte
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("delivering record (key %q) to topic %s: %s", e.Key, e.Topic, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

package transport

import (
	"context"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// KafkaGo is a Transport of an asynchronous kafka.Writer.
type KafkaGo struct {
	w *kafka.Writer
}

// NewKafkaGo returns a KafkaGo Transport of the Config.
func NewKafkaGo(cfg Config) *KafkaGo {
	var w = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		Async:        true,
		RequiredAcks: kafka.RequireAll,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
		Completion:   complete,
	}
	switch cfg.Acks {
	case "leader":
		w.RequiredAcks = kafka.RequireOne
	case "none":
		w.RequiredAcks = kafka.RequireNone
	}
	switch cfg.Compression {
	case "gzip":
		w.Compression = kafka.Gzip
	case "snappy":
		w.Compression = kafka.Snappy
	case "lz4":
		w.Compression = kafka.Lz4
	case "zstd":
		w.Compression = kafka.Zstd
	}

	log.WithFields(log.Fields{
		"brokers":  cfg.Brokers,
		"clientID": cfg.ClientID,
	}).Info("started kafka-go writer")

	return &KafkaGo{w: w}
}

// Submit implements Transport.
func (k *KafkaGo) Submit(ctx context.Context, rec Record, done func(error)) error {
	var err = k.w.WriteMessages(ctx, kafka.Message{
		Topic:      rec.Topic,
		Key:        rec.Key,
		Value:      rec.Value,
		WriterData: done,
	})
	return errors.Wrap(err, "kafka-go WriteMessages")
}

// Close implements Transport. It flushes pending messages and blocks until
// their completions have been called.
func (k *KafkaGo) Close() error {
	return errors.Wrap(k.w.Close(), "closing kafka-go writer")
}

func complete(messages []kafka.Message, err error) {
	for _, m := range messages {
		var done = m.WriterData.(func(error))
		if err != nil {
			done(&Error{Topic: m.Topic, Key: m.Key, Err: err})
		} else {
			done(nil)
		}
	}
}

package transport

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/protofake/async"
)

// Sarama is a Transport of a sarama.AsyncProducer.
type Sarama struct {
	producer sarama.AsyncProducer
	drained  async.Promise
}

// NewSaramaProducer returns a sarama.AsyncProducer of the Config, which
// returns both successes and errors.
func NewSaramaProducer(cfg Config) (sarama.AsyncProducer, error) {
	var conf = sarama.NewConfig()
	conf.ClientID = cfg.ClientID
	conf.Producer.Return.Successes = true
	conf.Producer.Return.Errors = true
	conf.Producer.Partitioner = sarama.NewHashPartitioner

	switch cfg.Acks {
	case "", "all":
		conf.Producer.RequiredAcks = sarama.WaitForAll
	case "leader":
		conf.Producer.RequiredAcks = sarama.WaitForLocal
	case "none":
		conf.Producer.RequiredAcks = sarama.NoResponse
	default:
		return nil, errors.Errorf("unknown acks %q", cfg.Acks)
	}

	switch cfg.Compression {
	case "", "none":
		conf.Producer.Compression = sarama.CompressionNone
	case "gzip":
		conf.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		conf.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		conf.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		conf.Version = sarama.V2_1_0_0
		conf.Producer.Compression = sarama.CompressionZSTD
	default:
		return nil, errors.Errorf("unknown compression %q", cfg.Compression)
	}

	var producer, err = sarama.NewAsyncProducer(cfg.Brokers, conf)
	if err != nil {
		return nil, errors.Wrap(err, "building sarama producer")
	}
	log.WithFields(log.Fields{
		"brokers":  cfg.Brokers,
		"clientID": cfg.ClientID,
	}).Info("started sarama producer")

	return producer, nil
}

// NewSarama returns a Sarama Transport of |producer|, which must be
// configured to return successes and errors. The Transport takes ownership
// of the producer's Successes and Errors channels.
func NewSarama(producer sarama.AsyncProducer) *Sarama {
	var s = &Sarama{
		producer: producer,
		drained:  async.NewPromise(),
	}
	go s.drain()
	return s
}

// Submit implements Transport.
func (s *Sarama) Submit(ctx context.Context, rec Record, done func(error)) error {
	var msg = &sarama.ProducerMessage{
		Topic:    rec.Topic,
		Value:    sarama.ByteEncoder(rec.Value),
		Metadata: done,
	}
	// A nil Key is a null record key, which is partitioned at random.
	if rec.Key != nil {
		msg.Key = sarama.ByteEncoder(rec.Key)
	}
	select {
	case s.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Transport.
func (s *Sarama) Close() error {
	s.producer.AsyncClose()
	s.drained.Wait()
	return nil
}

// drain dispatches completions until the producer's Successes and Errors
// channels are both closed.
func (s *Sarama) drain() {
	defer s.drained.Resolve()

	var successes, errs = s.producer.Successes(), s.producer.Errors()
	for successes != nil || errs != nil {
		select {
		case msg, ok := <-successes:
			if !ok {
				successes = nil
				continue
			}
			msg.Metadata.(func(error))(nil)

		case pe, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			var key []byte
			if pe.Msg.Key != nil {
				key, _ = pe.Msg.Key.Encode()
			}
			pe.Msg.Metadata.(func(error))(&Error{Topic: pe.Msg.Topic, Key: key, Err: pe.Err})
		}
	}
}

package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/protofake/async"
	"go.gazette.dev/protofake/framing"
	"go.gazette.dev/protofake/metrics"
	"go.gazette.dev/protofake/registry"
	"go.gazette.dev/protofake/schema"
	"go.gazette.dev/protofake/transport"
	"golang.org/x/sync/semaphore"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// PublishConfig configures a Publish sink.
type PublishConfig struct {
	Topic       string `long:"topic" env:"TOPIC" required:"true" description:"Kafka topic to publish to"`
	Key         string `long:"key" env:"KEY" default:"id" description:"Dotted path of the message field used as record key"`
	NoIndexes   bool   `long:"framing.no-indexes" env:"FRAMING_NO_INDEXES" description:"Omit message indexes from frame headers"`
	MaxInFlight int64  `long:"max-in-flight" env:"MAX_IN_FLIGHT" default:"1024" description:"Maximum number of unacknowledged deliveries"`
	// Strategy for naming registered subjects.
	Strategy string `no-flag:"true"`
}

// Publish is a Sink which frames messages with their registered schema ID
// and delivers them to a Kafka topic.
type Publish struct {
	cfg       PublishConfig
	key       *KeyExtractor
	framer    framing.Framer
	transport transport.Transport
	sem       *semaphore.Weighted

	mu        sync.Mutex
	submitted int64
	delivered int64
	bytes     int64
	failures  []error
}

// NewPublish returns a Publish sink of messages |md| of the Index. The
// message's schema is registered through |resolver| before NewPublish
// returns, and its key path is validated.
func NewPublish(cfg PublishConfig, index *schema.Index, md protoreflect.MessageDescriptor,
	resolver *registry.Resolver, tr transport.Transport) (*Publish, error) {

	if cfg.MaxInFlight <= 0 {
		return nil, errors.Errorf("invalid max-in-flight (%d; expected > 0)", cfg.MaxInFlight)
	}
	var key, err = NewKeyExtractor(md, cfg.Key)
	if err != nil {
		return nil, err
	}
	src, ok := index.Source(md)
	if !ok {
		return nil, errors.Errorf("schema source of %s is unavailable for registration", md.FullName())
	}
	subject, err := registry.Subject(cfg.Strategy, cfg.Topic, string(md.FullName()))
	if err != nil {
		return nil, err
	}
	id, err := resolver.Resolve(subject, src)
	if err != nil {
		return nil, err
	}

	var p = &Publish{
		cfg:       cfg,
		key:       key,
		framer:    framing.Framer{SchemaID: id},
		transport: tr,
		sem:       semaphore.NewWeighted(cfg.MaxInFlight),
	}
	if !cfg.NoIndexes {
		p.framer.Indexes = schema.MessageIndexes(md)
	}

	log.WithFields(log.Fields{
		"topic":    cfg.Topic,
		"subject":  subject,
		"schemaID": id,
		"indexes":  p.framer.Indexes,
	}).Info("publishing messages")

	return p, nil
}

// Put implements Sink. It blocks while MaxInFlight deliveries are
// outstanding.
func (p *Publish) Put(ctx context.Context, msg protoreflect.Message) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	var b, release, err = p.framer.Frame(msg.Interface())
	if err != nil {
		p.sem.Release(1)
		return errors.WithMessage(err, "framing message")
	}
	var rec = transport.Record{
		Topic: p.cfg.Topic,
		Key:   p.key.Key(msg),
		Value: b,
	}
	var size = len(b)

	metrics.DeliveriesInFlight.Inc()
	if err = p.transport.Submit(ctx, rec, func(err error) {
		release()
		p.complete(size, err)
	}); err != nil {
		release()
		metrics.DeliveriesInFlight.Dec()
		p.sem.Release(1)
		return err
	}

	p.mu.Lock()
	p.submitted++
	p.mu.Unlock()

	return nil
}

func (p *Publish) complete(size int, err error) {
	p.mu.Lock()
	if err != nil {
		p.failures = append(p.failures, err)
	} else {
		p.delivered++
		p.bytes += int64(size)
	}
	p.mu.Unlock()

	if err != nil {
		log.WithField("err", err).Warn("message delivery failed")
		metrics.DeliveriesTotal.WithLabelValues(metrics.Fail).Inc()
	} else {
		metrics.DeliveriesTotal.WithLabelValues(metrics.Ok).Inc()
		metrics.SinkBytesTotal.WithLabelValues("publish").Add(float64(size))
	}
	metrics.DeliveriesInFlight.Dec()
	p.sem.Release(1)
}

// Close implements Sink. It awaits completion of all submitted deliveries,
// returning a *DeliveryError if any failed or |ctx| is done first.
func (p *Publish) Close(ctx context.Context) error {
	var closed = async.NewPromise()
	var closeErr error

	go func() {
		closeErr = p.transport.Close()
		closed.Resolve()
	}()

	if err := closed.WaitWithPeriodicTask(ctx, time.Second, p.logProgress); err != nil {
		var s = p.Stats()
		return &DeliveryError{Stats: s, Err: errors.WithMessagef(err,
			"flushing %d outstanding deliveries", s.Submitted-s.Delivered-s.Failed)}
	}

	var s = p.Stats()
	log.WithFields(log.Fields{
		"delivered": s.Delivered,
		"failed":    s.Failed,
		"bytes":     humanize.Bytes(uint64(s.Bytes)),
	}).Info("finished publishing")

	if closeErr != nil {
		return closeErr
	} else if s.Failed != 0 {
		p.mu.Lock()
		var first = p.failures[0]
		p.mu.Unlock()
		return &DeliveryError{Stats: s, Err: first}
	}
	return nil
}

func (p *Publish) logProgress() {
	var s = p.Stats()
	log.WithFields(log.Fields{
		"delivered": s.Delivered,
		"failed":    s.Failed,
		"pending":   s.Submitted - s.Delivered - s.Failed,
	}).Info("awaiting outstanding deliveries")
}

// PublishStats summarizes deliveries of a Publish sink.
type PublishStats struct {
	Submitted, Delivered, Failed, Bytes int64
}

// Stats returns current PublishStats.
func (p *Publish) Stats() PublishStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PublishStats{
		Submitted: p.submitted,
		Delivered: p.delivered,
		Failed:    int64(len(p.failures)),
		Bytes:     p.bytes,
	}
}

// Failures returns the errors of failed deliveries, each a *transport.Error.
func (p *Publish) Failures() []error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]error(nil), p.failures...)
}

// DeliveryError is returned by Publish.Close if deliveries failed or
// could not be awaited. Err is the first failure.
type DeliveryError struct {
	Stats PublishStats
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%d of %d deliveries failed or are outstanding (first: %s)",
		e.Stats.Submitted-e.Stats.Delivered, e.Stats.Submitted, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

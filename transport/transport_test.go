package transport

import (
	"context"
	"sync"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcomes struct {
	mu  sync.Mutex
	ok  int
	err []error
}

func (o *outcomes) done(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.err = append(o.err, err)
	} else {
		o.ok++
	}
}

func TestSaramaDeliveryOutcomes(t *testing.T) {
	var conf = mocks.NewTestConfig()
	conf.Producer.Return.Successes = true

	var producer = mocks.NewAsyncProducer(t, conf)
	producer.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		var key, _ = msg.Key.Encode()
		if string(key) != "one" || msg.Topic != "orders" {
			return errors.Errorf("unexpected message %v", msg)
		}
		return nil
	})
	producer.ExpectInputAndFail(sarama.ErrNotLeaderForPartition)
	producer.ExpectInputAndSucceed()

	var tr = NewSarama(producer)
	var out outcomes

	for _, key := range []string{"one", "two", "three"} {
		require.NoError(t, tr.Submit(context.Background(),
			Record{Topic: "orders", Key: []byte(key), Value: []byte("value")}, out.done))
	}
	require.NoError(t, tr.Close())

	assert.Equal(t, 2, out.ok)
	require.Len(t, out.err, 1)
	assert.EqualError(t, out.err[0], `delivering record (key "two") to topic orders: `+
		sarama.ErrNotLeaderForPartition.Error())

	var tErr *Error
	require.True(t, errors.As(out.err[0], &tErr))
	assert.Equal(t, sarama.ErrNotLeaderForPartition, errors.Cause(tErr.Err))
}

func TestSaramaNilKeyIsNull(t *testing.T) {
	var conf = mocks.NewTestConfig()
	conf.Producer.Return.Successes = true

	var producer = mocks.NewAsyncProducer(t, conf)
	producer.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Key != nil {
			return errors.Errorf("expected a null key, got %#v", msg.Key)
		}
		return nil
	})
	producer.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Key == nil {
			return errors.New("expected an empty, non-null key")
		}
		return nil
	})
	producer.ExpectInputAndFail(sarama.ErrMessageSizeTooLarge)

	var tr = NewSarama(producer)
	var out outcomes

	for _, key := range [][]byte{nil, {}, nil} {
		require.NoError(t, tr.Submit(context.Background(),
			Record{Topic: "orders", Key: key, Value: []byte("value")}, out.done))
	}
	require.NoError(t, tr.Close())

	assert.Equal(t, 2, out.ok)
	require.Len(t, out.err, 1)
	assert.EqualError(t, out.err[0], `delivering record (key "") to topic orders: `+
		sarama.ErrMessageSizeTooLarge.Error())
}

func TestSaramaSubmitHonorsCancellation(t *testing.T) {
	var conf = mocks.NewTestConfig()
	conf.Producer.Return.Successes = true
	conf.ChannelBufferSize = 0

	var producer = mocks.NewAsyncProducer(t, conf)
	var tr = &Sarama{producer: producer}

	// Occupy the mock's input loop, which blocks on the unbuffered
	// successes channel as there's no drain.
	producer.ExpectInputAndSucceed()
	producer.ExpectInputAndSucceed()
	producer.Input() <- &sarama.ProducerMessage{Topic: "t", Value: sarama.StringEncoder("v")}

	var ctx, cancel = context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, tr.Submit(ctx, Record{Topic: "t"}, func(error) {}))

	// Release the mock.
	go func() {
		for range producer.Successes() {
		}
	}()
	producer.Input() <- &sarama.ProducerMessage{Topic: "t", Value: sarama.StringEncoder("v")}
	assert.NoError(t, producer.Close())
}

func TestKafkaGoCompletion(t *testing.T) {
	var out outcomes
	var msgs = []kafka.Message{
		{Topic: "orders", Key: []byte("a"), WriterData: out.done},
		{Topic: "orders", Key: []byte("b"), WriterData: out.done},
	}

	complete(msgs, nil)
	assert.Equal(t, 2, out.ok)

	complete(msgs[:1], kafka.LeaderNotAvailable)
	require.Len(t, out.err, 1)

	var tErr *Error
	require.True(t, errors.As(out.err[0], &tErr))
	assert.Equal(t, []byte("a"), tErr.Key)
	assert.True(t, errors.Is(out.err[0], kafka.LeaderNotAvailable))
}

func TestNewSelectsClient(t *testing.T) {
	var tr, err = New(Config{Client: "kafka-go", Brokers: []string{"localhost:1"}})
	require.NoError(t, err)
	assert.IsType(t, &KafkaGo{}, tr)
	assert.NoError(t, tr.Close())

	_, err = New(Config{Client: "franz"})
	assert.EqualError(t, err, `unknown transport client "franz"`)
}

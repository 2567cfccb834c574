package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"slotbook/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runUntilDrained(t *testing.T, c *Consumer, reader *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-reader.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain the queue")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
	require.NoError(t, c.Close())
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	reader := newFakeReader(
		kafka.Message{Key: []byte("a"), Value: []byte(`{}`), Headers: []kafka.Header{{Key: HeaderEventID, Value: []byte("e1")}}},
		kafka.Message{Key: []byte("b"), Value: []byte(`{}`)},
	)

	var seen []string
	c := newConsumer(reader, "slot-commands", "group", func(ctx context.Context, msg Message) error {
		seen = append(seen, msg.Key)
		return nil
	}, logger.Discard())

	runUntilDrained(t, c, reader)

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, 2, reader.commits())
}

func TestConsumer_RetriesTransientErrors(t *testing.T) {
	reader := newFakeReader(kafka.Message{Key: []byte("a"), Value: []byte(`{}`)})

	var calls atomic.Int32
	c := newConsumer(reader, "slot-commands", "group", func(ctx context.Context, msg Message) error {
		if calls.Add(1) < 3 {
			return NewTransientError("store busy", nil)
		}
		return nil
	}, logger.Discard())
	c.maxRetries = 3
	c.retryBackoff = time.Millisecond

	runUntilDrained(t, c, reader)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1, reader.commits())
}

func TestConsumer_PermanentErrorGoesToDLQ(t *testing.T) {
	reader := newFakeReader(kafka.Message{Key: []byte("a"), Value: []byte(`not json`)})
	dlq := &fakeWriter{}

	var calls atomic.Int32
	c := newConsumer(reader, "slot-commands", "group", func(ctx context.Context, msg Message) error {
		calls.Add(1)
		return NewPermanentError("bad payload", errors.New("invalid character"))
	}, logger.Discard())
	c.maxRetries = 3
	c.dlqWriter = dlq

	runUntilDrained(t, c, reader)

	assert.Equal(t, int32(1), calls.Load())
	dead := dlq.messages()
	require.Len(t, dead, 1)
	assert.Equal(t, "slot-commands", headerValue(dead[0], HeaderOriginalTopic))
	assert.Equal(t, "group", headerValue(dead[0], "dlq-consumer-group"))
	assert.Equal(t, 1, reader.commits())
}

func TestConsumer_NonTemporaryBrokerErrorIsNotRetried(t *testing.T) {
	reader := newFakeReader(kafka.Message{Key: []byte("a"), Value: []byte(`{}`)})
	dlq := &fakeWriter{}

	var calls atomic.Int32
	c := newConsumer(reader, "slot-commands", "group", func(ctx context.Context, msg Message) error {
		calls.Add(1)
		return kafka.TopicAuthorizationFailed
	}, logger.Discard())
	c.maxRetries = 3
	c.retryBackoff = time.Millisecond
	c.dlqWriter = dlq

	runUntilDrained(t, c, reader)

	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, dlq.messages(), 1)
}

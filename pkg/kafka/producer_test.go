package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"submission_service/pkg/ctxdata"
)

func TestNewProducer(t *testing.T) {
	t.Run("no brokers", func(t *testing.T) {
		_, err := NewProducer(Config{})
		assert.Error(t, err)
	})

	t.Run("brokers configured", func(t *testing.T) {
		p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, 10*time.Second, p.writer.WriteTimeout)
		assert.NoError(t, p.Close())
	})
}

func TestProducerMessage(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	t.Run("with trace id", func(t *testing.T) {
		ctx := ctxdata.WithTraceID(context.Background(), "trace-1")

		msg, err := p.message(ctx, "submission-events", "student-1", map[string]string{"type": "created"})
		require.NoError(t, err)

		assert.Equal(t, "submission-events", msg.Topic)
		assert.Equal(t, []byte("student-1"), msg.Key)
		assert.JSONEq(t, `{"type":"created"}`, string(msg.Value))
		assert.Equal(t, at, msg.Time)
		require.Len(t, msg.Headers, 1)
		assert.Equal(t, traceHeader, msg.Headers[0].Key)
		assert.Equal(t, []byte("trace-1"), msg.Headers[0].Value)
	})

	t.Run("without trace id", func(t *testing.T) {
		msg, err := p.message(context.Background(), "t", "k", struct{}{})
		require.NoError(t, err)
		assert.Empty(t, msg.Headers)
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		_, err := p.message(context.Background(), "t", "k", make(chan int))
		assert.Error(t, err)
	})
}

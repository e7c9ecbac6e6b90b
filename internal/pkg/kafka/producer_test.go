package kafka

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducerProduce(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducer(w, "audit")

	err := p.Produce(context.Background(), "req-1", []byte(`{"a":1}`), map[string]string{"event_type": "request.transitioned"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "req-1", string(msg.Key))
	assert.JSONEq(t, `{"a":1}`, string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "request.transitioned", string(msg.Headers[0].Value))
	// The topic is set on the writer, not per message.
	assert.Empty(t, msg.Topic)
}

func TestProducerWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducer(&recordingWriter{err: boom}, "audit")

	err := p.Produce(context.Background(), "req-1", []byte("x"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "audit")
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, "audit")
	assert.Equal(t, "audit", w.Topic)
	assert.Equal(t, kafkago.RequireAll, w.RequiredAcks)
	assert.IsType(t, &kafkago.Hash{}, w.Balancer)
}

package consumers

import (
	"context"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rossmann/internal/domain/forecast"
	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

// queueReader replays messages, then blocks until ctx is cancelled.
type queueReader struct {
	mu       sync.Mutex
	messages []kafkago.Message
	closed   bool
}

func (q *queueReader) ReadMessageWithShutdownCheck(ctx context.Context) (kafkago.Message, error) {
	q.mu.Lock()
	if len(q.messages) > 0 {
		msg := q.messages[0]
		q.messages = q.messages[1:]
		q.mu.Unlock()
		return msg, nil
	}
	q.mu.Unlock()

	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (q *queueReader) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) PredictFrom(ctx context.Context, source string, records []forecast.Record) ([]forecast.Prediction, error) {
	args := m.Called(ctx, source, records)
	predictions, _ := args.Get(0).([]forecast.Prediction)
	return predictions, args.Error(1)
}

func TestPredictRequestConsumer_Start(t *testing.T) {
	reader := &queueReader{messages: []kafkago.Message{
		{Key: []byte("bad"), Value: []byte(`{not json`)},
		{Key: []byte("empty"), Value: []byte(`[]`)},
		{Key: []byte("failing"), Value: []byte(`{"Store": 2}`)},
		{Key: []byte("ok"), Value: []byte(`[{"Store": 1}, {"Store": 3}]`)},
	}}

	done := make(chan struct{})
	predictor := new(MockPredictor)
	predictor.On("PredictFrom", mock.Anything, "kafka", mock.MatchedBy(func(r []forecast.Record) bool { return len(r) == 1 })).
		Return(nil, errors.ErrModelInvocation).Once()
	predictor.On("PredictFrom", mock.Anything, "kafka", mock.MatchedBy(func(r []forecast.Record) bool { return len(r) == 2 })).
		Return([]forecast.Prediction{{Store: 1}, {Store: 3}}, nil).
		Run(func(mock.Arguments) { close(done) }).
		Once()

	pc := NewPredictRequestConsumer(reader, predictor, "kafka", time.Second, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- pc.Start(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("request was not consumed")
	}
	cancel()

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	predictor.AssertExpectations(t)
	assert.True(t, reader.closed)
}

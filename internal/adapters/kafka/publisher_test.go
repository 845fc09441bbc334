package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"rossmann/internal/domain/forecast"
	"rossmann/pkg/errors"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, key string, event interface{}) error {
	return m.Called(ctx, topic, key, event).Error(0)
}

func TestForecastPublisher_Write(t *testing.T) {
	batch := &forecast.Batch{
		ID:        uuid.New(),
		Source:    "api",
		CreatedAt: time.Now().UTC(),
	}

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, TopicForecasts, batch.ID.String(), batch).Return(nil).Once()

	sink := NewForecastPublisher(pub)
	assert.Equal(t, "kafka", sink.Name())
	assert.NoError(t, sink.Write(context.Background(), batch))
	pub.AssertExpectations(t)
}

func TestForecastPublisher_WriteError(t *testing.T) {
	batch := &forecast.Batch{ID: uuid.New()}

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.ErrUnavailable)

	err := NewForecastPublisher(pub).Write(context.Background(), batch)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}

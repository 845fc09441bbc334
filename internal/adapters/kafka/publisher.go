package kafka

import (
	"context"

	"rossmann/internal/domain/forecast"
)

// Publisher sends messages to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// ForecastPublisher is a forecast.Sink emitting each batch as one event on
// TopicForecasts, keyed by batch id.
type ForecastPublisher struct {
	publisher Publisher
	topic     string
}

// NewForecastPublisher creates the forecast event sink
func NewForecastPublisher(publisher Publisher) *ForecastPublisher {
	return &ForecastPublisher{publisher: publisher, topic: TopicForecasts}
}

// Name implements forecast.Sink
func (fp *ForecastPublisher) Name() string { return "kafka" }

// Write implements forecast.Sink
func (fp *ForecastPublisher) Write(ctx context.Context, batch *forecast.Batch) error {
	return fp.publisher.Publish(ctx, fp.topic, batch.ID.String(), batch)
}

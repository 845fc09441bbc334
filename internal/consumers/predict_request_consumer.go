package consumers

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"rossmann/internal/domain/forecast"
	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

// MessageReader is the part of kafka.Consumer the request consumer needs
type MessageReader interface {
	ReadMessageWithShutdownCheck(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// BatchPredictor scores records under a given batch source
type BatchPredictor interface {
	PredictFrom(ctx context.Context, source string, records []forecast.Record) ([]forecast.Prediction, error)
}

// PredictRequestConsumer scores record batches arriving on Kafka. Results
// leave through the forecast sinks like any other batch.
type PredictRequestConsumer struct {
	consumer  MessageReader
	predictor BatchPredictor
	source    string
	timeout   time.Duration
	log       *logger.Logger
}

// NewPredictRequestConsumer creates a new request consumer
func NewPredictRequestConsumer(
	consumer MessageReader,
	predictor BatchPredictor,
	source string,
	timeout time.Duration,
	log *logger.Logger,
) *PredictRequestConsumer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PredictRequestConsumer{
		consumer:  consumer,
		predictor: predictor,
		source:    source,
		timeout:   timeout,
		log:       log.With("component", "predict_request_consumer"),
	}
}

// Start consumes until ctx is cancelled. A failing message is logged and
// skipped.
func (pc *PredictRequestConsumer) Start(ctx context.Context) error {
	pc.log.Info("Starting predict request consumer...")

	defer func() {
		if err := pc.consumer.Close(); err != nil {
			pc.log.Errorw("Failed to close predict request consumer", "error", err)
		}
	}()

	for {
		msg, err := pc.consumer.ReadMessageWithShutdownCheck(ctx)
		if err != nil {
			if ctx.Err() != nil {
				pc.log.Info("Predict request consumer stopping (context cancelled)")
				return nil
			}
			pc.log.Warnw("Failed to read message", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		// The current message finishes even when shutdown starts mid-way
		processCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pc.timeout)
		if err := pc.handleMessage(processCtx, msg); err != nil {
			pc.log.Errorw("Failed to handle predict request",
				"key", string(msg.Key),
				"offset", msg.Offset,
				"error", err,
			)
		}
		cancel()
	}
}

func (pc *PredictRequestConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	records, err := forecast.DecodeRecords(msg.Value)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		pc.log.Debugw("Empty predict request", "key", string(msg.Key))
		return nil
	}

	predictions, err := pc.predictor.PredictFrom(ctx, pc.source, records)
	if err != nil {
		return errors.Wrapf(err, "predict request %q", string(msg.Key))
	}

	pc.log.Debugw("Predict request scored",
		"key", string(msg.Key),
		"records", len(records),
		"predictions", len(predictions),
	)
	return nil
}

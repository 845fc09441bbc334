package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"rossmann/internal/domain/forecast"
	chbatch "rossmann/pkg/clickhouse"
	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

// ForecastRow is one logged prediction
type ForecastRow struct {
	BatchID        uuid.UUID `ch:"batch_id"`
	Source         string    `ch:"source"`
	CreatedAt      time.Time `ch:"created_at"`
	Store          uint32    `ch:"store"`
	Date           time.Time `ch:"date"`
	ID             *int64    `ch:"id"`
	PredictedSales float64   `ch:"predicted_sales"`
}

// ForecastLogConfig tunes the buffered writer
type ForecastLogConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	OnFlush       chbatch.FlushHook
}

// ForecastLog is a forecast.Sink appending every prediction to the
// forecasts table through a batch writer.
type ForecastLog struct {
	conn   driver.Conn
	writer *chbatch.BatchWriter[ForecastRow]
}

// NewForecastLog creates the forecast log. Start must be called for time
// based flushing.
func NewForecastLog(conn driver.Conn, cfg ForecastLogConfig, log *logger.Logger) *ForecastLog {
	fl := &ForecastLog{conn: conn}
	fl.writer = chbatch.NewBatchWriter(chbatch.BatchWriterConfig[ForecastRow]{
		FlushFunc:    fl.insert,
		OnFlush:      cfg.OnFlush,
		TableName:    "forecasts",
		MaxBatchSize: cfg.BatchSize,
		MaxAge:       cfg.FlushInterval,
		Logger:       log,
	})
	return fl
}

// Name implements forecast.Sink
func (fl *ForecastLog) Name() string { return "clickhouse" }

// Write implements forecast.Sink. Rows are buffered; an error is returned
// only when a size triggered flush fails.
func (fl *ForecastLog) Write(ctx context.Context, batch *forecast.Batch) error {
	return fl.writer.Add(ctx, Rows(batch)...)
}

// Start begins periodic flushing until ctx is cancelled
func (fl *ForecastLog) Start(ctx context.Context) {
	fl.writer.Start(ctx)
}

// Stop flushes buffered rows
func (fl *ForecastLog) Stop(ctx context.Context) error {
	return fl.writer.Stop(ctx)
}

// Rows flattens a batch into table rows
func Rows(batch *forecast.Batch) []ForecastRow {
	rows := make([]ForecastRow, 0, len(batch.Predictions))
	for _, p := range batch.Predictions {
		rows = append(rows, ForecastRow{
			BatchID:        batch.ID,
			Source:         batch.Source,
			CreatedAt:      batch.CreatedAt.UTC(),
			Store:          uint32(p.Store),
			Date:           p.Date,
			ID:             p.ID,
			PredictedSales: p.PredictedSales,
		})
	}
	return rows
}

func (fl *ForecastLog) insert(ctx context.Context, rows []ForecastRow) error {
	batch, err := fl.conn.PrepareBatch(ctx, `
		INSERT INTO forecasts (
			batch_id, source, created_at, store, date, id, predicted_sales
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare forecasts batch")
	}

	for i := range rows {
		if err := batch.AppendStruct(&rows[i]); err != nil {
			_ = batch.Abort()
			return errors.Wrapf(err, "failed to append forecast row %d", i)
		}
	}

	if err := batch.Send(); err != nil {
		return errors.Wrap(err, "failed to send forecasts batch")
	}

	return nil
}

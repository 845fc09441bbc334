package forecast

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rossmann/internal/domain/forecast"
	"rossmann/internal/features"
	"rossmann/internal/metrics"
	"rossmann/internal/transformers"
	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

// Prediction sources, used as batch source and metric label.
const (
	SourceAPI     = "api"
	SourceOutlook = "outlook"
	SourceKafka   = "kafka"
)

// Model scores a feature matrix and returns one log-sales value per row.
type Model interface {
	Predict(rows [][]float64) ([]float64, error)
}

// Deps holds the optional collaborators of the service. Nil fields disable the
// feature they back.
type Deps struct {
	Source forecast.StoreDaySource
	Cache  forecast.OutlookCache
	Sinks  []forecast.Sink
}

// Config tunes the prediction adapter.
type Config struct {
	PredictTimeout time.Duration
	SinkTimeout    time.Duration
}

// Service is the prediction adapter: it runs the feature pipeline, calls the
// model and turns raw outputs back into per-store sales forecasts.
type Service struct {
	pipeline *features.Pipeline
	model    Model
	store    *transformers.Store
	deps     Deps
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates the forecast service
func NewService(pipeline *features.Pipeline, model Model, store *transformers.Store, deps Deps, cfg Config, log *logger.Logger) *Service {
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 5 * time.Second
	}
	return &Service{
		pipeline: pipeline,
		model:    model,
		store:    store,
		deps:     deps,
		cfg:      cfg,
		log:      log.With("service", "forecast"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Predict forecasts sales for every open store-date in records, in input
// order. Closed rows are dropped; an input with no open rows yields an empty
// slice. Any malformed row fails the whole request.
func (s *Service) Predict(ctx context.Context, records []forecast.Record) ([]forecast.Prediction, error) {
	return s.predict(ctx, SourceAPI, records)
}

// PredictFrom is Predict with an explicit batch source label.
func (s *Service) PredictFrom(ctx context.Context, source string, records []forecast.Record) ([]forecast.Prediction, error) {
	return s.predict(ctx, source, records)
}

func (s *Service) predict(ctx context.Context, source string, records []forecast.Record) ([]forecast.Prediction, error) {
	predictions, err := s.run(ctx, records)
	if err != nil {
		metrics.RecordPrediction(source, statusOf(err), 0)
		return nil, err
	}
	metrics.RecordPrediction(source, "success", len(predictions))

	if len(predictions) > 0 {
		s.publish(ctx, &forecast.Batch{
			ID:          uuid.New(),
			Source:      source,
			CreatedAt:   s.now(),
			Predictions: predictions,
		})
	}

	return predictions, nil
}

func (s *Service) run(ctx context.Context, records []forecast.Record) ([]forecast.Prediction, error) {
	res, err := s.pipeline.Run(records)
	if err != nil {
		return nil, err
	}

	matrix := res.Matrix
	if matrix.Len() == 0 {
		return []forecast.Prediction{}, nil
	}

	outputs, err := s.invoke(ctx, matrix.Rows)
	if err != nil {
		return nil, err
	}
	if len(outputs) != matrix.Len() {
		return nil, errors.Wrapf(errors.ErrModelInvocation, "model returned %d outputs for %d rows", len(outputs), matrix.Len())
	}

	return s.assemble(matrix, res.Survivors, outputs)
}

// invoke calls the model under the caller's context. The call itself cannot
// be interrupted; on cancellation its result is discarded.
func (s *Service) invoke(ctx context.Context, rows [][]float64) ([]float64, error) {
	if s.cfg.PredictTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PredictTimeout)
		defer cancel()
	}

	type result struct {
		out []float64
		err error
	}
	done := make(chan result, 1)

	start := time.Now()
	go func() {
		out, err := s.model.Predict(rows)
		done <- result{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, errors.Newf("%w: %w", errors.ErrModelInvocation, ctx.Err())
	case r := <-done:
		metrics.ModelLatency.Observe(time.Since(start).Seconds())
		if r.err != nil {
			if errors.Is(r.err, errors.ErrModelInvocation) {
				return nil, r.err
			}
			return nil, errors.Newf("%w: %w", errors.ErrModelInvocation, r.err)
		}
		return r.out, nil
	}
}

// assemble re-joins model outputs with the surviving rows by position.
func (s *Service) assemble(matrix *features.Matrix, survivors *features.Table, outputs []float64) ([]forecast.Prediction, error) {
	storeCol := matrix.Column(features.ColStore)
	if storeCol < 0 {
		return nil, errors.Wrap(errors.ErrTransformerMismatch, "store column missing from feature matrix")
	}
	if survivors.Len() != matrix.Len() {
		return nil, errors.Wrapf(errors.ErrTransformerMismatch, "%d surviving rows for %d feature rows", survivors.Len(), matrix.Len())
	}

	scaler := s.pipeline.Plan().StoreScaler()
	dates := survivors.Dates(features.ColDate)
	ids := survivors.Float(features.ColID)

	predictions := make([]forecast.Prediction, matrix.Len())
	for i, row := range matrix.Rows {
		p := forecast.Prediction{
			Store:          int(math.Round(scaler.InverseTransform(row[storeCol]))),
			Date:           dates[i],
			PredictedSales: math.Expm1(outputs[i]),
			Features:       make([]forecast.FeatureValue, len(row)),
		}
		if ids != nil && !math.IsNaN(ids[i]) {
			id := int64(ids[i])
			p.ID = &id
		}
		for j, v := range row {
			p.Features[j] = forecast.FeatureValue{Name: matrix.Columns[j], Value: v}
		}
		predictions[i] = p
	}

	return predictions, nil
}

// publish hands a batch to every sink. Sink failures are logged and counted
// but never reach the caller.
func (s *Service) publish(ctx context.Context, batch *forecast.Batch) {
	if len(s.deps.Sinks) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SinkTimeout)
	defer cancel()

	var failed errors.MultiError
	for _, sink := range s.deps.Sinks {
		start := time.Now()
		err := sink.Write(ctx, batch)
		metrics.RecordSinkWrite(sink.Name(), time.Since(start), err)
		if err != nil {
			failed.Add(errors.Wrapf(errors.ErrSinkUnavailable, "%s: %v", sink.Name(), err))
		}
	}

	if failed.HasErrors() {
		s.log.Warnw("Forecast sinks failed",
			"batch_id", batch.ID,
			"failed", len(failed.Errors),
			"error", failed.ToError(),
		)
	}
}

// StoreOutlook returns the six-week forecast of one store with its
// expected/best/worst band. It fails with ErrNotFound when the store has no
// upcoming rows and ErrEmptyResult when none of them is an open day.
func (s *Service) StoreOutlook(ctx context.Context, store int) (*forecast.Outlook, error) {
	if store < 1 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "store must be positive, got %d", store)
	}

	if s.deps.Cache != nil {
		cached, err := s.deps.Cache.Get(ctx, store)
		switch {
		case err == nil:
			metrics.OutlookCache.WithLabelValues("hit").Inc()
			return cached, nil
		case errors.Is(err, errors.ErrCacheMiss):
			metrics.OutlookCache.WithLabelValues("miss").Inc()
		default:
			metrics.OutlookCache.WithLabelValues("error").Inc()
			s.log.Warnw("Outlook cache read failed", "store", store, "error", err)
		}
	}

	return s.computeOutlook(ctx, store)
}

// RefreshOutlook recomputes a store's outlook and overwrites the cached copy.
func (s *Service) RefreshOutlook(ctx context.Context, store int) (*forecast.Outlook, error) {
	if store < 1 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "store must be positive, got %d", store)
	}
	return s.computeOutlook(ctx, store)
}

func (s *Service) computeOutlook(ctx context.Context, store int) (*forecast.Outlook, error) {
	if s.deps.Source == nil {
		return nil, errors.Wrap(errors.ErrUnavailable, "no store-day source configured")
	}

	records, err := s.deps.Source.StoreDays(ctx, store)
	if err != nil {
		return nil, errors.Wrapf(err, "store %d", store)
	}
	if len(records) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "store %d", store)
	}

	predictions, err := s.predict(ctx, SourceOutlook, records)
	if err != nil {
		return nil, err
	}
	if len(predictions) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyResult, "store %d has no open days", store)
	}

	outlook := s.buildOutlook(store, predictions)

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, outlook); err != nil {
			s.log.Warnw("Outlook cache write failed", "store", store, "error", err)
		}
	}

	return outlook, nil
}

func (s *Service) buildOutlook(store int, predictions []forecast.Prediction) *forecast.Outlook {
	sorted := slices.Clone(predictions)
	slices.SortStableFunc(sorted, func(a, b forecast.Prediction) int { return a.Date.Compare(b.Date) })

	mae, _ := s.store.StoreMAE(store)

	total := decimal.Zero
	days := make([]forecast.DayOutlook, len(sorted))
	for i, p := range sorted {
		total = total.Add(decimal.NewFromFloat(p.PredictedSales))
		days[i] = forecast.DayOutlook{
			Date:     p.Date.Format(forecast.DateLayout),
			Expected: p.PredictedSales,
			Best:     p.PredictedSales + mae,
			Worst:    p.PredictedSales - mae,
		}
	}

	return &forecast.Outlook{
		Store:       store,
		TotalSales:  total.Round(2),
		MAE:         mae,
		Days:        days,
		GeneratedAt: s.now(),
	}
}

// statusOf maps an error to the prediction status metric label.
func statusOf(err error) string {
	switch {
	case errors.Is(err, errors.ErrMalformedInput):
		return "malformed"
	case errors.Is(err, errors.ErrTransformerMismatch):
		return "mismatch"
	case errors.Is(err, errors.ErrModelInvocation):
		return "model_error"
	case errors.Is(err, errors.ErrEmptyResult):
		return "empty"
	default:
		return "error"
	}
}

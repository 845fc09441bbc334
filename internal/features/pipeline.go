package features

import (
	"time"

	"rossmann/internal/domain/forecast"
	"rossmann/internal/metrics"
	"rossmann/internal/transformers"
	"rossmann/pkg/logger"
)

// Pipeline turns raw store-date records into the model's feature matrix.
// It holds only the compiled, read-only plan and may be shared freely.
type Pipeline struct {
	plan *Plan
	log  *logger.Logger
}

// Result is the output of a pipeline run.
type Result struct {
	// Matrix is the model input.
	Matrix *Matrix
	// Survivors is the filtered table before preparation, row-aligned with
	// Matrix. It still carries the raw store, date and id values.
	Survivors *Table
}

// New compiles the production Preparation table against store.
func New(store *transformers.Store, opts Options, log *logger.Logger) (*Pipeline, error) {
	plan, err := Compile(store, Preparation, opts)
	if err != nil {
		return nil, err
	}
	return &Pipeline{plan: plan, log: log.With("component", "feature_pipeline")}, nil
}

// Plan returns the compiled plan.
func (p *Pipeline) Plan() *Plan { return p.plan }

// Run applies clean, derive, filter, prepare and select. Any malformed row
// fails the whole batch.
func (p *Pipeline) Run(records []forecast.Record) (*Result, error) {
	cleaned, err := timed(StageClean, func() (*Table, error) { return p.Clean(records) })
	if err != nil {
		return nil, err
	}

	derived, _ := timed(StageDerive, func() (*Table, error) { return Derive(cleaned), nil })
	filtered, _ := timed(StageFilter, func() (*Table, error) { return Filter(derived), nil })

	prepared, err := timed(StagePrepare, func() (*Table, error) { return p.Prepare(filtered) })
	if err != nil {
		return nil, err
	}

	start := time.Now()
	matrix, err := Select(prepared)
	metrics.PipelineStageDuration.WithLabelValues(StageSelect).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	p.log.Debugw("Feature pipeline finished",
		"input_rows", len(records),
		"closed_rows", cleaned.Len()-filtered.Len(),
		"feature_rows", matrix.Len(),
	)

	return &Result{Matrix: matrix, Survivors: filtered}, nil
}

func timed(stage string, fn func() (*Table, error)) (*Table, error) {
	start := time.Now()
	t, err := fn()
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.PipelineStageRows.WithLabelValues(stage).Observe(float64(t.Len()))
	}
	return t, err
}

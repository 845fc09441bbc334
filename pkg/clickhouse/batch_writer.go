package clickhouse

import (
	"context"
	"sync"
	"time"

	"rossmann/pkg/logger"
)

// FlushFunc performs the actual INSERT of one batch of rows
type FlushFunc[T any] func(ctx context.Context, rows []T) error

// FlushHook observes every flush attempt
type FlushHook func(rows int, took time.Duration, err error)

// BatchWriter accumulates rows in memory and flushes them to ClickHouse in
// batches, either when the buffer is full or when maxAge elapses.
type BatchWriter[T any] struct {
	flushFunc FlushFunc[T]
	onFlush   FlushHook
	buffer    []T
	mu        sync.Mutex
	log       *logger.Logger

	maxBatchSize int
	maxAge       time.Duration
	tableName    string

	lastFlush time.Time
	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
}

// BatchWriterConfig contains configuration for BatchWriter
type BatchWriterConfig[T any] struct {
	FlushFunc    FlushFunc[T]
	OnFlush      FlushHook // optional
	TableName    string
	MaxBatchSize int           // Default: 500
	MaxAge       time.Duration // Default: 5s
	Logger       *logger.Logger
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter[T any](cfg BatchWriterConfig[T]) *BatchWriter[T] {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 500
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	return &BatchWriter[T]{
		flushFunc:    cfg.FlushFunc,
		onFlush:      cfg.OnFlush,
		buffer:       make([]T, 0, cfg.MaxBatchSize),
		maxBatchSize: cfg.MaxBatchSize,
		maxAge:       cfg.MaxAge,
		tableName:    cfg.TableName,
		lastFlush:    time.Now(),
		stopCh:       make(chan struct{}),
		log:          log.With("component", "batch_writer", "table", cfg.TableName),
	}
}

// Start begins the background flush ticker
func (bw *BatchWriter[T]) Start(ctx context.Context) {
	bw.mu.Lock()
	if bw.running {
		bw.mu.Unlock()
		return
	}
	bw.running = true
	bw.ticker = time.NewTicker(bw.maxAge)
	bw.mu.Unlock()

	bw.wg.Add(1)
	go bw.flushLoop(ctx)

	bw.log.Infow("BatchWriter started", "max_batch_size", bw.maxBatchSize, "max_age", bw.maxAge)
}

// Add appends rows to the buffer. When the buffer reaches maxBatchSize it is
// flushed immediately on the caller's goroutine.
func (bw *BatchWriter[T]) Add(ctx context.Context, rows ...T) error {
	bw.mu.Lock()
	bw.buffer = append(bw.buffer, rows...)
	shouldFlush := len(bw.buffer) >= bw.maxBatchSize
	bw.mu.Unlock()

	if shouldFlush {
		return bw.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered rows to ClickHouse. Rows of a failed flush are
// dropped.
func (bw *BatchWriter[T]) Flush(ctx context.Context) error {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return nil
	}

	// Take ownership of current buffer so Add is not blocked during INSERT
	batch := bw.buffer
	bw.buffer = make([]T, 0, bw.maxBatchSize)
	bw.lastFlush = time.Now()
	bw.mu.Unlock()

	start := time.Now()
	err := bw.flushFunc(ctx, batch)
	took := time.Since(start)

	if bw.onFlush != nil {
		bw.onFlush(len(batch), took, err)
	}

	if err != nil {
		bw.log.Errorw("Failed to flush batch",
			"rows", len(batch),
			"took", took,
			"error", err,
		)
		return err
	}

	bw.log.Debugw("Flushed batch", "rows", len(batch), "took", took)
	return nil
}

func (bw *BatchWriter[T]) flushLoop(ctx context.Context) {
	defer bw.wg.Done()

	for {
		select {
		case <-ctx.Done():
			bw.log.Info("BatchWriter stopping, performing final flush...")
			if err := bw.Flush(context.WithoutCancel(ctx)); err != nil {
				bw.log.Errorf("Final flush failed: %v", err)
			}
			return

		case <-bw.stopCh:
			bw.log.Info("BatchWriter received stop signal, performing final flush...")
			if err := bw.Flush(context.WithoutCancel(ctx)); err != nil {
				bw.log.Errorf("Final flush failed: %v", err)
			}
			return

		case <-bw.ticker.C:
			if bw.BufferSize() > 0 {
				if err := bw.Flush(ctx); err != nil {
					bw.log.Errorf("Periodic flush failed: %v", err)
				}
			}
		}
	}
}

// Stop flushes any remaining rows and waits for the flush loop to exit
func (bw *BatchWriter[T]) Stop(ctx context.Context) error {
	bw.mu.Lock()
	if !bw.running {
		bw.mu.Unlock()
		return nil
	}
	bw.running = false
	bw.mu.Unlock()

	if bw.ticker != nil {
		bw.ticker.Stop()
	}
	close(bw.stopCh)

	done := make(chan struct{})
	go func() {
		bw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		bw.log.Info("BatchWriter stopped gracefully")
		return nil
	case <-ctx.Done():
		bw.log.Warn("BatchWriter stop timed out")
		return ctx.Err()
	}
}

// BufferSize returns the current buffer size
func (bw *BatchWriter[T]) BufferSize() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

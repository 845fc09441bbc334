package workers

import (
	"context"
	"time"

	"rossmann/internal/domain/forecast"
	"rossmann/internal/metrics"
	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

// OutlookRefresher recomputes and caches one store's outlook
type OutlookRefresher interface {
	RefreshOutlook(ctx context.Context, store int) (*forecast.Outlook, error)
}

// OutlookWarmer recomputes the outlook of every known store so bot and
// dashboard lookups are served from the cache.
type OutlookWarmer struct {
	*BaseWorker
	stores    forecast.StoreLister
	refresher OutlookRefresher
	perStore  time.Duration
}

// NewOutlookWarmer creates the cache warmer. A zero interval disables it.
func NewOutlookWarmer(
	stores forecast.StoreLister,
	refresher OutlookRefresher,
	interval time.Duration,
	perStore time.Duration,
	log *logger.Logger,
) *OutlookWarmer {
	if perStore <= 0 {
		perStore = 30 * time.Second
	}
	return &OutlookWarmer{
		BaseWorker: NewBaseWorker("outlook_warmer", max(interval, time.Second), interval > 0, log),
		stores:     stores,
		refresher:  refresher,
		perStore:   perStore,
	}
}

// Run refreshes all stores once. Stores without upcoming open days are
// skipped; other failures are counted and reported together.
func (w *OutlookWarmer) Run(ctx context.Context) error {
	start := time.Now()

	ids, err := w.stores.StoreIDs(ctx)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return errors.Wrap(err, "list stores")
	}

	var warmed, skipped int
	var errs errors.MultiError
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		storeCtx, cancel := context.WithTimeout(ctx, w.perStore)
		_, err := w.refresher.RefreshOutlook(storeCtx, id)
		cancel()

		switch {
		case err == nil:
			warmed++
			metrics.OutlookWarm.WithLabelValues("success").Inc()
		case errors.Is(err, errors.ErrNotFound), errors.Is(err, errors.ErrEmptyResult):
			skipped++
			metrics.OutlookWarm.WithLabelValues("skipped").Inc()
		default:
			errs.Add(errors.Wrapf(err, "store %d", id))
			metrics.OutlookWarm.WithLabelValues("error").Inc()
		}
	}

	took := time.Since(start)
	w.Log().Infow("Outlook cache warmed",
		"stores", len(ids),
		"warmed", warmed,
		"skipped", skipped,
		"failed", len(errs.Errors),
		"took", took,
	)

	if err := errs.ToError(); err != nil {
		w.RecordError(err, took)
		return err
	}
	w.RecordRun(took)
	return nil
}

package forecast

import (
	"context"
)

// StoreDaySource provides the upcoming store-date records for a store, already
// merged with the store master data. Returns errors.ErrNotFound when the store
// has no rows.
type StoreDaySource interface {
	StoreDays(ctx context.Context, store int) ([]Record, error)
}

// StoreLister lists the stores a StoreDaySource has upcoming days for.
type StoreLister interface {
	StoreIDs(ctx context.Context) ([]int, error)
}

// OutlookCache caches computed outlooks. Get returns errors.ErrCacheMiss when
// nothing is stored.
type OutlookCache interface {
	Get(ctx context.Context, store int) (*Outlook, error)
	Set(ctx context.Context, outlook *Outlook) error
}

// Sink receives every successful prediction batch (forecast log, event bus).
type Sink interface {
	Name() string
	Write(ctx context.Context, batch *Batch) error
}

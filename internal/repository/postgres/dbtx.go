package postgres

import (
	"context"
)

// DBTX is the subset of *sqlx.DB and *sqlx.Tx the repositories use
type DBTX interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

package postgres

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"rossmann/internal/domain/forecast"
	"rossmann/pkg/errors"
)

// storeColumns and dayColumns are the table columns in COPY order. Record
// keys use the same snake case names.
var (
	storeColumns = []string{
		"store", "store_type", "assortment", "competition_distance",
		"competition_open_since_month", "competition_open_since_year",
		"promo2", "promo2_since_week", "promo2_since_year", "promo_interval",
	}
	dayColumns = []string{
		"id", "store", "day_of_week", "date", "open",
		"promo", "state_holiday", "school_holiday",
	}
)

var schema = []string{`
	CREATE TABLE IF NOT EXISTS stores (
		store                        INTEGER PRIMARY KEY,
		store_type                   TEXT NOT NULL,
		assortment                   TEXT NOT NULL,
		competition_distance         DOUBLE PRECISION,
		competition_open_since_month DOUBLE PRECISION,
		competition_open_since_year  DOUBLE PRECISION,
		promo2                       INTEGER,
		promo2_since_week            DOUBLE PRECISION,
		promo2_since_year            DOUBLE PRECISION,
		promo_interval               TEXT
	)`, `
	CREATE TABLE IF NOT EXISTS store_days (
		id             BIGINT,
		store          INTEGER NOT NULL REFERENCES stores (store),
		day_of_week    INTEGER NOT NULL,
		date           DATE NOT NULL,
		open           DOUBLE PRECISION,
		promo          INTEGER,
		state_holiday  TEXT,
		school_holiday INTEGER,
		PRIMARY KEY (store, date)
	)`,
}

// Importer bulk loads store master data and upcoming days
type Importer struct {
	db *sqlx.DB
}

// NewImporter creates a new importer
func NewImporter(db *sqlx.DB) *Importer {
	return &Importer{db: db}
}

// Migrate creates the stores and store_days tables
func (im *Importer) Migrate(ctx context.Context) error {
	for _, ddl := range schema {
		if _, err := im.db.ExecContext(ctx, ddl); err != nil {
			return errors.Wrap(err, "failed to apply postgres schema")
		}
	}
	return nil
}

// Import replaces both tables with the given records in one transaction
func (im *Importer) Import(ctx context.Context, stores, days []forecast.Record) error {
	tx, err := im.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin import")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `TRUNCATE store_days, stores`); err != nil {
		return errors.Wrap(err, "failed to truncate tables")
	}

	if err := copyRecords(ctx, tx, "stores", storeColumns, stores); err != nil {
		return err
	}
	if err := copyRecords(ctx, tx, "store_days", dayColumns, days); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit import")
	}
	return nil
}

func copyRecords(ctx context.Context, tx *sqlx.Tx, table string, columns []string, records []forecast.Record) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return errors.Wrapf(err, "failed to prepare copy into %s", table)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, CopyValues(rec, columns)...); err != nil {
			return errors.Wrapf(err, "failed to copy %s row %d", table, i+1)
		}
	}

	// An Exec without arguments flushes the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return errors.Wrapf(err, "failed to flush copy into %s", table)
	}
	return nil
}

// CopyValues orders a record's values by columns. Blank text becomes NULL.
func CopyValues(rec forecast.Record, columns []string) []interface{} {
	values := make([]interface{}, len(columns))
	for i, col := range columns {
		v := rec[col]
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			v = nil
		}
		values[i] = v
	}
	return values
}

package postgres

import (
	"context"
	"database/sql"
	"time"

	"rossmann/internal/domain/forecast"
	"rossmann/pkg/errors"
)

// Compile-time check
var _ forecast.StoreDaySource = (*StoreDayRepository)(nil)

// storeDayRow is one upcoming day joined with the store master data
type storeDayRow struct {
	ID                        sql.NullInt64   `db:"id"`
	Store                     int64           `db:"store"`
	DayOfWeek                 int64           `db:"day_of_week"`
	Date                      time.Time       `db:"date"`
	Open                      sql.NullFloat64 `db:"open"`
	Promo                     sql.NullInt64   `db:"promo"`
	StateHoliday              sql.NullString  `db:"state_holiday"`
	SchoolHoliday             sql.NullInt64   `db:"school_holiday"`
	StoreType                 string          `db:"store_type"`
	Assortment                string          `db:"assortment"`
	CompetitionDistance       sql.NullFloat64 `db:"competition_distance"`
	CompetitionOpenSinceMonth sql.NullFloat64 `db:"competition_open_since_month"`
	CompetitionOpenSinceYear  sql.NullFloat64 `db:"competition_open_since_year"`
	Promo2                    sql.NullInt64   `db:"promo2"`
	Promo2SinceWeek           sql.NullFloat64 `db:"promo2_since_week"`
	Promo2SinceYear           sql.NullFloat64 `db:"promo2_since_year"`
	PromoInterval             sql.NullString  `db:"promo_interval"`
}

// StoreDayRepository reads upcoming store-days from the store_days and
// stores tables.
type StoreDayRepository struct {
	db DBTX
}

// NewStoreDayRepository creates a new store-day repository
func NewStoreDayRepository(db DBTX) *StoreDayRepository {
	return &StoreDayRepository{db: db}
}

// StoreDays implements forecast.StoreDaySource
func (r *StoreDayRepository) StoreDays(ctx context.Context, store int) ([]forecast.Record, error) {
	query := `
		SELECT
			d.id, d.store, d.day_of_week, d.date, d.open,
			d.promo, d.state_holiday, d.school_holiday,
			s.store_type, s.assortment, s.competition_distance,
			s.competition_open_since_month, s.competition_open_since_year,
			s.promo2, s.promo2_since_week, s.promo2_since_year, s.promo_interval
		FROM store_days d
		JOIN stores s ON s.store = d.store
		WHERE d.store = $1
		ORDER BY d.date`

	var rows []storeDayRow
	if err := r.db.SelectContext(ctx, &rows, query, store); err != nil {
		return nil, errors.Wrapf(err, "failed to load store days: store=%d", store)
	}

	if len(rows) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "store %d", store)
	}

	records := make([]forecast.Record, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

// StoreIDs implements forecast.StoreLister
func (r *StoreDayRepository) StoreIDs(ctx context.Context) ([]int, error) {
	var ids []int
	if err := r.db.SelectContext(ctx, &ids, `SELECT DISTINCT store FROM store_days ORDER BY store`); err != nil {
		return nil, errors.Wrap(err, "failed to list stores")
	}
	return ids, nil
}

func (row storeDayRow) record() forecast.Record {
	return forecast.Record{
		"id":                           nullInt(row.ID),
		"store":                        row.Store,
		"day_of_week":                  row.DayOfWeek,
		"date":                         row.Date,
		"open":                         nullFloat(row.Open),
		"promo":                        nullInt(row.Promo),
		"state_holiday":                nullString(row.StateHoliday),
		"school_holiday":               nullInt(row.SchoolHoliday),
		"store_type":                   row.StoreType,
		"assortment":                   row.Assortment,
		"competition_distance":         nullFloat(row.CompetitionDistance),
		"competition_open_since_month": nullFloat(row.CompetitionOpenSinceMonth),
		"competition_open_since_year":  nullFloat(row.CompetitionOpenSinceYear),
		"promo2":                       nullInt(row.Promo2),
		"promo2_since_week":            nullFloat(row.Promo2SinceWeek),
		"promo2_since_year":            nullFloat(row.Promo2SinceYear),
		"promo_interval":               nullString(row.PromoInterval),
	}
}

func nullInt(v sql.NullInt64) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func nullFloat(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func nullString(v sql.NullString) any {
	if !v.Valid {
		return nil
	}
	return v.String
}

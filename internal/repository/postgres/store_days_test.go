package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rossmann/pkg/errors"
)

// fakeDB serves canned rows to SelectContext
type fakeDB struct {
	rows  []storeDayRow
	err   error
	query string
	args  []interface{}
}

func (f *fakeDB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	f.query, f.args = query, args
	if f.err != nil {
		return f.err
	}
	*dest.(*[]storeDayRow) = f.rows
	return nil
}

func (f *fakeDB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sql.ErrNoRows
}

func TestStoreDayRepository_StoreDays(t *testing.T) {
	date := time.Date(2015, 9, 17, 0, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: []storeDayRow{{
		ID:                        sql.NullInt64{Int64: 1, Valid: true},
		Store:                     1,
		DayOfWeek:                 4,
		Date:                      date,
		Open:                      sql.NullFloat64{Float64: 1, Valid: true},
		StoreType:                 "c",
		Assortment:                "a",
		CompetitionDistance:       sql.NullFloat64{Float64: 1270, Valid: true},
		CompetitionOpenSinceMonth: sql.NullFloat64{Float64: 9, Valid: true},
		CompetitionOpenSinceYear:  sql.NullFloat64{Float64: 2008, Valid: true},
		Promo2:                    sql.NullInt64{Int64: 0, Valid: true},
	}}}

	records, err := NewStoreDayRepository(db).StoreDays(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, []interface{}{1}, db.args)

	rec := records[0]
	assert.Equal(t, int64(1), rec["id"])
	assert.Equal(t, int64(1), rec["store"])
	assert.Equal(t, date, rec["date"])
	assert.Equal(t, 1.0, rec["open"])
	assert.Equal(t, "c", rec["store_type"])
	assert.Equal(t, 1270.0, rec["competition_distance"])
	assert.Nil(t, rec["promo2_since_week"])
	assert.Nil(t, rec["promo_interval"])
}

func TestStoreDayRepository_UnknownStore(t *testing.T) {
	_, err := NewStoreDayRepository(&fakeDB{}).StoreDays(context.Background(), 99999)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStoreDayRepository_QueryError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewStoreDayRepository(&fakeDB{err: boom}).StoreDays(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, errors.ErrNotFound))
}

func TestCopyValues(t *testing.T) {
	rec := map[string]any{
		"store":             "3",
		"store_type":        "a",
		"promo2_since_week": "",
		"promo_interval":    "Jan,Apr,Jul,Oct",
	}

	values := CopyValues(rec, []string{"store", "store_type", "promo2_since_week", "promo_interval", "missing"})
	assert.Equal(t, []interface{}{"3", "a", nil, "Jan,Apr,Jul,Oct", nil}, values)
}

package features

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rossmann/internal/domain/forecast"
	"rossmann/pkg/errors"
)

func TestClean_NormalizesColumnsAndTypes(t *testing.T) {
	p := newTestPipeline(t, OverflowFail)

	table, err := p.Clean([]forecast.Record{storeOne()})
	require.NoError(t, err)

	assert.Equal(t, 1, table.Len())
	for _, column := range requiredColumns {
		assert.True(t, table.Has(column), column)
	}
	assert.Equal(t, requiredColumns, table.Columns()[:len(requiredColumns)])

	assert.Equal(t, []float64{1}, table.Float(ColStore))
	assert.Equal(t, []string{"c"}, table.Text(ColStoreType))
	assert.Equal(t, []time.Time{time.Date(2015, 9, 17, 0, 0, 0, 0, time.UTC)}, table.Dates(ColDate))
	assert.True(t, math.IsNaN(table.Float(ColPromo2SinceWeek)[0]))
	assert.Equal(t, []float64{1}, table.Float(ColID))
}

func TestClean_MixedKeyCasing(t *testing.T) {
	p := newTestPipeline(t, OverflowFail)

	snake := forecast.Record{}
	for k, v := range storeOne() {
		snake[SnakeCase(k)] = v
	}

	a, err := p.Clean([]forecast.Record{storeOne()})
	require.NoError(t, err)
	b, err := p.Clean([]forecast.Record{snake})
	require.NoError(t, err)

	assert.Equal(t, a.Columns(), b.Columns())
	assert.Equal(t, a.Float(ColCompetitionDistance), b.Float(ColCompetitionDistance))
}

func TestClean_ImputesCompetitionDistance(t *testing.T) {
	p := newTestPipeline(t, OverflowFail)

	table, err := p.Clean([]forecast.Record{
		with(storeOne(), "CompetitionDistance", nil),
		with(storeOne(), "CompetitionDistance", "NaN"),
		with(storeOne(), "CompetitionDistance", json.Number("570")),
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{2325, 2325, 570}, table.Float(ColCompetitionDistance))
}

func TestClean_DateLayouts(t *testing.T) {
	p := newTestPipeline(t, OverflowFail)

	table, err := p.Clean([]forecast.Record{
		with(storeOne(), "Date", "2015-09-17T13:45:00Z"),
		with(storeOne(), "Date", "2015-09-17 23:59:59"),
		with(storeOne(), "Date", time.Date(2015, 9, 17, 8, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	want := time.Date(2015, 9, 17, 0, 0, 0, 0, time.UTC)
	for _, d := range table.Dates(ColDate) {
		assert.Equal(t, want, d)
	}
}

func TestClean_DoesNotMutateInput(t *testing.T) {
	p := newTestPipeline(t, OverflowFail)

	rec := storeOne()
	before := with(rec)

	_, err := p.Clean([]forecast.Record{rec})
	require.NoError(t, err)
	assert.Equal(t, before, rec)
}

func TestClean_Empty(t *testing.T) {
	p := newTestPipeline(t, OverflowFail)

	table, err := p.Clean(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.True(t, table.Has(ColOpen))
}

func TestClean_Malformed(t *testing.T) {
	p := newTestPipeline(t, OverflowFail)

	missingDate := with(storeOne())
	delete(missingDate, "Date")

	tests := []struct {
		name   string
		record forecast.Record
		row    int
		column string
	}{
		{"unparseable date", with(storeOne(), "Date", "17/09/2015"), 1, ColDate},
		{"date of wrong type", with(storeOne(), "Date", 20150917.0), 1, ColDate},
		{"non-numeric distance", with(storeOne(), "CompetitionDistance", "far"), 1, ColCompetitionDistance},
		{"fractional store", with(storeOne(), "Store", 1.5), 1, ColStore},
		{"zero store", with(storeOne(), "Store", 0.0), 1, ColStore},
		{"day of week out of range", with(storeOne(), "DayOfWeek", 8.0), 1, ColDayOfWeek},
		{"colliding keys", with(storeOne(), "store", 2.0), 1, ColStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Clean([]forecast.Record{storeOne(), tt.record})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrMalformedInput), err.Error())

			var se *StageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, StageClean, se.Stage)
			assert.Equal(t, tt.column, se.Column)
			assert.Equal(t, tt.row, se.Row)
		})
	}

	t.Run("missing required column", func(t *testing.T) {
		_, err := p.Clean([]forecast.Record{missingDate})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrMalformedInput))

		var se *StageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, ColDate, se.Column)
		assert.Equal(t, -1, se.Row)
	})

	t.Run("missing value in a column other rows carry", func(t *testing.T) {
		_, err := p.Clean([]forecast.Record{storeOne(), missingDate})
		assert.True(t, errors.Is(err, errors.ErrMalformedInput))
	})
}

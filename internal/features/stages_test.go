package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rossmann/internal/domain/forecast"
)

func TestDerive_CalendarFeatures(t *testing.T) {
	p := newTestPipeline(t, OverflowFail)

	cleaned, err := p.Clean([]forecast.Record{
		storeOne(),
		with(storeOne(), "Date", "2016-12-31", "DayOfWeek", 6.0),
		with(storeOne(), "Date", "2015-09-20", "DayOfWeek", 7.0),
	})
	require.NoError(t, err)

	derived := Derive(cleaned)

	assert.Equal(t, cleaned.Len(), derived.Len())
	assert.Equal(t, []float64{17, 31, 20}, derived.Float(ColDayOfMonth))
	assert.Equal(t, []float64{260, 366, 263}, derived.Float(ColDayOfYear))
	assert.Equal(t, []float64{9, 12, 9}, derived.Float(ColMonth))
	assert.Equal(t, []float64{4, 6, 0}, derived.Float(ColDayOfWeek))

	// input table is left alone
	assert.Equal(t, []float64{4, 6, 7}, cleaned.Float(ColDayOfWeek))
	assert.False(t, cleaned.Has(ColMonth))
}

func TestFilter_DropsClosedRows(t *testing.T) {
	p := newTestPipeline(t, OverflowFail)

	cleaned, err := p.Clean([]forecast.Record{
		with(storeOne(), "Open", 0.0, "Date", "2015-09-16"),
		storeOne(),
		with(storeOne(), "Open", nil, "Date", "2015-09-15"),
		with(storeOne(), "Open", "1", "Date", "2015-09-14"),
	})
	require.NoError(t, err)

	filtered := Filter(Derive(cleaned))

	assert.Equal(t, 2, filtered.Len())
	assert.False(t, filtered.Has(ColOpen))
	assert.Equal(t, []int{1, 3}, filtered.Origins())
	assert.Equal(t, "2015-09-17", filtered.Dates(ColDate)[0].Format(forecast.DateLayout))
	assert.Equal(t, "2015-09-14", filtered.Dates(ColDate)[1].Format(forecast.DateLayout))
}

func TestFilter_AllClosed(t *testing.T) {
	p := newTestPipeline(t, OverflowFail)

	cleaned, err := p.Clean([]forecast.Record{with(storeOne(), "Open", 0.0)})
	require.NoError(t, err)

	filtered := Filter(Derive(cleaned))
	assert.Equal(t, 0, filtered.Len())
	assert.Empty(t, filtered.Float(ColStore))
}

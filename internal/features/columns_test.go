package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Store", "store"},
		{"DayOfWeek", "day_of_week"},
		{"CompetitionDistance", "competition_distance"},
		{"CompetitionOpenSinceMonth", "competition_open_since_month"},
		{"Promo2SinceWeek", "promo2_since_week"},
		{"Promo2", "promo2"},
		{"StateHoliday", "state_holiday"},
		{"competition_distance", "competition_distance"},
		{"Store Type", "store_type"},
		{"store-type", "store_type"},
		{"  Open ", "open"},
		{"HTTPServer", "http_server"},
		{"Id", "id"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SnakeCase(tt.in))
		})
	}
}

func TestFeatureColumns_Contract(t *testing.T) {
	assert.Len(t, FeatureColumns, 15)
	assert.NotContains(t, FeatureColumns, "month_sin")
	assert.Equal(t, "store", FeatureColumns[0])
	assert.Equal(t, "month_cos", FeatureColumns[12])
	assert.Equal(t, "day_of_week_cos", FeatureColumns[14])
}

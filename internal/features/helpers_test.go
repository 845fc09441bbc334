package features

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rossmann/internal/domain/forecast"
	"rossmann/internal/transformers"
	"rossmann/pkg/logger"
)

const artefactPath = "../../configs/transformers.yaml"

func newTestPipeline(t *testing.T, policy OverflowPolicy) *Pipeline {
	t.Helper()

	store, err := transformers.Load(artefactPath)
	require.NoError(t, err)

	p, err := New(store, Options{Overflow: policy}, logger.Nop())
	require.NoError(t, err)
	return p
}

// storeOne is the first row of the Kaggle test set, as the dashboard sends it.
func storeOne() forecast.Record {
	return forecast.Record{
		"Id":                        1.0,
		"Store":                     1.0,
		"DayOfWeek":                 4.0,
		"Date":                      "2015-09-17",
		"Open":                      1.0,
		"Promo":                     1.0,
		"StateHoliday":              "0",
		"SchoolHoliday":             0.0,
		"StoreType":                 "c",
		"Assortment":                "a",
		"CompetitionDistance":       1270.0,
		"CompetitionOpenSinceMonth": 9.0,
		"CompetitionOpenSinceYear":  2008.0,
		"Promo2":                    0.0,
		"Promo2SinceWeek":           nil,
		"Promo2SinceYear":           nil,
		"PromoInterval":             nil,
	}
}

func with(rec forecast.Record, kv ...any) forecast.Record {
	out := make(forecast.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

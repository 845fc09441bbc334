package transformers

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rossmann/pkg/errors"
)

const testArtefact = `
version: test
imputers:
  competition_distance: {strategy: median, statistic: 2325}
  promo2_since_week: {strategy: constant, statistic: 0}
scalers:
  store: {kind: min_max, data_min: 1, data_max: 1115}
  promo2_since_week: {kind: robust, center: 22, scale: 24}
  promo2_since_year: {kind: standard, center: 2011.7, scale: 1.67}
store_mae:
  1: 262.41
`

func TestParse_Defaults(t *testing.T) {
	s, err := Parse([]byte(testArtefact))
	require.NoError(t, err)

	assert.Equal(t, "test", s.Version())

	edges, ok := s.BinEdges("competition_distance")
	require.True(t, ok)
	assert.Equal(t, BinEdges{0, 50, 100, 500, 1000, 5000, 15000, 100000}, edges)

	cm, ok := s.CategoryMap("store_type")
	require.True(t, ok)
	assert.Equal(t, CategoryMap{"a": 0, "d": 1, "c": 2, "b": 3}, cm)

	rl, ok := s.Relabel("assortment")
	require.True(t, ok)
	label, ok := rl.Label("b")
	require.True(t, ok)
	assert.Equal(t, "extra", label)

	mae, ok := s.StoreMAE(1)
	require.True(t, ok)
	assert.InDelta(t, 262.41, mae, 1e-9)

	_, ok = s.Scaler("competition_open_since_month")
	assert.False(t, ok)
}

func TestParse_GettersReturnCopies(t *testing.T) {
	s, err := Parse([]byte(testArtefact))
	require.NoError(t, err)

	edges, _ := s.BinEdges("competition_distance")
	edges[0] = -1
	cm, _ := s.CategoryMap("store_type")
	cm["z"] = 9

	again, _ := s.BinEdges("competition_distance")
	assert.Equal(t, 0.0, again[0])
	fresh, _ := s.CategoryMap("store_type")
	_, ok := fresh.Code("z")
	assert.False(t, ok)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		artefact string
	}{
		{"unknown imputer strategy", "imputers:\n  store: {strategy: knn, statistic: 1}\n"},
		{"unknown scaler kind", "scalers:\n  store: {kind: quantile}\n"},
		{"inverted min max", "scalers:\n  store: {kind: min_max, data_min: 10, data_max: 1}\n"},
		{"bad feature range", "scalers:\n  store: {kind: min_max, data_min: 1, data_max: 2, feature_range: [1, 0]}\n"},
		{"unsorted bin edges", "bin_edges:\n  competition_distance: [0, 100, 50]\n"},
		{"too few bin edges", "bin_edges:\n  competition_distance: [0, 100]\n"},
		{"duplicate codes", "category_maps:\n  store_type: {a: 0, b: 0}\n"},
		{"relabel target missing", "relabels:\n  assortment: {a: premium}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.artefact))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrTransformerMismatch), "got %v", err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transformers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testArtefact), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	_, ok := s.Imputer("competition_distance")
	assert.True(t, ok)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ShippedArtefact(t *testing.T) {
	s, err := Load("../../configs/transformers.yaml")
	require.NoError(t, err)

	for _, column := range []string{"store", "competition_open_since_month", "promo2_since_week", "promo2_since_year"} {
		_, ok := s.Scaler(column)
		assert.True(t, ok, column)
	}
}

func TestScaler_RoundTripStoreIDs(t *testing.T) {
	s, err := Parse([]byte(testArtefact))
	require.NoError(t, err)

	for _, column := range []string{"store", "promo2_since_week", "promo2_since_year"} {
		sc, ok := s.Scaler(column)
		require.True(t, ok)
		for store := 1; store <= 1115; store++ {
			got := sc.InverseTransform(sc.Transform(float64(store)))
			require.InDelta(t, float64(store), got, 1e-6, "%s store %d", column, store)
		}
	}
}

func TestScaler_MinMaxMatchesReference(t *testing.T) {
	sc := Scaler{Kind: ScalerMinMax, DataMin: 1, DataMax: 1115}
	require.NoError(t, sc.compile("store"))

	assert.InDelta(t, 0.0, sc.Transform(1), 1e-12)
	assert.InDelta(t, 1.0, sc.Transform(1115), 1e-12)
	assert.InDelta(t, 557.0/1114.0, sc.Transform(558), 1e-12)

	constant := Scaler{Kind: ScalerMinMax, DataMin: 5, DataMax: 5}
	require.NoError(t, constant.compile("flat"))
	assert.InDelta(t, 0.0, constant.Transform(5), 1e-12)
}

func TestImputer_Transform(t *testing.T) {
	imp := Imputer{Strategy: StrategyMedian, Statistic: 2325}
	assert.Equal(t, 2325.0, imp.Transform(math.NaN()))
	assert.Equal(t, 570.0, imp.Transform(570))
}

func TestBinEdges_Bucket(t *testing.T) {
	edges := BinEdges{0, 50, 100, 500, 1000, 5000, 15000, 100000}

	tests := []struct {
		value  float64
		bucket int
		ok     bool
	}{
		{0, 0, false},
		{1, 0, true},
		{50, 0, true},
		{50.5, 1, true},
		{1270, 4, true},
		{100000, 6, true},
		{100001, 0, false},
		{math.NaN(), 0, false},
	}
	for _, tt := range tests {
		idx, ok := edges.Bucket(tt.value)
		assert.Equal(t, tt.ok, ok, "value %v", tt.value)
		if tt.ok {
			assert.Equal(t, tt.bucket, idx, "value %v", tt.value)
		}
	}

	assert.Equal(t, 0, edges.Clamp(-5))
	assert.Equal(t, 6, edges.Clamp(250000))
	assert.InDelta(t, 2.0, edges.Normalize(6), 1e-12)
	assert.InDelta(t, 4.0/3.0, edges.Normalize(4), 1e-12)
}

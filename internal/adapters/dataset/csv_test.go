package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

const storeCSV = `Store,StoreType,Assortment,CompetitionDistance,CompetitionOpenSinceMonth,CompetitionOpenSinceYear,Promo2,Promo2SinceWeek,Promo2SinceYear,PromoInterval
1,c,a,1270,9,2008,0,,,
3,a,a,14130,12,2006,1,14,2011,"Jan,Apr,Jul,Oct"
`

const testCSV = `Id,Store,DayOfWeek,Date,Open,Promo,StateHoliday,SchoolHoliday
1,1,4,2015-09-17,1.0,1,0,0
2,3,4,2015-09-17,1.0,1,0,0
3,7,4,2015-09-17,1.0,1,0,0
857,1,3,2015-09-16,1.0,1,0,0
`

func writeFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	testPath := filepath.Join(dir, "test.csv")
	storePath := filepath.Join(dir, "store.csv")
	require.NoError(t, os.WriteFile(testPath, []byte(testCSV), 0o644))
	require.NoError(t, os.WriteFile(storePath, []byte(storeCSV), 0o644))
	return testPath, storePath
}

func TestRead(t *testing.T) {
	records, err := Read(strings.NewReader(storeCSV))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "1", records[0]["store"])
	assert.Equal(t, "c", records[0]["store_type"])
	assert.Equal(t, "", records[0]["promo2_since_week"])
	assert.Equal(t, "Jan,Apr,Jul,Oct", records[1]["promo_interval"])
}

func TestRead_Empty(t *testing.T) {
	records, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRead_RaggedRow(t *testing.T) {
	_, err := Read(strings.NewReader("Store,Date\n1\n"))
	assert.True(t, errors.Is(err, errors.ErrMalformedInput))
}

func TestLoad(t *testing.T) {
	testPath, storePath := writeFiles(t)

	ds, err := Load(testPath, storePath, logger.Nop())
	require.NoError(t, err)

	// store 7 has no master data and is dropped
	assert.Equal(t, []int{1, 3}, ds.Stores())
	assert.Len(t, ds.StoreRecords(), 2)
	assert.Len(t, ds.DayRecords(), 3)

	days, err := ds.StoreDays(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2015-09-17", days[0]["date"])
	assert.Equal(t, "1270", days[0]["competition_distance"])
	assert.Equal(t, "1", days[0]["id"])
	assert.Equal(t, "857", days[1]["id"])
}

func TestStoreDays_ReturnsCopies(t *testing.T) {
	testPath, storePath := writeFiles(t)
	ds, err := Load(testPath, storePath, logger.Nop())
	require.NoError(t, err)

	days, err := ds.StoreDays(context.Background(), 3)
	require.NoError(t, err)
	days[0]["store_type"] = "z"

	again, err := ds.StoreDays(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "a", again[0]["store_type"])
}

func TestStoreDays_UnknownStore(t *testing.T) {
	testPath, storePath := writeFiles(t)
	ds, err := Load(testPath, storePath, logger.Nop())
	require.NoError(t, err)

	_, err = ds.StoreDays(context.Background(), 7)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("does/not/exist.csv", "nope.csv", logger.Nop())
	assert.Error(t, err)
}

func TestMerge_DuplicateStore(t *testing.T) {
	stores, err := Read(strings.NewReader("Store,StoreType\n1,a\n1,b\n"))
	require.NoError(t, err)

	_, _, err = Merge(nil, stores)
	assert.True(t, errors.Is(err, errors.ErrMalformedInput))
}

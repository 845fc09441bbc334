package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"rossmann/internal/domain/forecast"
	"rossmann/internal/features"
	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

// Dataset is the Kaggle test.csv joined with store.csv, indexed by store.
// It serves as store-day source when no database is configured.
type Dataset struct {
	stores map[int]forecast.Record
	days   map[int][]forecast.Record
	order  []int
}

// Compile-time check
var _ forecast.StoreDaySource = (*Dataset)(nil)

// Load reads both files and inner joins them on store. Header names are
// normalized to snake case; cell values are kept as text.
func Load(testPath, storePath string, log *logger.Logger) (*Dataset, error) {
	stores, err := ReadFile(storePath)
	if err != nil {
		return nil, err
	}
	days, err := ReadFile(testPath)
	if err != nil {
		return nil, err
	}

	ds, dropped, err := Merge(days, stores)
	if err != nil {
		return nil, err
	}

	log.Infow("Dataset loaded",
		"test_path", testPath,
		"store_path", storePath,
		"stores", len(ds.order),
		"rows", len(days)-dropped,
		"dropped", dropped,
	)
	return ds, nil
}

// Merge joins day records with store records on store. Days of stores absent
// from stores are dropped and counted.
func Merge(days, stores []forecast.Record) (*Dataset, int, error) {
	ds := &Dataset{
		stores: make(map[int]forecast.Record, len(stores)),
		days:   make(map[int][]forecast.Record),
	}

	for i, rec := range stores {
		id, err := storeID(rec)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "store file row %d", i+1)
		}
		if _, dup := ds.stores[id]; dup {
			return nil, 0, errors.Wrapf(errors.ErrMalformedInput, "store file row %d: duplicate store %d", i+1, id)
		}
		ds.stores[id] = rec
	}

	dropped := 0
	for i, rec := range days {
		id, err := storeID(rec)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "test file row %d", i+1)
		}
		master, ok := ds.stores[id]
		if !ok {
			dropped++
			continue
		}

		merged := make(forecast.Record, len(rec)+len(master))
		maps.Copy(merged, master)
		maps.Copy(merged, rec)

		if _, seen := ds.days[id]; !seen {
			ds.order = append(ds.order, id)
		}
		ds.days[id] = append(ds.days[id], merged)
	}

	return ds, dropped, nil
}

// StoreDays implements forecast.StoreDaySource
func (ds *Dataset) StoreDays(ctx context.Context, store int) ([]forecast.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	days, ok := ds.days[store]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "store %d", store)
	}

	out := make([]forecast.Record, len(days))
	for i, rec := range days {
		out[i] = maps.Clone(rec)
	}
	return out, nil
}

// Stores lists the stores having upcoming days, in file order
func (ds *Dataset) Stores() []int {
	return slices.Clone(ds.order)
}

// StoreIDs implements forecast.StoreLister
func (ds *Dataset) StoreIDs(ctx context.Context) ([]int, error) {
	return ds.Stores(), nil
}

// DayRecords returns every merged day, grouped by store in file order
func (ds *Dataset) DayRecords() []forecast.Record {
	var out []forecast.Record
	for _, id := range ds.order {
		out = append(out, ds.days[id]...)
	}
	return out
}

// StoreRecords returns the store master data, ordered by store
func (ds *Dataset) StoreRecords() []forecast.Record {
	ids := slices.Sorted(maps.Keys(ds.stores))
	out := make([]forecast.Record, len(ids))
	for i, id := range ids {
		out[i] = ds.stores[id]
	}
	return out
}

// ReadFile reads a CSV file with a header row into records
func ReadFile(path string) ([]forecast.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return records, nil
}

// Read parses CSV with a header row. Every record carries every column.
func Read(r io.Reader) ([]forecast.Record, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedInput, "header: %v", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = features.SnakeCase(strings.TrimPrefix(name, "\ufeff"))
	}

	var records []forecast.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(errors.ErrMalformedInput, "%v", err)
		}

		rec := make(forecast.Record, len(columns))
		for i, col := range columns {
			rec[col] = row[i]
		}
		records = append(records, rec)
	}

	return records, nil
}

func storeID(rec forecast.Record) (int, error) {
	raw, _ := rec[features.ColStore].(string)
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.Wrapf(errors.ErrMalformedInput, "invalid store %q", raw)
	}
	return id, nil
}

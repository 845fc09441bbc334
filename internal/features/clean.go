package features

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"rossmann/internal/domain/forecast"
	"rossmann/pkg/errors"
)

// dateLayouts are tried in order. Only the calendar date is kept.
var dateLayouts = []string{
	forecast.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// missingTokens are string spellings of a missing value found in CSV exports.
var missingTokens = map[string]struct{}{
	"": {}, "nan": {}, "na": {}, "null": {}, "none": {},
}

// Clean normalizes column names, types every column, parses dates and fills
// missing competition distances. The caller's records are only read.
func (p *Pipeline) Clean(records []forecast.Record) (*Table, error) {
	origins := make([]int, len(records))
	for i := range records {
		origins[i] = i
	}
	t := newTable(origins)

	if len(records) == 0 {
		for _, column := range requiredColumns {
			switch knownKinds[column] {
			case kindDate:
				t.setDates(column, []time.Time{})
			case kindText:
				t.setText(column, []string{})
			default:
				t.setFloat(column, []float64{})
			}
		}
		return t, nil
	}

	rows, columns, err := normalizeKeys(records)
	if err != nil {
		return nil, err
	}

	for _, column := range requiredColumns {
		if !slices.Contains(columns, column) {
			return nil, stageErr(StageClean, -1, column, errors.Wrap(errors.ErrMalformedInput, "missing required column"))
		}
	}

	for _, column := range columns {
		kind, known := knownKinds[column]
		if !known {
			kind = kindText
		}

		switch kind {
		case kindDate:
			values := make([]time.Time, len(rows))
			for i, row := range rows {
				d, err := toDate(row[column])
				if err != nil {
					return nil, stageErr(StageClean, i, column, err)
				}
				values[i] = d
			}
			t.setDates(column, values)
		case kindText:
			values := make([]string, len(rows))
			for i, row := range rows {
				values[i] = toText(row[column])
			}
			t.setText(column, values)
		default:
			values := make([]float64, len(rows))
			for i, row := range rows {
				v, err := toFloat(row[column])
				if err != nil {
					return nil, stageErr(StageClean, i, column, err)
				}
				values[i] = v
			}
			t.setFloat(column, values)
		}
	}

	if err := validateIdentifiers(t); err != nil {
		return nil, err
	}

	distance := t.Float(ColCompetitionDistance)
	for i, v := range distance {
		distance[i] = p.plan.distanceImputer.Transform(v)
	}

	return t, nil
}

// normalizeKeys snake-cases every key and returns the rows plus the column
// set: required columns first, then the rest in lexical order.
func normalizeKeys(records []forecast.Record) ([]map[string]any, []string, error) {
	rows := make([]map[string]any, len(records))
	seen := make(map[string]struct{})

	for i, rec := range records {
		row := make(map[string]any, len(rec))
		for key, value := range rec {
			name := SnakeCase(key)
			if name == "" {
				continue
			}
			if _, dup := row[name]; dup {
				return nil, nil, stageErr(StageClean, i, name,
					errors.Wrapf(errors.ErrMalformedInput, "field %q collides with another field after normalization", key))
			}
			row[name] = value
			seen[name] = struct{}{}
		}
		rows[i] = row
	}

	columns := make([]string, 0, len(seen))
	for _, column := range requiredColumns {
		if _, ok := seen[column]; ok {
			columns = append(columns, column)
			delete(seen, column)
		}
	}
	rest := make([]string, 0, len(seen))
	for column := range seen {
		rest = append(rest, column)
	}
	slices.Sort(rest)

	return rows, append(columns, rest...), nil
}

// validateIdentifiers enforces the shape of the identifying fields: a
// positive integer store and a 1..7 day-of-week code.
func validateIdentifiers(t *Table) error {
	for i, v := range t.Float(ColStore) {
		if math.IsNaN(v) || v < 1 || v != math.Trunc(v) {
			return stageErr(StageClean, t.origins[i], ColStore,
				errors.Wrapf(errors.ErrMalformedInput, "store must be a positive integer, got %v", v))
		}
	}
	for i, v := range t.Float(ColDayOfWeek) {
		if math.IsNaN(v) || v < 1 || v > 7 || v != math.Trunc(v) {
			return stageErr(StageClean, t.origins[i], ColDayOfWeek,
				errors.Wrapf(errors.ErrMalformedInput, "day_of_week must be 1..7, got %v", v))
		}
	}
	return nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, errors.Wrapf(errors.ErrMalformedInput, "not a number: %q", x.String())
		}
		return f, nil
	case string:
		s := strings.TrimSpace(x)
		if _, missing := missingTokens[strings.ToLower(s)]; missing {
			return math.NaN(), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Wrapf(errors.ErrMalformedInput, "not a number: %q", x)
		}
		return f, nil
	default:
		return 0, errors.Wrapf(errors.ErrMalformedInput, "unsupported value type %T", v)
	}
}

func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func toDate(v any) (time.Time, error) {
	var parsed time.Time
	switch x := v.(type) {
	case time.Time:
		parsed = x
	case string:
		s := strings.TrimSpace(x)
		ok := false
		for _, layout := range dateLayouts {
			d, err := time.Parse(layout, s)
			if err == nil {
				parsed, ok = d, true
				break
			}
		}
		if !ok {
			return time.Time{}, errors.Wrapf(errors.ErrMalformedInput, "unparseable date %q", x)
		}
	default:
		return time.Time{}, errors.Wrapf(errors.ErrMalformedInput, "unparseable date %v", v)
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
}

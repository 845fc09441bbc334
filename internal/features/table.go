package features

import (
	"slices"
	"time"
)

// Table is a column-oriented batch of store-date rows private to one request.
// Every stage returns a new Table; none mutates its input.
type Table struct {
	columns []string
	numeric map[string][]float64
	text    map[string][]string
	dates   map[string][]time.Time

	// origins[i] is the position of row i in the caller's input
	origins []int
}

func newTable(origins []int) *Table {
	return &Table{
		numeric: make(map[string][]float64),
		text:    make(map[string][]string),
		dates:   make(map[string][]time.Time),
		origins: origins,
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.origins) }

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Has reports whether the table carries column.
func (t *Table) Has(column string) bool {
	return slices.Contains(t.columns, column)
}

// Float returns the numeric column, or nil.
func (t *Table) Float(column string) []float64 { return t.numeric[column] }

// Text returns the text column, or nil.
func (t *Table) Text(column string) []string { return t.text[column] }

// Dates returns the date column, or nil.
func (t *Table) Dates(column string) []time.Time { return t.dates[column] }

// Origins returns, for each row, its index in the caller's input.
func (t *Table) Origins() []int { return slices.Clone(t.origins) }

func (t *Table) setFloat(column string, values []float64) {
	t.touch(column)
	delete(t.text, column)
	t.numeric[column] = values
}

func (t *Table) setText(column string, values []string) {
	t.touch(column)
	delete(t.numeric, column)
	t.text[column] = values
}

func (t *Table) setDates(column string, values []time.Time) {
	t.touch(column)
	t.dates[column] = values
}

func (t *Table) touch(column string) {
	if !slices.Contains(t.columns, column) {
		t.columns = append(t.columns, column)
	}
}

func (t *Table) drop(column string) {
	t.columns = slices.DeleteFunc(t.columns, func(c string) bool { return c == column })
	delete(t.numeric, column)
	delete(t.text, column)
	delete(t.dates, column)
}

func (t *Table) clone() *Table {
	c := newTable(slices.Clone(t.origins))
	c.columns = slices.Clone(t.columns)
	for k, v := range t.numeric {
		c.numeric[k] = slices.Clone(v)
	}
	for k, v := range t.text {
		c.text[k] = slices.Clone(v)
	}
	for k, v := range t.dates {
		c.dates[k] = slices.Clone(v)
	}
	return c
}

// filter returns a new table holding the rows for which keep is true.
func (t *Table) filter(keep []bool) *Table {
	origins := make([]int, 0, len(t.origins))
	for i, o := range t.origins {
		if keep[i] {
			origins = append(origins, o)
		}
	}

	c := newTable(origins)
	c.columns = slices.Clone(t.columns)
	for k, v := range t.numeric {
		c.numeric[k] = pick(v, keep, len(origins))
	}
	for k, v := range t.text {
		c.text[k] = pick(v, keep, len(origins))
	}
	for k, v := range t.dates {
		c.dates[k] = pick(v, keep, len(origins))
	}
	return c
}

func pick[T any](values []T, keep []bool, n int) []T {
	out := make([]T, 0, n)
	for i, v := range values {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out
}

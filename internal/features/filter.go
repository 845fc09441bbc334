package features

// Filter keeps the rows of stores that are trading (open == 1) and drops the
// open column. A missing open flag counts as closed.
func Filter(t *Table) *Table {
	open := t.Float(ColOpen)
	keep := make([]bool, len(open))
	for i, v := range open {
		keep[i] = v == 1
	}

	out := t.filter(keep)
	out.drop(ColOpen)
	return out
}

package features

// Derive adds day_of_month, day_of_year and month from the date and remaps
// day_of_week so Sunday (7) becomes 0. No rows are dropped.
func Derive(t *Table) *Table {
	out := t.clone()
	dates := out.Dates(ColDate)

	dayOfMonth := make([]float64, len(dates))
	dayOfYear := make([]float64, len(dates))
	month := make([]float64, len(dates))
	for i, d := range dates {
		dayOfMonth[i] = float64(d.Day())
		dayOfYear[i] = float64(d.YearDay())
		month[i] = float64(d.Month())
	}
	out.setFloat(ColDayOfMonth, dayOfMonth)
	out.setFloat(ColDayOfYear, dayOfYear)
	out.setFloat(ColMonth, month)

	dow := out.Float(ColDayOfWeek)
	for i, v := range dow {
		dow[i] = remapDayOfWeek(v)
	}

	return out
}

// remapDayOfWeek maps the dataset's Monday=1..Sunday=7 onto Sunday=0..Saturday=6.
func remapDayOfWeek(v float64) float64 {
	if v == 7 {
		return 0
	}
	return v
}

package features

import (
	"strings"
	"unicode"
)

// Canonical column names after cleaning.
const (
	ColStore                     = "store"
	ColDate                      = "date"
	ColDayOfWeek                 = "day_of_week"
	ColOpen                      = "open"
	ColStoreType                 = "store_type"
	ColAssortment                = "assortment"
	ColCompetitionDistance       = "competition_distance"
	ColCompetitionOpenSinceMonth = "competition_open_since_month"
	ColCompetitionOpenSinceYear  = "competition_open_since_year"
	ColPromo2SinceWeek           = "promo2_since_week"
	ColPromo2SinceYear           = "promo2_since_year"
	ColID                        = "id"

	ColDayOfMonth = "day_of_month"
	ColDayOfYear  = "day_of_year"
	ColMonth      = "month"
)

// FeatureColumns is the exact column order the model was trained with.
// month_sin is produced by the cyclic step but is not a model input.
var FeatureColumns = []string{
	"store",
	"store_type",
	"assortment",
	"competition_distance",
	"competition_open_since_month",
	"competition_open_since_year",
	"promo2_since_week",
	"promo2_since_year",
	"day_of_month_sin",
	"day_of_month_cos",
	"day_of_year_sin",
	"day_of_year_cos",
	"month_cos",
	"day_of_week_sin",
	"day_of_week_cos",
}

type columnKind int

const (
	kindNumeric columnKind = iota
	kindText
	kindDate
)

// requiredColumns must be present in a non-empty input.
var requiredColumns = []string{
	ColStore,
	ColDate,
	ColDayOfWeek,
	ColOpen,
	ColStoreType,
	ColAssortment,
	ColCompetitionDistance,
	ColCompetitionOpenSinceMonth,
	ColCompetitionOpenSinceYear,
	ColPromo2SinceWeek,
	ColPromo2SinceYear,
}

// knownKinds types the raw dataset columns. Columns not listed here are
// carried as text and never reach the model.
var knownKinds = map[string]columnKind{
	ColStore:                     kindNumeric,
	ColDate:                      kindDate,
	ColDayOfWeek:                 kindNumeric,
	ColOpen:                      kindNumeric,
	ColStoreType:                 kindText,
	ColAssortment:                kindText,
	ColCompetitionDistance:       kindNumeric,
	ColCompetitionOpenSinceMonth: kindNumeric,
	ColCompetitionOpenSinceYear:  kindNumeric,
	ColPromo2SinceWeek:           kindNumeric,
	ColPromo2SinceYear:           kindNumeric,
	ColID:                        kindNumeric,
	"promo":                      kindNumeric,
	"promo2":                     kindNumeric,
	"school_holiday":             kindNumeric,
	"state_holiday":              kindText,
	"promo_interval":             kindText,
	"customers":                  kindNumeric,
	"sales":                      kindNumeric,
}

// SnakeCase normalizes a column name to lower-case underscore form:
// CompetitionDistance -> competition_distance, Promo2SinceWeek ->
// promo2_since_week, "Store Type" -> store_type. Names already in snake case
// are returned unchanged.
func SnakeCase(name string) string {
	runes := []rune(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(runes) + 4)

	for i, r := range runes {
		switch {
		case r == ' ' || r == '-' || r == '.' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		case unicode.IsUpper(r):
			if i > 0 && b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				// split "storeType", "Promo2Since" and the tail of acronyms ("HTTPServer")
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}

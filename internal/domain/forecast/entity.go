package forecast

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used on the wire and in the dataset.
const DateLayout = "2006-01-02"

// Record is one raw store-date observation as received from a client or read
// from the dataset. Keys may use any casing (Store, CompetitionDistance,
// competition_distance) and values may be numbers, numeric strings or null.
type Record map[string]any

// FeatureValue is a single named entry of a prepared feature vector.
type FeatureValue struct {
	Name  string
	Value float64
}

// Prediction is the forecast for one surviving (open) store-date.
type Prediction struct {
	Store          int
	Date           time.Time
	ID             *int64
	PredictedSales float64
	Features       []FeatureValue
}

// MarshalJSON writes the prediction as a flat object: identifiers first, then
// the echoed feature columns in model order, then predicted_sales.
func (p Prediction) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := write("store", p.Store); err != nil {
		return nil, err
	}
	if err := write("date", p.Date.Format(DateLayout)); err != nil {
		return nil, err
	}
	if p.ID != nil {
		if err := write("id", *p.ID); err != nil {
			return nil, err
		}
	}
	for _, f := range p.Features {
		if f.Name == "store" {
			continue
		}
		if err := write(f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	if err := write("predicted_sales", p.PredictedSales); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Batch groups the predictions produced for one request, as handed to sinks.
type Batch struct {
	ID          uuid.UUID    `json:"batch_id"`
	Source      string       `json:"source"` // api|bot|dashboard
	CreatedAt   time.Time    `json:"created_at"`
	Predictions []Prediction `json:"predictions"`
}

// DayOutlook is one day of a store's forecast with its uncertainty band.
type DayOutlook struct {
	Date     string  `json:"date"`
	Expected float64 `json:"expected"`
	Best     float64 `json:"best"`
	Worst    float64 `json:"worst"`
}

// Outlook is the six-week forecast for a single store, as shown by the bot
// and the dashboard.
type Outlook struct {
	Store       int             `json:"store"`
	TotalSales  decimal.Decimal `json:"total_sales"`
	MAE         float64         `json:"mae"`
	Days        []DayOutlook    `json:"days"`
	GeneratedAt time.Time       `json:"generated_at"`
}

package predict

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rossmann/internal/domain/forecast"
	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

// MockForecaster is a mock for Forecaster
type MockForecaster struct {
	mock.Mock
}

func (m *MockForecaster) Predict(ctx context.Context, records []forecast.Record) ([]forecast.Prediction, error) {
	args := m.Called(ctx, records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]forecast.Prediction), args.Error(1)
}

func (m *MockForecaster) StoreOutlook(ctx context.Context, store int) (*forecast.Outlook, error) {
	args := m.Called(ctx, store)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*forecast.Outlook), args.Error(1)
}

func newMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rossmann/predict", h.HandlePredict)
	mux.HandleFunc("GET /rossmann/stores/{store}/forecast", h.HandleOutlook)
	return mux
}

func TestHandlePredict_EmptyBodies(t *testing.T) {
	f := new(MockForecaster)
	mux := newMux(New(f, 0, logger.Nop()))

	for _, body := range []string{"", "  ", "null", "{}", "[]"} {
		req := httptest.NewRequest(http.MethodPost, "/rossmann/predict", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "body %q", body)
		assert.JSONEq(t, `{}`, rec.Body.String(), "body %q", body)
	}

	f.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestHandlePredict_ObjectAndArray(t *testing.T) {
	id := int64(1)
	prediction := forecast.Prediction{
		Store:          1,
		Date:           time.Date(2015, 9, 17, 0, 0, 0, 0, time.UTC),
		ID:             &id,
		PredictedSales: 4792.5,
		Features: []forecast.FeatureValue{
			{Name: "store", Value: 0},
			{Name: "store_type", Value: 2},
		},
	}

	f := new(MockForecaster)
	f.On("Predict", mock.Anything, mock.MatchedBy(func(r []forecast.Record) bool {
		return len(r) == 1 && r[0]["Store"] == json.Number("1")
	})).Return([]forecast.Prediction{prediction}, nil)
	f.On("Predict", mock.Anything, mock.MatchedBy(func(r []forecast.Record) bool {
		return len(r) == 2
	})).Return([]forecast.Prediction{prediction}, nil)

	mux := newMux(New(f, 0, logger.Nop()))

	for _, body := range []string{
		`{"Store": 1, "Date": "2015-09-17"}`,
		`[{"Store": 1, "Date": "2015-09-17"}, {"Store": 1, "Date": "2015-09-16"}]`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/rossmann/predict", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t,
			`[{"store":1,"date":"2015-09-17","id":1,"store_type":2,"predicted_sales":4792.5}]`,
			rec.Body.String())
	}

	f.AssertExpectations(t)
}

func TestHandlePredict_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"malformed", errors.Wrap(errors.ErrMalformedInput, "unknown code \"z\""), http.StatusBadRequest},
		{"mismatch", errors.ErrTransformerMismatch, http.StatusUnprocessableEntity},
		{"model", errors.ErrModelInvocation, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := new(MockForecaster)
			f.On("Predict", mock.Anything, mock.Anything).Return(nil, tt.err)
			mux := newMux(New(f, 0, logger.Nop()))

			req := httptest.NewRequest(http.MethodPost, "/rossmann/predict", strings.NewReader(`{"Store": 1}`))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestHandlePredict_BadPayload(t *testing.T) {
	f := new(MockForecaster)
	mux := newMux(New(f, 64, logger.Nop()))

	tests := []struct {
		body string
		code int
	}{
		{`{"Store": `, http.StatusBadRequest},
		{`[1, 2]`, http.StatusBadRequest},
		{`"store"`, http.StatusBadRequest},
		{`{"a":1} {"b":2}`, http.StatusBadRequest},
		{`[` + strings.Repeat(`{"Store":1},`, 20) + `{}]`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/rossmann/predict", strings.NewReader(tt.body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, tt.code, rec.Code, tt.body)
	}

	f.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestHandlePredict_MethodNotAllowed(t *testing.T) {
	mux := newMux(New(new(MockForecaster), 0, logger.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/rossmann/predict", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleOutlook(t *testing.T) {
	outlook := &forecast.Outlook{
		Store:      22,
		TotalSales: decimal.RequireFromString("187654.32"),
		Days:       []forecast.DayOutlook{{Date: "2015-09-17", Expected: 5000, Best: 5248.16, Worst: 4751.84}},
	}

	f := new(MockForecaster)
	f.On("StoreOutlook", mock.Anything, 22).Return(outlook, nil)
	f.On("StoreOutlook", mock.Anything, 5000).Return(nil, errors.Wrap(errors.ErrNotFound, "store 5000"))
	f.On("StoreOutlook", mock.Anything, 4).Return(nil, errors.ErrEmptyResult)

	mux := newMux(New(f, 0, logger.Nop()))

	tests := []struct {
		path string
		code int
	}{
		{"/rossmann/stores/22/forecast", http.StatusOK},
		{"/rossmann/stores/5000/forecast", http.StatusNotFound},
		{"/rossmann/stores/4/forecast", http.StatusNotFound},
		{"/rossmann/stores/abc/forecast", http.StatusBadRequest},
		{"/rossmann/stores/-1/forecast", http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, tt.code, rec.Code, tt.path)
	}

	req := httptest.NewRequest(http.MethodGet, "/rossmann/stores/22/forecast", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "187654.32", got["total_sales"])
	assert.Equal(t, float64(22), got["store"])
}

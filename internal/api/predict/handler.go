package predict

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"rossmann/internal/domain/forecast"
	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

// Forecaster is the prediction adapter the handler serves.
type Forecaster interface {
	Predict(ctx context.Context, records []forecast.Record) ([]forecast.Prediction, error)
	StoreOutlook(ctx context.Context, store int) (*forecast.Outlook, error)
}

// Handler serves the prediction and store outlook endpoints
type Handler struct {
	forecaster Forecaster
	maxBody    int64
	log        *logger.Logger
}

// New creates a new prediction handler. maxBody caps the request body in bytes.
func New(forecaster Forecaster, maxBody int64, log *logger.Logger) *Handler {
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &Handler{
		forecaster: forecaster,
		maxBody:    maxBody,
		log:        log.With("component", "predict_api"),
	}
}

// HandlePredict accepts one record (JSON object) or many (JSON array) and
// returns the forecasts of the open store-dates, in input order. An empty
// body, null, {} or [] is answered with {}.
func (h *Handler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	records, err := forecast.DecodeRecords(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(records) == 0 {
		writeJSON(w, http.StatusOK, json.RawMessage(`{}`))
		return
	}

	predictions, err := h.forecaster.Predict(r.Context(), records)
	if err != nil {
		h.fail(w, "Prediction failed", err, "records", len(records))
		return
	}

	h.log.Debugw("Prediction served",
		"records", len(records),
		"predictions", len(predictions),
	)

	writeJSON(w, http.StatusOK, predictions)
}

// HandleOutlook returns the six-week outlook of the store in the path.
func (h *Handler) HandleOutlook(w http.ResponseWriter, r *http.Request) {
	store, err := strconv.Atoi(r.PathValue("store"))
	if err != nil || store < 1 {
		writeError(w, http.StatusBadRequest, errors.Wrapf(errors.ErrInvalidInput, "invalid store %q", r.PathValue("store")))
		return
	}

	outlook, err := h.forecaster.StoreOutlook(r.Context(), store)
	if err != nil {
		h.fail(w, "Store outlook failed", err, "store", store)
		return
	}

	writeJSON(w, http.StatusOK, outlook)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error, kv ...any) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		h.log.Errorw(msg, append(kv, "error", err)...)
	} else {
		h.log.Infow(msg, append(kv, "error", err)...)
	}
	writeError(w, code, err)
}

// StatusCode maps forecast errors onto HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, errors.ErrMalformedInput), errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound), errors.Is(err, errors.ErrEmptyResult):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrTransformerMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrModelInvocation):
		return http.StatusBadGateway
	case errors.Is(err, errors.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

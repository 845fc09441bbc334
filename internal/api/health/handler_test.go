package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

func ok(context.Context) error { return nil }

func down(context.Context) error { return errors.ErrUnavailable }

func serve(t *testing.T, fn http.HandlerFunc) (int, HealthStatus) {
	t.Helper()

	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return rec.Code, status
}

func TestHandler_AllHealthy(t *testing.T) {
	h := New(logger.Nop(), "rossmann", "test",
		Check{Name: "model", Checker: CheckFunc(ok), Required: true},
		Check{Name: "redis", Checker: CheckFunc(ok)},
	)

	code, status := serve(t, h.HandleHealth)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", status.Status)
	assert.Len(t, status.Checks, 2)

	code, status = serve(t, h.HandleReadiness)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, status.Checks, 1)
}

func TestHandler_OptionalDown(t *testing.T) {
	h := New(logger.Nop(), "rossmann", "test",
		Check{Name: "model", Checker: CheckFunc(ok), Required: true},
		Check{Name: "clickhouse", Checker: CheckFunc(down)},
	)

	code, status := serve(t, h.HandleHealth)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "unhealthy", status.Checks["clickhouse"].Status)
	assert.NotEmpty(t, status.Checks["clickhouse"].Error)

	code, _ = serve(t, h.HandleReadiness)
	assert.Equal(t, http.StatusOK, code)
}

func TestHandler_RequiredDown(t *testing.T) {
	h := New(logger.Nop(), "rossmann", "test",
		Check{Name: "model", Checker: CheckFunc(down), Required: true},
	)

	code, status := serve(t, h.HandleReadiness)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", status.Status)

	code, _ = serve(t, h.HandleHealth)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestHandler_Liveness(t *testing.T) {
	h := New(logger.Nop(), "rossmann", "test")

	rec := httptest.NewRecorder()
	h.HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

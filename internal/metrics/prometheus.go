package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Feature pipeline metrics
	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rossmann_pipeline_stage_duration_seconds",
			Help:    "Feature pipeline stage duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"stage"}, // stage: clean|derive|filter|prepare|select
	)

	PipelineStageRows = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rossmann_pipeline_stage_rows",
			Help:    "Rows leaving each feature pipeline stage",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"stage"},
	)

	BinOverflows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rossmann_bin_overflows_total",
			Help: "Values that fell outside the fitted bin edges and were clamped",
		},
		[]string{"column", "policy"},
	)

	// Prediction metrics
	PredictRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rossmann_predict_requests_total",
			Help: "Total number of prediction requests",
		},
		[]string{"source", "status"}, // status: success|malformed|mismatch|model_error|empty|error
	)

	PredictedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rossmann_predicted_rows_total",
			Help: "Total number of store-dates predicted",
		},
		[]string{"source"},
	)

	ModelLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rossmann_model_latency_seconds",
			Help:    "Model invocation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	// Sink metrics
	SinkWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rossmann_sink_writes_total",
			Help: "Total number of prediction batches written to sinks",
		},
		[]string{"sink", "status"}, // status: success|error
	)

	SinkLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rossmann_sink_latency_seconds",
			Help:    "Sink write latency in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"sink"},
	)

	// Outlook metrics
	OutlookCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rossmann_outlook_cache_total",
			Help: "Outlook cache lookups",
		},
		[]string{"result"}, // result: hit|miss|error
	)

	OutlookWarm = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rossmann_outlook_warm_total",
			Help: "Store outlooks recomputed by the cache warmer",
		},
		[]string{"result"}, // result: success|skipped|error
	)

	// Telegram bot metrics
	BotMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rossmann_bot_messages_total",
			Help: "Telegram messages handled by the forecast bot",
		},
		[]string{"outcome"}, // outcome: forecast|wrong_id|not_found|empty|error
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rossmann_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rossmann_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Pipeline metrics
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(PipelineStageRows)
	prometheus.MustRegister(BinOverflows)

	// Prediction metrics
	prometheus.MustRegister(PredictRequests)
	prometheus.MustRegister(PredictedRows)
	prometheus.MustRegister(ModelLatency)

	// Sink metrics
	prometheus.MustRegister(SinkWrites)
	prometheus.MustRegister(SinkLatency)

	// Outlook and bot metrics
	prometheus.MustRegister(OutlookCache)
	prometheus.MustRegister(OutlookWarm)
	prometheus.MustRegister(BotMessages)

	// HTTP metrics
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPDuration)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPrediction records a finished prediction request
func RecordPrediction(source, status string, rows int) {
	PredictRequests.WithLabelValues(source, status).Inc()
	if rows > 0 {
		PredictedRows.WithLabelValues(source).Add(float64(rows))
	}
}

// RecordSinkWrite records a batch handed to a sink
func RecordSinkWrite(sink string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	SinkWrites.WithLabelValues(sink, status).Inc()
	SinkLatency.WithLabelValues(sink).Observe(duration.Seconds())
}

// RecordHTTPRequest records a served HTTP request
func RecordHTTPRequest(route string, code int, duration time.Duration) {
	HTTPRequests.WithLabelValues(route, statusText(code)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

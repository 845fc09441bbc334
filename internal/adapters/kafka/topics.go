package kafka

// Topic definitions for Kafka event streaming
const (
	// TopicForecasts carries every successful prediction batch
	TopicForecasts = "rossmann.forecasts"

	// TopicPredictRequests carries record batches to be scored asynchronously
	TopicPredictRequests = "rossmann.predict.requests"
)

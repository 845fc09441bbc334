package clickhouse

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rossmann/internal/domain/forecast"
)

func TestRows(t *testing.T) {
	id := int64(41088)
	batch := &forecast.Batch{
		ID:        uuid.New(),
		Source:    "api",
		CreatedAt: time.Date(2015, 7, 31, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
		Predictions: []forecast.Prediction{
			{Store: 1, Date: time.Date(2015, 9, 17, 0, 0, 0, 0, time.UTC), ID: &id, PredictedSales: 4213.5},
			{Store: 3, Date: time.Date(2015, 9, 17, 0, 0, 0, 0, time.UTC), PredictedSales: 7012},
		},
	}

	rows := Rows(batch)
	require.Len(t, rows, 2)

	assert.Equal(t, batch.ID, rows[0].BatchID)
	assert.Equal(t, "api", rows[0].Source)
	assert.Equal(t, time.UTC, rows[0].CreatedAt.Location())
	assert.Equal(t, 12, rows[0].CreatedAt.Hour())
	assert.Equal(t, uint32(1), rows[0].Store)
	assert.Equal(t, &id, rows[0].ID)
	assert.Equal(t, 4213.5, rows[0].PredictedSales)

	assert.Equal(t, uint32(3), rows[1].Store)
	assert.Nil(t, rows[1].ID)
}

func TestRows_EmptyBatch(t *testing.T) {
	assert.Empty(t, Rows(&forecast.Batch{ID: uuid.New()}))
}

package noop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"rossmann/pkg/errors"
)

func TestTracker_ImplementsTracker(t *testing.T) {
	var tracker errors.Tracker = New()

	ctx := context.Background()
	assert.NoError(t, tracker.CaptureError(ctx, errors.ErrInternal, nil))
	assert.NoError(t, tracker.CaptureMessage(ctx, "msg", errors.LevelInfo, nil))
	tracker.AddBreadcrumb(ctx, "predict", "forecast", errors.LevelDebug, nil)
	assert.NoError(t, tracker.Flush(ctx))
}

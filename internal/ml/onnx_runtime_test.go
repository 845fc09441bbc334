package ml

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rossmann/pkg/errors"
)

func TestRegressor_PredictEmpty(t *testing.T) {
	r := &Regressor{features: 15}

	out, err := r.Predict(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRegressor_PredictWrongWidth(t *testing.T) {
	r := &Regressor{features: 15}

	_, err := r.Predict([][]float64{make([]float64, 14)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrModelInvocation))
}

func TestRegressor_PredictWithoutSession(t *testing.T) {
	r := &Regressor{features: 2}

	_, err := r.Predict([][]float64{{1, 2}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrModelInvocation))
	assert.Error(t, r.Health())
}

func TestLoadRegressor_Validation(t *testing.T) {
	_, err := LoadRegressor(RegressorConfig{Path: "model.onnx", Features: 0})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = LoadRegressor(RegressorConfig{Path: "does-not-exist.onnx", Features: 15})
	assert.Error(t, err)
}

// Runs only where an exported model and the runtime library are available.
func TestLoadRegressor_Model(t *testing.T) {
	path := os.Getenv("ROSSMANN_TEST_MODEL")
	if path == "" {
		t.Skip("ROSSMANN_TEST_MODEL not set")
	}

	r, err := LoadRegressor(RegressorConfig{
		Path:        path,
		LibraryPath: os.Getenv("ONNXRUNTIME_LIB"),
		InputName:   "input",
		OutputName:  "variable",
		Features:    15,
	})
	require.NoError(t, err)
	defer r.Destroy()

	out, err := r.Predict([][]float64{make([]float64, 15), make([]float64, 15)})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

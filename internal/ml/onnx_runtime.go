package ml

import (
	"math"
	"os"
	"sync"

	onnxruntime "github.com/yalue/onnxruntime_go"

	"rossmann/pkg/errors"
)

// RegressorConfig describes an exported sales regressor.
type RegressorConfig struct {
	Path        string
	LibraryPath string // onnxruntime shared library, empty for the system default
	InputName   string
	OutputName  string
	Features    int
}

var envMu sync.Mutex

// Regressor wraps an ONNX Runtime session for a single-output regression model
// trained on log1p(sales). Input shape is [rows, Features], output [rows, 1].
type Regressor struct {
	session    *onnxruntime.DynamicAdvancedSession
	inputName  string
	outputName string
	features   int
}

// LoadRegressor loads the model file and prepares a reusable session.
func LoadRegressor(cfg RegressorConfig) (*Regressor, error) {
	if cfg.Features <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "feature count must be positive, got %d", cfg.Features)
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, errors.Wrapf(err, "model file %s", cfg.Path)
	}

	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()

	session, err := onnxruntime.NewDynamicAdvancedSession(cfg.Path,
		[]string{cfg.InputName}, []string{cfg.OutputName}, options)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ONNX model")
	}

	return &Regressor{
		session:    session,
		inputName:  cfg.InputName,
		outputName: cfg.OutputName,
		features:   cfg.Features,
	}, nil
}

// initEnvironment initializes the ONNX runtime once per process.
func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if onnxruntime.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		onnxruntime.SetSharedLibraryPath(libraryPath)
	}
	if err := onnxruntime.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "failed to initialize ONNX runtime")
	}
	return nil
}

// Predict scores every row and returns one raw model output per row, in order.
// The model works in log space; callers apply expm1.
func (r *Regressor) Predict(rows [][]float64) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}

	input := make([]float32, 0, len(rows)*r.features)
	for i, row := range rows {
		if len(row) != r.features {
			return nil, errors.Wrapf(errors.ErrModelInvocation, "row %d has %d features, model expects %d", i, len(row), r.features)
		}
		for _, v := range row {
			input = append(input, float32(v))
		}
	}

	if r.session == nil {
		return nil, errors.Wrap(errors.ErrModelInvocation, "model session is nil")
	}

	inputTensor, err := onnxruntime.NewTensor(onnxruntime.NewShape(int64(len(rows)), int64(r.features)), input)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrModelInvocation, "failed to create input tensor: %v", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := onnxruntime.NewEmptyTensor[float32](onnxruntime.NewShape(int64(len(rows)), 1))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrModelInvocation, "failed to create output tensor: %v", err)
	}
	defer outputTensor.Destroy()

	err = r.session.Run([]onnxruntime.Value{inputTensor}, []onnxruntime.Value{outputTensor})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrModelInvocation, "inference failed: %v", err)
	}

	raw := outputTensor.GetData()
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, errors.Wrapf(errors.ErrModelInvocation, "non-finite output %v at row %d", v, i)
		}
	}
	return out, nil
}

// Features returns the input width the model expects.
func (r *Regressor) Features() int { return r.features }

// Health reports whether the session is usable.
func (r *Regressor) Health() error {
	if r.session == nil {
		return errors.Wrap(errors.ErrUnavailable, "model session is closed")
	}
	return nil
}

// Destroy cleans up the ONNX session
func (r *Regressor) Destroy() {
	if r.session != nil {
		r.session.Destroy()
		r.session = nil
	}
}

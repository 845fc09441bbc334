package transformers

import (
	"math"

	"rossmann/pkg/errors"
)

// ScalerKind names the fitted scaler family.
type ScalerKind string

const (
	ScalerMinMax   ScalerKind = "min_max"
	ScalerRobust   ScalerKind = "robust"
	ScalerStandard ScalerKind = "standard"
)

// Scaler is an affine normalization fitted on the training set.
//
// min_max uses DataMin/DataMax and an optional FeatureRange (default [0, 1]).
// robust uses Center (median) and Scale (IQR). standard uses Center (mean) and
// Scale (standard deviation).
type Scaler struct {
	Kind         ScalerKind `yaml:"kind"`
	DataMin      float64    `yaml:"data_min,omitempty"`
	DataMax      float64    `yaml:"data_max,omitempty"`
	FeatureRange []float64  `yaml:"feature_range,omitempty"`
	Center       float64    `yaml:"center,omitempty"`
	Scale        float64    `yaml:"scale,omitempty"`

	// derived for min_max: x*scale + offset
	mmScale  float64
	mmOffset float64
}

// Transform maps a raw value into the scaled space.
func (s Scaler) Transform(v float64) float64 {
	switch s.Kind {
	case ScalerMinMax:
		return v*s.mmScale + s.mmOffset
	default:
		return (v - s.Center) / s.Scale
	}
}

// InverseTransform maps a scaled value back into the raw space.
func (s Scaler) InverseTransform(v float64) float64 {
	switch s.Kind {
	case ScalerMinMax:
		return (v - s.mmOffset) / s.mmScale
	default:
		return v*s.Scale + s.Center
	}
}

func (s *Scaler) compile(column string) error {
	switch s.Kind {
	case ScalerMinMax:
		lo, hi := 0.0, 1.0
		if len(s.FeatureRange) != 0 {
			if len(s.FeatureRange) != 2 || s.FeatureRange[0] >= s.FeatureRange[1] {
				return errors.Wrapf(errors.ErrTransformerMismatch, "scaler %s: invalid feature_range %v", column, s.FeatureRange)
			}
			lo, hi = s.FeatureRange[0], s.FeatureRange[1]
		}
		dataRange := s.DataMax - s.DataMin
		if dataRange < 0 {
			return errors.Wrapf(errors.ErrTransformerMismatch, "scaler %s: data_max below data_min", column)
		}
		// constant features keep a unit range
		if dataRange == 0 {
			dataRange = 1
		}
		s.mmScale = (hi - lo) / dataRange
		s.mmOffset = lo - s.DataMin*s.mmScale
	case ScalerRobust, ScalerStandard:
		if s.Scale == 0 {
			s.Scale = 1
		}
	default:
		return errors.Wrapf(errors.ErrTransformerMismatch, "scaler %s: unknown kind %q", column, s.Kind)
	}

	for _, v := range []float64{s.Center, s.Scale, s.mmScale, s.mmOffset} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(errors.ErrTransformerMismatch, "scaler %s: parameters are not finite", column)
		}
	}
	return nil
}

package transformers

import (
	"math"

	"rossmann/pkg/errors"
)

// Imputer strategies accepted in the artefact file. At inference time every
// strategy reduces to replacing a missing value with the fitted statistic.
const (
	StrategyMean         = "mean"
	StrategyMedian       = "median"
	StrategyMostFrequent = "most_frequent"
	StrategyConstant     = "constant"
)

// Imputer fills missing values of one feature with the statistic computed
// during training.
type Imputer struct {
	Strategy  string  `yaml:"strategy"`
	Statistic float64 `yaml:"statistic"`
}

// Transform returns v, or the fitted statistic when v is missing (NaN).
func (i Imputer) Transform(v float64) float64 {
	if math.IsNaN(v) {
		return i.Statistic
	}
	return v
}

func (i Imputer) validate(column string) error {
	switch i.Strategy {
	case StrategyMean, StrategyMedian, StrategyMostFrequent, StrategyConstant:
	default:
		return errors.Wrapf(errors.ErrTransformerMismatch, "imputer %s: unknown strategy %q", column, i.Strategy)
	}
	if math.IsNaN(i.Statistic) || math.IsInf(i.Statistic, 0) {
		return errors.Wrapf(errors.ErrTransformerMismatch, "imputer %s: statistic is not finite", column)
	}
	return nil
}

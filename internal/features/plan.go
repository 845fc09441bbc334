package features

import (
	"slices"

	"rossmann/internal/transformers"
	"rossmann/pkg/errors"
)

// Step is one preparation transform applied to a column.
type Step string

const (
	StepImpute     Step = "impute"
	StepScale      Step = "scale"
	StepDiscretize Step = "discretize"
	StepEncode     Step = "encode"
	StepCyclic     Step = "cyclic"
)

// stepOrder is the fixed order in which a column's steps run.
var stepOrder = []Step{StepImpute, StepScale, StepDiscretize, StepEncode, StepCyclic}

// ColumnSteps lists the steps one column goes through during preparation.
type ColumnSteps struct {
	Column string
	Steps  []Step
}

// Preparation is the transformation table the model was trained with.
var Preparation = []ColumnSteps{
	{Column: ColStore, Steps: []Step{StepScale}},
	{Column: ColStoreType, Steps: []Step{StepEncode}},
	{Column: ColAssortment, Steps: []Step{StepEncode}},
	{Column: ColCompetitionDistance, Steps: []Step{StepDiscretize}},
	{Column: ColCompetitionOpenSinceMonth, Steps: []Step{StepImpute, StepScale}},
	{Column: ColCompetitionOpenSinceYear, Steps: []Step{StepImpute, StepDiscretize}},
	{Column: ColPromo2SinceWeek, Steps: []Step{StepImpute, StepScale}},
	{Column: ColPromo2SinceYear, Steps: []Step{StepImpute, StepScale}},
	{Column: ColDayOfMonth, Steps: []Step{StepCyclic}},
	{Column: ColDayOfYear, Steps: []Step{StepCyclic}},
	{Column: ColMonth, Steps: []Step{StepCyclic}},
	{Column: ColDayOfWeek, Steps: []Step{StepCyclic}},
}

// cyclicPeriods are the periods of the calendar features.
var cyclicPeriods = map[string]float64{
	ColDayOfMonth: 30,
	ColDayOfYear:  365,
	ColMonth:      12,
	ColDayOfWeek:  7,
}

// OverflowPolicy decides what discretization does with values outside every
// bucket.
type OverflowPolicy string

const (
	// OverflowFail rejects the request with ErrTransformerMismatch.
	OverflowFail OverflowPolicy = "fail"
	// OverflowClamp pins the value to the nearest bucket, logs and counts it.
	OverflowClamp OverflowPolicy = "clamp"
)

// Options tune how a Plan is compiled.
type Options struct {
	Overflow OverflowPolicy
}

// Plan is the Preparation table resolved against a transformer store. It is
// immutable and shared by all requests.
type Plan struct {
	distanceImputer transformers.Imputer
	storeScaler     transformers.Scaler
	columns         []compiledColumn
	overflow        OverflowPolicy
}

type compiledColumn struct {
	column string
	ops    []op
}

// Compile resolves every step of table against store. A transformer missing
// for a configured column fails here, at startup, rather than per request.
func Compile(store *transformers.Store, table []ColumnSteps, opts Options) (*Plan, error) {
	switch opts.Overflow {
	case "":
		opts.Overflow = OverflowFail
	case OverflowFail, OverflowClamp:
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown overflow policy %q", opts.Overflow)
	}

	plan := &Plan{overflow: opts.Overflow}

	imp, ok := store.Imputer(ColCompetitionDistance)
	if !ok {
		return nil, missing(StageClean, ColCompetitionDistance, "imputer")
	}
	plan.distanceImputer = imp

	for _, cs := range table {
		if !isOrdered(cs.Steps) {
			return nil, stageErr(StagePrepare, -1, cs.Column,
				errors.Wrapf(errors.ErrInvalidInput, "steps %v are not in %v order", cs.Steps, stepOrder))
		}

		cc := compiledColumn{column: cs.Column}
		for _, step := range cs.Steps {
			o, err := compileStep(store, cs.Column, step, plan.overflow)
			if err != nil {
				return nil, err
			}
			cc.ops = append(cc.ops, o)
		}
		plan.columns = append(plan.columns, cc)
	}

	sc, ok := store.Scaler(ColStore)
	if !ok {
		return nil, missing(StagePrepare, ColStore, "scaler")
	}
	plan.storeScaler = sc

	return plan, nil
}

// StoreScaler is the scaler applied to the store column, needed to recover the
// store number from the prepared matrix.
func (p *Plan) StoreScaler() transformers.Scaler { return p.storeScaler }

// Overflow returns the discretization overflow policy in force.
func (p *Plan) Overflow() OverflowPolicy { return p.overflow }

func compileStep(store *transformers.Store, column string, step Step, policy OverflowPolicy) (op, error) {
	switch step {
	case StepImpute:
		imp, ok := store.Imputer(column)
		if !ok {
			return nil, missing(StagePrepare, column, "imputer")
		}
		return imputeOp{imputer: imp}, nil
	case StepScale:
		sc, ok := store.Scaler(column)
		if !ok {
			return nil, missing(StagePrepare, column, "scaler")
		}
		return scaleOp{scaler: sc}, nil
	case StepDiscretize:
		edges, ok := store.BinEdges(column)
		if !ok {
			return nil, missing(StagePrepare, column, "bin edges")
		}
		return discretizeOp{edges: edges, policy: policy}, nil
	case StepEncode:
		cm, ok := store.CategoryMap(column)
		if !ok {
			return nil, missing(StagePrepare, column, "category map")
		}
		rl, _ := store.Relabel(column)
		return encodeOp{codes: cm, relabel: rl}, nil
	case StepCyclic:
		period, ok := cyclicPeriods[column]
		if !ok {
			return nil, missing(StagePrepare, column, "cyclic period")
		}
		return cyclicOp{period: period}, nil
	default:
		return nil, stageErr(StagePrepare, -1, column, errors.Wrapf(errors.ErrInvalidInput, "unknown step %q", step))
	}
}

func isOrdered(steps []Step) bool {
	last := -1
	for _, s := range steps {
		idx := slices.Index(stepOrder, s)
		if idx < 0 {
			// unknown steps are reported by compileStep
			continue
		}
		if idx <= last {
			return false
		}
		last = idx
	}
	return true
}

func missing(stage, column, what string) error {
	return stageErr(stage, -1, column, errors.Wrapf(errors.ErrTransformerMismatch, "no fitted %s", what))
}

// Describe lists the compiled steps per column, in execution order.
func (p *Plan) Describe() []ColumnSteps {
	out := make([]ColumnSteps, 0, len(p.columns))
	for _, cc := range p.columns {
		cs := ColumnSteps{Column: cc.column}
		for _, o := range cc.ops {
			cs.Steps = append(cs.Steps, o.step())
		}
		out = append(out, cs)
	}
	return out
}

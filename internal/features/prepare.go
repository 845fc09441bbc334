package features

import (
	"math"

	"rossmann/internal/metrics"
	"rossmann/internal/transformers"
	"rossmann/pkg/errors"
)

// op is a compiled preparation step bound to its fitted transformer. apply
// rewrites the column in place and reports how many values it had to clamp.
type op interface {
	step() Step
	apply(t *Table, column string) (clamped int, err error)
}

// Prepare runs the compiled plan over a filtered table: imputation, scaling,
// discretization, categorical encoding and cyclic expansion, in that order
// within each column.
func (p *Pipeline) Prepare(t *Table) (*Table, error) {
	out := t.clone()

	for _, cc := range p.plan.columns {
		if !out.Has(cc.column) {
			return nil, stageErr(StagePrepare, -1, cc.column, errors.Wrap(errors.ErrMalformedInput, "missing column"))
		}
		for _, o := range cc.ops {
			clamped, err := o.apply(out, cc.column)
			if err != nil {
				return nil, err
			}
			if clamped > 0 {
				metrics.BinOverflows.WithLabelValues(cc.column, string(p.plan.overflow)).Add(float64(clamped))
				p.log.Warnw("Clamped values outside bin edges",
					"column", cc.column,
					"count", clamped,
				)
			}
		}
	}

	return out, nil
}

type imputeOp struct {
	imputer transformers.Imputer
}

func (imputeOp) step() Step { return StepImpute }

func (o imputeOp) apply(t *Table, column string) (int, error) {
	values, err := numericColumn(t, column)
	if err != nil {
		return 0, err
	}
	for i, v := range values {
		values[i] = o.imputer.Transform(v)
	}
	return 0, nil
}

type scaleOp struct {
	scaler transformers.Scaler
}

func (scaleOp) step() Step { return StepScale }

func (o scaleOp) apply(t *Table, column string) (int, error) {
	values, err := numericColumn(t, column)
	if err != nil {
		return 0, err
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, stageErr(StagePrepare, t.origins[i], column,
				errors.Wrapf(errors.ErrTransformerMismatch, "scaler cannot transform %v", v))
		}
		values[i] = o.scaler.Transform(v)
	}
	return 0, nil
}

type discretizeOp struct {
	edges  transformers.BinEdges
	policy OverflowPolicy
}

func (discretizeOp) step() Step { return StepDiscretize }

func (o discretizeOp) apply(t *Table, column string) (int, error) {
	values, err := numericColumn(t, column)
	if err != nil {
		return 0, err
	}

	clamped := 0
	for i, v := range values {
		idx, ok := o.edges.Bucket(v)
		if !ok {
			if math.IsNaN(v) || o.policy != OverflowClamp {
				return 0, stageErr(StagePrepare, t.origins[i], column,
					errors.Wrapf(errors.ErrTransformerMismatch, "value %v outside bin edges (%v, %v]",
						v, o.edges[0], o.edges[len(o.edges)-1]))
			}
			idx = o.edges.Clamp(v)
			clamped++
		}
		values[i] = o.edges.Normalize(idx)
	}
	return clamped, nil
}

type encodeOp struct {
	codes   transformers.CategoryMap
	relabel transformers.Relabel
}

func (encodeOp) step() Step { return StepEncode }

func (o encodeOp) apply(t *Table, column string) (int, error) {
	raw := t.Text(column)
	if raw == nil {
		return 0, stageErr(StagePrepare, -1, column, errors.Wrap(errors.ErrTransformerMismatch, "encoding needs a text column"))
	}

	encoded := make([]float64, len(raw))
	for i, v := range raw {
		label := v
		if o.relabel != nil {
			l, ok := o.relabel.Label(v)
			if !ok {
				return 0, stageErr(StagePrepare, t.origins[i], column,
					errors.Wrapf(errors.ErrMalformedInput, "unknown code %q", v))
			}
			label = l
		}
		code, ok := o.codes.Code(label)
		if !ok {
			return 0, stageErr(StagePrepare, t.origins[i], column,
				errors.Wrapf(errors.ErrMalformedInput, "unknown code %q", v))
		}
		encoded[i] = float64(code)
	}

	t.setFloat(column, encoded)
	return 0, nil
}

type cyclicOp struct {
	period float64
}

func (cyclicOp) step() Step { return StepCyclic }

func (o cyclicOp) apply(t *Table, column string) (int, error) {
	values, err := numericColumn(t, column)
	if err != nil {
		return 0, err
	}

	sin := make([]float64, len(values))
	cos := make([]float64, len(values))
	for i, v := range values {
		angle := v * (2 * math.Pi / o.period)
		sin[i] = math.Sin(angle)
		cos[i] = math.Cos(angle)
	}

	t.setFloat(column+"_sin", sin)
	t.setFloat(column+"_cos", cos)
	t.drop(column)
	return 0, nil
}

func numericColumn(t *Table, column string) ([]float64, error) {
	values := t.Float(column)
	if values == nil {
		return nil, stageErr(StagePrepare, -1, column, errors.Wrap(errors.ErrTransformerMismatch, "expected a numeric column"))
	}
	return values, nil
}

package transformers

import (
	"rossmann/pkg/errors"
)

// CategoryMap is a fixed label to integer code mapping.
type CategoryMap map[string]int

// Code returns the integer code for label.
func (c CategoryMap) Code(label string) (int, bool) {
	code, ok := c[label]
	return code, ok
}

// Relabel maps raw dataset codes onto the labels a CategoryMap is keyed by
// (assortment a/b/c -> basic/extra/extended).
type Relabel map[string]string

// Label returns the relabelled value for raw.
func (r Relabel) Label(raw string) (string, bool) {
	label, ok := r[raw]
	return label, ok
}

func (c CategoryMap) validate(column string) error {
	if len(c) == 0 {
		return errors.Wrapf(errors.ErrTransformerMismatch, "category map %s is empty", column)
	}
	seen := make(map[int]string, len(c))
	for label, code := range c {
		if other, dup := seen[code]; dup {
			return errors.Wrapf(errors.ErrTransformerMismatch, "category map %s: labels %q and %q share code %d", column, label, other, code)
		}
		seen[code] = label
	}
	return nil
}

func (r Relabel) validate(column string, target CategoryMap) error {
	for raw, label := range r {
		if _, ok := target[label]; !ok {
			return errors.Wrapf(errors.ErrTransformerMismatch, "relabel %s: %q maps to %q which has no code", column, raw, label)
		}
	}
	return nil
}

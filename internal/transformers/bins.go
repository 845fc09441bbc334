package transformers

import (
	"math"

	"rossmann/pkg/errors"
)

// BinEdges is an ordered threshold sequence. n edges define n-1 right-closed
// buckets (e[i-1], e[i]], so the lowest edge itself falls outside every bucket.
type BinEdges []float64

// Buckets returns the number of buckets the edges define.
func (b BinEdges) Buckets() int {
	return len(b) - 1
}

// Bucket returns the zero-based bucket index of v and whether v falls inside
// the edges at all.
func (b BinEdges) Bucket(v float64) (int, bool) {
	if math.IsNaN(v) || v <= b[0] || v > b[len(b)-1] {
		return 0, false
	}
	// edges are short, 10 at most in production
	for i := 1; i < len(b); i++ {
		if v <= b[i] {
			return i - 1, true
		}
	}
	return 0, false
}

// Clamp returns the bucket index of v, pinning values below the edges to the
// first bucket and values above to the last.
func (b BinEdges) Clamp(v float64) int {
	if idx, ok := b.Bucket(v); ok {
		return idx
	}
	if v > b[len(b)-1] {
		return b.Buckets() - 1
	}
	return 0
}

// Normalize rescales a bucket index into [0, 2], the range shared with the
// three-level categorical encodings.
func (b BinEdges) Normalize(idx int) float64 {
	return float64(idx) / (float64(b.Buckets()-1) / 2)
}

func (b BinEdges) validate(column string) error {
	if len(b) < 3 {
		return errors.Wrapf(errors.ErrTransformerMismatch, "bin edges %s: need at least 3 edges, got %d", column, len(b))
	}
	for i := 1; i < len(b); i++ {
		if !(b[i] > b[i-1]) {
			return errors.Wrapf(errors.ErrTransformerMismatch, "bin edges %s: not strictly increasing at %d", column, i)
		}
	}
	return nil
}

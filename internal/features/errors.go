package features

import (
	"fmt"
)

// Pipeline stage names, used in errors, logs and metrics.
const (
	StageClean   = "clean"
	StageDerive  = "derive"
	StageFilter  = "filter"
	StagePrepare = "prepare"
	StageSelect  = "select"
)

// StageError locates a pipeline failure. Err is one of the forecast sentinels
// in pkg/errors (ErrMalformedInput, ErrTransformerMismatch), possibly wrapped.
type StageError struct {
	Stage  string
	Row    int // index in the caller's input, -1 when not row specific
	Column string
	Err    error
}

func (e *StageError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%s: column %s: %v", e.Stage, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: row %d: column %s: %v", e.Stage, e.Row, e.Column, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, row int, column string, err error) *StageError {
	return &StageError{Stage: stage, Row: row, Column: column, Err: err}
}

package tasks

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a failure is attributed to.
type Stage string

const (
	StageCredential Stage = "credential"
	StageResolve    Stage = "resolve_tracks"
	StageSearch     Stage = "search_catalog"
	StageProfile    Stage = "profile"
	StageCreate     Stage = "create_playlist"
	StageAddTracks  Stage = "add_tracks"
	StageAnnotate   Stage = "annotate"
)

// StageError is the Failed{stage, cause} outcome of a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage an error is attributed to, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

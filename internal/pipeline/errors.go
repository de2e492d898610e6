package pipeline

import (
	"errors"
	"fmt"
)

// Stage identifies which fetch of a chain a request or failure belongs to.
type Stage int

const (
	StageSearch Stage = iota
	StageReviews
	StageWebsite
)

func (s Stage) String() string {
	switch s {
	case StageSearch:
		return "search"
	case StageReviews:
		return "reviews"
	case StageWebsite:
		return "website"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ErrIncomplete is returned when a record is projected from a context that
// has not been through every stage.
var ErrIncomplete = errors.New("pipeline: stage context incomplete")

// FetchFailedError ends one chain. BusinessID is empty for search pages.
type FetchFailedError struct {
	Stage      Stage
	BusinessID string
	Cause      error
}

func (e *FetchFailedError) Error() string {
	if e.BusinessID == "" {
		return fmt.Sprintf("%s fetch failed: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("%s fetch for business %s failed: %v", e.Stage, e.BusinessID, e.Cause)
}

func (e *FetchFailedError) Unwrap() error { return e.Cause }

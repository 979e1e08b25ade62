package detectors

import (
	"github.com/rotisserie/eris"

	"github.com/hed1ad/goaoa/pkg/features"
)

// Errors returned by detectors. The data errors are shared with the features
// package so that errors.Is matches regardless of which stage failed.
var (
	ErrEmptyData             = features.ErrEmptyData
	ErrFeatureMismatch       = features.ErrFeatureMismatch
	ErrDegenerateTrainingSet = features.ErrDegenerateTrainingSet
	ErrInvalidWeights        = features.ErrInvalidWeights
	ErrMalformedTrainingData = features.ErrMalformedTrainingData

	// ErrNotFitted is returned when scoring before Fit or Load.
	ErrNotFitted = eris.New("detector not fitted")

	// ErrNoGroups is returned by group-aware operations on a detector
	// fitted without group labels.
	ErrNoGroups = eris.New("detector fitted without groups")
)

package features

import "github.com/rotisserie/eris"

// Errors shared by the fit and score pipeline. Callers match them with errors.Is;
// the returned errors wrap these with the offending sample index or feature name.
var (
	// ErrEmptyData is returned when a matrix has no rows or no features.
	ErrEmptyData = eris.New("empty feature matrix")

	// ErrFeatureMismatch is returned when two matrices (or a matrix and fitted
	// state) do not name the same features in the same order.
	ErrFeatureMismatch = eris.New("feature mismatch")

	// ErrDegenerateTrainingSet is returned when the training data cannot
	// produce a usable reference distribution.
	ErrDegenerateTrainingSet = eris.New("degenerate training set")

	// ErrInvalidWeights is returned for negative, non-finite or all-zero weights.
	ErrInvalidWeights = eris.New("invalid feature weights")

	// ErrMalformedTrainingData is returned for NaN, infinite or missing
	// training values.
	ErrMalformedTrainingData = eris.New("malformed training data")
)

package risk

import "errors"

var (
	// ErrModelNotTrained is returned when scoring runs before any artifact is installed.
	ErrModelNotTrained = errors.New("model not trained")
	// ErrInvalidFeatureVector flags a vector of the wrong length or with non-finite values.
	ErrInvalidFeatureVector = errors.New("invalid feature vector")
	// ErrModelCorrupt flags a persisted artifact whose parts disagree with each other
	// or with the configured feature names.
	ErrModelCorrupt = errors.New("model artifact corrupt")
)

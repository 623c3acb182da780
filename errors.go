package skilltax

import "errors"

var (
	// ErrDegenerateVector is returned when an embedding has zero L2 norm.
	ErrDegenerateVector = errors.New("degenerate embedding vector")
	// ErrConfiguration is returned for missing or contradictory clustering or naming parameters.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrEmptyCluster is returned when a class without members reaches sub-clustering.
	ErrEmptyCluster = errors.New("empty cluster")
	// ErrEmptyGroup is returned when a pseudo-document has no terms left after tokenization.
	ErrEmptyGroup = errors.New("empty group")
	// ErrSubclassOverflow is returned when a label cannot be encoded as a legacy class.subclass float.
	ErrSubclassOverflow = errors.New("subclass index does not fit legacy encoding")
	// ErrTooManyItems is returned when the item count exceeds the configured ceiling.
	ErrTooManyItems = errors.New("too many items")
)

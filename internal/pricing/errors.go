package pricing

import "errors"

var (
	// ErrMissingReferenceItem means the mode cannot be inferred for a row set.
	// Callers must not write anything back for that tab.
	ErrMissingReferenceItem = errors.New("reference item not found")

	// ErrMalformedPrice is returned by ParsePrice. The engine recovers from it
	// by leaving the row untouched.
	ErrMalformedPrice = errors.New("malformed price")

	// ErrInvalidRules is returned when a rule set would make mode detection
	// disagree with the price mutation.
	ErrInvalidRules = errors.New("invalid pricing rules")
)

package macpp

import "errors"

// Error categories. Every error returned by this package wraps one of these,
// so callers can branch with errors.Is.
var (
	// ErrConfiguration is returned before any sampling starts.
	ErrConfiguration = errors.New("configuration error")
	// ErrShapeMismatch means coordinate slices of different lengths.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInsufficientData means an empty point set where a scale is needed.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNumerical means a non-finite intermediate value. The chain aborts.
	ErrNumerical = errors.New("numerical instability")
)

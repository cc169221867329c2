package params

import "errors"

// Domain errors for the params package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, params.ErrNotFound) {
//	    // handle unknown parameter
//	}
var (
	// ErrNotFound is returned when a parameter name does not exist in the store.
	ErrNotFound = errors.New("params: not found")

	// ErrAlreadyExists is returned when adding a parameter whose name is already present.
	ErrAlreadyExists = errors.New("params: already exists")

	// ErrUnsupportedType is returned when a value cannot be represented
	// as one of the supported parameter kinds (integer, float, string, boolean).
	ErrUnsupportedType = errors.New("params: unsupported value type")

	// ErrInvalidName is returned when a parameter name is empty.
	ErrInvalidName = errors.New("params: invalid name")
)

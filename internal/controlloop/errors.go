package controlloop

import "errors"

// Domain errors for the controlloop package.
//
// These errors can be checked using errors.Is() for error handling.
var (
	// ErrReservedComponentID is returned when the component ID is "info",
	// which is reserved for discovery requests.
	ErrReservedComponentID = errors.New(`controlloop: "info" is reserved, choose any other component id`)

	// ErrInvalidComponentID is returned when the component ID is empty or
	// contains MQTT topic separators or wildcards.
	ErrInvalidComponentID = errors.New("controlloop: invalid component id")

	// ErrAlreadyStarted is returned when Start is called on a running handler.
	ErrAlreadyStarted = errors.New("controlloop: handler already started")

	// ErrStopped is returned when Start is called on a stopped handler.
	// Stopped is terminal; build a new handler instead.
	ErrStopped = errors.New("controlloop: handler stopped")
)

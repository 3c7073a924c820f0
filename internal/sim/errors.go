package sim

import "errors"

var (
	// ErrNotRunning is returned for operations requested after Stop.
	ErrNotRunning = errors.New("simulation is stopped")

	// ErrUnknownSymbol is returned when a symbol was not configured.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrInvalidTransition is returned for lifecycle requests that are not
	// legal from the current state.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

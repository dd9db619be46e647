package dp

import "errors"

var (
	// ErrInvalidConfig is returned when a solver configuration is malformed.
	ErrInvalidConfig = errors.New("dp: invalid config")

	// ErrDimMismatch is returned when configuration and reference dimensions disagree.
	ErrDimMismatch = errors.New("dp: dimension mismatch")

	// ErrUnreached is returned when the recursion needs a vertex no edge has reached.
	ErrUnreached = errors.New("dp: vertex not reached")

	// ErrNoTerminal is returned when no terminal vertex was reached.
	ErrNoTerminal = errors.New("dp: no reachable terminal vertex")
)

package luatool

import "errors"

// Errors for script-backed tools.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrMissingFunction is returned when a contract method maps to a
	// script function the script never defined.
	ErrMissingFunction = errors.New("script function not found")

	// ErrBadScript is returned when a script does not declare a loadable
	// tool.
	ErrBadScript = errors.New("script is not a valid tool")

	// ErrBadResult is returned when a script function returns a value the
	// contract cannot use.
	ErrBadResult = errors.New("script returned unexpected value")
)

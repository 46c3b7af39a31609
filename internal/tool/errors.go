package tool

import "errors"

// Tool engine errors.
var (
	// ErrNoTools is returned when the effective configuration is empty.
	ErrNoTools = errors.New("no tools configured")

	// ErrInvalidTool is returned when a tool declaration fails validation.
	ErrInvalidTool = errors.New("invalid tool configuration")

	// ErrNilProvider is returned when a declaration has no provider.
	ErrNilProvider = errors.New("tool has no provider")

	// ErrToolNotFound is returned when a tool cannot be located.
	ErrToolNotFound = errors.New("tool not found")

	// ErrAlreadyPrepared is returned when preparing an already prepared registry.
	ErrAlreadyPrepared = errors.New("registry is already prepared")

	// ErrNotPrepared is returned when using a registry before preparation.
	ErrNotPrepared = errors.New("registry is not prepared")

	// ErrInvalidSelection is returned when a selection is out of range.
	ErrInvalidSelection = errors.New("selection out of range")
)

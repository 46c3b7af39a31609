package tool

import (
	"github.com/felixgeelhaar/bolt/v3"

	"github.com/dshills/inkstorm/internal/logging"
	"github.com/dshills/inkstorm/internal/observe"
)

// Env is the shared editor context handed to tool constructors. The registry
// guarantees all fields are non-nil before any provider sees it.
type Env struct {
	// Logger is the structured logger tools should log through.
	Logger *bolt.Logger

	// Metrics holds the editor's metric instruments.
	Metrics *observe.Metrics

	// Version is the editor version string.
	Version string
}

// populate fills in defaults for any nil fields.
func (e *Env) populate() {
	if e.Logger == nil {
		e.Logger = logging.Get()
	}
	if e.Metrics == nil {
		e.Metrics = observe.DefaultMetrics()
	}
}

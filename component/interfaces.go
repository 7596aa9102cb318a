package component

import "context"

// Component is a lifecycle-managed part of the phrame process: the
// database, Redis, the HTTP server, the background loops.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component. Long running work must
	// move to a goroutine; Start returns once the component is usable.
	Start(ctx context.Context) error

	// Stop shuts the component down and releases its resources.
	Stop(ctx context.Context) error
}

// Description holds summary information for the startup display.
type Description struct {
	// Name is the display name. If empty, the component's Name() is used.
	Name string
	// Type categorizes the component: "database", "server", "redis", "loop".
	Type string
	// Details is a one-liner shown in the startup summary, e.g. "phrame.db".
	Details string
	// Port is the primary port, 0 if not applicable.
	Port int
}

// Describable is optionally implemented by components that report how
// they are configured.
type Describable interface {
	Describe() Description
}

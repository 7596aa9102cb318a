// Package component manages the lifecycle of the parts of a phrame process.
//
// A Component has a name and Start/Stop methods. The Registry starts
// components in registration order and stops them in reverse. Components
// that implement observability.HealthChecker feed the /health endpoint
// through Registry.Checkers, and Describable components fill the startup
// summary.
//
// Runner wraps a blocking loop, for example the transcript trigger, and
// Func wraps plain start and stop callbacks.
package component

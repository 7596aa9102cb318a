package coordinator

import (
	"context"
	stderrors "errors"
)

// Event names broadcast by the coordinator.
const (
	EventNewImage          = "new-image"
	EventImagesReady       = "images.ready"
	EventTranscript        = "transcript"
	EventReloadTranscripts = "reload-transcripts"
	EventReloadImages      = "reload-images"
	EventStage             = "stage"
	EventState             = "state"
)

// Notifier delivers events to connected clients.
type Notifier interface {
	Broadcast(ctx context.Context, event string, payload any) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event string, payload any) error

// Broadcast calls f.
func (f NotifierFunc) Broadcast(ctx context.Context, event string, payload any) error {
	return f(ctx, event, payload)
}

// Notifiers broadcasts every event to each notifier in turn. All notifiers
// are tried; their errors are joined.
type Notifiers []Notifier

// Broadcast implements Notifier.
func (ns Notifiers) Broadcast(ctx context.Context, event string, payload any) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Broadcast(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

type nopNotifier struct{}

func (nopNotifier) Broadcast(context.Context, string, any) error { return nil }

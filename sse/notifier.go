package sse

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kbukum/phrame/coordinator"
)

// DefaultRoutes sends new images and curation reloads to the displays and
// transcript updates to the controller. Other events go to every client.
var DefaultRoutes = map[string][]string{
	coordinator.EventNewImage:          {"frame:*", "gallery:*"},
	coordinator.EventTranscript:        {"controller:*"},
	coordinator.EventReloadTranscripts: {"controller:*"},
	coordinator.EventReloadImages:      {"frame:*"},
}

// Notifier broadcasts coordinator events to SSE clients by role.
type Notifier struct {
	hub    *Hub
	routes map[string][]string
}

// NewNotifier creates a Notifier. A nil routes map uses DefaultRoutes.
func NewNotifier(hub *Hub, routes map[string][]string) *Notifier {
	if routes == nil {
		routes = DefaultRoutes
	}
	return &Notifier{hub: hub, routes: routes}
}

// Broadcast implements coordinator.Notifier.
func (n *Notifier) Broadcast(_ context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sse %s: %w", event, err)
	}
	patterns, ok := n.routes[event]
	if !ok {
		patterns = []string{"*"}
	}
	for _, p := range patterns {
		n.hub.BroadcastToPattern(p, Event{Name: event, Data: data})
	}
	return nil
}

var _ coordinator.Notifier = (*Notifier)(nil)

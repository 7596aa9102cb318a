package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/phrame/logger"
)

// EventConnected is the first event of every stream.
const EventConnected = "connected"

// KeepAliveInterval is how often a comment line is written to idle
// streams. It stays below common proxy timeouts.
var KeepAliveInterval = 30 * time.Second

// ConnectedEvent is the payload of the connected event.
type ConnectedEvent struct {
	ClientID string `json:"client_id"`
	Role     string `json:"role"`
}

// ServeSSE streams the hub's events for clientID until the request ends
// or the hub stops.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string) {
	log := hub.log.WithFields(logger.Fields("client_id", clientID))

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Long-lived streams must not hit the server's WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not disable write deadline", logger.Fields("error", err.Error()))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	client := NewClient(clientID)
	if !hub.Register(client) {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	data, _ := json.Marshal(ConnectedEvent{ClientID: clientID, Role: client.Role()})
	writeEvent(w, Event{Name: EventConnected, Data: data})
	flusher.Flush()
	log.Debug("client connected", logger.Fields("remote_addr", r.RemoteAddr))

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("client disconnected")
			return
		case ev, ok := <-client.Events():
			if !ok {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev Event) {
	if ev.Name != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", ev.Name)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", ev.Data)
}

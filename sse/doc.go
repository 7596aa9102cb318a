// Package sse streams coordinator events to browsers with Server-Sent
// Events.
//
// Clients connect with a role ("frame", "gallery", "controller") and get
// the id "role:uuid". Notifier maps event names to glob patterns over those
// ids, so a new-image event reaches only the displays.
//
//	hub := sse.NewHub(log)
//	go hub.Run()
//	defer hub.Stop()
//	notifier := sse.NewNotifier(hub, nil)
package sse

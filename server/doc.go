// Package server is the HTTP surface of phrame: a gin engine behind a
// net/http middleware stack, served with h2c.
//
// Middleware (server/middleware) runs outermost first: Recovery,
// RequestID, CORS, BodySizeLimit and RequestLogger. RateLimit keeps one
// token bucket per client and guards only the routes that start provider
// work.
//
// Routes registered by API.Register:
//
//	GET   /health /alive /info
//	GET   /images/*path                 saved images from storage
//	GET   /api/events?role=frame        server-sent events
//	GET   /api/transcripts
//	POST  /api/transcripts              {"transcript": "..."}
//	POST  /api/transcripts/manual       {"summary": "..."}, starts a cycle
//	POST  /api/transcripts/process      starts a transcript cycle
//	GET   /api/state
//	PATCH /api/state
//	GET   /api/summaries/random?context=...
//	POST  /api/summaries                {"transcripts": ["..."]}
//	GET   /api/cycles /api/cycles/:id
//	POST  /api/cycles/random
//	GET   /api/providers /api/providers/:name/test
//	GET   /api/images?limit=50
//
// Cycle routes answer 202 and run in the background, or 409 when a cycle
// is already running.
package server

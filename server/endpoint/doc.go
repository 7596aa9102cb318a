// Package endpoint holds the operational handlers mounted next to the API:
// /health, /alive and /info.
package endpoint

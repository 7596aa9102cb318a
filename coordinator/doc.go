// Package coordinator runs the transcript to image cycle.
//
// A cycle moves through four stages:
//
//	collecting -> summarizing -> generating -> ready
//
// ProcessTranscripts takes the recent transcripts, asks the configured
// summary provider for one summary, stores it and fans the summary out to
// every active image provider. SubmitSummary starts at generating with a
// summary supplied by the caller. Each provider branch runs its styles in
// order, acquires the images and reports them through the Notifier; a
// failing provider never affects the others.
//
// The Trigger and Autogen loops start cycles on a schedule, and the
// StateStore holds the runtime switches the HTTP API exposes.
package coordinator

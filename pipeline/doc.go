// Package pipeline holds the small stream operators phrame builds on.
//
// FanOut runs one summary through every image provider at once and keeps
// a failing provider from affecting the others:
//
//	out := pipeline.FanOut(pipeline.FromSlice([]string{summary}), branches...)
//	results, err := pipeline.Collect(ctx, out)
//
// Settle groups bursts of file events so the transcript inbox reads a file
// once the writer is done with it:
//
//	paths := pipeline.Filter(pipeline.FromChannel(events), accepts)
//	err := pipeline.ForEach(ctx, pipeline.Settle(paths, 500*time.Millisecond), ingest)
package pipeline

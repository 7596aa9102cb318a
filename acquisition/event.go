package acquisition

import (
	"context"

	"github.com/kbukum/phrame/provider"
)

// ImagesReady is emitted once per acquired batch, listing the images that
// were saved. Images may be empty when every entry failed.
type ImagesReady struct {
	SummaryID string                `json:"summaryId"`
	Images    []provider.SavedImage `json:"images"`
}

// Sink receives ImagesReady events.
type Sink interface {
	HandleImagesReady(ctx context.Context, ev ImagesReady)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev ImagesReady)

// HandleImagesReady calls f.
func (f SinkFunc) HandleImagesReady(ctx context.Context, ev ImagesReady) { f(ctx, ev) }

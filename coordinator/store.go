package coordinator

import (
	"context"
	"time"
)

// Store persists transcripts, summaries and images.
type Store interface {
	// ListRecentTranscripts returns the transcripts created at or after
	// since, oldest first.
	ListRecentTranscripts(ctx context.Context, since time.Time) ([]Transcript, error)
	DeleteTranscripts(ctx context.Context, ids []string) error
	CreateSummary(ctx context.Context, text string) (Summary, error)
	// CreateImage records a saved image file and returns the image id.
	CreateImage(ctx context.Context, summaryID, filename string) (string, error)
	AttachMetadata(ctx context.Context, imageID string, meta map[string]string) error
}

// TranscriptStore adds the queries used by transcript intake and the
// Trigger.
type TranscriptStore interface {
	Store
	CreateTranscript(ctx context.Context, text string) (Transcript, error)
	DeleteTranscriptsBefore(ctx context.Context, before time.Time) (int64, error)
	CountTranscriptsSince(ctx context.Context, since time.Time) (int64, error)
	// LatestImageTime returns the creation time of the newest image and
	// false when there is none.
	LatestImageTime(ctx context.Context) (time.Time, bool, error)
}

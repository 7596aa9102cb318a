package coordinator

import (
	"time"

	"github.com/kbukum/phrame/provider"
)

// Transcript is one captured utterance waiting to be summarized.
type Transcript struct {
	ID        string    `json:"id"`
	Text      string    `json:"transcript"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the text the image providers draw.
type Summary struct {
	ID        string    `json:"id"`
	Text      string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stage is the position of a cycle in the pipeline.
type Stage string

const (
	StageCollecting  Stage = "collecting"
	StageSummarizing Stage = "summarizing"
	StageGenerating  Stage = "generating"
	StageReady       Stage = "ready"
	// StageFailed ends a cycle that never produced a summary.
	StageFailed Stage = "failed"
)

// Cycle tracks one run of the pipeline. SummaryID is empty until the
// summary has been stored.
type Cycle struct {
	ID        string    `json:"id"`
	SummaryID string    `json:"summaryId,omitempty"`
	Stage     Stage     `json:"stage"`
	Images    int       `json:"images"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProviderResult is the outcome of one provider branch.
type ProviderResult struct {
	Provider provider.Name         `json:"ai"`
	Images   []provider.SavedImage `json:"images"`
	Error    string                `json:"error,omitempty"`
}

// Result is the outcome of GenerateImagesForSummary.
type Result struct {
	SummaryID string                `json:"summaryId"`
	Stage     Stage                 `json:"stage"`
	Images    []provider.SavedImage `json:"images"`
	Providers []ProviderResult      `json:"providers"`
}

package provider

import "context"

// Seed steers a random summary. Prompt replaces the configured system
// prompt when set and Context is appended to it.
type Seed struct {
	Prompt  string `json:"prompt,omitempty"`
	Context string `json:"context,omitempty"`
}

// ImageRequest asks a generator for the images of one style.
type ImageRequest struct {
	SummaryID string
	Summary   string
	Style     string
}

// Summarizer condenses transcripts into one image prompt.
type Summarizer interface {
	Provider
	Summarize(ctx context.Context, transcripts []string) (string, error)
	RandomSummary(ctx context.Context, seed Seed) (string, error)
}

// ImageGenerator produces image descriptors for a single style. An empty
// result with a nil error means the provider finished without an image,
// for example after a polling timeout.
type ImageGenerator interface {
	Provider
	GenerateImages(ctx context.Context, req ImageRequest) ([]GeneratedImage, error)
	ImageOptions() ImageOptions
}

// Tester checks credentials and reachability against the live service.
type Tester interface {
	Provider
	SelfTest(ctx context.Context) HealthStatus
}

// Describer renders provider errors for logs, usually by pulling the
// message out of the provider's error body.
type Describer interface {
	DescribeError(err error) string
}

package midjourney

import "context"

// Message is a Midjourney bot message carrying an image.
type Message struct {
	ID    string
	Hash  string
	URI   string
	Flags int
	// Content is the raw message text.
	Content string
}

// Info is the parsed /info response.
type Info struct {
	JobMode string
	// Description is the raw embed text.
	Description string
}

// ProgressFunc receives the preview URI and progress text of a running job.
type ProgressFunc func(uri, progress string)

// Session is one connection to the Midjourney bot. A session serves one
// generation cycle and must be closed afterwards.
type Session interface {
	Connect(ctx context.Context) error
	Info(ctx context.Context) (Info, error)
	Imagine(ctx context.Context, prompt string, progress ProgressFunc) (Message, error)
	Upscale(ctx context.Context, msg Message, index int, progress ProgressFunc) (Message, error)
	Close() error
}

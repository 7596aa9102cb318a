package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/logger"
)

// MinTranscriptWords is the shortest transcript Intake keeps.
const MinTranscriptWords = 3

// Intake stores incoming transcripts from the HTTP API and the inbox.
type Intake struct {
	store    TranscriptStore
	notifier Notifier
	log      *logger.Logger
}

// NewIntake creates an Intake. A nil notifier disables broadcasts.
func NewIntake(store TranscriptStore, notifier Notifier, log *logger.Logger) *Intake {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Intake{store: store, notifier: notifier, log: log.WithComponent("transcript")}
}

// Add stores text when it has at least MinTranscriptWords words and
// reports whether it was kept. Shorter texts are dropped without error.
func (in *Intake) Add(ctx context.Context, text string) (Transcript, bool, error) {
	text = strings.TrimSpace(text)
	if len(strings.Fields(text)) < MinTranscriptWords {
		in.log.Debug(fmt.Sprintf("ignored transcript under %d words", MinTranscriptWords))
		return Transcript{}, false, nil
	}
	t, err := in.store.CreateTranscript(ctx, text)
	if err != nil {
		return Transcript{}, false, err
	}
	if err := in.notifier.Broadcast(ctx, EventTranscript, t); err != nil {
		in.log.Warn(fmt.Sprintf("broadcast %s: %s", EventTranscript, errors.Describe(err)))
	}
	return t, true, nil
}

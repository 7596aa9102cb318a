package coordinator

import (
	"context"
	"fmt"

	"github.com/kbukum/phrame/acquisition"
	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/logger"
)

// NewImagePayload is broadcast once per persisted image.
type NewImagePayload struct {
	SummaryID string `json:"summaryId"`
	ImageID   string `json:"imageId"`
	Filename  string `json:"filename"`
	Provider  string `json:"ai"`
	Style     string `json:"style"`
}

// Persister stores the images of every ImagesReady event and announces
// each one with a new-image broadcast.
type Persister struct {
	store    Store
	notifier Notifier
	log      *logger.Logger
}

// NewPersister creates a Persister. A nil notifier disables broadcasts.
func NewPersister(store Store, notifier Notifier, log *logger.Logger) *Persister {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Persister{store: store, notifier: notifier, log: log.WithComponent("image.ready")}
}

// HandleImagesReady persists ev. A failing image is logged and skipped.
func (p *Persister) HandleImagesReady(ctx context.Context, ev acquisition.ImagesReady) {
	for _, img := range ev.Images {
		id, err := p.store.CreateImage(ctx, ev.SummaryID, img.Filename)
		if err != nil {
			p.log.Error("create image: "+errors.Describe(err), logger.Fields("filename", img.Filename))
			continue
		}
		meta := make(map[string]string, len(img.Metadata)+2)
		for k, v := range img.Metadata {
			meta[k] = v
		}
		meta["ai"], meta["style"] = string(img.Provider), img.Style
		if err := p.store.AttachMetadata(ctx, id, meta); err != nil {
			p.log.Error("attach metadata: "+errors.Describe(err), logger.Fields("image_id", id))
		}

		payload := NewImagePayload{
			SummaryID: ev.SummaryID,
			ImageID:   id,
			Filename:  img.Filename,
			Provider:  string(img.Provider),
			Style:     img.Style,
		}
		if err := p.notifier.Broadcast(ctx, EventNewImage, payload); err != nil {
			p.log.Warn(fmt.Sprintf("broadcast %s: %s", EventNewImage, errors.Describe(err)))
		}
	}
}

var _ acquisition.Sink = (*Persister)(nil)

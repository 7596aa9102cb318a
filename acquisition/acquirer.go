package acquisition

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/httpclient"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/observability"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/resilience"
	"github.com/kbukum/phrame/storage"
)

// Acquirer saves generated images to storage. It implements
// provider.Acquirer and is safe for concurrent use by several runners.
type Acquirer struct {
	cfg       Config
	store     storage.Storage
	http      *httpclient.Adapter
	attempter *resilience.Attempter
	slots     *resilience.Bulkhead
	sink      Sink
	metrics   *observability.Metrics
	names     *namer
	err       error
}

// Option customizes an Acquirer.
type Option func(*Acquirer)

// WithSink sets the receiver of ImagesReady events.
func WithSink(s Sink) Option {
	return func(a *Acquirer) { a.sink = s }
}

// WithMetrics records saved image counts.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Acquirer) { a.metrics = m }
}

// WithClock replaces the clock used for file names.
func WithClock(now func() time.Time) Option {
	return func(a *Acquirer) { a.names.now = now }
}

// WithHTTPClient replaces the download client. A nil client makes New
// fail.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Acquirer) {
		if c == nil {
			a.err = errors.InvalidInput("http_client", "download client is nil")
			return
		}
		a.http, a.err = newDownloader(a.cfg, httpclient.WithHTTPClient(c))
	}
}

func newDownloader(cfg Config, opts ...httpclient.Option) (*httpclient.Adapter, error) {
	client, err := httpclient.New(httpclient.Config{Name: "download", Timeout: cfg.DownloadTimeout}, opts...)
	if err != nil {
		return nil, fmt.Errorf("download client: %w", err)
	}
	return client, nil
}

// New creates an Acquirer writing to store. Downloads and writes are
// retried through attempter.
func New(cfg Config, store storage.Storage, attempter *resilience.Attempter, opts ...Option) (*Acquirer, error) {
	cfg.ApplyDefaults()
	client, err := newDownloader(cfg)
	if err != nil {
		return nil, err
	}
	a := &Acquirer{
		cfg:       cfg,
		store:     store,
		http:      client,
		attempter: attempter,
		slots:     resilience.NewBulkhead("downloads", cfg.MaxConcurrent),
		names:     &namer{now: time.Now},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.err != nil {
		return nil, a.err
	}
	return a, nil
}

// Acquire saves every image of batch in order and returns the ones that
// were written. An image whose attempts are exhausted is skipped. Exactly
// one ImagesReady event is emitted for the batch. At most MaxConcurrent
// saves run at once across every batch.
func (a *Acquirer) Acquire(ctx context.Context, batch provider.Batch) []provider.SavedImage {
	log := a.attempter.Logger().WithComponent(string(batch.Provider))
	att := a.attempter.For(log, nil)
	ctx, span := observability.StartSpan(ctx, observability.SpanAcquire)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrProvider, string(batch.Provider))

	saved := make([]provider.SavedImage, 0, len(batch.Images))
	for i, img := range batch.Images {
		style := img.Style
		if style == "" {
			style = batch.Style
		}
		label := fmt.Sprintf("downloading %d/%d", i+1, len(batch.Images))
		s, ok := resilience.Attempt(ctx, att, label, func(ctx context.Context) (out provider.SavedImage, err error) {
			err = a.slots.Do(ctx, func(ctx context.Context) error {
				out, err = a.save(ctx, batch, style, img)
				return err
			})
			return out, err
		})
		if ok {
			saved = append(saved, s)
		}
	}

	log.Info(fmt.Sprintf("saved %d/%d image(s)", len(saved), len(batch.Images)), logger.Fields("summary_id", batch.SummaryID, "style", batch.Style))
	observability.SetSpanAttribute(ctx, observability.AttrImageCount, len(saved))
	a.metrics.ImagesSaved(ctx, string(batch.Provider), batch.Style, len(saved))
	if a.sink != nil {
		a.sink.HandleImagesReady(ctx, ImagesReady{SummaryID: batch.SummaryID, Images: saved})
	}
	return saved
}

func (a *Acquirer) save(ctx context.Context, batch provider.Batch, style string, img provider.GeneratedImage) (provider.SavedImage, error) {
	p := batch.Provider
	data, err := a.fetch(ctx, img.Source)
	if err != nil {
		return provider.SavedImage{}, err
	}
	if batch.Trim {
		if data, err = trimImage(data, *a.cfg.TrimThreshold); err != nil {
			return provider.SavedImage{}, errors.Internal(err)
		}
	}

	name := a.names.next(p, style)
	if err := storage.WriteBytes(ctx, a.store, name, data); err != nil {
		return provider.SavedImage{}, errors.ServiceUnavailable("storage").WithCause(err)
	}
	return provider.SavedImage{Provider: p, Filename: name, Style: style, Metadata: img.Metadata}, nil
}

func (a *Acquirer) fetch(ctx context.Context, src provider.Source) ([]byte, error) {
	switch s := src.(type) {
	case provider.SourceURL:
		return a.http.Download(ctx, s.URL)
	case provider.SourceInline:
		return decodeInline(s)
	default:
		return nil, errors.InvalidInput("source", fmt.Sprintf("unsupported image source %T", src))
	}
}

// decodeInline returns the image bytes of an inline source.
func decodeInline(src provider.SourceInline) ([]byte, error) {
	if len(src.Payload) == 0 {
		return nil, errors.InvalidInput("payload", "empty image payload")
	}
	switch src.Encoding {
	case provider.EncodingRaw:
		return src.Payload, nil
	case provider.EncodingBase64:
		text := bytes.TrimSpace(src.Payload)
		out := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
		n, err := base64.StdEncoding.Decode(out, text)
		if err != nil {
			return nil, errors.InvalidInput("payload", "invalid base64 image payload").WithCause(err)
		}
		return out[:n], nil
	default:
		return nil, errors.InvalidInput("payload", fmt.Sprintf("unknown payload encoding %d", src.Encoding))
	}
}

var _ provider.Acquirer = (*Acquirer)(nil)

package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/observability"
	"github.com/kbukum/phrame/pipeline"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/resilience"
)

const maxTrackedCycles = 100

// ErrBusy is returned when a cycle is started while another one runs.
var ErrBusy = errors.Conflict("a cycle is already processing")

// Config configures a Coordinator.
type Config struct {
	// SummaryProvider summarizes transcripts and writes random summaries.
	SummaryProvider provider.Name
	// ImageProviders restricts the fan-out; empty means every registered
	// provider with image generation enabled.
	ImageProviders []provider.Name
	// TranscriptWindow is how far back ProcessTranscripts looks.
	TranscriptWindow time.Duration
	// ServiceName prefixes provider spans.
	ServiceName string
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.SummaryProvider == "" {
		c.SummaryProvider = provider.OpenAI
	}
	if c.TranscriptWindow <= 0 {
		c.TranscriptWindow = 30 * time.Minute
	}
	if c.ServiceName == "" {
		c.ServiceName = "phrame"
	}
}

// Coordinator composes the provider registry, the retry engine, image
// acquisition and persistence into the transcript to image pipeline.
type Coordinator struct {
	cfg       Config
	registry  *provider.Registry
	store     Store
	attempter *resilience.Attempter
	acquirer  provider.Acquirer
	notifier  Notifier
	state     *StateStore
	metrics   *observability.Metrics
	log       *logger.Logger
	now       func() time.Time

	busy atomic.Bool

	mu     sync.Mutex
	cycles map[string]*Cycle
	order  []string
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithNotifier sets the notifier for stage and images.ready events.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithStateStore shares the runtime state with the HTTP API.
func WithStateStore(s *StateStore) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.state = s
		}
	}
}

// WithMetrics enables tracing and metrics around every provider call.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a Coordinator.
func New(cfg Config, registry *provider.Registry, store Store, attempter *resilience.Attempter, acquirer provider.Acquirer, opts ...Option) *Coordinator {
	cfg.ApplyDefaults()
	c := &Coordinator{
		cfg:       cfg,
		registry:  registry,
		store:     store,
		attempter: attempter,
		acquirer:  acquirer,
		notifier:  nopNotifier{},
		state:     NewStateStore(nil),
		log:       attempter.Logger().WithComponent("coordinator"),
		now:       time.Now,
		cycles:    make(map[string]*Cycle),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the cycle with the given cycle or summary id.
func (c *Coordinator) State(id string) (Cycle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cy, ok := c.cycles[id]
	if !ok {
		return Cycle{}, false
	}
	return *cy, true
}

// Cycles returns the tracked cycles, newest first.
func (c *Coordinator) Cycles() []Cycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Cycle, 0, len(c.order))
	for i := len(c.order) - 1; i >= 0; i-- {
		out = append(out, *c.cycles[c.order[i]])
	}
	return out
}

// RuntimeState exposes the state store.
func (c *Coordinator) RuntimeState() *StateStore { return c.state }

// SummaryProvider returns the provider that writes summaries.
func (c *Coordinator) SummaryProvider() provider.Name { return c.cfg.SummaryProvider }

// Busy reports whether a cycle is running in this process.
func (c *Coordinator) Busy() bool { return c.busy.Load() }

func (c *Coordinator) startCycle(stage Stage, summaryID string) *Cycle {
	now := c.now()
	cy := &Cycle{ID: uuid.NewString(), SummaryID: summaryID, Stage: stage, StartedAt: now, UpdatedAt: now}
	c.mu.Lock()
	c.cycles[cy.ID] = cy
	if summaryID != "" {
		c.cycles[summaryID] = cy
	}
	c.order = append(c.order, cy.ID)
	if len(c.order) > maxTrackedCycles {
		old := c.cycles[c.order[0]]
		delete(c.cycles, old.ID)
		if c.cycles[old.SummaryID] == old {
			delete(c.cycles, old.SummaryID)
		}
		c.order = c.order[1:]
	}
	c.mu.Unlock()
	c.log.Info("stage: "+string(stage), logger.Fields("cycle_id", cy.ID, "summary_id", summaryID))
	return cy
}

func (c *Coordinator) advance(ctx context.Context, cy *Cycle, stage Stage, update func(*Cycle)) {
	c.mu.Lock()
	cy.Stage = stage
	cy.UpdatedAt = c.now()
	if update != nil {
		update(cy)
	}
	if cy.SummaryID != "" {
		c.cycles[cy.SummaryID] = cy
	}
	snapshot := *cy
	c.mu.Unlock()

	c.log.Info("stage: "+string(stage), logger.Fields("cycle_id", cy.ID, "summary_id", cy.SummaryID))
	c.broadcast(ctx, EventStage, snapshot)
}

func (c *Coordinator) broadcast(ctx context.Context, event string, payload any) {
	if err := c.notifier.Broadcast(ctx, event, payload); err != nil {
		c.log.Warn(fmt.Sprintf("broadcast %s: %s", event, errors.Describe(err)))
	}
}

func (c *Coordinator) attempterFor(name provider.Name, p provider.Provider) *resilience.Attempter {
	var describe func(error) string
	if d, ok := p.(provider.Describer); ok {
		describe = d.DescribeError
	}
	return c.attempter.For(c.attempter.Logger().WithComponent(string(name)), describe)
}

// RequestSummary asks the named provider to summarize transcripts. It
// returns false when the provider is unusable or every attempt failed.
func (c *Coordinator) RequestSummary(ctx context.Context, name provider.Name, transcripts []string) (string, bool) {
	s, err := c.registry.Summarizer(name)
	if err != nil {
		c.log.Warn("summary: " + errors.Describe(err))
		return "", false
	}
	summarize := resilience.Wrap(c.attempterFor(name, s), "summary", s.Summarize)
	summary, ok := summarize(ctx, transcripts)
	if ok {
		c.log.Info("summary: "+summary, logger.Fields(logger.FieldProvider, string(name)))
	}
	return summary, ok && summary != ""
}

// RequestRandomSummary asks the named provider for a summary steered only
// by seed.
func (c *Coordinator) RequestRandomSummary(ctx context.Context, name provider.Name, seed provider.Seed) (string, bool) {
	s, err := c.registry.Summarizer(name)
	if err != nil {
		c.log.Warn("random summary: " + errors.Describe(err))
		return "", false
	}
	random := resilience.Wrap(c.attempterFor(name, s), "random summary", s.RandomSummary)
	summary, ok := random(ctx, seed)
	if ok {
		c.log.Info("random summary: "+summary, logger.Fields(logger.FieldProvider, string(name)))
	}
	return summary, ok && summary != ""
}

// TestProviderConnectivity runs the named provider's self test.
func (c *Coordinator) TestProviderConnectivity(ctx context.Context, name provider.Name) provider.HealthStatus {
	t, err := c.registry.Tester(name)
	if err != nil {
		return provider.Unavailable(name, errors.Describe(err))
	}
	status := t.SelfTest(ctx)
	fields := logger.Fields(logger.FieldProvider, string(name), "status", status.Status.String())
	if len(status.Details) > 0 {
		fields["details"] = logger.Redact(status.Details)
	}
	c.log.Info("provider test: "+status.Message, fields)
	return status
}

// TestAllProviders runs the self test of every registered provider
// concurrently and returns the results in registry order.
func (c *Coordinator) TestAllProviders(ctx context.Context) []provider.HealthStatus {
	names := c.registry.Names()
	branches := make([]func(context.Context, struct{}) (provider.HealthStatus, error), len(names))
	for i, name := range names {
		branches[i] = func(ctx context.Context, _ struct{}) (provider.HealthStatus, error) {
			return c.TestProviderConnectivity(ctx, name), nil
		}
	}

	out := make([]provider.HealthStatus, len(names))
	results, err := pipeline.Collect(ctx, pipeline.FanOut(pipeline.FromSlice([]struct{}{{}}), branches...))
	if err != nil {
		c.log.Error("provider tests: " + errors.Describe(err))
	}
	for i, name := range names {
		out[i] = provider.Unavailable(name, "self test did not finish")
	}
	for _, batch := range results {
		for _, b := range batch {
			if b.Err != nil {
				out[b.Index] = provider.Unavailable(names[b.Index], errors.Describe(b.Err))
				continue
			}
			out[b.Index] = b.Value
		}
	}
	return out
}

// GenerateImagesForSummary fans summary out to every active image
// provider and waits for all of them. Each provider runs in its own
// branch; a failing or panicking provider contributes nothing and does not
// affect the others. One images.ready event is broadcast per provider.
func (c *Coordinator) GenerateImagesForSummary(ctx context.Context, summaryID, text string) Result {
	cy := c.startCycle(StageGenerating, summaryID)
	return c.generate(ctx, cy, summaryID, text)
}

func (c *Coordinator) generate(ctx context.Context, cy *Cycle, summaryID, text string) Result {
	ctx, op := observability.StartOperation(ctx, c.metrics, observability.SpanGenerateImages, summaryID)
	res := Result{SummaryID: summaryID}
	gens := c.registry.ImageGenerators(c.cfg.ImageProviders...)
	if len(gens) == 0 {
		c.log.Warn("no active ai image services")
	}

	branches := make([]func(context.Context, string) (ProviderResult, error), len(gens))
	for i, gen := range gens {
		runner := c.runner(gen)
		branches[i] = func(ctx context.Context, text string) (ProviderResult, error) {
			images := runner.Generate(ctx, summaryID, text)
			pr := ProviderResult{Provider: runner.Name(), Images: images}
			c.broadcast(ctx, EventImagesReady, map[string]any{
				"summaryId": summaryID,
				"ai":        runner.Name(),
				"images":    images,
			})
			return pr, nil
		}
	}

	out := pipeline.FanOut(pipeline.FromSlice([]string{text}), branches...)
	results, err := pipeline.Collect(ctx, out)
	if err != nil {
		c.log.Error("fan-out: " + errors.Describe(err))
	}
	defer func() { op.End(ctx, len(res.Images), err) }()
	for _, batch := range results {
		for _, b := range batch {
			name := gens[b.Index].Name()
			if b.Err != nil {
				c.log.Error(fmt.Sprintf("%s branch failed: %s", name, errors.Describe(b.Err)))
				res.Providers = append(res.Providers, ProviderResult{Provider: provider.Name(name), Error: errors.Describe(b.Err)})
				continue
			}
			res.Providers = append(res.Providers, b.Value)
			res.Images = append(res.Images, b.Value.Images...)
		}
	}

	res.Stage = StageReady
	c.advance(ctx, cy, StageReady, func(cy *Cycle) { cy.Images = len(res.Images) })
	c.log.Info(fmt.Sprintf("%d image(s) generated", len(res.Images)), logger.Fields("summary_id", summaryID, logger.FieldDuration, op.Elapsed().Milliseconds()))
	return res
}

func (c *Coordinator) runner(gen provider.ImageGenerator) *provider.Runner {
	mw := []provider.Middleware[provider.ImageRequest, []provider.GeneratedImage]{
		provider.WithLogging[provider.ImageRequest, []provider.GeneratedImage](c.attempter.Logger().WithComponent(gen.Name())),
	}
	if c.metrics != nil {
		mw = append(mw,
			provider.WithTracing[provider.ImageRequest, []provider.GeneratedImage](c.cfg.ServiceName),
			provider.WithMetrics[provider.ImageRequest, []provider.GeneratedImage](c.metrics),
		)
	}
	return provider.NewRunner(gen, c.attempter, c.acquirer, provider.WithMiddleware(mw...))
}

// ProcessTranscripts summarizes the transcripts of the current window and
// generates images for the summary. The consumed transcripts are deleted
// before the summary is requested.
func (c *Coordinator) ProcessTranscripts(ctx context.Context) (Result, error) {
	if !c.acquire(ctx) {
		return Result{}, ErrBusy
	}
	defer c.release(ctx)
	return c.processTranscripts(ctx)
}

func (c *Coordinator) processTranscripts(ctx context.Context) (Result, error) {
	cy := c.startCycle(StageCollecting, "")
	transcripts, err := c.store.ListRecentTranscripts(ctx, c.now().Add(-c.cfg.TranscriptWindow))
	if err != nil {
		c.fail(ctx, cy, err)
		return Result{}, err
	}
	if len(transcripts) == 0 {
		err := errors.NotFound("transcripts", "")
		c.fail(ctx, cy, err)
		return Result{}, err
	}

	ids := make([]string, len(transcripts))
	texts := make([]string, len(transcripts))
	for i, t := range transcripts {
		ids[i], texts[i] = t.ID, t.Text
	}
	if err := c.store.DeleteTranscripts(ctx, ids); err != nil {
		c.fail(ctx, cy, err)
		return Result{}, err
	}
	c.broadcast(ctx, EventReloadTranscripts, map[string]int{"deleted": len(ids)})

	c.advance(ctx, cy, StageSummarizing, nil)
	text, ok := c.RequestSummary(ctx, c.cfg.SummaryProvider, texts)
	if !ok {
		err := errors.ProviderFailed(string(c.cfg.SummaryProvider), "no summary")
		c.fail(ctx, cy, err)
		return Result{}, err
	}
	return c.createAndGenerate(ctx, cy, text)
}

// SubmitSummary stores a summary supplied by the caller and generates its
// images, skipping the summarizing stage.
func (c *Coordinator) SubmitSummary(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{}, errors.MissingField("summary")
	}
	if !c.acquire(ctx) {
		return Result{}, ErrBusy
	}
	defer c.release(ctx)
	return c.submitSummary(ctx, text)
}

func (c *Coordinator) submitSummary(ctx context.Context, text string) (Result, error) {
	return c.createAndGenerate(ctx, c.startCycle(StageCollecting, ""), text)
}

// RandomCycle requests a random summary and generates its images.
func (c *Coordinator) RandomCycle(ctx context.Context, seed provider.Seed) (Result, error) {
	if !c.acquire(ctx) {
		return Result{}, ErrBusy
	}
	defer c.release(ctx)
	return c.randomCycle(ctx, seed)
}

func (c *Coordinator) randomCycle(ctx context.Context, seed provider.Seed) (Result, error) {
	cy := c.startCycle(StageSummarizing, "")
	text, ok := c.RequestRandomSummary(ctx, c.cfg.SummaryProvider, seed)
	if !ok {
		err := errors.ProviderFailed(string(c.cfg.SummaryProvider), "no random summary")
		c.fail(ctx, cy, err)
		return Result{}, err
	}
	return c.createAndGenerate(ctx, cy, text)
}

func (c *Coordinator) createAndGenerate(ctx context.Context, cy *Cycle, text string) (Result, error) {
	summary, err := c.store.CreateSummary(ctx, text)
	if err != nil {
		c.fail(ctx, cy, err)
		return Result{}, err
	}
	c.advance(ctx, cy, StageGenerating, func(cy *Cycle) { cy.SummaryID = summary.ID })
	return c.generate(ctx, cy, summary.ID, summary.Text), nil
}

func (c *Coordinator) fail(ctx context.Context, cy *Cycle, err error) {
	c.log.Warn("cycle failed: "+errors.Describe(err), logger.Fields("cycle_id", cy.ID))
	c.advance(ctx, cy, StageFailed, func(cy *Cycle) { cy.Error = errors.Describe(err) })
}

func (c *Coordinator) acquire(ctx context.Context) bool {
	if !c.busy.CompareAndSwap(false, true) {
		return false
	}
	if err := c.state.SetProcessing(ctx, true); err != nil {
		c.log.Warn("state: " + errors.Describe(err))
	}
	return true
}

func (c *Coordinator) release(ctx context.Context) {
	if err := c.state.SetProcessing(context.WithoutCancel(ctx), false); err != nil {
		c.log.Warn("state: " + errors.Describe(err))
	}
	c.busy.Store(false)
}

// Claim holds the processing flag taken by TryStart. Its cycle methods run
// without taking the flag again; Release gives it back and is safe to call
// more than once.
type Claim struct {
	c    *Coordinator
	once sync.Once
}

// TryStart takes the processing flag for a cycle that will run later, for
// callers that must answer before the cycle starts. It returns false when
// a cycle is already running.
func (c *Coordinator) TryStart(ctx context.Context) (*Claim, bool) {
	if !c.acquire(ctx) {
		return nil, false
	}
	return &Claim{c: c}, true
}

// Release frees the processing flag.
func (cl *Claim) Release(ctx context.Context) {
	cl.once.Do(func() { cl.c.release(ctx) })
}

// ProcessTranscripts is Coordinator.ProcessTranscripts under the claim.
func (cl *Claim) ProcessTranscripts(ctx context.Context) (Result, error) {
	return cl.c.processTranscripts(ctx)
}

// SubmitSummary is Coordinator.SubmitSummary under the claim.
func (cl *Claim) SubmitSummary(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{}, errors.MissingField("summary")
	}
	return cl.c.submitSummary(ctx, text)
}

// RandomCycle is Coordinator.RandomCycle under the claim.
func (cl *Claim) RandomCycle(ctx context.Context, seed provider.Seed) (Result, error) {
	return cl.c.randomCycle(ctx, seed)
}

package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"maps"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/phrame/acquisition"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/resilience"
	"github.com/kbukum/phrame/storage/local"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type memImage struct {
	ID        string
	SummaryID string
	Filename  string
	Meta      map[string]string
	CreatedAt time.Time
}

type memStore struct {
	mu          sync.Mutex
	now         func() time.Time
	seq         int
	transcripts []Transcript
	summaries   []Summary
	images      []memImage
}

func newMemStore(now func() time.Time) *memStore { return &memStore{now: now} }

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) addTranscript(text string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = append(s.transcripts, Transcript{ID: s.nextID("t"), Text: text, CreatedAt: at})
}

func (s *memStore) CreateTranscript(_ context.Context, text string) (Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := Transcript{ID: s.nextID("t"), Text: text, CreatedAt: s.now()}
	s.transcripts = append(s.transcripts, t)
	return t, nil
}

func (s *memStore) ListRecentTranscripts(_ context.Context, since time.Time) ([]Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Transcript
	for _, t := range s.transcripts {
		if !t.CreatedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) DeleteTranscripts(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.transcripts[:0]
	for _, t := range s.transcripts {
		if !drop[t.ID] {
			kept = append(kept, t)
		}
	}
	s.transcripts = kept
	return nil
}

func (s *memStore) DeleteTranscriptsBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.transcripts[:0]
	var n int64
	for _, t := range s.transcripts {
		if t.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	s.transcripts = kept
	return n, nil
}

func (s *memStore) CountTranscriptsSince(ctx context.Context, since time.Time) (int64, error) {
	ts, _ := s.ListRecentTranscripts(ctx, since)
	return int64(len(ts)), nil
}

func (s *memStore) LatestImageTime(context.Context) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest time.Time
	for _, img := range s.images {
		if img.CreatedAt.After(latest) {
			latest = img.CreatedAt
		}
	}
	return latest, len(s.images) > 0, nil
}

func (s *memStore) CreateSummary(_ context.Context, text string) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := Summary{ID: s.nextID("s"), Text: text, CreatedAt: s.now()}
	s.summaries = append(s.summaries, sum)
	return sum, nil
}

func (s *memStore) CreateImage(_ context.Context, summaryID, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := memImage{ID: s.nextID("i"), SummaryID: summaryID, Filename: filename, CreatedAt: s.now()}
	s.images = append(s.images, img)
	return img.ID, nil
}

func (s *memStore) AttachMetadata(_ context.Context, imageID string, meta map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.images {
		if s.images[i].ID == imageID {
			s.images[i].Meta = meta
			return nil
		}
	}
	return errors.New("no image " + imageID)
}

type fakeProvider struct {
	name        provider.Name
	styles      []string
	generate    func(ctx context.Context, req provider.ImageRequest) ([]provider.GeneratedImage, error)
	summarize   func(transcripts []string) (string, error)
	genCalls    atomic.Int32
	summaryArgs []string
}

func (p *fakeProvider) Name() string                   { return string(p.name) }
func (p *fakeProvider) IsAvailable(context.Context) bool { return true }
func (p *fakeProvider) ImageOptions() provider.ImageOptions {
	return provider.ImageOptions{Enable: true, Style: p.styles}
}

func (p *fakeProvider) GenerateImages(ctx context.Context, req provider.ImageRequest) ([]provider.GeneratedImage, error) {
	p.genCalls.Add(1)
	return p.generate(ctx, req)
}

func (p *fakeProvider) Summarize(_ context.Context, transcripts []string) (string, error) {
	p.summaryArgs = transcripts
	return p.summarize(transcripts)
}

func (p *fakeProvider) RandomSummary(_ context.Context, seed provider.Seed) (string, error) {
	return "random " + seed.Context, nil
}

func (p *fakeProvider) SelfTest(context.Context) provider.HealthStatus {
	return provider.Degraded(p.name, "unexpected answer", map[string]any{"api_key": "sk-123"})
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Broadcast(_ context.Context, event string, _ any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e == event {
			c++
		}
	}
	return c
}

// echoAcquirer saves every generated image under a synthetic name.
type echoAcquirer struct{}

func (echoAcquirer) Acquire(_ context.Context, b provider.Batch) []provider.SavedImage {
	out := make([]provider.SavedImage, len(b.Images))
	for i := range b.Images {
		out[i] = provider.SavedImage{Provider: b.Provider, Style: b.Style, Filename: fmt.Sprintf("%s-%s-%d.png", b.Provider, b.Style, i)}
	}
	return out
}

func testAttempter(w *syncBuffer) *resilience.Attempter {
	return resilience.NewAttempter(resilience.DefaultAttemptConfig(), logger.NewWithWriter(w, "debug", "test"),
		resilience.WithSleep(func(context.Context, time.Duration) error { return nil }),
		resilience.WithRand(func() float64 { return 0 }),
	)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func inlineGenerator(name provider.Name, payload []byte) func(context.Context, provider.ImageRequest) ([]provider.GeneratedImage, error) {
	return func(_ context.Context, req provider.ImageRequest) ([]provider.GeneratedImage, error) {
		return []provider.GeneratedImage{provider.InlineImage(name, req.Style, payload)}, nil
	}
}

func register(t *testing.T, ps ...provider.Provider) *provider.Registry {
	t.Helper()
	reg := provider.NewRegistry()
	for _, p := range ps {
		if err := reg.Register(p); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func TestProcessTranscripts_EndToEnd(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := newMemStore(clock)
	for i := 0; i < 5; i++ {
		store.addTranscript(fmt.Sprintf("we talked about lakes %d", i), now.Add(-time.Minute))
	}
	store.addTranscript("too old to count", now.Add(-time.Hour))

	payload := pngBytes(t)
	openai := &fakeProvider{
		name:      provider.OpenAI,
		styles:    []string{"cinematic"},
		generate:  inlineGenerator(provider.OpenAI, payload),
		summarize: func([]string) (string, error) { return "a lake at dawn", nil },
	}
	stability := &fakeProvider{
		name:     provider.StabilityAI,
		generate: inlineGenerator(provider.StabilityAI, payload),
	}

	var logs syncBuffer
	att := testAttempter(&logs)
	notifier := &recordingNotifier{}
	files, err := local.NewStorage(t.TempDir(), "/images")
	if err != nil {
		t.Fatal(err)
	}
	acq, err := acquisition.New(acquisition.Config{}, files, att,
		acquisition.WithSink(NewPersister(store, notifier, att.Logger())),
		acquisition.WithClock(clock),
	)
	if err != nil {
		t.Fatal(err)
	}

	state := NewStateStore(nil)
	coord := New(Config{TranscriptWindow: 30 * time.Minute}, register(t, openai, stability), store, att, acq,
		WithNotifier(notifier), WithStateStore(state), WithClock(clock))

	res, err := coord.ProcessTranscripts(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if res.Stage != StageReady || len(res.Images) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if len(openai.summaryArgs) != 5 {
		t.Errorf("summarized %d transcripts, want 5", len(openai.summaryArgs))
	}
	if len(store.summaries) != 1 || store.summaries[0].Text != "a lake at dawn" || res.SummaryID != store.summaries[0].ID {
		t.Errorf("summaries = %+v", store.summaries)
	}
	if len(store.transcripts) != 1 {
		t.Errorf("transcripts left = %d, want only the old one", len(store.transcripts))
	}

	if len(store.images) != 2 {
		t.Fatalf("persisted images = %d", len(store.images))
	}
	ais := []string{store.images[0].Meta["ai"], store.images[1].Meta["ai"]}
	sort.Strings(ais)
	if ais[0] != "openai" || ais[1] != "stabilityai" {
		t.Errorf("image ai metadata = %v", ais)
	}
	for _, img := range store.images {
		if img.SummaryID != res.SummaryID || img.Meta["style"] == "" {
			t.Errorf("image = %+v", img)
		}
	}

	if got := notifier.count(EventNewImage); got != 2 {
		t.Errorf("new-image events = %d, want 2", got)
	}
	if got := notifier.count(EventImagesReady); got != 2 {
		t.Errorf("images.ready events = %d, want 2", got)
	}

	cy, ok := coord.State(res.SummaryID)
	if !ok || cy.Stage != StageReady || cy.Images != 2 {
		t.Errorf("state = %+v, %v", cy, ok)
	}
	st, _ := state.Get(context.Background())
	if st.Processing {
		t.Error("processing flag left set")
	}
	for _, want := range []string{"stage: collecting", "stage: summarizing", "stage: generating", "stage: ready"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("missing log %q", want)
		}
	}
}

func TestGenerateImagesForSummary_IsolatesProviderFailures(t *testing.T) {
	ok := &fakeProvider{
		name:   provider.OpenAI,
		styles: []string{"a", "b"},
		generate: func(_ context.Context, req provider.ImageRequest) ([]provider.GeneratedImage, error) {
			return []provider.GeneratedImage{provider.URLImage(provider.OpenAI, req.Style, "https://img/"+req.Style)}, nil
		},
	}
	failing := &fakeProvider{
		name: provider.StabilityAI,
		generate: func(context.Context, provider.ImageRequest) ([]provider.GeneratedImage, error) {
			return nil, errors.New("engine overloaded")
		},
	}
	panicking := &fakeProvider{
		name: provider.DeepAI,
		generate: func(context.Context, provider.ImageRequest) ([]provider.GeneratedImage, error) {
			panic("unexpected nil")
		},
	}

	var logs syncBuffer
	notifier := &recordingNotifier{}
	coord := New(Config{}, register(t, ok, failing, panicking), newMemStore(time.Now), testAttempter(&logs), echoAcquirer{},
		WithNotifier(notifier))

	res := coord.GenerateImagesForSummary(context.Background(), "sum-1", "a quiet lake")

	if res.Stage != StageReady || len(res.Images) != 2 {
		t.Fatalf("result = %+v", res)
	}
	for _, img := range res.Images {
		if img.Provider != provider.OpenAI {
			t.Errorf("image from %s", img.Provider)
		}
	}
	if got := failing.genCalls.Load(); got != 3 {
		t.Errorf("failing provider called %d times, want 3", got)
	}
	byName := map[provider.Name]ProviderResult{}
	for _, pr := range res.Providers {
		byName[pr.Provider] = pr
	}
	if byName[provider.DeepAI].Error == "" {
		t.Errorf("panicking provider result = %+v", byName[provider.DeepAI])
	}
	if byName[provider.StabilityAI].Error != "" || len(byName[provider.StabilityAI].Images) != 0 {
		t.Errorf("failing provider result = %+v", byName[provider.StabilityAI])
	}
	if got := notifier.count(EventImagesReady); got != 2 {
		t.Errorf("images.ready events = %d, want 2 (panicking branch sends none)", got)
	}
	if !strings.Contains(logs.String(), "image retries exhausted") {
		t.Error("missing exhaustion log")
	}
	if !strings.Contains(logs.String(), "deepai branch failed") {
		t.Error("missing branch failure log")
	}
	cy, found := coord.State("sum-1")
	if !found || cy.Stage != StageReady {
		t.Errorf("state = %+v", cy)
	}
}

func TestGenerateImagesForSummary_NoProviders(t *testing.T) {
	var logs syncBuffer
	coord := New(Config{}, provider.NewRegistry(), newMemStore(time.Now), testAttempter(&logs), echoAcquirer{})
	res := coord.GenerateImagesForSummary(context.Background(), "sum-1", "x")
	if res.Stage != StageReady || len(res.Images) != 0 {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(logs.String(), "no active ai image services") {
		t.Error("missing warning")
	}
}

func TestRequestSummary_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	p := &fakeProvider{name: provider.OpenAI, summarize: func([]string) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("rate limited")
		}
		return "a garden", nil
	}}
	var logs syncBuffer
	coord := New(Config{}, register(t, p), newMemStore(time.Now), testAttempter(&logs), echoAcquirer{})

	got, ok := coord.RequestSummary(context.Background(), provider.OpenAI, []string{"hello there you"})
	if !ok || got != "a garden" {
		t.Errorf("got %q, %v", got, ok)
	}
	if !strings.Contains(logs.String(), "summary attempt: 3") {
		t.Error("missing third attempt log")
	}

	if _, ok := coord.RequestSummary(context.Background(), provider.Gemini, nil); ok {
		t.Error("unregistered provider should fail")
	}
}

func TestRequestRandomSummary(t *testing.T) {
	p := &fakeProvider{name: provider.OpenAI}
	var logs syncBuffer
	coord := New(Config{}, register(t, p), newMemStore(time.Now), testAttempter(&logs), echoAcquirer{})
	got, ok := coord.RequestRandomSummary(context.Background(), provider.OpenAI, provider.Seed{Context: "owls"})
	if !ok || got != "random owls" {
		t.Errorf("got %q, %v", got, ok)
	}
}

func TestTestProviderConnectivity(t *testing.T) {
	p := &fakeProvider{name: provider.OpenAI}
	var logs syncBuffer
	coord := New(Config{}, register(t, p), newMemStore(time.Now), testAttempter(&logs), echoAcquirer{})

	if st := coord.TestProviderConnectivity(context.Background(), provider.OpenAI); st.Status != provider.StatusDegraded {
		t.Errorf("status = %+v", st)
	}
	if strings.Contains(logs.String(), "sk-123") {
		t.Error("details were logged unredacted")
	}
	if st := coord.TestProviderConnectivity(context.Background(), provider.Midjourney); st.Status != provider.StatusUnavailable {
		t.Errorf("unconfigured status = %+v", st)
	}
}

func TestSubmitSummary_SkipsSummarizing(t *testing.T) {
	p := &fakeProvider{
		name:     provider.OpenAI,
		generate: inlineGenerator(provider.OpenAI, []byte("x")),
		summarize: func([]string) (string, error) {
			t.Error("summarizer called")
			return "", nil
		},
	}
	var logs syncBuffer
	store := newMemStore(time.Now)
	coord := New(Config{}, register(t, p), store, testAttempter(&logs), echoAcquirer{})

	res, err := coord.SubmitSummary(context.Background(), "a red fox")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Images) != 1 || len(store.summaries) != 1 {
		t.Errorf("result = %+v", res)
	}
	if strings.Contains(logs.String(), "stage: summarizing") {
		t.Error("manual summary went through summarizing")
	}
	if _, err := coord.SubmitSummary(context.Background(), ""); err == nil {
		t.Error("empty summary accepted")
	}
}

func TestProcessTranscripts_Busy(t *testing.T) {
	var logs syncBuffer
	coord := New(Config{}, provider.NewRegistry(), newMemStore(time.Now), testAttempter(&logs), echoAcquirer{})
	coord.busy.Store(true)
	if _, err := coord.ProcessTranscripts(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
}

func TestTryStart_HoldsFlagUntilRelease(t *testing.T) {
	p := &fakeProvider{name: provider.OpenAI, generate: inlineGenerator(provider.OpenAI, []byte("x"))}
	var logs syncBuffer
	store := newMemStore(time.Now)
	coord := New(Config{}, register(t, p), store, testAttempter(&logs), echoAcquirer{})
	ctx := context.Background()

	claim, ok := coord.TryStart(ctx)
	if !ok {
		t.Fatal("first claim refused")
	}
	if _, ok := coord.TryStart(ctx); ok {
		t.Error("second claim granted while the first is held")
	}
	if _, err := coord.RandomCycle(ctx, provider.Seed{}); !errors.Is(err, ErrBusy) {
		t.Errorf("RandomCycle err = %v, want ErrBusy", err)
	}

	res, err := claim.SubmitSummary(ctx, "a red fox")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Images) != 1 || !coord.Busy() {
		t.Errorf("images = %d busy = %v, want 1 and still busy", len(res.Images), coord.Busy())
	}
	if _, err := claim.SubmitSummary(ctx, ""); err == nil {
		t.Error("empty summary accepted")
	}

	claim.Release(ctx)
	claim.Release(ctx)
	if coord.Busy() {
		t.Error("flag still held after Release")
	}
	next, ok := coord.TryStart(ctx)
	if !ok {
		t.Fatal("claim refused after release")
	}
	next.Release(ctx)
}

func TestProcessTranscripts_SummaryFailureEndsCycle(t *testing.T) {
	p := &fakeProvider{name: provider.OpenAI, summarize: func([]string) (string, error) { return "", errors.New("down") }}
	var logs syncBuffer
	store := newMemStore(time.Now)
	store.addTranscript("one two three", time.Now())
	coord := New(Config{}, register(t, p), store, testAttempter(&logs), echoAcquirer{})

	if _, err := coord.ProcessTranscripts(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	cycles := coord.Cycles()
	if len(cycles) != 1 || cycles[0].Stage != StageFailed {
		t.Errorf("cycles = %+v", cycles)
	}
	if len(store.summaries) != 0 {
		t.Error("summary stored after failure")
	}
}

func imagesReady(summaryID string, images ...provider.SavedImage) acquisition.ImagesReady {
	return acquisition.ImagesReady{SummaryID: summaryID, Images: images}
}

func TestPersister_MergesImageMetadata(t *testing.T) {
	store := newMemStore(time.Now)
	p := NewPersister(store, nil, nil)
	p.HandleImagesReady(context.Background(), acquisition.ImagesReady{
		SummaryID: "s-1",
		Images: []provider.SavedImage{{
			Provider: provider.OpenAI,
			Filename: "1-openai-vivid.png",
			Style:    "vivid",
			Metadata: map[string]string{"revised_prompt": "a lake at dusk", "ai": "spoofed"},
		}},
	})
	if len(store.images) != 1 {
		t.Fatalf("images = %+v", store.images)
	}
	want := map[string]string{"ai": "openai", "style": "vivid", "revised_prompt": "a lake at dusk"}
	if got := store.images[0].Meta; !maps.Equal(got, want) {
		t.Errorf("meta = %v, want %v", got, want)
	}
}

type panickingTester struct{ name provider.Name }

func (p panickingTester) Name() string                     { return string(p.name) }
func (p panickingTester) IsAvailable(context.Context) bool { return true }
func (p panickingTester) SelfTest(context.Context) provider.HealthStatus {
	panic("self test exploded")
}

type silentProvider struct{ name provider.Name }

func (p silentProvider) Name() string                     { return string(p.name) }
func (p silentProvider) IsAvailable(context.Context) bool { return true }

func TestTestAllProviders(t *testing.T) {
	var logs syncBuffer
	reg := register(t,
		&fakeProvider{name: provider.OpenAI},
		panickingTester{name: provider.DeepAI},
		silentProvider{name: provider.Gemini},
	)
	coord := New(Config{}, reg, newMemStore(time.Now), testAttempter(&logs), echoAcquirer{})

	got := coord.TestAllProviders(context.Background())
	want := []struct {
		name   provider.Name
		status provider.Status
	}{
		{provider.OpenAI, provider.StatusDegraded},
		{provider.DeepAI, provider.StatusUnavailable},
		{provider.Gemini, provider.StatusUnavailable},
	}
	if len(got) != len(want) {
		t.Fatalf("statuses = %+v", got)
	}
	for i, w := range want {
		if got[i].Provider != w.name || got[i].Status != w.status {
			t.Errorf("status[%d] = %s/%s, want %s/%s", i, got[i].Provider, got[i].Status, w.name, w.status)
		}
	}
	if !strings.Contains(got[1].Message, "self test exploded") {
		t.Errorf("panic message = %q", got[1].Message)
	}
}

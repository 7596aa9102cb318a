package midjourney

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/resilience"
)

type fakeSession struct {
	jobMode     string
	connectErr  error
	upscaleFail map[int]int // index -> remaining failures

	prompt      string
	imagineWait time.Duration
	upscaled    []int
	closed      int
}

func (f *fakeSession) Connect(context.Context) error { return f.connectErr }

func (f *fakeSession) Info(context.Context) (Info, error) {
	return Info{JobMode: f.jobMode}, nil
}

func (f *fakeSession) Imagine(ctx context.Context, prompt string, progress ProgressFunc) (Message, error) {
	f.prompt = prompt
	if dl, ok := ctx.Deadline(); ok {
		f.imagineWait = time.Until(dl)
	}
	progress("", "50%")
	return Message{ID: "m1", Hash: "abc", URI: "https://cdn/grid.png"}, nil
}

func (f *fakeSession) Upscale(_ context.Context, msg Message, index int, _ ProgressFunc) (Message, error) {
	if f.upscaleFail[index] > 0 {
		f.upscaleFail[index]--
		return Message{}, errors.New("button expired")
	}
	f.upscaled = append(f.upscaled, index)
	return Message{ID: "u", URI: "https://cdn/up-" + msg.Hash + "-" + string(rune('0'+index)) + ".png"}, nil
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

func newTestAdapter(t *testing.T, buf *bytes.Buffer, upscale string, sessions *[]*fakeSession, mk func() *fakeSession) *Adapter {
	t.Helper()
	att := resilience.NewAttempter(resilience.DefaultAttemptConfig(), logger.NewWithWriter(buf, "debug", "test"),
		resilience.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	a, err := New(Config{Token: "t", ChannelID: "c", Image: ImageConfig{Upscale: upscale}}, att,
		WithSessionFactory(func() (Session, error) {
			s := mk()
			*sessions = append(*sessions, s)
			return s, nil
		}),
		WithIntn(func(int) int { return 2 }),
	)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestGenerateImages_FixedUpscale(t *testing.T) {
	var buf bytes.Buffer
	var sessions []*fakeSession
	a := newTestAdapter(t, &buf, "2", &sessions, func() *fakeSession {
		return &fakeSession{jobMode: "Relaxed", upscaleFail: map[int]int{2: 1}}
	})

	images, err := a.GenerateImages(context.Background(), provider.ImageRequest{Summary: "a lake", Style: "cinematic"})
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 3 {
		t.Fatalf("images = %+v", images)
	}
	s := sessions[0]
	if s.prompt != "a lake, cinematic --chaos 80 --no text" {
		t.Errorf("prompt = %q", s.prompt)
	}
	if s.imagineWait <= fastWait {
		t.Errorf("relaxed mode should wait longer, got %v", s.imagineWait)
	}
	if len(s.upscaled) != 2 || s.upscaled[0] != 1 || s.upscaled[1] != 2 {
		t.Errorf("upscaled = %v", s.upscaled)
	}
	if s.closed != 1 {
		t.Errorf("closed = %d", s.closed)
	}
	out := buf.String()
	for _, want := range []string{"imagine: 50%", "upscale 1/4 attempt: 1", "upscale 2/4 attempt: 2", "upscale 2/4: button expired"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestGenerateImages_RandomAndNone(t *testing.T) {
	var buf bytes.Buffer
	var sessions []*fakeSession
	mk := func() *fakeSession { return &fakeSession{jobMode: "Fast"} }

	a := newTestAdapter(t, &buf, "random", &sessions, mk)
	images, err := a.GenerateImages(context.Background(), provider.ImageRequest{Summary: "x", Style: provider.NoStyle})
	if err != nil || len(images) != 2 {
		t.Fatalf("images = %v, err = %v", images, err)
	}
	if got := sessions[0].upscaled; len(got) != 1 || got[0] != 3 {
		t.Errorf("upscaled = %v", got)
	}
	if sessions[0].imagineWait > fastWait {
		t.Errorf("wait = %v", sessions[0].imagineWait)
	}
	if sessions[0].prompt != "x --chaos 80 --no text" {
		t.Errorf("prompt = %q", sessions[0].prompt)
	}

	b := newTestAdapter(t, &buf, "none", &sessions, mk)
	images, err = b.GenerateImages(context.Background(), provider.ImageRequest{Summary: "x", Style: "s"})
	if err != nil || len(images) != 1 {
		t.Fatalf("images = %v, err = %v", images, err)
	}
}

func TestGenerateImages_ConnectFailureClosesSession(t *testing.T) {
	var buf bytes.Buffer
	var sessions []*fakeSession
	a := newTestAdapter(t, &buf, "none", &sessions, func() *fakeSession {
		return &fakeSession{connectErr: errors.New("client timeout")}
	})
	if _, err := a.GenerateImages(context.Background(), provider.ImageRequest{Summary: "x", Style: "s"}); err == nil {
		t.Fatal("expected error")
	}
	if sessions[0].closed != 1 {
		t.Errorf("closed = %d", sessions[0].closed)
	}
}

func TestSelfTest_CachesHealthyStatus(t *testing.T) {
	var buf bytes.Buffer
	var sessions []*fakeSession
	a := newTestAdapter(t, &buf, "none", &sessions, func() *fakeSession {
		return &fakeSession{jobMode: "Fast"}
	})

	for i := 0; i < 3; i++ {
		if h := a.SelfTest(context.Background()); !h.OK() || h.Message != "job mode: Fast" {
			t.Fatalf("status = %+v", h)
		}
	}
	if len(sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(sessions))
	}
}

func TestSelfTest_FailureNotCached(t *testing.T) {
	var buf bytes.Buffer
	var sessions []*fakeSession
	a := newTestAdapter(t, &buf, "none", &sessions, func() *fakeSession {
		return &fakeSession{connectErr: errors.New("bad token")}
	})
	a.SelfTest(context.Background())
	if h := a.SelfTest(context.Background()); h.Status != provider.StatusUnavailable {
		t.Errorf("status = %+v", h)
	}
	if len(sessions) != 2 {
		t.Errorf("sessions = %d, want 2", len(sessions))
	}
}

func TestParseUpscale(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"none", 0, false},
		{"", 0, false},
		{"random", -1, false},
		{"Random", -1, false},
		{"4", 4, false},
		{"5", 0, true},
		{"0", 0, true},
		{"all", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseUpscale(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseUpscale(%q) = %d, %v", tt.in, got, err)
		}
	}
	if _, err := New(Config{Image: ImageConfig{Upscale: "9"}}, resilience.NewAttempter(resilience.AttemptConfig{}, nil)); err == nil {
		t.Error("expected validation error")
	}
}

package leonardoai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/resilience"
)

func newTestAdapter(t *testing.T, h http.HandlerFunc, buf *bytes.Buffer) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	att := resilience.NewAttempter(resilience.DefaultAttemptConfig(), logger.NewWithWriter(buf, "debug", "test"),
		resilience.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	a, err := New(Config{Key: "leo", BaseURL: srv.URL, Image: ImageConfig{Timeout: 4, NumImages: 2}}, att)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestGenerateImages(t *testing.T) {
	var buf bytes.Buffer
	var polls atomic.Int32
	var got generationRequest
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/rest/v1/generations":
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"sdGenerationJob":{"generationId":"gen-1"}}`))
		case r.URL.Path == "/api/rest/v1/generations/gen-1":
			if polls.Add(1) < 3 {
				_, _ = w.Write([]byte(`{"generations_by_pk":{"status":"PENDING","generated_images":[]}}`))
				return
			}
			_, _ = w.Write([]byte(`{"generations_by_pk":{"status":"COMPLETE","generated_images":[{"url":"https://cdn.leo/1.jpg"},{"url":"https://cdn.leo/2.jpg"}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, &buf)

	images, err := a.GenerateImages(context.Background(), provider.ImageRequest{Summary: "a lake", Style: "watercolor"})
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 2 || images[1].Source.(provider.SourceURL).URL != "https://cdn.leo/2.jpg" {
		t.Errorf("images = %+v", images)
	}
	if got.Prompt != "a lake, watercolor" || got.NumImages != 2 || got.PresetStyle != "LEONARDO" {
		t.Errorf("request = %+v", got)
	}
	if polls.Load() != 3 {
		t.Errorf("polls = %d", polls.Load())
	}
}

func TestGenerateImages_PollErrorIsReturned(t *testing.T) {
	var buf bytes.Buffer
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"sdGenerationJob":{"generationId":"gen-1"}}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream down"}`))
	}, &buf)

	_, err := a.GenerateImages(context.Background(), provider.ImageRequest{Summary: "x", Style: "s"})
	if err == nil {
		t.Fatal("expected poll error")
	}
	if !strings.Contains(buf.String(), "wait for image: upstream down") {
		t.Errorf("logs:\n%s", buf.String())
	}
}

func TestGenerateImages_MissingGenerationID(t *testing.T) {
	var buf bytes.Buffer
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, &buf)
	images, err := a.GenerateImages(context.Background(), provider.ImageRequest{Summary: "x", Style: provider.NoStyle})
	if err != nil || images != nil {
		t.Fatalf("images = %v, err = %v", images, err)
	}
	if !strings.Contains(buf.String(), "generation id not found") {
		t.Error("missing log")
	}
}

func TestSelfTest(t *testing.T) {
	var buf bytes.Buffer
	ok := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user_details":[]}`))
	}, &buf)
	if h := ok.SelfTest(context.Background()); !h.OK() {
		t.Errorf("status = %+v", h)
	}
	bad := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}, &buf)
	if h := bad.SelfTest(context.Background()); h.OK() || h.Message != "invalid api key" {
		t.Errorf("status = %+v", h)
	}
}

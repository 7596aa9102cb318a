package stabilityai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kbukum/phrame/provider"
)

func newTestAdapter(t *testing.T, h http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	a, err := New(Config{Key: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestGenerateImages(t *testing.T) {
	var got generationRequest
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generation/stable-diffusion-512-v2-1/text-to-image" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"artifacts":[{"base64":"` + base64.StdEncoding.EncodeToString([]byte("png")) + `","finishReason":"SUCCESS"}]}`))
	})

	images, err := a.GenerateImages(context.Background(), provider.ImageRequest{Summary: "a lake", Style: "cinematic"})
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 1 {
		t.Fatalf("images = %d", len(images))
	}
	inline, ok := images[0].Source.(provider.SourceInline)
	if !ok || string(inline.Payload) != "png" || inline.Encoding != provider.EncodingRaw {
		t.Errorf("source = %#v", images[0].Source)
	}
	if got := images[0].Metadata["finish_reason"]; got != "SUCCESS" {
		t.Errorf("finish_reason = %q", got)
	}
	if got.StylePreset != "cinematic" || got.Width != 512 || got.Steps != 50 || got.TextPrompts[0].Text != "a lake" {
		t.Errorf("request = %+v", got)
	}
}

func TestGenerateImages_NoStyleOmitsPreset(t *testing.T) {
	var raw map[string]any
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"artifacts":[]}`))
	})

	_, err := a.GenerateImages(context.Background(), provider.ImageRequest{Summary: "x", Style: provider.NoStyle})
	if err == nil {
		t.Fatal("expected error for empty artifacts")
	}
	if _, ok := raw["style_preset"]; ok {
		t.Error("style_preset should be omitted")
	}
}

func TestDescribeError(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"id":"x","name":"bad_request","message":"invalid style_preset"}`))
	})

	_, err := a.GenerateImages(context.Background(), provider.ImageRequest{Summary: "x", Style: "nope"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := a.DescribeError(err); got != "invalid style_preset" {
		t.Errorf("DescribeError = %q", got)
	}
}

func TestSelfTest(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/user/balance" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if !strings.HasSuffix(r.Header.Get("Authorization"), "sk-test") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"missing key"}`))
			return
		}
		_, _ = w.Write([]byte(`{"credits":10}`))
	})
	if h := a.SelfTest(context.Background()); !h.OK() {
		t.Errorf("status = %+v", h)
	}

	bad := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"missing key"}`))
	})
	h := bad.SelfTest(context.Background())
	if h.Status != provider.StatusUnavailable || h.Message != "missing key" {
		t.Errorf("status = %+v", h)
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if c.BaseURL != defaultBaseURL || c.Image.Timeout != 30 || c.Image.CfgScale != 7 || c.Image.Style[0] != "cinematic" {
		t.Errorf("defaults = %+v", c)
	}
}

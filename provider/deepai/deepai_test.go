package deepai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/phrame/provider"
)

func newTestAdapter(t *testing.T, h http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	a, err := New(Config{Key: "deep-key", BaseURL: srv.URL, Image: ImageConfig{NegativePrompt: "text"}})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestGenerateImages_MultipartForm(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cyberpunk-generator" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("api-key") != "deep-key" {
			t.Errorf("api-key = %q", r.Header.Get("api-key"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		want := map[string]string{"text": "a lake", "grid_size": "1", "width": "512", "height": "512", "negative_prompt": "text"}
		for k, v := range want {
			if got := r.FormValue(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		_, _ = w.Write([]byte(`{"id":"1","output_url":"https://api.deepai.org/job-view-file/1.png"}`))
	})

	images, err := a.GenerateImages(context.Background(), provider.ImageRequest{Summary: "a lake", Style: "cyberpunk-generator"})
	if err != nil {
		t.Fatal(err)
	}
	src, ok := images[0].Source.(provider.SourceURL)
	if len(images) != 1 || !ok || src.URL != "https://api.deepai.org/job-view-file/1.png" {
		t.Errorf("images = %+v", images)
	}
}

func TestGenerateImages_NoStyleUsesText2Img(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/text2img" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"1"}`))
	})
	if _, err := a.GenerateImages(context.Background(), provider.ImageRequest{Summary: "x", Style: provider.NoStyle}); err == nil {
		t.Error("expected error when output_url is missing")
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"status", `{"status":"Out of credits"}`, "Out of credits"},
		{"err", `{"err":"bad grid"}`, "bad grid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := a.GenerateImages(context.Background(), provider.ImageRequest{Summary: "x", Style: "text2img"})
			if got := a.DescribeError(err); got != tt.want {
				t.Errorf("DescribeError = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelfTest(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "" {
			t.Error("self test must not send the key")
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"Please pass a valid Api-Key in a HTTP header called 'Api-Key'"}`))
	})
	if h := a.SelfTest(context.Background()); !h.OK() {
		t.Errorf("status = %+v", h)
	}

	odd := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"maintenance"}`))
	})
	if h := odd.SelfTest(context.Background()); h.Status != provider.StatusDegraded {
		t.Errorf("status = %+v", h)
	}
}

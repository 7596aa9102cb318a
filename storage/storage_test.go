package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/kbukum/phrame/logger"
)

type memStorage struct {
	data map[string][]byte
}

func (m *memStorage) Upload(_ context.Context, path string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.data[path] = data
	return nil
}

func (m *memStorage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := m.data[path]
	if !ok {
		return nil, fmt.Errorf("not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) Delete(_ context.Context, path string) error { delete(m.data, path); return nil }
func (m *memStorage) Exists(_ context.Context, path string) (bool, error) {
	_, ok := m.data[path]
	return ok, nil
}
func (m *memStorage) URL(_ context.Context, path string) (string, error) { return "/" + path, nil }
func (m *memStorage) List(context.Context, string) ([]FileInfo, error)   { return nil, nil }

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Provider != ProviderLocal || cfg.BasePath != DefaultBasePath || cfg.PublicURL != "/images" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"s3 without bucket", Config{Provider: ProviderS3, Region: "us-east-1"}, "bucket is required"},
		{"s3 ok", Config{Provider: ProviderS3, Bucket: "b", Region: "us-east-1"}, ""},
		{"unknown", Config{Provider: "gcs"}, "unsupported provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestNew_UsesRegisteredFactory(t *testing.T) {
	mem := &memStorage{data: map[string][]byte{}}
	factoriesMu.RLock()
	prev := factories[ProviderLocal]
	factoriesMu.RUnlock()
	RegisterFactory(ProviderLocal, func(context.Context, Config, *logger.Logger) (Storage, error) { return mem, nil })
	defer func() {
		factoriesMu.Lock()
		if prev == nil {
			delete(factories, ProviderLocal)
		} else {
			factories[ProviderLocal] = prev
		}
		factoriesMu.Unlock()
	}()

	s, err := New(context.Background(), Config{}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if s != mem {
		t.Error("expected the registered backend")
	}
}

func TestNew_UnregisteredProvider(t *testing.T) {
	factoriesMu.Lock()
	prev, had := factories[ProviderS3]
	delete(factories, ProviderS3)
	factoriesMu.Unlock()
	defer func() {
		if had {
			RegisterFactory(ProviderS3, prev)
		}
	}()

	_, err := New(context.Background(), Config{Provider: ProviderS3, Bucket: "b"}, nil)
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected not registered error, got %v", err)
	}
}

func TestBytesHelpers(t *testing.T) {
	mem := &memStorage{data: map[string][]byte{}}
	ctx := context.Background()
	if err := WriteBytes(ctx, mem, "a.png", []byte("png")); err != nil {
		t.Fatal(err)
	}
	got, err := ReadBytes(ctx, mem, "a.png")
	if err != nil || string(got) != "png" {
		t.Errorf("ReadBytes() = %q, %v", got, err)
	}
	if _, err := ReadBytes(ctx, mem, "missing.png"); err == nil {
		t.Error("expected error for missing object")
	}
}

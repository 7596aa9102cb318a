package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/phrame/storage"
)

func TestStorage_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, "/images/")
	if err != nil {
		t.Fatalf("NewStorage() error: %v", err)
	}
	ctx := context.Background()

	if err := s.Upload(ctx, "1700000000000-openai-cinematic.png", bytes.NewReader([]byte("png-bytes"))); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	ok, err := s.Exists(ctx, "1700000000000-openai-cinematic.png")
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v", ok, err)
	}

	rc, err := s.Download(ctx, "1700000000000-openai-cinematic.png")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "png-bytes" {
		t.Errorf("data = %q", data)
	}

	url, _ := s.URL(ctx, "1700000000000-openai-cinematic.png")
	if url != "/images/1700000000000-openai-cinematic.png" {
		t.Errorf("URL() = %q", url)
	}

	if err := s.Delete(ctx, "1700000000000-openai-cinematic.png"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if ok, _ := s.Exists(ctx, "1700000000000-openai-cinematic.png"); ok {
		t.Error("file should be gone")
	}
	if err := s.Delete(ctx, "never-existed.png"); err != nil {
		t.Errorf("deleting a missing file should succeed, got %v", err)
	}
}

func TestStorage_UploadOverwrites(t *testing.T) {
	s, _ := NewStorage(t.TempDir(), "")
	ctx := context.Background()
	s.Upload(ctx, "a.png", strings.NewReader("first"))
	s.Upload(ctx, "a.png", strings.NewReader("second"))

	got, err := storage.ReadBytes(ctx, s, "a.png")
	if err != nil || string(got) != "second" {
		t.Errorf("ReadBytes() = %q, %v", got, err)
	}
	entries, _ := os.ReadDir(s.BasePath())
	if len(entries) != 1 {
		t.Errorf("expected no temp files left, got %d entries", len(entries))
	}
}

func TestStorage_PathsStayInsideBase(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStorage(filepath.Join(dir, "images"), "")
	ctx := context.Background()

	if err := s.Upload(ctx, "../escape.png", strings.NewReader("x")); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.png")); !os.IsNotExist(err) {
		t.Error("upload escaped the base directory")
	}
	if ok, _ := s.Exists(ctx, "escape.png"); !ok {
		t.Error("expected the file inside the base directory")
	}
}

func TestStorage_List(t *testing.T) {
	s, _ := NewStorage(t.TempDir(), "")
	ctx := context.Background()
	for _, name := range []string{"2-dream-b.png", "1-openai-a.png", "3-dream-c.png"} {
		s.Upload(ctx, name, strings.NewReader(name))
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Path != "1-openai-a.png" {
		t.Errorf("List() = %+v", all)
	}
	if all[0].ContentType != "image/png" {
		t.Errorf("content type = %q", all[0].ContentType)
	}

	some, _ := s.List(ctx, "2-")
	if len(some) != 1 || some[0].Path != "2-dream-b.png" {
		t.Errorf("List(prefix) = %+v", some)
	}
}

func TestStorage_DownloadMissing(t *testing.T) {
	s, _ := NewStorage(t.TempDir(), "")
	if _, err := s.Download(context.Background(), "missing.png"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestFactoryRegistered(t *testing.T) {
	s, err := storage.New(context.Background(), storage.Config{Provider: storage.ProviderLocal, BasePath: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("storage.New() error: %v", err)
	}
	if _, ok := s.(*Storage); !ok {
		t.Errorf("expected *local.Storage, got %T", s)
	}
}

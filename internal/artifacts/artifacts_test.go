package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/config"
)

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/exports/")
	if err != nil {
		t.Fatal(err)
	}

	url, err := s.Put(context.Background(), "abc.pdf", "application/pdf", []byte("%PDF-1"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "/exports/abc.pdf" {
		t.Errorf("url = %q", url)
	}

	// same key overwrites
	if _, err := s.Put(context.Background(), "abc.pdf", "application/pdf", []byte("%PDF-2")); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(filepath.Join(dir, "abc.pdf"))
	if string(got) != "%PDF-2" {
		t.Errorf("content = %q", got)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestLocalStoreRejectsBadKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/exports")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "../x.pdf", "a/b.pdf", ".hidden"} {
		if _, err := s.Put(context.Background(), key, "", nil); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("key %q: got %v", key, err)
		}
	}
}

func TestNewDefaultsToLocal(t *testing.T) {
	cfg := &config.Config{ExportsDir: t.TempDir(), PublicBaseURL: "http://localhost:8888/"}
	store, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	url, err := store.Put(context.Background(), "k.pptx", "", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if url != "http://localhost:8888/exports/k.pptx" {
		t.Errorf("url = %q", url)
	}
}

func TestNewS3StoreBuildsClient(t *testing.T) {
	s, err := NewS3Store("localhost:9000", "key", "secret", "bucket", "us-east-1", false, time.Hour)
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	if s.bucketName != "bucket" || s.expiry != time.Hour {
		t.Errorf("unexpected store %+v", s)
	}
}

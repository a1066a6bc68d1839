// Package artifacts stores exported documents and hands back download URLs.
package artifacts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/config"
)

// Store persists an artifact under key and returns a URL it can be downloaded from.
// Putting the same key twice overwrites the object.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// New picks S3 when it is configured, else the local exports directory.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.UseS3() {
		s, err := NewS3Store(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Region, cfg.S3UseSSL, cfg.PresignExpiry)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		slog.Info("Storing exports in S3", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		return s, nil
	}

	slog.Info("Storing exports on disk", "dir", cfg.ExportsDir)
	return NewLocalStore(cfg.ExportsDir, strings.TrimRight(cfg.PublicBaseURL, "/")+"/exports")
}

// LocalStore writes artifacts to a directory served by the HTTP layer.
type LocalStore struct {
	dir     string
	urlBase string
}

func NewLocalStore(dir, urlBase string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	return &LocalStore{dir: dir, urlBase: strings.TrimRight(urlBase, "/")}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	// write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", apperr.Upstream(err, false, "failed to create export file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", apperr.Upstream(err, false, "failed to write export file")
	}
	if err := tmp.Close(); err != nil {
		return "", apperr.Upstream(err, false, "failed to close export file")
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, key)); err != nil {
		return "", apperr.Upstream(err, false, "failed to store export file")
	}

	return s.urlBase + "/" + key, nil
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return apperr.InvalidInput("invalid artifact key %q", key)
	}
	return nil
}

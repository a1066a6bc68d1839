package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/boarddeck/boarddeck/internal/apperr"
)

// Fetcher downloads whiteboard images referenced by URL.
type Fetcher struct {
	HTTPClient *http.Client
	MaxBytes   int64
}

// NewFetcher creates a fetcher that refuses bodies larger than maxBytes.
func NewFetcher(maxBytes int64) *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxBytes: maxBytes,
	}
}

// Download retrieves the image at imageURL and returns its bytes and a filename derived from the URL.
func (f *Fetcher) Download(ctx context.Context, imageURL string) ([]byte, string, error) {
	if !strings.HasPrefix(imageURL, "http://") && !strings.HasPrefix(imageURL, "https://") {
		return nil, "", apperr.InvalidInput("image_url must be an http(s) URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", apperr.InvalidInput("invalid image_url: %v", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, "", apperr.Upstream(err, true, "failed to download image")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", apperr.Upstream(nil, apperr.TransientStatus(resp.StatusCode), "failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		return nil, "", apperr.Upstream(err, true, "failed to read image data")
	}
	if int64(len(data)) > f.MaxBytes {
		return nil, "", apperr.InvalidInput("image too large (max %d MB)", f.MaxBytes/1024/1024)
	}

	filename := path.Base(req.URL.Path)
	if filename == "" || filename == "/" || filename == "." {
		filename = "whiteboard.jpg"
	}

	slog.Info("Downloaded image", "url", imageURL, "bytes", len(data))
	return data, filename, nil
}

// ReadLimited reads at most maxBytes from r and rejects anything larger.
func ReadLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperr.InvalidInput("file too large (max %d MB)", maxBytes/1024/1024)
	}
	return data, nil
}

package images

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boarddeck/boarddeck/internal/apperr"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	img, err := Inspect(encodePNG(t, 40, 20), 0)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if img.MimeType != "image/png" || img.Width != 40 || img.Height != 20 {
		t.Errorf("unexpected image %+v", img)
	}
}

func TestInspectRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("hello, this is not an image")},
		{"pdf", []byte("%PDF-1.7\n...")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect(tt.data, 0)
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Errorf("expected invalid input, got %v", err)
			}
		})
	}
}

// pngHeader returns just the signature and IHDR chunk of a grayscale PNG, enough for
// DecodeConfig to report dimensions without any pixel data.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth; color type, compression, filter and interlace stay 0

	chunk := append([]byte("IHDR"), ihdr...)
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestInspectPixelLimit(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		maxPixels int
		wantErr   bool
	}{
		{"huge dimensions, tiny file", pngHeader(20000, 20000), 0, true},
		{"just over default", pngHeader(10000, 5001), 0, true},
		{"at default", pngHeader(10000, 5000), 0, false},
		{"configured limit", encodePNG(t, 40, 20), 500, true},
		{"within configured limit", encodePNG(t, 40, 20), 800, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Inspect(tt.data, tt.maxPixels)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrInvalidInput) {
					t.Fatalf("expected invalid input, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Inspect: %v", err)
			}
			if img.Width == 0 || img.Height == 0 {
				t.Errorf("dimensions not read: %+v", img)
			}
		})
	}
}

func TestPreprocessDownscalesAndGrays(t *testing.T) {
	src, err := Inspect(encodePNG(t, 400, 100), 0)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	out, scale, err := Preprocess(src, 200)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if scale != 0.5 {
		t.Errorf("scale = %v, want 0.5", scale)
	}
	if out.Width != 200 || out.Height != 50 {
		t.Errorf("size = %dx%d, want 200x50", out.Width, out.Height)
	}

	decoded, _, err := image.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if _, ok := decoded.(*image.Gray); !ok {
		t.Errorf("expected grayscale output, got %T", decoded)
	}
}

func TestPreprocessKeepsSmallImages(t *testing.T) {
	src, _ := Inspect(encodePNG(t, 50, 30), 0)
	out, scale, err := Preprocess(src, 2048)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if scale != 1 || out.Width != 50 || out.Height != 30 {
		t.Errorf("unexpected %dx%d scale %v", out.Width, out.Height, scale)
	}
}

func TestFetcherDownload(t *testing.T) {
	data := encodePNG(t, 10, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/board.png":
			_, _ = w.Write(data)
		case "/big.png":
			_, _ = w.Write(make([]byte, 2048))
		default:
			http.Error(w, "busy", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	f := NewFetcher(1024)

	got, name, err := f.Download(context.Background(), srv.URL+"/board.png")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if name != "board.png" || !bytes.Equal(got, data) {
		t.Errorf("unexpected download %q (%d bytes)", name, len(got))
	}

	if _, _, err := f.Download(context.Background(), srv.URL+"/big.png"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected invalid input for oversize body, got %v", err)
	}

	_, _, err = f.Download(context.Background(), srv.URL+"/missing")
	if !errors.Is(err, apperr.ErrUpstream) || !apperr.IsTransient(err) {
		t.Errorf("expected transient upstream error, got %v", err)
	}

	if _, _, err := f.Download(context.Background(), "ftp://example.com/a.png"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected invalid input for ftp, got %v", err)
	}
}

// Package render encodes slides as PPTX or PDF documents.
package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/models"
	"github.com/boarddeck/boarddeck/internal/themes"
)

// Slides are laid out on a 1600x900 canvas and scaled by each encoder.
const (
	canvasW = 1600.0
	canvasH = 900.0
	margin  = 60.0
)

// SourceImage is the uploaded whiteboard photo.
type SourceImage struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// Deck is the input shared by every encoder.
type Deck struct {
	Title  string
	Slides []models.Slide
	Style  themes.Style
	Source *SourceImage
}

type Renderer interface {
	Format() models.ExportFormat
	Render(deck Deck) ([]byte, error)
}

// For returns the renderer for format.
func For(format models.ExportFormat) (Renderer, error) {
	switch format {
	case models.FormatPPTX:
		return PPTX{}, nil
	case models.FormatPDF:
		return PDF{}, nil
	}
	return nil, apperr.InvalidInput("unsupported export format %q", format)
}

type box struct {
	X, Y, W, H float64
}

type point struct {
	X, Y float64
}

type picture struct {
	Data     []byte
	MimeType string
	Box      box
	Alt      string
}

type polygon struct {
	Points []point
	Label  string
}

// slideLayout is a slide resolved to canvas geometry.
type slideLayout struct {
	Title    string
	TitleBox box
	Centered bool
	Bullets  []string
	BodyBox  box
	Accents  []box
	Picture  *picture
	Polygons []polygon
}

// layouter resolves slides for one deck. The source image is decoded at most once.
type layouter struct {
	deck    Deck
	decoded image.Image
	decErr  error
	didDec  bool
}

func newLayouter(deck Deck) *layouter {
	return &layouter{deck: deck}
}

func (l *layouter) source() (image.Image, error) {
	if !l.didDec {
		l.didDec = true
		l.decoded, _, l.decErr = image.Decode(bytes.NewReader(l.deck.Source.Data))
	}
	return l.decoded, l.decErr
}

func (l *layouter) layout(s models.Slide) (slideLayout, error) {
	out := slideLayout{Title: s.Title, Bullets: s.Bullets}

	left := margin
	switch l.deck.Style.Template.Layout {
	case "title-band":
		out.Accents = append(out.Accents, box{0, 0, canvasW, 24})
	case "accent-side":
		out.Accents = append(out.Accents, box{0, 0, 24, canvasH})
		left = margin + 24
	case "centered":
		out.Centered = true
	default:
		out.Accents = append(out.Accents, box{left, 178, canvasW - left - margin, 4})
	}

	out.TitleBox = box{left, 40, canvasW - left - margin, 130}
	body := box{left, 200, canvasW - left - margin, canvasH - 200 - margin}
	out.BodyBox = body

	switch {
	case len(s.Diagrams) > 0:
		if err := l.placeDiagrams(&out, s.Diagrams, body); err != nil {
			return out, err
		}
	case s.ImageURL != "" && l.deck.Source != nil:
		frame := body
		if len(s.Bullets) > 0 {
			half := (body.W - margin) / 2
			out.BodyBox = box{body.X, body.Y, half, body.H}
			frame = box{body.X + half + margin, body.Y, half, body.H}
		}
		out.Picture = &picture{
			Data:     l.deck.Source.Data,
			MimeType: l.deck.Source.MimeType,
			Box:      fit(float64(l.deck.Source.Width), float64(l.deck.Source.Height), frame),
			Alt:      "Whiteboard photo",
		}
	}
	return out, nil
}

// placeDiagrams zooms into the diagrams' combined bounds. With a source image the region is
// cropped and shown under the outlines; otherwise the outlines are drawn alone.
func (l *layouter) placeDiagrams(out *slideLayout, diagrams []models.Diagram, frame box) error {
	region, ok := unionBounds(diagrams)
	if !ok {
		return nil
	}

	if l.deck.Source != nil {
		img, err := l.source()
		if err != nil {
			return apperr.Generation(err, "failed to decode source image")
		}
		cropped, used := crop(img, pad(region, 0.05))
		var buf bytes.Buffer
		if err := png.Encode(&buf, cropped); err != nil {
			return apperr.Generation(err, "failed to encode diagram crop")
		}
		region = used
		out.Picture = &picture{
			Data:     buf.Bytes(),
			MimeType: "image/png",
			Box:      fit(region.Width(), region.Height(), frame),
			Alt:      out.Title,
		}
	}

	target := fit(region.Width(), region.Height(), frame)
	for _, d := range diagrams {
		if len(d.Coordinates) < 2 {
			continue
		}
		out.Polygons = append(out.Polygons, polygon{Points: mapPoints(d.Coordinates, region, target), Label: d.Title()})
	}
	return nil
}

func unionBounds(diagrams []models.Diagram) (models.Rect, bool) {
	r := models.Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	found := false
	for _, d := range diagrams {
		if len(d.Coordinates) == 0 {
			continue
		}
		b := d.Bounds()
		r.MinX, r.MinY = math.Min(r.MinX, b.MinX), math.Min(r.MinY, b.MinY)
		r.MaxX, r.MaxY = math.Max(r.MaxX, b.MaxX), math.Max(r.MaxY, b.MaxY)
		found = true
	}
	if !found {
		return models.Rect{}, false
	}
	if r.Width() < 1 {
		r.MaxX = r.MinX + 1
	}
	if r.Height() < 1 {
		r.MaxY = r.MinY + 1
	}
	return r, true
}

func pad(r models.Rect, frac float64) models.Rect {
	dx, dy := r.Width()*frac, r.Height()*frac
	return models.Rect{MinX: r.MinX - dx, MinY: r.MinY - dy, MaxX: r.MaxX + dx, MaxY: r.MaxY + dy}
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// crop cuts r out of img, clamped to the image bounds, and returns the region actually used.
func crop(img image.Image, r models.Rect) (image.Image, models.Rect) {
	b := img.Bounds()
	rect := image.Rect(
		int(math.Floor(r.MinX)), int(math.Floor(r.MinY)),
		int(math.Ceil(r.MaxX)), int(math.Ceil(r.MaxY)),
	).Intersect(b)
	if rect.Empty() {
		rect = b
	}
	used := models.Rect{MinX: float64(rect.Min.X), MinY: float64(rect.Min.Y), MaxX: float64(rect.Max.X), MaxY: float64(rect.Max.Y)}

	if si, ok := img.(subImager); ok {
		return si.SubImage(rect), used
	}
	return img, models.Rect{MinX: float64(b.Min.X), MinY: float64(b.Min.Y), MaxX: float64(b.Max.X), MaxY: float64(b.Max.Y)}
}

// fit scales a w x h area into frame keeping its aspect ratio, centered.
func fit(w, h float64, frame box) box {
	if w <= 0 || h <= 0 {
		return frame
	}
	s := math.Min(frame.W/w, frame.H/h)
	bw, bh := w*s, h*s
	return box{frame.X + (frame.W-bw)/2, frame.Y + (frame.H-bh)/2, bw, bh}
}

func mapPoints(pts []models.Point, from models.Rect, to box) []point {
	sx := to.W / from.Width()
	sy := to.H / from.Height()
	out := make([]point, len(pts))
	for i, p := range pts {
		out[i] = point{to.X + (p.X-from.MinX)*sx, to.Y + (p.Y-from.MinY)*sy}
	}
	return out
}

func polygonBounds(pts []point) box {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	return box{minX, minY, maxX - minX, maxY - minY}
}

func deckTitle(d Deck) string {
	if d.Title != "" {
		return d.Title
	}
	if len(d.Slides) > 0 {
		return d.Slides[0].Title
	}
	return "Whiteboard"
}

func validate(d Deck) error {
	if len(d.Slides) == 0 {
		return apperr.InvalidInput("deck has no slides")
	}
	if d.Style.Template.ID == "" {
		return apperr.Generation(nil, "deck has no resolved style")
	}
	return nil
}

func imageExt(mime string) (string, error) {
	switch mime {
	case "image/png":
		return "png", nil
	case "image/jpeg":
		return "jpeg", nil
	case "image/gif":
		return "gif", nil
	}
	return "", fmt.Errorf("unsupported image type %q", mime)
}

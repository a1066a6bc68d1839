package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/models"
)

// 16:9 page, 13.333in x 7.5in.
const (
	pageW     = 338.667
	pageH     = 190.5
	mmPerUnit = pageW / canvasW
	mmPerPt   = 25.4 / 72

	lineSpacing = 1.3
	bulletGap   = 0.25
	minBodySize = 10
)

// PDF writes one landscape page per slide.
type PDF struct{}

func (PDF) Format() models.ExportFormat { return models.FormatPDF }

func (PDF) Render(deck Deck) ([]byte, error) {
	if err := validate(deck); err != nil {
		return nil, err
	}

	f := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	f.SetCatalogSort(true)
	f.SetCreationDate(zipEpoch)
	f.SetModificationDate(zipEpoch)
	f.SetCreator("boarddeck", true)
	f.SetTitle(deckTitle(deck), true)
	f.SetAutoPageBreak(false, 0)
	f.SetMargins(0, 0, 0)

	tr := f.UnicodeTranslatorFromDescriptor("")
	font := deck.Style.Template.PDFFont
	if font == "" {
		font = "Helvetica"
	}

	lay := newLayouter(deck)
	for i, s := range deck.Slides {
		sl, err := lay.layout(s)
		if err != nil {
			return nil, err
		}
		if err := drawPage(f, tr, font, i+1, sl, deck); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Output(&buf); err != nil {
		return nil, apperr.Generation(err, "failed to write pdf")
	}
	return buf.Bytes(), nil
}

func drawPage(f *fpdf.Fpdf, tr func(string) string, font string, n int, sl slideLayout, deck Deck) error {
	style := deck.Style
	f.AddPage()

	r, g, b := style.Background.Ints()
	f.SetFillColor(r, g, b)
	f.Rect(0, 0, pageW, pageH, "F")

	ar, ag, ab := style.Accent.Ints()
	f.SetFillColor(ar, ag, ab)
	for _, a := range sl.Accents {
		f.Rect(mm(a.X), mm(a.Y), mm(a.W), mm(a.H), "F")
	}

	if p := sl.Picture; p != nil {
		name := fmt.Sprintf("slide-%d", n)
		opts := fpdf.ImageOptions{ImageType: pdfImageType(p.MimeType)}
		f.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.Data))
		f.ImageOptions(name, mm(p.Box.X), mm(p.Box.Y), mm(p.Box.W), mm(p.Box.H), false, opts, 0, "")
	}

	f.SetDrawColor(ar, ag, ab)
	f.SetLineWidth(1.0)
	for _, pg := range sl.Polygons {
		pts := make([]fpdf.PointType, len(pg.Points))
		for i, p := range pg.Points {
			pts[i] = fpdf.PointType{X: mm(p.X), Y: mm(p.Y)}
		}
		if len(pts) == 2 {
			f.Line(pts[0].X, pts[0].Y, pts[1].X, pts[1].Y)
			continue
		}
		f.Polygon(pts, "D")
	}

	r, g, b = style.Text.Ints()
	f.SetTextColor(r, g, b)

	titleAlign := "LB"
	if sl.Centered {
		titleAlign = "CB"
	}
	f.SetFont(font, "B", style.TitleSize)
	title := fitLine(f, tr, sl.Title, mm(sl.TitleBox.W))
	f.SetXY(mm(sl.TitleBox.X), mm(sl.TitleBox.Y))
	f.CellFormat(mm(sl.TitleBox.W), mm(sl.TitleBox.H), title, "", 0, titleAlign, false, 0, "")

	if len(sl.Bullets) > 0 {
		x, y := mm(sl.BodyBox.X), mm(sl.BodyBox.Y)
		w, h := mm(sl.BodyBox.W), mm(sl.BodyBox.H)

		// shrink the body until it fits, the way PowerPoint autofit does
		size := style.BodySize
		for ; size > minBodySize; size-- {
			f.SetFont(font, "", size)
			if bodyHeight(f, tr, sl.Bullets, w, size) <= h {
				break
			}
		}
		f.SetFont(font, "", size)

		lineH := size * mmPerPt * lineSpacing
		for _, bullet := range sl.Bullets {
			f.SetXY(x, y)
			f.MultiCell(w, lineH, tr("\u2022 "+bullet), "", "L", false)
			y = f.GetY() + lineH*bulletGap
		}
	}

	if err := f.Error(); err != nil {
		return apperr.Generation(err, "failed to draw page %d", n)
	}
	return nil
}

// fitLine trims s with an ellipsis until it fits width. Widths are measured on the
// translated string since core fonts are single-byte.
func fitLine(f *fpdf.Fpdf, tr func(string) string, s string, width float64) string {
	if t := tr(s); f.GetStringWidth(t) <= width {
		return t
	}
	runes := []rune(s)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		if t := tr(strings.TrimSpace(string(runes)) + "..."); f.GetStringWidth(t) <= width {
			return t
		}
	}
	return tr(s)
}

// bodyHeight estimates the wrapped height of bullets at the current font.
func bodyHeight(f *fpdf.Fpdf, tr func(string) string, bullets []string, width, size float64) float64 {
	lineH := size * mmPerPt * lineSpacing
	space := f.GetStringWidth(" ")
	total := 0.0
	for _, bullet := range bullets {
		lines, cur := 1, 0.0
		for _, word := range strings.Fields("\u2022 " + bullet) {
			ww := f.GetStringWidth(tr(word))
			if cur > 0 && cur+space+ww > width {
				lines++
				cur = ww
				continue
			}
			if cur > 0 {
				cur += space
			}
			cur += ww
		}
		total += float64(lines)*lineH + lineH*bulletGap
	}
	return total
}

func mm(units float64) float64 {
	return units * mmPerUnit
}

func pdfImageType(mime string) string {
	switch mime {
	case "image/jpeg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return "PNG"
	}
}

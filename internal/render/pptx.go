package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"text/template"
	"time"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/models"
)

// emuPerUnit maps the 1600-unit canvas onto a 13.333in (12192000 EMU) wide slide.
const emuPerUnit = 7620

// zip entries get a fixed timestamp so identical decks produce identical bytes.
var zipEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// PPTX writes Office Open XML presentations.
type PPTX struct{}

func (PPTX) Format() models.ExportFormat { return models.FormatPPTX }

type part struct {
	name  string
	data  []byte
	store bool
}

func (PPTX) Render(deck Deck) ([]byte, error) {
	if err := validate(deck); err != nil {
		return nil, err
	}

	style := deck.Style
	common := pptxCommon{
		Title:      deckTitle(deck),
		Background: style.Background.HexRGB(),
		Text:       style.Text.HexRGB(),
		Accent:     style.Accent.HexRGB(),
		Font:       style.Template.Font,
		Slides:     make([]int, len(deck.Slides)),
	}
	for i := range deck.Slides {
		common.Slides[i] = i + 1
	}

	var parts []part
	for _, name := range []string{"content_types", "root_rels", "core", "presentation", "presentation_rels",
		"pres_props", "table_styles", "master", "master_rels", "layout", "layout_rels", "theme"} {
		data, err := execute(name, common)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part{name: partNames[name], data: data})
	}

	lay := newLayouter(deck)
	for i, s := range deck.Slides {
		n := i + 1
		sl, err := lay.layout(s)
		if err != nil {
			return nil, err
		}

		data, media, err := pptxSlideParts(n, sl, deck)
		if err != nil {
			return nil, err
		}
		parts = append(parts, data...)
		if media != nil {
			parts = append(parts, *media)
		}
	}

	return writeZip(parts)
}

func writeZip(parts []part) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		method := zip.Deflate
		if p.store {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: method, Modified: zipEpoch})
		if err != nil {
			return nil, apperr.Generation(err, "failed to add %s", p.name)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, apperr.Generation(err, "failed to write %s", p.name)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, apperr.Generation(err, "failed to finish pptx archive")
	}
	return buf.Bytes(), nil
}

type pptxCommon struct {
	Title      string
	Background string
	Text       string
	Accent     string
	Font       string
	Slides     []int
}

type xRect struct {
	ID           int
	X, Y, CX, CY int64
}

type xPath struct {
	xRect
	Descr  string
	Start  [2]int64
	Rest   [][2]int64
	Closed bool
}

type xPicture struct {
	xRect
	Descr string
	RelID string
}

type xText struct {
	xRect
	Lines    []string
	Size     int
	Centered bool
}

type pptxSlide struct {
	pptxCommon
	Accents  []xRect
	Picture  *xPicture
	Paths    []xPath
	TitleBox xText
	Body     *xText
	Media    string
}

func pptxSlideParts(n int, sl slideLayout, deck Deck) ([]part, *part, error) {
	style := deck.Style
	data := pptxSlide{
		pptxCommon: pptxCommon{
			Title:      sl.Title,
			Background: style.Background.HexRGB(),
			Text:       style.Text.HexRGB(),
			Accent:     style.Accent.HexRGB(),
			Font:       style.Template.Font,
		},
	}

	id := 1
	next := func() int { id++; return id }

	for _, a := range sl.Accents {
		data.Accents = append(data.Accents, rect(next(), a))
	}

	var media *part
	if sl.Picture != nil {
		ext, err := imageExt(sl.Picture.MimeType)
		if err != nil {
			return nil, nil, apperr.Generation(err, "slide %d image", n)
		}
		data.Media = fmt.Sprintf("image%d.%s", n, ext)
		data.Picture = &xPicture{xRect: rect(next(), sl.Picture.Box), Descr: sl.Picture.Alt, RelID: "rId2"}
		media = &part{name: "ppt/media/" + data.Media, data: sl.Picture.Data, store: true}
	}

	for _, pg := range sl.Polygons {
		b := polygonBounds(pg.Points)
		p := xPath{xRect: rect(next(), b), Descr: pg.Label, Closed: len(pg.Points) > 2}
		p.CX, p.CY = max(p.CX, 1), max(p.CY, 1)
		for i, pt := range pg.Points {
			rel := [2]int64{emu(pt.X - b.X), emu(pt.Y - b.Y)}
			if i == 0 {
				p.Start = rel
			} else {
				p.Rest = append(p.Rest, rel)
			}
		}
		data.Paths = append(data.Paths, p)
	}

	data.TitleBox = xText{xRect: rect(next(), sl.TitleBox), Lines: []string{sl.Title}, Size: hundredths(style.TitleSize), Centered: sl.Centered}
	if len(sl.Bullets) > 0 {
		data.Body = &xText{xRect: rect(next(), sl.BodyBox), Lines: sl.Bullets, Size: hundredths(style.BodySize)}
	}

	slideXML, err := execute("slide", data)
	if err != nil {
		return nil, nil, err
	}
	relsXML, err := execute("slide_rels", data)
	if err != nil {
		return nil, nil, err
	}

	return []part{
		{name: fmt.Sprintf("ppt/slides/slide%d.xml", n), data: slideXML},
		{name: fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), data: relsXML},
	}, media, nil
}

func rect(id int, b box) xRect {
	return xRect{ID: id, X: emu(b.X), Y: emu(b.Y), CX: emu(b.W), CY: emu(b.H)}
}

func emu(v float64) int64 {
	return int64(math.Round(v * emuPerUnit))
}

func hundredths(pt float64) int {
	return int(math.Round(pt * 100))
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := pptxTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, apperr.Generation(err, "failed to render %s", name)
	}
	return buf.Bytes(), nil
}

var partNames = map[string]string{
	"content_types":     "[Content_Types].xml",
	"root_rels":         "_rels/.rels",
	"core":              "docProps/core.xml",
	"presentation":      "ppt/presentation.xml",
	"presentation_rels": "ppt/_rels/presentation.xml.rels",
	"pres_props":        "ppt/presProps.xml",
	"table_styles":      "ppt/tableStyles.xml",
	"master":            "ppt/slideMasters/slideMaster1.xml",
	"master_rels":       "ppt/slideMasters/_rels/slideMaster1.xml.rels",
	"layout":            "ppt/slideLayouts/slideLayout1.xml",
	"layout_rels":       "ppt/slideLayouts/_rels/slideLayout1.xml.rels",
	"theme":             "ppt/theme/theme1.xml",
}

type textRun struct {
	Text  string
	Size  int
	Bold  bool
	Color string
	Font  string
}

var pptxTemplates = template.Must(template.New("pptx").Funcs(template.FuncMap{
	"x":   escape,
	"add": func(a, b int) int { return a + b },
	"run": func(text string, size int, bold bool, color, font string) textRun {
		return textRun{Text: text, Size: size, Bold: bold, Color: color, Font: font}
	},
}).Parse(pptxXML))

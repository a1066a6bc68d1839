// Package themes resolves a template and theme pair into concrete rendering styles.
package themes

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/models"
)

//go:embed catalog.yaml
var catalogYAML []byte

const (
	// WCAG AA and AAA contrast ratios for body text.
	accessibleContrast  = 4.5
	highContrast        = 7.0
	graphicContrast     = 3.0
	accessibleTitleSize = 28
	accessibleBodySize  = 18
)

// Template describes the slide layout and typography.
type Template struct {
	ID        string  `yaml:"id" json:"id"`
	Name      string  `yaml:"name" json:"name"`
	Layout    string  `yaml:"layout" json:"layout"`
	Font      string  `yaml:"font" json:"font"`
	PDFFont   string  `yaml:"pdf_font" json:"-"`
	TitleSize float64 `yaml:"title_size" json:"title_size"`
	BodySize  float64 `yaml:"body_size" json:"body_size"`
}

// Theme is a named color scheme. Colors are hex strings.
type Theme struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Background string `yaml:"background" json:"background"`
	Text       string `yaml:"text" json:"text"`
	Accent     string `yaml:"accent" json:"accent"`
}

type Catalog struct {
	Templates []Template `yaml:"templates" json:"templates"`
	Themes    []Theme    `yaml:"themes" json:"themes"`
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return Load(catalogYAML)
})

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return defaultCatalog()
}

// Load parses and validates a catalog document.
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(c.Templates) == 0 || len(c.Themes) == 0 {
		return nil, fmt.Errorf("catalog needs at least one template and one theme")
	}
	for _, t := range c.Templates {
		if t.ID == "" || t.TitleSize <= 0 || t.BodySize <= 0 {
			return nil, fmt.Errorf("invalid template %q", t.ID)
		}
	}
	for _, th := range c.Themes {
		for _, hex := range []string{th.Background, th.Text, th.Accent} {
			if _, err := colorful.Hex(hex); err != nil {
				return nil, fmt.Errorf("theme %q: invalid color %q: %w", th.ID, hex, err)
			}
		}
	}
	return &c, nil
}

func (c *Catalog) Template(id string) (Template, bool) {
	for _, t := range c.Templates {
		if strings.EqualFold(t.ID, id) {
			return t, true
		}
	}
	return Template{}, false
}

func (c *Catalog) Theme(id string) (Theme, bool) {
	for _, th := range c.Themes {
		if strings.EqualFold(th.ID, id) {
			return th, true
		}
	}
	return Theme{}, false
}

// Style is everything an encoder needs to draw a deck.
type Style struct {
	Template   Template
	ThemeID    string
	Background Color
	Text       Color
	Accent     Color
	TitleSize  float64
	BodySize   float64
}

// Resolve looks up the template and theme and applies accessibility settings.
// Unknown ids are generation errors.
func (c *Catalog) Resolve(templateID, themeID string, settings models.ExportSettings) (Style, error) {
	tmpl, ok := c.Template(templateID)
	if !ok {
		return Style{}, apperr.Generation(nil, "unknown template %q", templateID)
	}
	th, ok := c.Theme(themeID)
	if !ok {
		return Style{}, apperr.Generation(nil, "unknown theme %q", themeID)
	}

	// colors were validated by Load
	bg, _ := colorful.Hex(th.Background)
	fg, _ := colorful.Hex(th.Text)
	accent, _ := colorful.Hex(th.Accent)

	style := Style{
		Template:  tmpl,
		ThemeID:   th.ID,
		TitleSize: tmpl.TitleSize,
		BodySize:  tmpl.BodySize,
	}

	minText, minAccent := 0.0, 0.0
	if settings.Accessibility {
		minText, minAccent = accessibleContrast, graphicContrast
		style.TitleSize = max(style.TitleSize, accessibleTitleSize)
		style.BodySize = max(style.BodySize, accessibleBodySize)
	}
	if settings.HighContrast {
		minText, minAccent = highContrast, accessibleContrast
	}
	if minText > 0 {
		fg, bg = EnsureContrast(fg, bg, minText)
		accent, _ = EnsureContrast(accent, bg, minAccent)
	}

	style.Background = Color{bg}
	style.Text = Color{fg}
	style.Accent = Color{accent}
	return style, nil
}

// Color wraps a colorful.Color with the encodings the renderers use.
type Color struct {
	colorful.Color
}

// HexRGB returns the color as "RRGGBB".
func (c Color) HexRGB() string {
	return strings.ToUpper(strings.TrimPrefix(c.Clamped().Hex(), "#"))
}

// Ints returns 0-255 channels.
func (c Color) Ints() (int, int, int) {
	r, g, b := c.Clamped().RGB255()
	return int(r), int(g), int(b)
}

// Luminance is the WCAG relative luminance.
func Luminance(c colorful.Color) float64 {
	r, g, b := c.Clamped().LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// Contrast is the WCAG contrast ratio between two colors, from 1 to 21.
func Contrast(a, b colorful.Color) float64 {
	la, lb := Luminance(a), Luminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

var (
	black = colorful.Color{R: 0, G: 0, B: 0}
	white = colorful.Color{R: 1, G: 1, B: 1}
)

// EnsureContrast moves fg toward black or white until it reaches ratio against bg.
// When even black or white is not enough, bg is pushed the other way.
func EnsureContrast(fg, bg colorful.Color, ratio float64) (colorful.Color, colorful.Color) {
	if Contrast(fg, bg) >= ratio {
		return fg, bg
	}

	target, opposite := black, white
	if Contrast(white, bg) > Contrast(black, bg) {
		target, opposite = white, black
	}

	for step := 1; step <= 10; step++ {
		c := fg.BlendLab(target, float64(step)/10).Clamped()
		if Contrast(c, bg) >= ratio {
			return c, bg
		}
	}

	for step := 1; step <= 10; step++ {
		b := bg.BlendLab(opposite, float64(step)/10).Clamped()
		if Contrast(target, b) >= ratio {
			return target, b
		}
	}
	return target, opposite
}

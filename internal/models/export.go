package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SlideCount controls how many slides the deck aims for.
type SlideCount string

const (
	SlideCountAuto     SlideCount = "auto"
	SlideCountMinimal  SlideCount = "minimal"
	SlideCountDetailed SlideCount = "detailed"
)

// ExportFormat is the document type produced by an export.
type ExportFormat string

const (
	FormatPPTX ExportFormat = "pptx"
	FormatPDF  ExportFormat = "pdf"
)

// ParseExportFormat accepts "pptx" or "pdf" in any case.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPPTX:
		return FormatPPTX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q (expected pptx or pdf)", s)
}

func (f ExportFormat) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
}

// ExportSettings is a flat record of independent toggles.
type ExportSettings struct {
	IncludeSourceImage  bool       `json:"include_source_image" yaml:"include_source_image"`
	AutoOrganizeContent bool       `json:"auto_organize_content" yaml:"auto_organize_content"`
	SlideCount          SlideCount `json:"slide_count" yaml:"slide_count"`
	Theme               string     `json:"theme" yaml:"theme"`
	Accessibility       bool       `json:"accessibility" yaml:"accessibility"`
	HighContrast        bool       `json:"high_contrast" yaml:"high_contrast"`
}

// DefaultExportSettings returns the settings a new session starts with.
func DefaultExportSettings() ExportSettings {
	return ExportSettings{
		IncludeSourceImage:  true,
		AutoOrganizeContent: true,
		SlideCount:          SlideCountAuto,
		Theme:               "light",
		Accessibility:       true,
		HighContrast:        false,
	}
}

// ErrUnknownSetting is returned by Update for keys it does not know.
var ErrUnknownSetting = errors.New("unknown setting")

// Update returns a copy of s with key set to value. The receiver is never modified.
// Values may be native (bool, string) or strings as they arrive from forms and flags.
func (s ExportSettings) Update(key string, value any) (ExportSettings, error) {
	next := s
	switch normalizeKey(key) {
	case "includesourceimage":
		b, err := asBool(value)
		if err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		next.IncludeSourceImage = b
	case "autoorganizecontent":
		b, err := asBool(value)
		if err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		next.AutoOrganizeContent = b
	case "accessibility":
		b, err := asBool(value)
		if err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		next.Accessibility = b
	case "highcontrast":
		b, err := asBool(value)
		if err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		next.HighContrast = b
	case "slidecount":
		str, ok := value.(string)
		if !ok {
			return s, fmt.Errorf("%s: expected string, got %T", key, value)
		}
		switch c := SlideCount(strings.ToLower(str)); c {
		case SlideCountAuto, SlideCountMinimal, SlideCountDetailed:
			next.SlideCount = c
		default:
			return s, fmt.Errorf("%s: unsupported value %q", key, str)
		}
	case "theme":
		str, ok := value.(string)
		if !ok || strings.TrimSpace(str) == "" {
			return s, fmt.Errorf("%s: expected non-empty string", key)
		}
		next.Theme = strings.ToLower(strings.TrimSpace(str))
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
	return next, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))
}

func asBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("expected boolean, got %q", t)
		}
		return b, nil
	}
	return false, fmt.Errorf("expected boolean, got %T", v)
}

// ExportResult carries exactly one of URL or Error.
type ExportResult struct {
	URL    *string      `json:"url"`
	Error  *string      `json:"error"`
	Format ExportFormat `json:"format,omitempty"`
}

func Succeeded(format ExportFormat, url string) ExportResult {
	return ExportResult{URL: &url, Format: format}
}

func Failed(format ExportFormat, err error) ExportResult {
	msg := "export failed"
	if err != nil {
		msg = err.Error()
	}
	return ExportResult{Error: &msg, Format: format}
}

// OK reports whether the export produced a document.
func (r ExportResult) OK() bool {
	return r.URL != nil
}

// Validate enforces that exactly one of URL and Error is set.
func (r ExportResult) Validate() error {
	if (r.URL == nil) == (r.Error == nil) {
		return errors.New("export result must carry exactly one of url or error")
	}
	return nil
}

package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Point is a position in source-image pixel space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DiagramKind is the detected kind of a diagram region.
type DiagramKind string

const (
	KindFlowchart DiagramKind = "flowchart"
	KindBox       DiagramKind = "box"
	KindMindmap   DiagramKind = "mindmap"
	KindArrow     DiagramKind = "arrow"
	KindTable     DiagramKind = "table"
	KindChart     DiagramKind = "chart"
	KindSketch    DiagramKind = "sketch"
	KindUnknown   DiagramKind = "unknown"
)

var knownKinds = map[DiagramKind]bool{
	KindFlowchart: true,
	KindBox:       true,
	KindMindmap:   true,
	KindArrow:     true,
	KindTable:     true,
	KindChart:     true,
	KindSketch:    true,
	KindUnknown:   true,
}

// ParseDiagramKind normalizes a provider label ("Flow Chart", "mind-map", "rectangle") to a known kind.
func ParseDiagramKind(s string) DiagramKind {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(k)
	switch k {
	case "flowchart", "flow", "process", "workflow":
		return KindFlowchart
	case "box", "rectangle", "rect", "square", "container":
		return KindBox
	case "mindmap", "mind", "tree", "cluster":
		return KindMindmap
	case "arrow", "line", "connector":
		return KindArrow
	case "table", "grid", "matrix":
		return KindTable
	case "chart", "graph", "plot", "barchart", "piechart":
		return KindChart
	case "sketch", "drawing", "doodle", "figure":
		return KindSketch
	}
	if knownKinds[DiagramKind(k)] {
		return DiagramKind(k)
	}
	return KindUnknown
}

// Diagram is a detected shape or region in the source image.
type Diagram struct {
	ID          string      `json:"id" yaml:"id"`
	Type        DiagramKind `json:"type" yaml:"type"`
	Coordinates []Point     `json:"coordinates" yaml:"coordinates"`
	Label       string      `json:"label,omitempty" yaml:"label,omitempty"`
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Bounds returns the bounding box of the diagram's points. A diagram without points has an empty box.
func (d Diagram) Bounds() Rect {
	if len(d.Coordinates) == 0 {
		return Rect{}
	}
	r := Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range d.Coordinates {
		r.MinX = math.Min(r.MinX, p.X)
		r.MinY = math.Min(r.MinY, p.Y)
		r.MaxX = math.Max(r.MaxX, p.X)
		r.MaxY = math.Max(r.MaxY, p.Y)
	}
	return r
}

// Title is the label if set, otherwise a readable form of the kind.
func (d Diagram) Title() string {
	if strings.TrimSpace(d.Label) != "" {
		return d.Label
	}
	k := string(d.Type)
	if k == "" {
		k = string(KindUnknown)
	}
	return strings.ToUpper(k[:1]) + k[1:] + " diagram"
}

// ExtractedContent is produced once per processed image and edited during review.
type ExtractedContent struct {
	Text     string    `json:"text" yaml:"text"`
	Diagrams []Diagram `json:"diagrams" yaml:"diagrams"`
}

// Validate checks that every diagram has a non-empty, unique id.
func (c ExtractedContent) Validate() error {
	seen := make(map[string]bool, len(c.Diagrams))
	for i, d := range c.Diagrams {
		if strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("diagram %d has an empty id", i)
		}
		if seen[d.ID] {
			return fmt.Errorf("duplicate diagram id %q", d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}

// FindDiagram returns the index of the diagram with the given id, or -1.
func (c ExtractedContent) FindDiagram(id string) int {
	for i, d := range c.Diagrams {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so edits never alias the stored content.
func (c ExtractedContent) Clone() ExtractedContent {
	out := ExtractedContent{Text: c.Text, Diagrams: make([]Diagram, len(c.Diagrams))}
	for i, d := range c.Diagrams {
		d.Coordinates = append([]Point(nil), d.Coordinates...)
		out.Diagrams[i] = d
	}
	return out
}

// Slide is derived from reviewed content and rendered by an encoder.
type Slide struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Content  string    `json:"content,omitempty"`
	Bullets  []string  `json:"bullets,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
	Diagrams []Diagram `json:"diagrams,omitempty"`
}

// ImageInfo describes the uploaded source image.
type ImageInfo struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Session holds one whiteboard image through extraction, review and export.
type Session struct {
	ID            string           `json:"id"`
	Image         ImageInfo        `json:"image"`
	Content       ExtractedContent `json:"content"`
	CommittedText string           `json:"committed_text"`
	Review        ReviewState      `json:"review"`
	Settings      ExportSettings   `json:"settings"`
	Template      string           `json:"template"`
	LastExport    *ExportResult    `json:"last_export,omitempty"`
	Provider      string           `json:"provider,omitempty"`
	Model         string           `json:"model,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ReviewState is the persisted form of the review editor.
type ReviewState struct {
	Mode            string `json:"mode"`
	Draft           string `json:"draft"`
	SelectedDiagram string `json:"selected_diagram,omitempty"`
}

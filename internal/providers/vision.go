package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/boarddeck/boarddeck/internal/models"
)

// Vision adapts a VisionModel into both a TextExtractor and a DiagramDetector.
type Vision struct {
	model     VisionModel
	modelName string
}

func NewVision(model VisionModel, modelName string) *Vision {
	return &Vision{model: model, modelName: modelName}
}

func (v *Vision) Name() string {
	return v.model.Name() + ":" + v.modelName
}

// ExtractText performs OCR through the vision model with zero temperature.
func (v *Vision) ExtractText(ctx context.Context, img Image) (string, error) {
	out, err := v.model.Generate(ctx, Config{
		Model:       v.modelName,
		Temperature: 0.0,
		Prompt:      BuildOCRPrompt(),
	}, img)
	if err != nil {
		return "", err
	}

	text := CleanOCRResponse(out)
	slog.Info("Extracted OCR text", "provider", v.model.Name(), "model", v.modelName, "length", len(text))
	return text, nil
}

// DetectDiagrams asks the vision model for a JSON list of diagram regions.
func (v *Vision) DetectDiagrams(ctx context.Context, img Image) ([]models.Diagram, error) {
	out, err := v.model.Generate(ctx, Config{
		Model:       v.modelName,
		Temperature: 0.1,
		Prompt:      BuildDiagramPrompt(img.Width, img.Height),
	}, img)
	if err != nil {
		return nil, err
	}

	diagrams, err := ParseDiagramResponse(out)
	if err != nil {
		return nil, err
	}
	slog.Info("Detected diagrams", "provider", v.model.Name(), "model", v.modelName, "count", len(diagrams))
	return diagrams, nil
}

// BuildOCRPrompt returns the transcription prompt for whiteboard photos.
func BuildOCRPrompt() string {
	return `You are performing OCR (Optical Character Recognition) on a photograph of a whiteboard.

Your task is to extract ALL handwritten and printed text from the board, preserving:
- The reading order (top to bottom, left to right within a column)
- Headings, written larger or underlined on the board
- Bulleted and numbered lists
- Line breaks between separate notes

INSTRUCTIONS:
1. Write headings as markdown headings (# for the board title, ## for section titles)
2. Write bullet points as "- item" and numbered items as "1. item"
3. Ignore text that is only part of a diagram label; diagrams are detected separately
4. Do not add any interpretation, commentary, or explanations
5. If text is partially erased or unclear, transcribe what you can see and use [?] for illegible portions

OUTPUT FORMAT:
Provide ONLY the extracted text as markdown. Do not include phrases like "Here is the text:".
If the board has no text, respond with an empty message.

Example output:
# Meeting Notes

## Action Items
- Research competitor pricing
- Schedule follow-up meeting`
}

// BuildDiagramPrompt returns the detection prompt; coordinates are requested in source pixels.
func BuildDiagramPrompt(width, height int) string {
	return fmt.Sprintf(`You are detecting diagrams drawn on a whiteboard photograph of %d x %d pixels.

Find every diagram: flowcharts, boxes, mind maps, arrows, tables, charts and free sketches.
For each diagram return its kind, a short label (the text written in or next to it, or a description),
and the outline as an ordered list of points in image pixel coordinates (origin top-left).

Allowed kinds: flowchart, box, mindmap, arrow, table, chart, sketch.

OUTPUT FORMAT:
Respond with ONLY a JSON object:

{
  "diagrams": [
    {"type": "flowchart", "label": "User Flow", "coordinates": [{"x": 10, "y": 10}, {"x": 200, "y": 10}, {"x": 200, "y": 120}]}
  ]
}

If there are no diagrams, respond with {"diagrams": []}.`, width, height)
}

// CleanOCRResponse strips code fences and boilerplate some models add around a transcription.
func CleanOCRResponse(response string) string {
	response = stripCodeFence(response)
	for _, prefix := range []string{"Here is the text:", "Here is the extracted text:", "Extracted text:"} {
		if strings.HasPrefix(strings.ToLower(response), strings.ToLower(prefix)) {
			response = strings.TrimSpace(response[len(prefix):])
		}
	}
	return response
}

type diagramPayload struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Label       string          `json:"label"`
	Coordinates []models.Point  `json:"coordinates"`
	Box         *boundingBoxRaw `json:"box,omitempty"`
}

type boundingBoxRaw struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ParseDiagramResponse decodes a model reply into diagrams. It accepts the documented object,
// a bare array, and boxes given as x/y/width/height. Ids are left for the caller to assign.
// A prose reply with no JSON at all counts as no diagrams.
func ParseDiagramResponse(response string) ([]models.Diagram, error) {
	response = stripCodeFence(response)
	if response == "" {
		return []models.Diagram{}, nil
	}
	if !strings.ContainsAny(response, "{[") {
		slog.Warn("Diagram response contained no JSON, treating as no diagrams", "response", truncate(response, 200))
		return []models.Diagram{}, nil
	}

	var wrapped struct {
		Diagrams []diagramPayload `json:"diagrams"`
	}
	var items []diagramPayload

	if strings.HasPrefix(response, "[") {
		if err := json.Unmarshal([]byte(response), &items); err != nil {
			return nil, fmt.Errorf("failed to parse diagram response: %w", err)
		}
	} else {
		start := strings.Index(response, "{")
		end := strings.LastIndex(response, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in diagram response")
		}
		if err := json.Unmarshal([]byte(response[start:end+1]), &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse diagram response: %w", err)
		}
		items = wrapped.Diagrams
	}

	diagrams := make([]models.Diagram, 0, len(items))
	for _, it := range items {
		coords := it.Coordinates
		if len(coords) == 0 && it.Box != nil {
			coords = BoxCorners(it.Box.X, it.Box.Y, it.Box.Width, it.Box.Height)
		}
		diagrams = append(diagrams, models.Diagram{
			ID:          strings.TrimSpace(it.ID),
			Type:        models.ParseDiagramKind(it.Type),
			Coordinates: coords,
			Label:       strings.TrimSpace(it.Label),
		})
	}
	return diagrams, nil
}

// BoxCorners returns the clockwise corners of a top-left anchored box.
func BoxCorners(x, y, w, h float64) []models.Point {
	return []models.Point{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

package roboflow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/models"
	"github.com/boarddeck/boarddeck/internal/providers"
)

// Detector calls a hosted YOLOv8 model (Roboflow inference API) to find diagram regions.
type Detector struct {
	baseURL  string
	model    string
	apiKey   string
	minScore float64
	client   *http.Client
}

// New creates a detector for model ("project/version") at baseURL.
func New(baseURL, model, apiKey string, minScore float64) *Detector {
	return &Detector{
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    strings.Trim(model, "/"),
		apiKey:   apiKey,
		minScore: minScore,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (d *Detector) Name() string { return "roboflow:" + d.model }

type prediction struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Class       string  `json:"class"`
	Confidence  float64 `json:"confidence"`
	DetectionID string  `json:"detection_id"`
}

type response struct {
	Predictions []prediction `json:"predictions"`
}

// DetectDiagrams posts the base64 image and converts center-anchored boxes into corner polygons.
func (d *Detector) DetectDiagrams(ctx context.Context, img providers.Image) ([]models.Diagram, error) {
	if d.apiKey == "" {
		return nil, apperr.Upstream(nil, false, "ROBOFLOW_API_KEY not set")
	}

	q := url.Values{}
	q.Set("api_key", d.apiKey)
	q.Set("confidence", fmt.Sprintf("%.0f", d.minScore*100))
	endpoint := fmt.Sprintf("%s/%s?%s", d.baseURL, d.model, q.Encode())

	body := strings.NewReader(base64.StdEncoding.EncodeToString(img.Data))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create detection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, apperr.Upstream(err, true, "failed to call detection API")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, apperr.Upstream(nil, apperr.TransientStatus(resp.StatusCode),
			"detection API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperr.Upstream(err, false, "failed to decode detection response")
	}

	diagrams := ToDiagrams(out.Predictions, d.minScore)
	slog.Info("Detected diagrams", "provider", "roboflow", "model", d.model, "predictions", len(out.Predictions), "kept", len(diagrams))
	return diagrams, nil
}

// ToDiagrams keeps predictions at or above minScore and converts them to diagrams.
func ToDiagrams(preds []prediction, minScore float64) []models.Diagram {
	diagrams := make([]models.Diagram, 0, len(preds))
	for _, p := range preds {
		if p.Confidence < minScore {
			continue
		}
		diagrams = append(diagrams, models.Diagram{
			ID:          p.DetectionID,
			Type:        models.ParseDiagramKind(p.Class),
			Coordinates: providers.BoxCorners(p.X-p.Width/2, p.Y-p.Height/2, p.Width, p.Height),
			Label:       p.Class,
		})
	}
	return diagrams
}

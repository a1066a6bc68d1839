package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/providers"
)

// Gemini is a provider for Google Gemini
type Gemini struct {
	apiKey string
}

// New returns a new Gemini provider
func New() (*Gemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return &Gemini{apiKey: apiKey}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Generate sends the image blob followed by the prompt
func (g *Gemini) Generate(ctx context.Context, config providers.Config, img providers.Image) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", apperr.Upstream(err, false, "failed to create new gemini client")
	}
	defer client.Close()

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(float32(config.Temperature))

	parts := []genai.Part{}
	if len(img.Data) > 0 {
		parts = append(parts, genai.ImageData(imageFormat(img.MimeType), img.Data))
	}
	parts = append(parts, genai.Text(config.Prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Candidates) == 0 {
		return "", apperr.Upstream(nil, false, "no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		// a blank board can legitimately produce no parts
		return "", nil
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}

// imageFormat converts "image/png" into the bare format genai.ImageData expects.
func imageFormat(mime string) string {
	if f, ok := strings.CutPrefix(mime, "image/"); ok && f != "" {
		return f
	}
	return "jpeg"
}

func classify(err error) error {
	var ae *apierror.APIError
	if errors.As(err, &ae) {
		if code := ae.HTTPCode(); code > 0 {
			return apperr.Upstream(err, apperr.TransientStatus(code), "gemini API error")
		}
		if st := ae.GRPCStatus(); st != nil {
			switch st.Code() {
			case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal:
				return apperr.Upstream(err, true, "gemini API error")
			}
			return apperr.Upstream(err, false, "gemini API error")
		}
	}
	return apperr.Upstream(err, true, "failed to generate content")
}

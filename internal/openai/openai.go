package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/providers"
)

// OpenAI is a provider for OpenAI vision chat models
type OpenAI struct {
	client *goopenai.Client
}

// New returns a new OpenAI provider. OPENAI_BASE_URL may point at a compatible server.
func New() (*OpenAI, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewWithConfig(cfg), nil
}

func NewWithConfig(cfg goopenai.ClientConfig) *OpenAI {
	return &OpenAI{client: goopenai.NewClientWithConfig(cfg)}
}

func (o *OpenAI) Name() string { return "openai" }

// Generate sends the prompt and the image as a data URL in one user message
func (o *OpenAI) Generate(ctx context.Context, config providers.Config, img providers.Image) (string, error) {
	parts := []goopenai.ChatMessagePart{
		{Type: goopenai.ChatMessagePartTypeText, Text: config.Prompt},
	}
	if len(img.Data) > 0 {
		mime := img.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeImageURL,
			ImageURL: &goopenai.ChatMessageImageURL{
				URL:    "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
				Detail: goopenai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: config.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, MultiContent: parts},
		},
		MaxTokens:   2000,
		Temperature: float32(config.Temperature),
	})
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", apperr.Upstream(nil, false, "no choices returned from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apperr.Upstream(err, apperr.TransientStatus(apiErr.HTTPStatusCode), "openai API error")
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return apperr.Upstream(err, apperr.TransientStatus(reqErr.HTTPStatusCode), "openai request failed")
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Upstream(err, false, "openai call cancelled")
	}
	return apperr.Upstream(err, true, "failed to call OpenAI")
}

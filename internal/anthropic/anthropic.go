package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/providers"
)

// Anthropic is a provider for Claude vision models via the Messages API
type Anthropic struct {
	client sdk.Client
}

// New returns a provider keyed by ANTHROPIC_API_KEY. ANTHROPIC_BASE_URL overrides the endpoint.
func New() (*Anthropic, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("ANTHROPIC_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return NewWithOptions(opts...), nil
}

// NewWithOptions builds the client directly. SDK retries are disabled; providers.RetryPolicy owns retrying.
func NewWithOptions(opts ...option.RequestOption) *Anthropic {
	opts = append(opts, option.WithMaxRetries(0))
	return &Anthropic{client: sdk.NewClient(opts...)}
}

func (a *Anthropic) Name() string { return "anthropic" }

// Generate sends the image as a base64 block followed by the prompt in one user message
func (a *Anthropic) Generate(ctx context.Context, config providers.Config, img providers.Image) (string, error) {
	var blocks []sdk.ContentBlockParamUnion
	if len(img.Data) > 0 {
		mime := img.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		blocks = append(blocks, sdk.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(img.Data)))
	}
	blocks = append(blocks, sdk.NewTextBlock(config.Prompt))

	msg, err := a.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(config.Model),
		MaxTokens:   2000,
		Temperature: sdk.Float(config.Temperature),
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(blocks...)},
	})
	if err != nil {
		return "", classify(err)
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 && len(msg.Content) == 0 {
		return "", apperr.Upstream(nil, false, "no content returned from Anthropic")
	}
	return out.String(), nil
}

func classify(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apperr.Upstream(err, apperr.TransientStatus(apiErr.StatusCode), "anthropic API error")
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Upstream(err, false, "anthropic call cancelled")
	}
	return apperr.Upstream(err, true, "failed to call Anthropic")
}

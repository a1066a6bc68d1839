package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/providers"
)

// Ollama is a provider for a local or remote Ollama server
type Ollama struct {
	baseURL string
	client  *http.Client
}

// New returns a new Ollama provider using OLLAMA_URL (or OLLAMA_HOST)
func New() *Ollama {
	ollamaURL := os.Getenv("OLLAMA_URL")
	if ollamaURL == "" {
		ollamaURL = os.Getenv("OLLAMA_HOST")
	}
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	return NewWithURL(ollamaURL, &http.Client{})
}

func NewWithURL(baseURL string, client *http.Client) *Ollama {
	return &Ollama{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (o *Ollama) Name() string { return "ollama" }

// Generate sends the prompt and the base64 image to /api/generate
func (o *Ollama) Generate(ctx context.Context, config providers.Config, img providers.Image) (string, error) {
	body := map[string]interface{}{
		"model":  config.Model,
		"prompt": config.Prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": config.Temperature,
		},
	}
	if len(img.Data) > 0 {
		body["images"] = []string{base64.StdEncoding.EncodeToString(img.Data)}
	}

	requestBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", apperr.Upstream(err, true, "failed to call Ollama API")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", apperr.Upstream(nil, apperr.TransientStatus(resp.StatusCode),
			"ollama API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", apperr.Upstream(err, false, "failed to decode Ollama response")
	}

	return response.Response, nil
}

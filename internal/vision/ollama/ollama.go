package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
	"github.com/Bruhadev45/Cardsnap-AI/internal/vision"
)

type OllamaExtractor struct {
	host   string
	model  string
	client *http.Client
}

func NewOllamaExtractor(host, model string) *OllamaExtractor {
	return &OllamaExtractor{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: &http.Client{},
	}
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	System string   `json:"system,omitempty"`
	Images []string `json:"images,omitempty"`
	Format string   `json:"format,omitempty"`
	Stream bool     `json:"stream"`
}

func (a *OllamaExtractor) Model() string { return a.model }

func (a *OllamaExtractor) Extract(ctx context.Context, front domain.Image, back *domain.Image) (domain.CardFields, error) {
	req := generateRequest{
		Model:  a.model,
		Prompt: vision.ExtractionPrompt,
		// Constrains the model to emit a single JSON object.
		Format: "json",
	}
	for _, img := range vision.Images(front, back) {
		req.Images = append(req.Images, vision.Base64(img))
	}

	text, err := a.generate(ctx, req)
	if err != nil {
		return domain.CardFields{}, err
	}
	return vision.ParseFields(text)
}

func (a *OllamaExtractor) Chat(ctx context.Context, system, user string) (string, error) {
	return a.generate(ctx, generateRequest{Model: a.model, System: system, Prompt: user})
}

func (a *OllamaExtractor) generate(ctx context.Context, body generateRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return respBody.Response, nil
}

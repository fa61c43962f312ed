// Package openai talks to OpenAI-compatible chat-completions endpoints, either
// OpenAI itself or a router that proxies several vendors behind the same API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
	"github.com/Bruhadev45/Cardsnap-AI/internal/vision"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second
)

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// Message is one chat turn. Images are attached after the text.
type Message struct {
	Role   string
	Text   string
	Images []domain.Image
}

// Options tunes a completion request.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// request types mirror the chat-completions API structure.
type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func toWire(m Message) message {
	if len(m.Images) == 0 {
		return message{Role: m.Role, Content: m.Text}
	}
	parts := []part{{Type: "text", Text: m.Text}}
	for _, img := range m.Images {
		parts = append(parts, part{Type: "image_url", ImageURL: &imageURL{URL: vision.DataURL(img)}})
	}
	return message{Role: m.Role, Content: parts}
}

// Complete sends one non-streaming chat completion and returns the text of
// the first choice.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, opts Options) (string, error) {
	body := request{
		Model:       model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	for _, m := range messages {
		body.Messages = append(body.Messages, toWire(m))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", model, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close chat response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		var apiErr errorResponse
		if json.Unmarshal(errBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("%s returned status %d: %s", model, resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("%s returned status %d: %s", model, resp.StatusCode, errBody)
	}

	var respBody response
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(respBody.Choices) == 0 {
		return "", vision.ErrEmptyResponse
	}
	return respBody.Choices[0].Message.Content, nil
}

// Extractor reads business cards with one model.
type Extractor struct {
	client *Client
	model  string
}

func (c *Client) Extractor(model string) *Extractor {
	return &Extractor{client: c, model: model}
}

// Extractors returns one Extractor per model, in order, for vision.Fallback.
func (c *Client) Extractors(models ...string) []vision.ModelExtractor {
	out := make([]vision.ModelExtractor, 0, len(models))
	for _, m := range models {
		out = append(out, c.Extractor(m))
	}
	return out
}

func (e *Extractor) Model() string { return e.model }

func (e *Extractor) Extract(ctx context.Context, front domain.Image, back *domain.Image) (domain.CardFields, error) {
	text, err := e.client.Complete(ctx, e.model, []Message{{
		Role:   "user",
		Text:   vision.ExtractionPrompt,
		Images: vision.Images(front, back),
	}}, Options{Temperature: 0, MaxTokens: 500})
	if err != nil {
		return domain.CardFields{}, err
	}
	return vision.ParseFields(text)
}

// ChatModel answers free-form questions with one model.
type ChatModel struct {
	client *Client
	model  string
}

func (c *Client) ChatModel(model string) *ChatModel {
	return &ChatModel{client: c, model: model}
}

func (m *ChatModel) Chat(ctx context.Context, system, user string) (string, error) {
	return m.client.Complete(ctx, m.model, []Message{
		{Role: "system", Text: system},
		{Role: "user", Text: user},
	}, Options{Temperature: 0.7, MaxTokens: 800})
}

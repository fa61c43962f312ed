package claude

import (
	"context"
	"errors"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
	"github.com/Bruhadev45/Cardsnap-AI/internal/vision"
)

// 500 tokens comfortably fits the seven-field JSON object.
const extractMaxTokens = 500

const chatMaxTokens = 800

type ClaudeExtractor struct {
	client *anthropic.Client
	model  string
}

// NewClaudeExtractor builds an extractor for model. baseURL may be empty to use
// the public API.
func NewClaudeExtractor(apiKey, model, baseURL string) *ClaudeExtractor {
	return &ClaudeExtractor{client: newClient(apiKey, baseURL), model: model}
}

func newClient(apiKey, baseURL string) *anthropic.Client {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return anthropic.NewClient(apiKey, opts...)
}

// buildContent places the card images before the prompt, as the Messages API
// recommends for vision requests.
func buildContent(front domain.Image, back *domain.Image) []anthropic.MessageContent {
	var content []anthropic.MessageContent
	for _, img := range vision.Images(front, back) {
		content = append(content, anthropic.NewImageMessageContent(
			anthropic.NewMessageContentSource(
				anthropic.MessagesContentSourceTypeBase64,
				vision.NormaliseMIME(img.MimeType),
				vision.Base64(img),
			),
		))
	}
	return append(content, anthropic.NewTextMessageContent(vision.ExtractionPrompt))
}

func (a *ClaudeExtractor) Model() string { return a.model }

func (a *ClaudeExtractor) Extract(ctx context.Context, front domain.Image, back *domain.Image) (domain.CardFields, error) {
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: extractMaxTokens,
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: buildContent(front, back),
		}},
	})
	if err != nil {
		return domain.CardFields{}, wrapError(err)
	}
	return vision.ParseFields(resp.GetFirstContentText())
}

// Chat answers a free-form question; used by the assistant.
func (a *ClaudeExtractor) Chat(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		System:    system,
		MaxTokens: chatMaxTokens,
		Messages:  []anthropic.Message{anthropic.NewUserTextMessage(user)},
	})
	if err != nil {
		return "", wrapError(err)
	}
	return resp.GetFirstContentText(), nil
}

func wrapError(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("claude returned %s: %s", apiErr.Type, apiErr.Message)
	}
	return fmt.Errorf("failed to call claude: %w", err)
}

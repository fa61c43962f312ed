package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

// ExtractionPrompt is the shared prompt used by all vision adapters.
const ExtractionPrompt = `Extract contact info from this business card. Return ONLY JSON:
{"fullName":"","jobTitle":"","company":"","email":"","phone":"","website":"","address":""}`

var ErrNoModels = errors.New("no extraction models configured")

// ModelExtractor reads card fields using one specific model.
type ModelExtractor interface {
	Model() string
	Extract(ctx context.Context, front domain.Image, back *domain.Image) (domain.CardFields, error)
}

// Fallback tries each model in order and returns the first success. Callers
// see a single call that either yields fields or fails.
type Fallback struct {
	models []ModelExtractor
	logger *slog.Logger
}

func NewFallback(logger *slog.Logger, models ...ModelExtractor) *Fallback {
	return &Fallback{models: models, logger: logger}
}

// Models returns the configured model names in attempt order.
func (f *Fallback) Models() []string {
	names := make([]string, 0, len(f.models))
	for _, m := range f.models {
		names = append(names, m.Model())
	}
	return names
}

func (f *Fallback) Extract(ctx context.Context, front domain.Image, back *domain.Image) (domain.CardFields, error) {
	if len(f.models) == 0 {
		return domain.CardFields{}, ErrNoModels
	}

	var lastErr error
	for _, m := range f.models {
		if err := ctx.Err(); err != nil {
			return domain.CardFields{}, err
		}

		f.logger.Debug("attempting extraction", "model", m.Model())
		fields, err := m.Extract(ctx, front, back)
		if err == nil {
			f.logger.Info("extraction succeeded", "model", m.Model())
			return fields, nil
		}

		f.logger.Warn("extraction model failed", "model", m.Model(), "error", err)
		lastErr = err
	}

	return domain.CardFields{}, fmt.Errorf("all %d models failed: %w", len(f.models), lastErr)
}

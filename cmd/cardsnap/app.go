package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Bruhadev45/Cardsnap-AI/internal/assistant"
	"github.com/Bruhadev45/Cardsnap-AI/internal/capture"
	"github.com/Bruhadev45/Cardsnap-AI/internal/config"
	"github.com/Bruhadev45/Cardsnap-AI/internal/db"
	"github.com/Bruhadev45/Cardsnap-AI/internal/logging"
	"github.com/Bruhadev45/Cardsnap-AI/internal/photostore/local"
	"github.com/Bruhadev45/Cardsnap-AI/internal/service"
	"github.com/Bruhadev45/Cardsnap-AI/internal/store"
	"github.com/Bruhadev45/Cardsnap-AI/internal/vision"
	claudevision "github.com/Bruhadev45/Cardsnap-AI/internal/vision/claude"
	ollamavision "github.com/Bruhadev45/Cardsnap-AI/internal/vision/ollama"
	openaivision "github.com/Bruhadev45/Cardsnap-AI/internal/vision/openai"
)

// app holds everything the commands share. Close releases it.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	database  *sql.DB
	users     *service.UserService
	contacts  *service.ContactService
	extractor capture.Extractor
	chat      assistant.Chatter
	cleanup   func()
}

func newApp() (*app, error) {
	cfg := config.Load()

	logger, cleanup, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, LogFile: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	photoStg, err := local.NewLocalPhotoStore(cfg.PhotoPath)
	if err != nil {
		_ = database.Close()
		cleanup()
		return nil, fmt.Errorf("failed to initialize photo store: %w", err)
	}

	extractor, chat, err := newVision(cfg, logger)
	if err != nil {
		_ = database.Close()
		cleanup()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		database:  database,
		users:     service.NewUserService(store.NewUserStore(database), logger),
		contacts:  service.NewContactService(store.NewContactStore(database), photoStg, logger),
		extractor: extractor,
		chat:      chat,
		cleanup:   cleanup,
	}, nil
}

func (a *app) Close() {
	if err := a.database.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}
	a.cleanup()
}

// newVision picks the extraction backend. Every backend also serves as the
// assistant's chat model.
func newVision(cfg *config.Config, logger *slog.Logger) (*vision.Fallback, assistant.Chatter, error) {
	switch cfg.VisionBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			return nil, nil, fmt.Errorf("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		c := claudevision.NewClaudeExtractor(cfg.ClaudeAPIKey, cfg.ClaudeModel, "")
		return vision.NewFallback(logger, c), c, nil
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		o := ollamavision.NewOllamaExtractor(cfg.OllamaHost, cfg.OllamaModel)
		return vision.NewFallback(logger, o), o, nil
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("OPENAI_API_KEY or FASTROUTER_API_KEY is required when VISION_BACKEND=openai")
		}
		client := openaivision.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		fallback := vision.NewFallback(logger, client.Extractors(cfg.ExtractionModels...)...)
		logger.Info("using OpenAI-compatible vision backend", "base_url", cfg.OpenAIBaseURL, "models", fallback.Models())
		return fallback, client.ChatModel(cfg.AssistantModel), nil
	default:
		return nil, nil, fmt.Errorf("unknown VISION_BACKEND %q", cfg.VisionBackend)
	}
}

package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	RouterBaseURL = "https://go.fastrouter.ai/api/v1"
)

// DefaultOpenAIModels is tried in order when talking to OpenAI directly.
var DefaultOpenAIModels = []string{"gpt-4o-mini", "gpt-4o", "gpt-4-turbo"}

// DefaultRouterModels is tried in order when only a router key is configured.
var DefaultRouterModels = []string{
	"openai/gpt-4o-mini",
	"openai/gpt-4o",
	"google/gemini-2.0-flash-exp",
	"google/gemini-1.5-flash",
	"anthropic/claude-3-5-sonnet-20241022",
}

type Config struct {
	ListenAddr    string
	DBPath        string
	PhotoPath     string
	VisionBackend string

	OpenAIAPIKey     string
	RouterAPIKey     string
	OpenAIBaseURL    string
	ExtractionModels []string
	AssistantModel   string

	ClaudeAPIKey string
	ClaudeModel  string
	OllamaHost   string
	OllamaModel  string

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string
	LogFile   string
}

func Load() *Config {
	cfg := &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		DBPath:        getEnv("DB_PATH", "/data/cardsnap.db"),
		PhotoPath:     getEnv("PHOTO_LOCAL_PATH", "/data/cards"),
		VisionBackend: getEnv("VISION_BACKEND", "openai"),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		RouterAPIKey:     getEnv("FASTROUTER_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		ExtractionModels: getEnvList("EXTRACTION_MODELS"),
		AssistantModel:   getEnv("ASSISTANT_MODEL", ""),

		ClaudeAPIKey: getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:  getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),
		OllamaHost:   getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:  getEnv("OLLAMA_MODEL", "llava"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 0.5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 5),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),
	}

	// A direct OpenAI key wins. The router key is only used when no OpenAI
	// key is set, and then switches the defaults to the router's model names.
	usingRouter := cfg.OpenAIAPIKey == "" && cfg.RouterAPIKey != ""
	if usingRouter {
		cfg.OpenAIAPIKey = cfg.RouterAPIKey
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = OpenAIBaseURL
		if usingRouter {
			cfg.OpenAIBaseURL = RouterBaseURL
		}
	}
	if len(cfg.ExtractionModels) == 0 {
		cfg.ExtractionModels = DefaultOpenAIModels
		if usingRouter {
			cfg.ExtractionModels = DefaultRouterModels
		}
	}
	if cfg.AssistantModel == "" {
		cfg.AssistantModel = cfg.ExtractionModels[0]
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvFloat(key string, defaultVal float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return defaultVal
	}
	return f
}

func getEnvInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds the configuration for the application.
type Config struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
	DatabasePath   string
	CatalogPath    string
	Port           string
	AllowedOrigins []string

	// Vision Config
	VisionProvider     string
	GeminiAPIKey       string
	GeminiModel        string
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	MatchMinConfidence float64

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	ttlMinutes, err := intEnv("ACCESS_TOKEN_TTL_MINUTES", 1440)
	if err != nil {
		return nil, err
	}
	if ttlMinutes <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL_MINUTES must be positive")
	}

	provider := strings.ToLower(getEnv("VISION_PROVIDER", ProviderGemini))
	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	openAIAPIKey := os.Getenv("OPENAI_API_KEY")
	switch provider {
	case ProviderGemini:
		if geminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderOpenAI:
		if openAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown VISION_PROVIDER %q", provider)
	}

	minConfidence := 0.4
	if v := os.Getenv("MATCH_MIN_CONFIDENCE"); v != "" {
		minConfidence, err = strconv.ParseFloat(v, 64)
		if err != nil || minConfidence < 0 || minConfidence > 1 {
			return nil, fmt.Errorf("MATCH_MIN_CONFIDENCE must be a number between 0 and 1")
		}
	}

	// Telegram Config (Optional for the API, required for the bot)
	allowed, err := int64List(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}

	return &Config{
		JWTSecret:              jwtSecret,
		AccessTokenTTL:         time.Duration(ttlMinutes) * time.Minute,
		DatabasePath:           getEnv("DATABASE_PATH", "data/nutrition.db"),
		CatalogPath:            os.Getenv("FOOD_CATALOG_PATH"),
		Port:                   getEnv("PORT", "8080"),
		AllowedOrigins:         stringList(getEnv("ALLOWED_ORIGINS", "*")),
		VisionProvider:         provider,
		GeminiAPIKey:           geminiAPIKey,
		GeminiModel:            getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:           openAIAPIKey,
		OpenAIModel:            getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:          os.Getenv("OPENAI_BASE_URL"),
		MatchMinConfidence:     minConfidence,
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
	}, nil
}

// IsAllowedTelegramUser reports whether the bot may answer the user. An
// empty allow list admits nobody.
func (c *Config) IsAllowedTelegramUser(id int64) bool {
	for _, allowed := range c.TelegramAllowedUserIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func stringList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func int64List(s string) ([]int64, error) {
	var out []int64
	for _, part := range stringList(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

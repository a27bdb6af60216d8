package config

import (
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	// Clears every variable so the host environment cannot leak in.
	reset := func(t *testing.T) {
		t.Helper()
		for _, key := range []string{
			"JWT_SECRET", "ACCESS_TOKEN_TTL_MINUTES", "DATABASE_PATH", "FOOD_CATALOG_PATH", "PORT",
			"ALLOWED_ORIGINS", "VISION_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "OPENAI_API_KEY",
			"OPENAI_MODEL", "OPENAI_BASE_URL", "MATCH_MIN_CONFIDENCE", "TELEGRAM_BOT_TOKEN",
			"TELEGRAM_WEBHOOK_URL", "TELEGRAM_ALLOWED_USER_IDS",
		} {
			t.Setenv(key, "")
		}
	}

	t.Run("Defaults", func(t *testing.T) {
		reset(t)
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("GEMINI_API_KEY", "gemini_key")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.VisionProvider != ProviderGemini {
			t.Errorf("Expected provider 'gemini', got '%s'", cfg.VisionProvider)
		}
		if cfg.AccessTokenTTL != 24*time.Hour {
			t.Errorf("Expected a 24h token TTL, got %v", cfg.AccessTokenTTL)
		}
		if cfg.DatabasePath != "data/nutrition.db" {
			t.Errorf("Expected default database path, got '%s'", cfg.DatabasePath)
		}
		if cfg.Port != "8080" {
			t.Errorf("Expected port 8080, got '%s'", cfg.Port)
		}
		if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
			t.Errorf("Expected origins [*], got %v", cfg.AllowedOrigins)
		}
		if cfg.MatchMinConfidence != 0.4 {
			t.Errorf("Expected min confidence 0.4, got %v", cfg.MatchMinConfidence)
		}
		if cfg.GeminiModel != "gemini-2.5-flash" {
			t.Errorf("Expected default Gemini model, got '%s'", cfg.GeminiModel)
		}
		if cfg.IsAllowedTelegramUser(42) {
			t.Error("Expected an empty allow list to reject everybody")
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		reset(t)
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("VISION_PROVIDER", "OpenAI")
		t.Setenv("OPENAI_API_KEY", "openai_key")
		t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "30")
		t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://app.test")
		t.Setenv("MATCH_MIN_CONFIDENCE", "0.55")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "12345, 678")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.VisionProvider != ProviderOpenAI {
			t.Errorf("Expected provider 'openai', got '%s'", cfg.VisionProvider)
		}
		if cfg.AccessTokenTTL != 30*time.Minute {
			t.Errorf("Expected 30m TTL, got %v", cfg.AccessTokenTTL)
		}
		if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://app.test" {
			t.Errorf("Unexpected origins %v", cfg.AllowedOrigins)
		}
		if cfg.MatchMinConfidence != 0.55 {
			t.Errorf("Expected min confidence 0.55, got %v", cfg.MatchMinConfidence)
		}
		if !cfg.IsAllowedTelegramUser(678) || cfg.IsAllowedTelegramUser(999) {
			t.Errorf("Unexpected allow list %v", cfg.TelegramAllowedUserIDs)
		}
	})

	errorCases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "MissingJWTSecret",
			env:  map[string]string{"GEMINI_API_KEY": "k"},
			want: "JWT_SECRET environment variable not set",
		},
		{
			name: "MissingGeminiAPIKey",
			env:  map[string]string{"JWT_SECRET": "s"},
			want: "GEMINI_API_KEY environment variable not set",
		},
		{
			name: "MissingOpenAIAPIKey",
			env:  map[string]string{"JWT_SECRET": "s", "VISION_PROVIDER": "openai", "GEMINI_API_KEY": "k"},
			want: "OPENAI_API_KEY environment variable not set",
		},
		{
			name: "UnknownProvider",
			env:  map[string]string{"JWT_SECRET": "s", "VISION_PROVIDER": "claude"},
			want: `unknown VISION_PROVIDER "claude"`,
		},
		{
			name: "BadTTL",
			env:  map[string]string{"JWT_SECRET": "s", "GEMINI_API_KEY": "k", "ACCESS_TOKEN_TTL_MINUTES": "soon"},
			want: "ACCESS_TOKEN_TTL_MINUTES must be an integer",
		},
		{
			name: "BadConfidence",
			env:  map[string]string{"JWT_SECRET": "s", "GEMINI_API_KEY": "k", "MATCH_MIN_CONFIDENCE": "1.5"},
			want: "MATCH_MIN_CONFIDENCE must be a number between 0 and 1",
		},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			reset(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := NewFromEnv()
			if err == nil {
				t.Fatalf("Expected error '%s', got nil", tc.want)
			}
			if err.Error() != tc.want {
				t.Errorf("Expected error '%s', got '%s'", tc.want, err.Error())
			}
		})
	}
}

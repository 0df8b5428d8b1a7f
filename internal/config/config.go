package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultMealDBBaseURL   = "https://www.themealdb.com/api/json/v1/1"
	DefaultShoppingListKey = "nib-shopping-list"
)

// Config holds the configuration for the application.
type Config struct {
	MealDBBaseURL string        `validate:"required,url"`
	HTTPTimeout   time.Duration `validate:"gt=0"`

	// Storage
	StorageBackend  string `validate:"oneof=memory file sqlite postgres"`
	StoragePath     string `validate:"required_if=StorageBackend file"`
	DatabasePath    string `validate:"required_if=StorageBackend sqlite"`
	DatabaseURL     string `validate:"required_if=StorageBackend postgres"`
	ShoppingListKey string `validate:"required"`

	// Server
	Port      string `validate:"required,numeric"`
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`

	// Telegram Config (only needed by the bot)
	TelegramBotToken       string
	TelegramWebhookURL     string `validate:"omitempty,url"`
	TelegramAllowedUserIDs []int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		MealDBBaseURL:      envOr("MEALDB_BASE_URL", DefaultMealDBBaseURL),
		StorageBackend:     envOr("STORAGE_BACKEND", "file"),
		StoragePath:        envOr("STORAGE_PATH", "data/shopping"),
		DatabasePath:       envOr("DATABASE_PATH", "data/shopper.db"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ShoppingListKey:    envOr("SHOPPING_LIST_KEY", DefaultShoppingListKey),
		Port:               envOr("PORT", "8080"),
		LogLevel:           strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(envOr("LOG_FORMAT", "text")),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
	}

	timeout, err := time.ParseDuration(envOr("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	if raw := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", part, err)
			}
			cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values against their validation tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RequireTelegram reports whether the fields the bot needs are present.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

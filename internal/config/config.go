package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config keeps runtime settings for the bot. It is constructed once at
// startup and passed by reference; there is no package-level global.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL" env-default:"tasky.db"`
	HTTPHost    string `env:"HTTP_HOST" env-default:"0.0.0.0"`
	HTTPPort    string `env:"HTTP_PORT" env-default:"8080"`
	Debug       bool   `env:"DEBUG" env-default:"false"`

	// SummaryTime is the local HH:MM at which daily summaries go out.
	SummaryTime string `env:"SUMMARY_TIME" env-default:"08:00"`
	Timezone    string `env:"TIMEZONE" env-default:"UTC"`

	WhatsApp WhatsAppConfig
	Gemini   GeminiConfig
}

type WhatsAppConfig struct {
	AccessToken   string `env:"WHATSAPP_ACCESS_TOKEN" env-required:"true"`
	PhoneNumberID string `env:"WHATSAPP_PHONE_NUMBER_ID" env-required:"true"`
	VerifyToken   string `env:"WHATSAPP_VERIFY_TOKEN" env-required:"true"`
	AppSecret     string `env:"WHATSAPP_APP_SECRET" env-required:"true"`
	GraphVersion  string `env:"WHATSAPP_GRAPH_VERSION" env-default:"v17.0"`
}

type GeminiConfig struct {
	// APIKey may be empty; the bot then answers without an LLM.
	APIKey string `env:"GEMINI_API_KEY"`
	Model  string `env:"GEMINI_MODEL" env-default:"gemini-2.0-flash"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}

	if _, err := time.Parse("15:04", cfg.SummaryTime); err != nil {
		return cfg, fmt.Errorf("SUMMARY_TIME %q: expected HH:MM", cfg.SummaryTime)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return cfg, fmt.Errorf("TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location resolves the configured timezone. Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

package config

import (
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	FinnhubAPIKey   string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string

	BillingSecret string
	ServerPort    string
	CORSOrigin    string
	TrialDays     int
	FanoutWorkers int

	Sources Sources
}

// Sources lists the shared RSS feeds per vendor. Overridable via a YAML
// file named by AIDIGEST_SOURCES; the defaults match the hosted mirrors
// the product launched with.
type Sources struct {
	OpenAIFeeds    []string `yaml:"openai_feeds"`
	AnthropicFeeds []string `yaml:"anthropic_feeds"`
}

func Load() *Config {
	cfg := &Config{
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		FinnhubAPIKey:   getEnv("FINNHUB_API_KEY", ""),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnv("SMTP_PORT", "587"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		FromEmail:       getEnv("FROM_EMAIL", ""),
		BillingSecret:   getEnv("BILLING_SECRET", ""),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		TrialDays:       getEnvAsInt("TRIAL_DAYS", 2),
		FanoutWorkers:   getEnvAsInt("FANOUT_WORKERS", 10),
		Sources:         defaultSources(),
	}

	if path := os.Getenv("AIDIGEST_SOURCES"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("cannot read sources config, using defaults", "path", path, "error", err)
			return cfg
		}

		var sources Sources
		if err := yaml.Unmarshal(raw, &sources); err != nil {
			slog.Warn("cannot parse sources config, using defaults", "path", path, "error", err)
			return cfg
		}

		if len(sources.OpenAIFeeds) > 0 {
			cfg.Sources.OpenAIFeeds = sources.OpenAIFeeds
		}
		if len(sources.AnthropicFeeds) > 0 {
			cfg.Sources.AnthropicFeeds = sources.AnthropicFeeds
		}
	}

	return cfg
}

func defaultSources() Sources {
	return Sources{
		OpenAIFeeds: []string{
			"https://raw.githubusercontent.com/Olshansk/rss-feeds/main/feeds/feed_openai_news.xml",
			"https://raw.githubusercontent.com/Olshansk/rss-feeds/main/feeds/feed_openai_research.xml",
		},
		AnthropicFeeds: []string{
			"https://raw.githubusercontent.com/Olshansk/rss-feeds/main/feeds/feed_anthropic_news.xml",
			"https://raw.githubusercontent.com/Olshansk/rss-feeds/main/feeds/feed_anthropic_research.xml",
			"https://raw.githubusercontent.com/Olshansk/rss-feeds/main/feeds/feed_anthropic_engineering.xml",
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

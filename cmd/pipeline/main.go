package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"aidigest/db"
	"aidigest/internal/config"
	"aidigest/internal/model"
	"aidigest/internal/pipeline"
	"aidigest/internal/repository"
	"aidigest/pkg/llm"
	"aidigest/pkg/mail"
	"aidigest/pkg/source"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment")
	}

	hours := flag.Int("hours", 24, "delivery lookback window in hours")
	top := flag.Int("top", 10, "max digests per email")
	every := flag.Duration("every", 0, "rerun interval, 0 runs once")
	flag.Parse()

	cfg := config.Load()

	if err := db.Connect(); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	if err := db.ConnectRedis(); err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer db.CloseRedis()

	runner := buildRunner(cfg, pipeline.Options{
		Hours:   *hours,
		TopN:    *top,
		Workers: cfg.FanoutWorkers,
	})

	if *every <= 0 {
		if summary := runner.Run(); !summary.Success {
			os.Exit(1)
		}
		return
	}

	slog.Info("starting pipeline scheduler", "interval", every.String())
	runner.Run()
	for range time.Tick(*every) {
		runner.Run()
	}
}

func buildRunner(cfg *config.Config, opts pipeline.Options) *pipeline.Runner {
	items := repository.NewItemRepository(db.DB)
	digests := repository.NewDigestRepository(db.DB)
	subs := repository.NewSubscriptionRepository(db.DB)
	profiles := repository.NewProfileRepository(db.Redis)

	anthropicFeed := source.NewFeedSource(model.SourceAnthropic, cfg.Sources.AnthropicFeeds)

	deps := pipeline.Deps{
		Items:         items,
		Digests:       digests,
		Subscriptions: subs,
		Profiles:      profiles,
		Summarizer:    pickSummarizer(cfg),
		Curator:       pickCurator(cfg),
		Mailer:        mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.FromEmail),
		Videos:        source.NewYouTubeSource(),
		Shared: []pipeline.SharedSourceEntry{
			{Name: model.SourceOpenAI, Source: source.NewFeedSource(model.SourceOpenAI, cfg.Sources.OpenAIFeeds)},
			{Name: model.SourceAnthropic, Source: anthropicFeed},
			{Name: model.SourceMarket, Source: source.NewMarketSource(cfg.FinnhubAPIKey)},
		},
		// Anthropic feed entries carry no body, so their pages get scraped.
		Scrapers: map[string]pipeline.Scraper{
			model.SourceAnthropic: anthropicFeed,
		},
	}
	return pipeline.NewRunner(deps, opts)
}

func pickSummarizer(cfg *config.Config) llm.Summarizer {
	if cfg.AnthropicAPIKey != "" {
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	}
	return llm.NewOpenAIClient(cfg.OpenAIAPIKey)
}

func pickCurator(cfg *config.Config) llm.Curator {
	if cfg.OpenAIAPIKey != "" {
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	return llm.NewAnthropicClient(cfg.AnthropicAPIKey)
}

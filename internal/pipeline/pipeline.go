package pipeline

import (
	"log/slog"
	"sort"
	"time"

	"aidigest/internal/model"
	"aidigest/pkg/llm"
)

// SharedSourceEntry binds a shared gateway to its source name. Registry
// order is fixed at construction and followed on every run.
type SharedSourceEntry struct {
	Name   string
	Source SharedSource
}

// Options tunes one pipeline run.
type Options struct {
	// Hours is the delivery lookback window for unsent digests.
	Hours int
	// TopN caps how many ranked digests go into one email.
	TopN int
	// Workers bounds the fan-out pool.
	Workers int
	// BatchLimit caps items per enrichment batch. Zero means no cap.
	BatchLimit int
}

// Deps wires the runner's collaborators. Scrapers keys are the sources
// whose articles must be enriched to markdown before digesting.
type Deps struct {
	Items         ItemStore
	Digests       DigestStore
	Subscriptions SubscriptionStore
	Profiles      ProfileStore
	Summarizer    llm.Summarizer
	Curator       llm.Curator
	Mailer        Mailer
	Videos        VideoSource
	Shared        []SharedSourceEntry
	Scrapers      map[string]Scraper
}

// Runner drives one end-to-end pass: scrape, enrich, digest, fan out.
type Runner struct {
	items    ItemStore
	digests  DigestStore
	subs     SubscriptionStore
	profiles ProfileStore

	summarizer llm.Summarizer
	curator    llm.Curator
	mailer     Mailer

	videos   VideoSource
	shared   []SharedSourceEntry
	scrapers map[string]Scraper

	opts Options
}

func NewRunner(deps Deps, opts Options) *Runner {
	if opts.Hours <= 0 {
		opts.Hours = 24
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	return &Runner{
		items:      deps.Items,
		digests:    deps.Digests,
		subs:       deps.Subscriptions,
		profiles:   deps.Profiles,
		summarizer: deps.Summarizer,
		curator:    deps.Curator,
		mailer:     deps.Mailer,
		videos:     deps.Videos,
		shared:     deps.Shared,
		scrapers:   deps.Scrapers,
		opts:       opts,
	}
}

// RunSummary is the machine-readable report for one run. Success means
// at least one email was sent or skipped; infrastructure failures before
// the fan-out set Error and leave Success false.
type RunSummary struct {
	StartTime       time.Time              `json:"start_time"`
	DurationSeconds float64                `json:"duration_seconds"`
	Scraping        map[string]int         `json:"scraping"`
	Processing      map[string]BatchResult `json:"processing"`
	Digests         BatchResult            `json:"digests"`
	Emails          EmailCounts            `json:"emails"`
	UsersProcessed  int                    `json:"users_processed"`
	Success         bool                   `json:"success"`
	Error           string                 `json:"error,omitempty"`
}

// Run executes one full pipeline pass. The eligible-user set is
// snapshotted once up front; mid-run subscription changes do not affect
// this run.
func (r *Runner) Run() RunSummary {
	start := time.Now().UTC()
	summary := RunSummary{
		StartTime:  start,
		Scraping:   make(map[string]int),
		Processing: make(map[string]BatchResult),
	}
	fail := func(err error) RunSummary {
		summary.Error = err.Error()
		summary.DurationSeconds = time.Since(start).Seconds()
		slog.Error("pipeline run failed", "error", err)
		return summary
	}

	users, err := r.subs.GetEligibleUsers(start)
	if err != nil {
		return fail(err)
	}
	if len(users) == 0 {
		slog.Info("no eligible users, nothing to deliver")
		summary.Success = true
		summary.Emails.Skipped = 1
		summary.DurationSeconds = time.Since(start).Seconds()
		return summary
	}

	channelIDs, err := r.subs.GetUniqueChannelIDs()
	if err != nil {
		return fail(err)
	}

	since := start.Add(-time.Duration(r.opts.Hours) * time.Hour)
	summary.Scraping = r.runSources(since, channelIDs)

	transcripts, err := r.enrichTranscripts()
	if err != nil {
		return fail(err)
	}
	summary.Processing[model.SourceYouTube] = transcripts
	for _, name := range r.enrichableSources() {
		batch, err := r.enrichMarkdown(name, r.scrapers[name])
		if err != nil {
			return fail(err)
		}
		summary.Processing[name] = batch
	}

	summary.Digests, err = r.generateDigests()
	if err != nil {
		return fail(err)
	}

	summary.Emails, summary.UsersProcessed = r.fanOut(users, start)
	summary.Success = summary.Emails.Sent > 0 || summary.Emails.Skipped > 0
	summary.DurationSeconds = time.Since(start).Seconds()

	slog.Info("pipeline run complete",
		"success", summary.Success,
		"sent", summary.Emails.Sent,
		"failed", summary.Emails.Failed,
		"skipped", summary.Emails.Skipped,
		"duration_seconds", summary.DurationSeconds,
	)
	return summary
}

// generateDigests summarizes every enriched item that has no digest yet.
// One item's failure leaves it undigested for the next run.
func (r *Runner) generateDigests() (BatchResult, error) {
	candidates, err := r.items.GetUndigested(r.opts.BatchLimit, r.enrichableSources())
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Total: len(candidates)}
	for _, c := range candidates {
		digest, err := r.summarizer.GenerateDigest(llm.DigestInput{
			SourceType: c.SourceType,
			Title:      c.Title,
			Content:    c.Content,
		})
		if err != nil {
			slog.Error("digest generation failed", "digest_id", c.DigestID(), "error", err)
			result.Failed++
			continue
		}
		if _, err := r.digests.CreateDigest(&model.Digest{
			ID:         c.DigestID(),
			SourceType: c.SourceType,
			ItemID:     c.ItemID,
			URL:        c.URL,
			Title:      digest.Title,
			Summary:    digest.Summary,
			CreatedAt:  c.PublishedAt,
		}); err != nil {
			slog.Error("failed to save digest", "digest_id", c.DigestID(), "error", err)
			result.Failed++
			continue
		}
		result.Processed++
	}
	return result, nil
}

func (r *Runner) enrichableSources() []string {
	names := make([]string, 0, len(r.scrapers))
	for name := range r.scrapers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package pipeline

import (
	"log/slog"
	"time"

	"aidigest/internal/model"
)

// sourceEntry is one stage of the ordered scraping pass. Runs execute
// entries in registration order and a failing entry never blocks the rest.
type sourceEntry struct {
	name  string
	fetch func(since time.Time, channelIDs []string) (int, error)
}

func (r *Runner) sourceRegistry() []sourceEntry {
	registry := []sourceEntry{
		{name: model.SourceYouTube, fetch: r.fetchVideos},
	}
	for _, entry := range r.shared {
		entry := entry
		registry = append(registry, sourceEntry{
			name: entry.Name,
			fetch: func(since time.Time, _ []string) (int, error) {
				return r.fetchShared(entry.Name, entry.Source, since)
			},
		})
	}
	return registry
}

// runSources fetches every source and returns fetched counts per source.
// Failures are recorded as zero and logged; the pass always completes.
func (r *Runner) runSources(since time.Time, channelIDs []string) map[string]int {
	counts := make(map[string]int)
	for _, entry := range r.sourceRegistry() {
		fetched, err := entry.fetch(since, channelIDs)
		if err != nil {
			slog.Error("source fetch failed", "source", entry.name, "error", err)
			counts[entry.name] = 0
			continue
		}
		counts[entry.name] = fetched
	}
	return counts
}

func (r *Runner) fetchVideos(since time.Time, channelIDs []string) (int, error) {
	fetched := 0
	created := 0
	var lastErr error
	failures := 0
	for _, channelID := range channelIDs {
		items, err := r.videos.FetchChannel(channelID, since)
		if err != nil {
			slog.Error("channel fetch failed", "channel_id", channelID, "error", err)
			lastErr = err
			failures++
			continue
		}
		fetched += len(items)
		for _, item := range items {
			isNew, err := r.items.SaveVideo(&model.Video{
				VideoID:     item.ExternalID,
				ChannelID:   item.ChannelID,
				Title:       item.Title,
				URL:         item.URL,
				Description: item.Description,
				PublishedAt: item.PublishedAt,
			})
			if err != nil {
				slog.Error("failed to save video", "video_id", item.ExternalID, "error", err)
				continue
			}
			if isNew {
				created++
			}
		}
	}
	if len(channelIDs) > 0 && failures == len(channelIDs) {
		return 0, lastErr
	}
	slog.Info("videos fetched", "fetched", fetched, "created", created)
	return fetched, nil
}

func (r *Runner) fetchShared(name string, src SharedSource, since time.Time) (int, error) {
	items, err := src.Fetch(since)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, item := range items {
		isNew, err := r.items.SaveArticle(&model.Article{
			Source:      name,
			GUID:        item.ExternalID,
			Title:       item.Title,
			URL:         item.URL,
			Description: item.Description,
			Category:    item.Category,
			PublishedAt: item.PublishedAt,
		})
		if err != nil {
			slog.Error("failed to save article", "source", name, "guid", item.ExternalID, "error", err)
			continue
		}
		if isNew {
			created++
		}
	}
	slog.Info("articles fetched", "source", name, "fetched", len(items), "created", created)
	return len(items), nil
}

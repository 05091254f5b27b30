package pipeline

import (
	"log/slog"

	"aidigest/internal/model"
)

// BatchResult reports one enrichment or digest batch. Unavailable counts
// items marked with the terminal sentinel so they are never retried.
type BatchResult struct {
	Total       int `json:"total"`
	Processed   int `json:"processed"`
	Failed      int `json:"failed"`
	Unavailable int `json:"unavailable"`
}

// enrichTranscripts fills in transcripts for videos that have none yet.
// A converter error leaves the video pending for the next run; a video
// without captions is marked unavailable and never retried.
func (r *Runner) enrichTranscripts() (BatchResult, error) {
	videos, err := r.items.GetVideosWithoutTranscript(r.opts.BatchLimit)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Total: len(videos)}
	for _, video := range videos {
		transcript, available, err := r.videos.FetchTranscript(video.VideoID)
		if err != nil {
			slog.Error("transcript fetch failed", "video_id", video.VideoID, "error", err)
			result.Failed++
			continue
		}
		if !available {
			if err := r.items.UpdateVideoTranscript(video.VideoID, model.TranscriptUnavailable); err != nil {
				slog.Error("failed to mark transcript unavailable", "video_id", video.VideoID, "error", err)
				result.Failed++
				continue
			}
			result.Unavailable++
			continue
		}
		if err := r.items.UpdateVideoTranscript(video.VideoID, transcript); err != nil {
			slog.Error("failed to save transcript", "video_id", video.VideoID, "error", err)
			result.Failed++
			continue
		}
		result.Processed++
	}
	return result, nil
}

// enrichMarkdown scrapes article bodies for one enrichable source.
func (r *Runner) enrichMarkdown(sourceName string, scraper Scraper) (BatchResult, error) {
	articles, err := r.items.GetArticlesWithoutMarkdown(sourceName, r.opts.BatchLimit)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Total: len(articles)}
	for _, article := range articles {
		markdown, err := scraper.URLToMarkdown(article.URL)
		if err != nil {
			slog.Error("article scrape failed", "source", sourceName, "guid", article.GUID, "error", err)
			result.Failed++
			continue
		}
		if markdown == "" {
			if err := r.items.UpdateArticleMarkdown(sourceName, article.GUID, model.TranscriptUnavailable); err != nil {
				slog.Error("failed to mark article unavailable", "source", sourceName, "guid", article.GUID, "error", err)
				result.Failed++
				continue
			}
			result.Unavailable++
			continue
		}
		if err := r.items.UpdateArticleMarkdown(sourceName, article.GUID, markdown); err != nil {
			slog.Error("failed to save markdown", "source", sourceName, "guid", article.GUID, "error", err)
			result.Failed++
			continue
		}
		result.Processed++
	}
	return result, nil
}

package model

import "time"

// TranscriptUnavailable marks an enrichment fetch that succeeded but found
// no content. NULL means "not tried yet" and is retried on the next run;
// the sentinel is terminal and never retried.
const TranscriptUnavailable = "__UNAVAILABLE__"

const (
	SourceYouTube   = "youtube"
	SourceOpenAI    = "openai"
	SourceAnthropic = "anthropic"
	SourceMarket    = "market"
)

// Video is a raw channel-scoped item. Core fields are immutable once
// written; only Transcript is backfilled by the enrichment stage.
type Video struct {
	VideoID     string
	Title       string
	URL         string
	ChannelID   string
	PublishedAt time.Time
	Description string
	Transcript  *string
	CreatedAt   time.Time
}

// Article is a raw shared item from one of the blog/news sources.
// Markdown is only filled for sources that need scraping (anthropic);
// the rest carry their content in Description.
type Article struct {
	GUID        string
	Source      string
	Title       string
	URL         string
	Description string
	PublishedAt time.Time
	Category    string
	Markdown    *string
	CreatedAt   time.Time
}

// CandidateItem is a raw item with usable content that has no digest yet.
type CandidateItem struct {
	SourceType  string
	ItemID      string
	Title       string
	URL         string
	Content     string
	PublishedAt time.Time
}

// DigestID computes the globally unique digest key for a raw item.
func (c CandidateItem) DigestID() string {
	return c.SourceType + ":" + c.ItemID
}

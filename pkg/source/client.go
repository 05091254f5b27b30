package source

import "time"

// Item is a normalized raw item as produced by any source adapter.
// ChannelID is only set by channel-scoped sources.
type Item struct {
	ExternalID  string
	Title       string
	URL         string
	Description string
	Category    string
	ChannelID   string
	PublishedAt time.Time
}

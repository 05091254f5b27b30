package source

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const youtubeFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"
const youtubeCaptionsURL = "https://video.google.com/timedtext?lang=en&v=%s"

// YouTubeSource fetches channel uploads via the public channel RSS feed
// and caption tracks via the timedtext endpoint.
type YouTubeSource struct {
	parser *gofeed.Parser
	client *http.Client
}

func NewYouTubeSource() *YouTubeSource {
	client := &http.Client{Timeout: 30 * time.Second}
	parser := gofeed.NewParser()
	parser.Client = client
	return &YouTubeSource{parser: parser, client: client}
}

// FetchChannel returns the channel's uploads published after since.
func (s *YouTubeSource) FetchChannel(channelID string, since time.Time) ([]Item, error) {
	feed, err := s.parser.ParseURL(fmt.Sprintf(youtubeFeedURL, channelID))
	if err != nil {
		return nil, fmt.Errorf("parse channel feed %s: %w", channelID, err)
	}

	var items []Item
	for _, entry := range feed.Items {
		if entry.PublishedParsed == nil || entry.PublishedParsed.Before(since) {
			continue
		}

		items = append(items, Item{
			ExternalID:  videoIDFromEntry(entry),
			Title:       entry.Title,
			URL:         entry.Link,
			Description: entry.Description,
			ChannelID:   channelID,
			PublishedAt: *entry.PublishedParsed,
		})
	}

	return items, nil
}

// FetchTranscript downloads the English caption track for a video.
// available=false means the video verifiably has no captions, which is
// terminal; an error means the fetch itself failed and should be retried.
func (s *YouTubeSource) FetchTranscript(videoID string) (transcript string, available bool, err error) {
	resp, err := s.client.Get(fmt.Sprintf(youtubeCaptionsURL, videoID))
	if err != nil {
		return "", false, fmt.Errorf("fetch captions for %s: %w", videoID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("captions for %s: %s", videoID, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("read captions for %s: %w", videoID, err)
	}

	text, err := parseTimedText(body)
	if err != nil {
		return "", false, fmt.Errorf("parse captions for %s: %w", videoID, err)
	}
	if text == "" {
		// Empty document: the video has no English track.
		return "", false, nil
	}

	return text, true, nil
}

func videoIDFromEntry(entry *gofeed.Item) string {
	// YouTube feed entry ids look like "yt:video:VIDEOID".
	if idx := strings.LastIndex(entry.GUID, ":"); idx >= 0 {
		return entry.GUID[idx+1:]
	}
	return entry.GUID
}

type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

func parseTimedText(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var doc timedText
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, t := range doc.Texts {
		line := strings.TrimSpace(html.UnescapeString(t.Value))
		if line == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(line)
	}

	return sb.String(), nil
}

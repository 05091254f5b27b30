package source

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// FeedSource aggregates one vendor's RSS feeds (news, research,
// engineering) into a single stream of items.
type FeedSource struct {
	name     string
	feedURLs []string
	parser   *gofeed.Parser
	client   *http.Client
}

func NewFeedSource(name string, feedURLs []string) *FeedSource {
	client := &http.Client{Timeout: 30 * time.Second}
	parser := gofeed.NewParser()
	parser.Client = client
	return &FeedSource{
		name:     name,
		feedURLs: feedURLs,
		parser:   parser,
		client:   client,
	}
}

func (s *FeedSource) Name() string {
	return s.name
}

// Fetch returns entries published after since across all configured
// feeds. A single broken feed does not sink the others; the first error
// is only surfaced when every feed failed.
func (s *FeedSource) Fetch(since time.Time) ([]Item, error) {
	var items []Item
	var firstErr error
	failed := 0

	for _, url := range s.feedURLs {
		feed, err := s.parser.ParseURL(url)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("parse feed %s: %w", url, err)
			}
			continue
		}

		for _, entry := range feed.Items {
			if entry.PublishedParsed == nil || entry.PublishedParsed.Before(since) {
				continue
			}

			guid := entry.GUID
			if guid == "" {
				guid = entry.Link
			}

			var category string
			if len(entry.Categories) > 0 {
				category = entry.Categories[0]
			}

			items = append(items, Item{
				ExternalID:  guid,
				Title:       entry.Title,
				URL:         entry.Link,
				Description: entry.Description,
				Category:    category,
				PublishedAt: *entry.PublishedParsed,
			})
		}
	}

	if failed == len(s.feedURLs) && firstErr != nil {
		return nil, firstErr
	}

	return items, nil
}

// URLToMarkdown fetches an article page and reduces it to markdown-ish
// text for downstream summarization.
func (s *FeedSource) URLToMarkdown(url string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch article %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch article %s: %s", url, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse article %s: %w", url, err)
	}

	return extractMarkdown(doc), nil
}

// extractMarkdown walks the main content of a page and renders headings
// and paragraphs as plain markdown. Boilerplate (nav, scripts, footers)
// is stripped first.
func extractMarkdown(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}

	var sb strings.Builder
	root.Find("h1, h2, h3, p, li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}

		switch goquery.NodeName(sel) {
		case "h1":
			sb.WriteString("# " + text + "\n\n")
		case "h2":
			sb.WriteString("## " + text + "\n\n")
		case "h3":
			sb.WriteString("### " + text + "\n\n")
		case "li":
			sb.WriteString("- " + text + "\n")
		default:
			sb.WriteString(text + "\n\n")
		}
	})

	return strings.TrimSpace(sb.String())
}

package source

import (
	"context"
	"strconv"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
)

// MarketSource pulls tech-market headlines from finnhub as a shared,
// channel-agnostic source. Market items carry their content in the
// description and need no enrichment.
type MarketSource struct {
	client *finnhub.DefaultApiService
}

func NewMarketSource(apiKey string) *MarketSource {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	client := finnhub.NewAPIClient(cfg).DefaultApi
	return &MarketSource{client: client}
}

func (s *MarketSource) Fetch(since time.Time) ([]Item, error) {
	res, _, err := s.client.MarketNews(context.Background()).Category("general").Execute()
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, news := range res {
		item := Item{Category: "market"}

		if news.Id != nil {
			item.ExternalID = strconv.FormatInt(*news.Id, 10)
		}
		if news.Headline != nil {
			item.Title = *news.Headline
		}
		if news.Summary != nil {
			item.Description = *news.Summary
		}
		if news.Url != nil {
			item.URL = *news.Url
		}
		if news.Datetime != nil {
			item.PublishedAt = time.Unix(*news.Datetime, 0)
		}

		if item.ExternalID == "" || item.PublishedAt.Before(since) {
			continue
		}

		items = append(items, item)
	}

	return items, nil
}

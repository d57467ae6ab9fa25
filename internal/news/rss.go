package news

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"autotrade_go/internal/domain"
	"autotrade_go/internal/infra"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// RSS represents an RSS feed
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Channel Channel  `xml:"channel"`
}

// Channel represents an RSS channel
type Channel struct {
	Title string `xml:"title"`
	Items []Item `xml:"item"`
}

// Item represents an RSS item
type Item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// RSSSource reads headlines from a fixed list of RSS feeds.
type RSSSource struct {
	feeds  []string
	client *resty.Client
}

// NewRSSSource creates a source over feeds.
func NewRSSSource(feeds []string, timeout time.Duration) *RSSSource {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", infra.DefaultUserAgent)
	client.SetHeader("Accept", "application/rss+xml, application/xml, text/xml")

	return &RSSSource{feeds: feeds, client: client}
}

// Search returns every item of every feed in feed order. The query is not
// sent anywhere; relevance filtering is the caller's job. A feed that fails
// is skipped; Search fails only when all of them do.
func (s *RSSSource) Search(ctx context.Context, query string) ([]domain.NewsItem, error) {
	var (
		items []domain.NewsItem
		errs  []error
	)

	for _, url := range s.feeds {
		feedItems, err := s.fetchFeed(ctx, url)
		if err != nil {
			slog.Warn("⚠️ News feed failed",
				slog.String("query", query),
				slog.String("feed", url),
				slog.Any("error", err),
			)
			errs = append(errs, err)
			continue
		}
		items = append(items, feedItems...)
	}

	if len(s.feeds) > 0 && len(errs) == len(s.feeds) {
		return nil, domain.NewNetworkError("news", errors.Join(errs...))
	}
	return items, nil
}

func (s *RSSSource) fetchFeed(ctx context.Context, url string) ([]domain.NewsItem, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP error %d when fetching feed", resp.StatusCode())
	}

	var feed RSS
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]domain.NewsItem, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		items = append(items, domain.NewsItem{
			Title:       strings.TrimSpace(it.Title),
			Link:        strings.TrimSpace(it.Link),
			PublishedAt: strings.TrimSpace(it.PubDate),
			Summary:     plainText(it.Description),
		})
	}
	return items, nil
}

// plainText strips markup from a feed description.
func plainText(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

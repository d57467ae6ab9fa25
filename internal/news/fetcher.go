package news

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"autotrade_go/internal/domain"
)

const (
	// DefaultCooldown is the minimum spacing between fetches for one asset.
	DefaultCooldown = time.Hour
	// DefaultMaxResults caps the headlines handed to the model per asset.
	DefaultMaxResults = 4
)

// generalTerms widen the match for major assets with no specific headline.
var generalTerms = []string{"crypto", "cryptocurrency", "bitcoin", "ethereum", "blockchain"}

// RateLimitedFetcher wraps a NewsSource behind a per-asset cooldown.
type RateLimitedFetcher struct {
	source     domain.NewsSource
	state      *CooldownState
	window     time.Duration
	maxResults int
	logger     *slog.Logger
}

// NewRateLimitedFetcher creates a fetcher. A nil state gets a fresh one.
func NewRateLimitedFetcher(source domain.NewsSource, state *CooldownState, window time.Duration, maxResults int) *RateLimitedFetcher {
	if state == nil {
		state = NewCooldownState()
	}
	if window <= 0 {
		window = DefaultCooldown
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &RateLimitedFetcher{
		source:     source,
		state:      state,
		window:     window,
		maxResults: maxResults,
		logger:     slog.Default().With("module", "news"),
	}
}

// CooldownKey is the state key of an asset.
func CooldownKey(symbol string) string {
	return symbol + "_last_fetch"
}

// Fetch returns relevant headlines for asset. While the cooldown is active
// it returns nothing, makes no call, and reports the remaining wait.
// A failed retrieval leaves the cooldown untouched; any successful one,
// empty included, advances it to now.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, asset domain.AssetConfig, now time.Time) ([]domain.NewsItem, time.Duration, error) {
	key := CooldownKey(asset.Symbol)

	if wait := f.state.Remaining(key, now, f.window); wait > 0 {
		last, _ := f.state.Last(key)
		f.logger.Info("⏰ News rate limited",
			slog.String("symbol", asset.Symbol),
			slog.Time("last_fetch", last),
			slog.Duration("next_fetch_in", wait),
		)
		return []domain.NewsItem{}, wait, nil
	}

	items, err := f.source.Search(ctx, asset.Symbol)
	if err != nil {
		return nil, 0, err
	}
	f.state.Mark(key, now)

	relevant := FilterRelevant(items, asset, f.maxResults)
	if len(relevant) == 0 {
		f.logger.Info("📰 No relevant news", slog.String("symbol", asset.Symbol), slog.Int("scanned", len(items)))
	} else {
		f.logger.Info("📰 News retrieved", slog.String("symbol", asset.Symbol), slog.Int("count", len(relevant)))
	}
	return relevant, 0, nil
}

// FilterRelevant keeps items mentioning the asset's name or symbol, up to
// limit. Major assets also accept general crypto headlines.
func FilterRelevant(items []domain.NewsItem, asset domain.AssetConfig, limit int) []domain.NewsItem {
	keywords := []string{strings.ToLower(asset.Symbol)}
	if name := strings.ToLower(asset.Name); name != "" && name != keywords[0] {
		keywords = append(keywords, name)
	}
	major := asset.IsMajor()

	out := make([]domain.NewsItem, 0, limit)
	for _, it := range items {
		if len(out) >= limit {
			break
		}
		text := strings.ToLower(it.Title + " " + it.Summary)
		if containsAny(text, keywords) || (major && containsAny(text, generalTerms)) {
			out = append(out, it)
		}
	}
	return out
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

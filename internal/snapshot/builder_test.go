package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"autotrade_go/internal/domain"
	"autotrade_go/internal/news"

	"github.com/shopspring/decimal"
)

type fakeVenue struct {
	mu         sync.Mutex
	candleErr  map[string]error
	balanceErr map[string]error
	priceErr   error
	requests   map[string]int
	balances   map[string]decimal.Decimal
	price      decimal.Decimal
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{
		candleErr:  map[string]error{},
		balanceErr: map[string]error{},
		requests:   map[string]int{},
		balances: map[string]decimal.Decimal{
			"KRW": decimal.NewFromInt(20000),
			"XRP": decimal.NewFromInt(10),
		},
		price: decimal.NewFromInt(800),
	}
}

func (f *fakeVenue) Candles(ctx context.Context, ticker, interval string, count int) (domain.Series, error) {
	f.mu.Lock()
	f.requests[interval] = count
	f.mu.Unlock()
	if err := f.candleErr[interval]; err != nil {
		return nil, err
	}
	s := make(domain.Series, count)
	for i := range s {
		s[i] = domain.Candle{Timestamp: time.Unix(int64(i), 0), Close: decimal.NewFromInt(int64(i))}
	}
	return s, nil
}

func (f *fakeVenue) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	if err := f.balanceErr[currency]; err != nil {
		return decimal.Zero, err
	}
	return f.balances[currency], nil
}

func (f *fakeVenue) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if f.priceErr != nil {
		return decimal.Zero, f.priceErr
	}
	return f.price, nil
}

func (f *fakeVenue) SubmitMarketOrder(ctx context.Context, order domain.OrderRequest) error {
	return errors.New("snapshot must not trade")
}

type fakeLedger struct {
	records []domain.TradeRecord
	err     error
	limit   int
}

func (l *fakeLedger) Append(ctx context.Context, r *domain.TradeRecord) error { return nil }

func (l *fakeLedger) Recent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	l.limit = limit
	if l.err != nil {
		return nil, l.err
	}
	if limit < len(l.records) {
		return l.records[:limit], nil
	}
	return l.records, nil
}

type fakeLedgers struct{ ledger *fakeLedger }

func (p fakeLedgers) LedgerFor(asset domain.AssetConfig) (domain.Ledger, error) {
	return p.ledger, nil
}

type fakeRates struct {
	rate decimal.Decimal
	err  error
}

func (r fakeRates) FetchRate(ctx context.Context) (decimal.Decimal, error) { return r.rate, r.err }

type fakeNews struct {
	items []domain.NewsItem
	err   error
	calls int
}

func (n *fakeNews) Search(ctx context.Context, query string) ([]domain.NewsItem, error) {
	n.calls++
	return n.items, n.err
}

var xrp = domain.AssetConfig{Symbol: "XRP", Name: "Ripple"}.Normalize()

func TestBuild_Complete(t *testing.T) {
	venue := newFakeVenue()
	ledger := &fakeLedger{records: make([]domain.TradeRecord, 6)}
	src := &fakeNews{items: []domain.NewsItem{{Title: "XRP surges"}, {Title: "Gold flat"}}}
	fetcher := news.NewRateLimitedFetcher(src, nil, time.Hour, 4)

	b := NewBuilder(venue, fetcher, fakeLedgers{ledger}, fakeRates{rate: decimal.NewFromInt(1380)})
	snap := b.Build(context.Background(), xrp)

	if len(snap.ShortTerm) != 24 || len(snap.MidTerm) != 30 || len(snap.LongTerm) != 30 {
		t.Errorf("series lengths = %d/%d/%d", len(snap.ShortTerm), len(snap.MidTerm), len(snap.LongTerm))
	}
	if venue.requests[domain.IntervalHour] != 24 || venue.requests[domain.IntervalFourHour] != 30 || venue.requests[domain.IntervalDay] != 30 {
		t.Errorf("unexpected windowing %v", venue.requests)
	}
	if snap.Balances == nil || !snap.Balances.TotalValue.Equal(decimal.NewFromInt(28000)) {
		t.Errorf("balances = %+v", snap.Balances)
	}
	if len(snap.News) != 1 || snap.News[0].Title != "XRP surges" {
		t.Errorf("news = %v", snap.News)
	}
	if len(snap.RecentTrades) != 4 || ledger.limit != 4 {
		t.Errorf("expected 4 recent trades, got %d (limit %d)", len(snap.RecentTrades), ledger.limit)
	}
	if snap.USDKRW == nil || !snap.USDKRW.Equal(decimal.NewFromInt(1380)) {
		t.Errorf("usd_krw = %v", snap.USDKRW)
	}
	if snap.Symbol != "XRP" || snap.Name != "Ripple" {
		t.Errorf("identity = %s/%s", snap.Symbol, snap.Name)
	}
}

func TestBuild_LongSeriesFailure(t *testing.T) {
	venue := newFakeVenue()
	venue.candleErr[domain.IntervalDay] = errors.New("502 bad gateway")

	snap := NewBuilder(venue, nil, nil, nil).Build(context.Background(), xrp)

	if len(snap.ShortTerm) != 24 || len(snap.MidTerm) != 30 {
		t.Errorf("short/mid should survive, got %d/%d", len(snap.ShortTerm), len(snap.MidTerm))
	}
	if snap.LongTerm != nil {
		t.Errorf("long series should be nil, got %d candles", len(snap.LongTerm))
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(payload), `"long_term":null`) {
		t.Errorf("payload should carry a null long series: %s", payload)
	}
	if !strings.Contains(string(payload), `"current_balance":{`) {
		t.Errorf("payload should carry balances: %s", payload)
	}
}

func TestBuild_PartialBalances(t *testing.T) {
	venue := newFakeVenue()
	venue.priceErr = errors.New("orderbook down")

	snap := NewBuilder(venue, nil, nil, nil).Build(context.Background(), xrp)
	if snap.Balances == nil {
		t.Fatal("a single failed read should not drop balances")
	}
	if !snap.Balances.Price.IsZero() || !snap.Balances.Cash.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("balances = %+v", snap.Balances)
	}

	venue.balanceErr["KRW"] = errors.New("401")
	venue.balanceErr["XRP"] = errors.New("401")
	snap = NewBuilder(venue, nil, nil, nil).Build(context.Background(), xrp)
	if snap.Balances != nil {
		t.Errorf("balances should be nil when every read fails, got %+v", snap.Balances)
	}
}

func TestBuild_CollaboratorFailures(t *testing.T) {
	venue := newFakeVenue()
	src := &fakeNews{err: errors.New("feed timeout")}
	fetcher := news.NewRateLimitedFetcher(src, nil, time.Hour, 4)
	ledger := &fakeLedger{err: domain.ErrLedgerUnreadable}

	snap := NewBuilder(venue, fetcher, fakeLedgers{ledger}, fakeRates{err: errors.New("rate down")}).
		Build(context.Background(), xrp)

	if snap.News == nil || len(snap.News) != 0 {
		t.Errorf("failed news should be an empty list, got %v", snap.News)
	}
	if snap.RecentTrades == nil || len(snap.RecentTrades) != 0 {
		t.Errorf("failed history should be an empty list, got %v", snap.RecentTrades)
	}
	if snap.USDKRW != nil {
		t.Errorf("failed rate should be nil")
	}
	if len(snap.ShortTerm) != 24 {
		t.Error("candles should be unaffected")
	}
}

func TestBuild_NewsCooldownAcrossCycles(t *testing.T) {
	venue := newFakeVenue()
	src := &fakeNews{items: []domain.NewsItem{{Title: "Ripple news"}}}
	fetcher := news.NewRateLimitedFetcher(src, nil, time.Hour, 4)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBuilder(venue, fetcher, nil, nil).WithClock(func() time.Time { return now })

	b.Build(context.Background(), xrp)
	now = now.Add(30 * time.Minute)
	snap := b.Build(context.Background(), xrp)

	if src.calls != 1 {
		t.Errorf("news should be fetched once per window, got %d calls", src.calls)
	}
	if len(snap.News) != 0 {
		t.Errorf("throttled cycle should carry no news, got %v", snap.News)
	}
}

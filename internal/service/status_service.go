package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"autotrade_go/internal/domain"
	"autotrade_go/internal/infra/storage"

	"github.com/shopspring/decimal"
)

// History is the read side of one asset ledger.
type History interface {
	Latest(ctx context.Context) (*domain.TradeRecord, error)
	Count(ctx context.Context) (int64, error)
}

// AssetStatus is the last known state of one asset.
type AssetStatus struct {
	Symbol     string
	Name       string
	Trades     int64
	Last       *domain.TradeRecord
	Age        time.Duration
	Stale      bool
	TotalValue decimal.Decimal
	Err        error
}

// StatusService reports ledger freshness per asset.
// An asset is stale when its last record is older than twice the cycle interval.
type StatusService struct {
	mu   sync.RWMutex
	open func(domain.AssetConfig) (History, error)
	now  func() time.Time
}

// NewStatusService reads from the ledger set.
func NewStatusService(ledgers *storage.LedgerSet) *StatusService {
	return &StatusService{
		open: func(a domain.AssetConfig) (History, error) { return ledgers.Open(a) },
		now:  time.Now,
	}
}

// SetClock replaces the clock (for testing).
func (s *StatusService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Collect returns one status per asset, sorted by symbol. An unreadable
// ledger is reported in the entry, not as an error.
func (s *StatusService) Collect(ctx context.Context, assets []domain.AssetConfig, interval time.Duration) []AssetStatus {
	s.mu.RLock()
	now := s.now()
	s.mu.RUnlock()

	result := make([]AssetStatus, 0, len(assets))
	for _, asset := range assets {
		result = append(result, s.status(ctx, asset, interval, now))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result
}

func (s *StatusService) status(ctx context.Context, asset domain.AssetConfig, interval time.Duration, now time.Time) AssetStatus {
	st := AssetStatus{Symbol: asset.Symbol, Name: asset.Name, Stale: true}

	h, err := s.open(asset)
	if err != nil {
		st.Err = err
		return st
	}
	if st.Trades, err = h.Count(ctx); err != nil {
		st.Err = err
		return st
	}
	last, err := h.Latest(ctx)
	if err != nil {
		st.Err = err
		return st
	}
	if last == nil {
		return st
	}

	st.Last = last
	st.Age = now.Sub(last.Timestamp)
	st.Stale = st.Age > 2*interval
	st.TotalValue = domain.NewBalances(last.KRWBalance, last.CryptoBalance, last.CryptoPrice).TotalValue

	if st.Stale {
		slog.Warn("⚠️ Ledger is stale",
			slog.String("symbol", asset.Symbol),
			slog.Duration("age", st.Age),
			slog.Duration("interval", interval),
		)
	}
	return st
}

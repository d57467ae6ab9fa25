package storage

import (
	"errors"
	"path/filepath"
	"sync"

	"autotrade_go/internal/domain"
)

// LedgerSet opens one ledger per asset under a data directory and caches it.
type LedgerSet struct {
	dir     string
	mu      sync.Mutex
	ledgers map[string]*Ledger
}

// NewLedgerSet creates a set rooted at dir.
func NewLedgerSet(dir string) *LedgerSet {
	return &LedgerSet{dir: dir, ledgers: make(map[string]*Ledger)}
}

// Open returns the ledger of asset, opening it on first use.
func (s *LedgerSet) Open(asset domain.AssetConfig) (*Ledger, error) {
	asset = asset.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.ledgers[asset.LedgerID]; ok {
		return l, nil
	}
	l, err := OpenLedger(filepath.Join(s.dir, asset.LedgerID))
	if err != nil {
		return nil, err
	}
	s.ledgers[asset.LedgerID] = l
	return l, nil
}

// LedgerFor implements domain.LedgerProvider.
func (s *LedgerSet) LedgerFor(asset domain.AssetConfig) (domain.Ledger, error) {
	l, err := s.Open(asset)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Close closes every opened ledger.
func (s *LedgerSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id, l := range s.ledgers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(s.ledgers, id)
	}
	return errors.Join(errs...)
}

package domain

import (
	"fmt"
	"strings"
)

// MajorAssets get general crypto headlines when nothing mentions them by name.
var MajorAssets = map[string]bool{
	"BTC": true,
	"ETH": true,
	"XRP": true,
	"ADA": true,
	"DOT": true,
}

// AssetConfig describes one tradable asset. The symbol is the unique key.
type AssetConfig struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	Name     string `yaml:"name" json:"name"`
	Ticker   string `yaml:"ticker" json:"ticker"`       // Venue market code, e.g. KRW-XRP
	LedgerID string `yaml:"ledger_id" json:"ledger_id"` // Ledger file name, e.g. coin_auto_trade_xrp.db
	Enabled  *bool  `yaml:"enabled" json:"enabled"`
}

// IsEnabled reports whether the asset takes part in cycles. Unset means enabled.
func (a AssetConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// Normalize fills derived fields and upper-cases the symbol.
func (a AssetConfig) Normalize() AssetConfig {
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	if a.Name == "" {
		a.Name = a.Symbol
	}
	if a.Ticker == "" {
		a.Ticker = "KRW-" + a.Symbol
	}
	if a.LedgerID == "" {
		a.LedgerID = fmt.Sprintf("coin_auto_trade_%s.db", strings.ToLower(a.Symbol))
	}
	return a
}

// IsMajor reports whether the asset is on the major allow-list.
func (a AssetConfig) IsMajor() bool {
	return MajorAssets[a.Symbol]
}

// DefaultAssets is the asset set used when the configuration lists none.
func DefaultAssets() []AssetConfig {
	return []AssetConfig{
		AssetConfig{Symbol: "XRP", Name: "Ripple"}.Normalize(),
		AssetConfig{Symbol: "ETH", Name: "Ethereum"}.Normalize(),
		AssetConfig{Symbol: "SOL", Name: "Solana"}.Normalize(),
		AssetConfig{Symbol: "BTC", Name: "Bitcoin"}.Normalize(),
	}
}

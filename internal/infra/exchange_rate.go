package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"autotrade_go/internal/domain"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// dunamuResponse represents the Dunamu Forex API response
type dunamuResponse struct {
	Code         string  `json:"code"`
	CurrencyCode string  `json:"currencyCode"`
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	BasePrice    float64 `json:"basePrice"`
	ChangePrice  float64 `json:"changePrice"`
}

// ExchangeRateClient fetches the USD/KRW reference rate from the Dunamu API.
// Each call is a single request; the snapshot builder does not retry.
type ExchangeRateClient struct {
	apiURL string
	client *resty.Client
}

// NewExchangeRateClient creates a client for the given endpoint.
func NewExchangeRateClient(apiURL string) *ExchangeRateClient {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetHeader("User-Agent", DefaultUserAgent)

	return &ExchangeRateClient{apiURL: apiURL, client: client}
}

// FetchRate returns the current base rate (매매기준율).
func (c *ExchangeRateClient) FetchRate(ctx context.Context) (decimal.Decimal, error) {
	resp, err := c.client.R().SetContext(ctx).Get(c.apiURL)
	if err != nil {
		return decimal.Zero, domain.NewNetworkError("exchange_rate", err)
	}
	if resp.StatusCode() != 200 {
		return decimal.Zero, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	var data []dunamuResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse exchange rate: %w", err)
	}
	if len(data) == 0 || data[0].BasePrice <= 0 {
		return decimal.Zero, fmt.Errorf("dunamu: %w", domain.ErrEmptyResponse)
	}

	return decimal.NewFromFloat(data[0].BasePrice), nil
}

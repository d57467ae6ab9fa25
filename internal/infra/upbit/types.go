package upbit

import (
	"net/url"

	"github.com/shopspring/decimal"
)

// candleResponse is one element of /v1/candles/*
type candleResponse struct {
	Market        string          `json:"market"`
	DateTimeUTC   string          `json:"candle_date_time_utc"`
	OpeningPrice  decimal.Decimal `json:"opening_price"`
	HighPrice     decimal.Decimal `json:"high_price"`
	LowPrice      decimal.Decimal `json:"low_price"`
	TradePrice    decimal.Decimal `json:"trade_price"`
	Timestamp     int64           `json:"timestamp"`
	AccTradeVol   decimal.Decimal `json:"candle_acc_trade_volume"`
	AccTradePrice decimal.Decimal `json:"candle_acc_trade_price"`
}

// accountResponse is one element of /v1/accounts
type accountResponse struct {
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	Locked       decimal.Decimal `json:"locked"`
	AvgBuyPrice  decimal.Decimal `json:"avg_buy_price"`
	UnitCurrency string          `json:"unit_currency"`
}

type orderbookUnit struct {
	AskPrice decimal.Decimal `json:"ask_price"`
	BidPrice decimal.Decimal `json:"bid_price"`
	AskSize  decimal.Decimal `json:"ask_size"`
	BidSize  decimal.Decimal `json:"bid_size"`
}

// orderbookResponse is one element of /v1/orderbook
type orderbookResponse struct {
	Market         string          `json:"market"`
	Timestamp      int64           `json:"timestamp"`
	OrderbookUnits []orderbookUnit `json:"orderbook_units"`
}

// orderResponse is the body returned by POST /v1/orders
type orderResponse struct {
	UUID    string `json:"uuid"`
	Side    string `json:"side"`
	OrdType string `json:"ord_type"`
	State   string `json:"state"`
	Market  string `json:"market"`
}

// apiError is Upbit's error envelope
type apiError struct {
	Error struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// valuesBody flattens form values into the JSON body of a POST. Both
// url.Values.Encode and encoding/json emit keys sorted, so the query hash
// matches the body the server receives.
func valuesBody(v url.Values) map[string]string {
	body := make(map[string]string, len(v))
	for k := range v {
		body[k] = v.Get(k)
	}
	return body
}

// tickerMessage is the websocket ticker frame
type tickerMessage struct {
	Type       string          `json:"type"`
	Code       string          `json:"code"`
	TradePrice decimal.Decimal `json:"trade_price"`
	Timestamp  int64           `json:"timestamp"`
}

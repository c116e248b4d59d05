package domain

import "github.com/shopspring/decimal"

// Ticker is one instrument's market data as served to readers.
// Corresponds to tickers table; Name is the primary key.
type Ticker struct {
	Name     string          `json:"name"`      // instrument name, e.g. "BTC/INR"
	Last     decimal.Decimal `json:"last"`      // last traded price
	Buy      decimal.Decimal `json:"buy"`       // best bid
	Sell     decimal.Decimal `json:"sell"`      // best ask
	Volume   decimal.Decimal `json:"volume"`    // traded volume, non-negative
	BaseUnit string          `json:"base_unit"` // denomination of the instrument, e.g. "btc"
}

// Equal reports whether two tickers carry the same values.
// Decimals are compared numerically, so "1.50" equals "1.5".
func (t Ticker) Equal(o Ticker) bool {
	return t.Name == o.Name &&
		t.BaseUnit == o.BaseUnit &&
		t.Last.Equal(o.Last) &&
		t.Buy.Equal(o.Buy) &&
		t.Sell.Equal(o.Sell) &&
		t.Volume.Equal(o.Volume)
}

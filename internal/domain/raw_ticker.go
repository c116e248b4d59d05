package domain

// RawTicker is a ticker as received from the upstream API, before validation.
// Field values are kept as text; nil means the field was absent or null.
type RawTicker struct {
	Symbol   string // key of the entry in the upstream payload
	Name     *string
	Last     *string
	Buy      *string
	Sell     *string
	Volume   *string
	BaseUnit *string
}

// RawTickers holds upstream entries in payload order.
type RawTickers []RawTicker

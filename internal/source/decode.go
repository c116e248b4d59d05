package source

import (
	"bytes"
	"encoding/json"
	"fmt"

	"top-tickers/internal/domain"
)

// decodeTickers parses the upstream object keyed by symbol.
// Key order of the payload is preserved; ranking ties depend on it.
// Entries whose value is not an object are kept with all fields missing.
func decodeTickers(body []byte) (domain.RawTickers, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read opening token: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	tickers := make(domain.RawTickers, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read symbol: %w", err)
		}
		symbol, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected symbol key, got %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode ticker %q: %w", symbol, err)
		}

		raw := domain.RawTicker{Symbol: symbol}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(value, &fields); err == nil {
			raw.Name = fieldText(fields["name"])
			raw.Last = fieldText(fields["last"])
			raw.Buy = fieldText(fields["buy"])
			raw.Sell = fieldText(fields["sell"])
			raw.Volume = fieldText(fields["volume"])
			raw.BaseUnit = fieldText(fields["base_unit"])
		}
		tickers = append(tickers, raw)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read closing token: %w", err)
	}

	return tickers, nil
}

// fieldText returns the textual form of a JSON scalar, or nil when absent or null.
// Strings are unquoted; numbers and other literals keep their JSON text.
func fieldText(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		return &s
	}
	s := string(raw)
	return &s
}

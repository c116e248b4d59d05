// Package ranking selects the top tickers by traded volume.
package ranking

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"top-tickers/internal/domain"
)

// DefaultLimit is the snapshot size used when none is configured.
const DefaultLimit = 10

// Numeric fields must fit Decimal(38, 18): at most 18 fractional digits
// and 20 integer digits.
const (
	maxScale         = 18
	maxIntegerDigits = 20
	// maxExponent bounds the raw exponent before any rescaling.
	maxExponent = 64
)

var maxMagnitude = decimal.New(1, maxIntegerDigits)

// Validation errors returned by Validate.
var (
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidNumber  = errors.New("non-numeric value")
	ErrNegativeVolume = errors.New("negative volume")
)

// Rank converts raw upstream entries into at most limit tickers, ordered by
// volume descending. Invalid entries are skipped; equal volumes keep payload
// order. A name seen twice is kept only at its best-ranked position.
// The result is never nil.
func Rank(raw domain.RawTickers, limit int) []domain.Ticker {
	if limit <= 0 {
		return []domain.Ticker{}
	}

	valid := make([]domain.Ticker, 0, len(raw))
	for _, r := range raw {
		t, err := Validate(r)
		if err != nil {
			continue
		}
		valid = append(valid, t)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Volume.GreaterThan(valid[j].Volume)
	})

	out := make([]domain.Ticker, 0, min(limit, len(valid)))
	seen := make(map[string]struct{}, len(valid))
	for _, t := range valid {
		if len(out) == limit {
			break
		}
		if _, dup := seen[t.Name]; dup {
			continue
		}
		seen[t.Name] = struct{}{}
		out = append(out, t)
	}

	return out
}

// Validate converts a single raw entry, reporting why it is unusable.
func Validate(r domain.RawTicker) (domain.Ticker, error) {
	name, err := requireText("name", r.Name)
	if err != nil {
		return domain.Ticker{}, err
	}
	baseUnit, err := requireText("base_unit", r.BaseUnit)
	if err != nil {
		return domain.Ticker{}, err
	}

	last, err := requireDecimal("last", r.Last)
	if err != nil {
		return domain.Ticker{}, err
	}
	buy, err := requireDecimal("buy", r.Buy)
	if err != nil {
		return domain.Ticker{}, err
	}
	sell, err := requireDecimal("sell", r.Sell)
	if err != nil {
		return domain.Ticker{}, err
	}
	volume, err := requireDecimal("volume", r.Volume)
	if err != nil {
		return domain.Ticker{}, err
	}
	if volume.IsNegative() {
		return domain.Ticker{}, fmt.Errorf("volume %s: %w", volume, ErrNegativeVolume)
	}

	return domain.Ticker{
		Name:     name,
		Last:     last,
		Buy:      buy,
		Sell:     sell,
		Volume:   volume,
		BaseUnit: baseUnit,
	}, nil
}

func requireText(field string, v *string) (string, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", fmt.Errorf("%s: %w", field, ErrMissingField)
	}
	return *v, nil
}

func requireDecimal(field string, v *string) (decimal.Decimal, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", field, ErrMissingField)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*v))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s %q: %w", field, *v, ErrInvalidNumber)
	}
	if !inRange(d) {
		return decimal.Decimal{}, fmt.Errorf("%s %q out of range: %w", field, *v, ErrInvalidNumber)
	}
	return d, nil
}

// inRange reports whether d is storable without loss. Trailing zeros beyond
// the scale are accepted.
func inRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp < -maxExponent || exp > maxExponent {
		return false
	}
	if !d.Truncate(maxScale).Equal(d) {
		return false
	}
	return d.Abs().LessThan(maxMagnitude)
}

package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"top-tickers/internal/domain"
)

// ComputeSnapshotHash computes a deterministic fingerprint of a ranked snapshot using SHA256.
// Formula: SHA256 over one "name|last|buy|sell|volume|base_unit\n" line per ticker, in order.
// Decimals use their canonical form, so "1.50" and "1.5" hash the same.
// Returns hex-encoded hash (64 characters).
func ComputeSnapshotHash(tickers []domain.Ticker) string {
	h := sha256.New()
	for _, t := range tickers {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s\n",
			t.Name,
			t.Last.String(),
			t.Buy.String(),
			t.Sell.String(),
			t.Volume.String(),
			t.BaseUnit,
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}

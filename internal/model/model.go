// Package model contains the domain models shared by the extraction pipeline,
// the HTTP layer and persistence. No database or transport tags beyond JSON.
package model

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are emitted as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// ContentHash returns the hex SHA-256 digest used to detect re-uploads of the same file.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

package monitor

import (
	"crypto/sha256"
	"encoding/hex"
)

// Identifier derives the stable per-feed key of an item.
// GUID wins over link; items with neither are keyed by a SHA-256 of title and
// published date.
func Identifier(item Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	if item.Link != "" {
		return item.Link
	}
	sum := sha256.Sum256([]byte(item.Title + item.Published))
	return hex.EncodeToString(sum[:])
}

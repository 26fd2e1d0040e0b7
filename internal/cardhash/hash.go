// Package cardhash gives deck entries a content identity, so a deck can be
// re-read without duplicating the cards it already produced.
package cardhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/conorfennell/taxtutor/internal/domain"
)

// Normalize joins the entry's fields after trimming, lowercasing and
// unifying line endings, one field per line.
func Normalize(e domain.DeckEntry) string {
	part := func(s string) string {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.ToLower(strings.TrimSpace(s))
	}
	return strings.Join([]string{part(e.Front), part(e.Back), part(e.Tag)}, "\n")
}

// Hash returns the hex SHA-256 of the normalized entry.
func Hash(e domain.DeckEntry) string {
	sum := sha256.Sum256([]byte(Normalize(e)))
	return hex.EncodeToString(sum[:])
}

package cardhash

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/conorfennell/taxtutor/internal/domain"
)

func TestNormalize(t *testing.T) {
	e := domain.DeckEntry{
		Front: "  What is TDS? \r\n",
		Back:  "Tax Deducted at\r\nSource",
		Tag:   "TDS",
	}
	want := "what is tds?\ntax deducted at\nsource\ntds"
	if got := Normalize(e); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestHash(t *testing.T) {
	t.Run("hashes the normalized form", func(t *testing.T) {
		sum := sha256.Sum256([]byte("q\na\nt"))
		want := hex.EncodeToString(sum[:])
		if got := Hash(domain.DeckEntry{Front: "Q", Back: "A", Tag: "T"}); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		a := domain.DeckEntry{Front: "  what is pan? ", Back: "Permanent account number"}
		b := domain.DeckEntry{Front: "What Is PAN?", Back: "permanent account number"}
		if Hash(a) != Hash(b) {
			t.Error("Expected hashes to match after normalization")
		}
	})

	t.Run("fields are separated", func(t *testing.T) {
		a := domain.DeckEntry{Front: "ab", Back: "c"}
		b := domain.DeckEntry{Front: "a", Back: "bc"}
		if Hash(a) == Hash(b) {
			t.Error("Expected different field splits to hash differently")
		}
	})
}

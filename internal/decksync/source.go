package decksync

import (
	"errors"
	"strings"

	"github.com/conorfennell/taxtutor/internal/domain"
)

// SourceType guesses whether path names a git repository or a local directory.
func SourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "ssh://") {
		return domain.SourceGit
	}
	return domain.SourceLocal
}

// NewSource builds a deck source for path, guessing its type when typ is empty.
func NewSource(path, typ string) (domain.DeckSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return domain.DeckSource{}, errors.New("path cannot be empty")
	}
	if typ == "" {
		typ = SourceType(path)
	}
	src := domain.DeckSource{Path: path, Type: typ}
	if err := domain.Validate(src); err != nil {
		return domain.DeckSource{}, err
	}
	return src, nil
}

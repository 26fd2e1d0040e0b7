// Package parser reads markdown flashcard decks.
//
// A deck is a sequence of entries. "Q:" starts the front of a new entry,
// "A:" its back and "T:" its tag. A field continues over the following
// lines until the next prefix, and a line holding only "---" closes the
// current entry.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/taxtutor/internal/domain"
)

const (
	frontPrefix = "Q:"
	backPrefix  = "A:"
	tagPrefix   = "T:"
	separator   = "---"
)

// MaxLineSize is the longest deck line Parse accepts.
const MaxLineSize = 1 << 20

type state int

const (
	seeking state = iota
	readingFront
	readingBack
	readingTag
)

// ParseFile reads the deck at path.
func ParseFile(path string) ([]domain.DeckEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse extracts every entry with a front from r.
func Parse(r io.Reader) ([]domain.DeckEntry, error) {
	p := &deckParser{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	for scanner.Scan() {
		p.line(scanner.Text())
	}
	p.finishEntry()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p.entries, nil
}

type deckParser struct {
	entries []domain.DeckEntry
	current domain.DeckEntry
	block   []string
	state   state
}

func (p *deckParser) line(line string) {
	trimmed := strings.TrimRight(line, " \t\r")
	if trimmed == separator {
		p.finishEntry()
		return
	}

	next, rest, ok := splitPrefix(trimmed)
	if !ok {
		if p.state != seeking {
			p.block = append(p.block, trimmed)
		}
		return
	}

	p.flushBlock()
	if next == readingFront && p.state != seeking {
		p.finishEntry()
	}
	p.state = next
	p.block = append(p.block, rest)
}

func splitPrefix(line string) (state, string, bool) {
	for _, c := range []struct {
		prefix string
		state  state
	}{
		{frontPrefix, readingFront},
		{backPrefix, readingBack},
		{tagPrefix, readingTag},
	} {
		if rest, ok := strings.CutPrefix(line, c.prefix); ok {
			return c.state, strings.TrimPrefix(rest, " "), true
		}
	}
	return seeking, "", false
}

// flushBlock stores the lines read so far into the field being read.
func (p *deckParser) flushBlock() {
	if len(p.block) == 0 {
		return
	}
	content := strings.TrimSpace(strings.Join(p.block, "\n"))
	switch p.state {
	case readingFront:
		p.current.Front = content
	case readingBack:
		p.current.Back = content
	case readingTag:
		p.current.Tag = content
	}
	p.block = nil
}

func (p *deckParser) finishEntry() {
	p.flushBlock()
	if p.current.Front != "" {
		p.entries = append(p.entries, p.current)
	}
	p.current = domain.DeckEntry{}
	p.state = seeking
}

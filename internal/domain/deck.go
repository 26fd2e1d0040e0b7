package domain

// DeckEntry is one card as written in a markdown deck file.
type DeckEntry struct {
	Front string
	Back  string
	Tag   string
}

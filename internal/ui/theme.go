// Package ui holds the terminal styles of the command line.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	IconBook   = "📘"
	IconCard   = "🗂️"
	IconPlus   = "➕"
	IconDone   = "✅"
	IconChart  = "📊"
	IconFlame  = "🔥"
	IconSync   = "🔁"
	IconBox    = "📦"
	IconChat   = "💬"
	IconWarn   = "⚠️"
	IconError  = "🧨"
	IconExport = "📤"
	IconImport = "📥"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)

	Panel = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// Accuracy colours a percentage: green from 80, orange from 60, red below.
func Accuracy(percent int) string {
	text := fmt.Sprintf("%d%%", percent)
	switch {
	case percent >= 80:
		return Good.Render(text)
	case percent >= 60:
		return Warn.Render(text)
	default:
		return Bad.Render(text)
	}
}

// Due renders a card's due state relative to now, in whole days.
func Due(days int) string {
	switch {
	case days <= 0:
		return Warn.Render("due")
	case days == 1:
		return Muted.Render("in 1 day")
	default:
		return Muted.Render(fmt.Sprintf("in %d days", days))
	}
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

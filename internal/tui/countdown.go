package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Big segment-style digit patterns, 7 lines tall
var bigDigits = map[rune][]string{
	'9': {
		" ███████ ",
		" █     █ ",
		" █     █ ",
		" ███████ ",
		"       █ ",
		"       █ ",
		" ███████ ",
	},
	'8': {
		" ███████ ",
		" █     █ ",
		" █     █ ",
		" ███████ ",
		" █     █ ",
		" █     █ ",
		" ███████ ",
	},
	'7': {
		" ███████ ",
		"       █ ",
		"       █ ",
		"       █ ",
		"       █ ",
		"       █ ",
		"       █ ",
	},
	'6': {
		" ███████ ",
		" █       ",
		" █       ",
		" ███████ ",
		" █     █ ",
		" █     █ ",
		" ███████ ",
	},
	'5': {
		" ███████ ",
		" █       ",
		" █       ",
		" ███████ ",
		"       █ ",
		"       █ ",
		" ███████ ",
	},
	'4': {
		" █     █ ",
		" █     █ ",
		" █     █ ",
		" ███████ ",
		"       █ ",
		"       █ ",
		"       █ ",
	},
	'3': {
		" ███████ ",
		"       █ ",
		"       █ ",
		" ███████ ",
		"       █ ",
		"       █ ",
		" ███████ ",
	},
	'2': {
		" ███████ ",
		"       █ ",
		"       █ ",
		" ███████ ",
		" █       ",
		" █       ",
		" ███████ ",
	},
	'1': {
		"    █    ",
		"   ██    ",
		"    █    ",
		"    █    ",
		"    █    ",
		"    █    ",
		"   ███   ",
	},
	'0': {
		" ███████ ",
		" █     █ ",
		" █     █ ",
		" █     █ ",
		" █     █ ",
		" █     █ ",
		" ███████ ",
	},
}

// bigNumber renders n with the big digit patterns side by side
func bigNumber(n uint64) []string {
	digits := strconv.FormatUint(n, 10)
	lines := make([]string, len(bigDigits['0']))
	for _, d := range digits {
		for i, row := range bigDigits[d] {
			lines[i] += row
		}
	}
	return lines
}

// countdownColor goes from orange to red as the start approaches
func countdownColor(secsLeft uint64) lipgloss.Color {
	switch {
	case secsLeft > 3:
		return ColorOrange
	case secsLeft > 1:
		return lipgloss.Color("#FF8C00") // Dark orange
	default:
		return ColorRed
	}
}

// renderCountdown renders the seconds left before the recording starts
func renderCountdown(secsLeft uint64) string {
	digitStyle := lipgloss.NewStyle().
		Foreground(countdownColor(secsLeft)).
		Bold(true)

	var lines []string
	for _, line := range bigNumber(secsLeft) {
		lines = append(lines, digitStyle.Render(line))
	}

	subtitle := lipgloss.NewStyle().
		Foreground(ColorGray).
		Italic(true).
		Render("Get ready... Recording starts soon!")

	return lipgloss.JoinVertical(
		lipgloss.Center,
		strings.Join(lines, "\n"),
		"",
		subtitle,
	)
}

package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// ========================================
// Brand Colors - Kartoza standard palette
// ========================================

var (
	ColorOrange   = lipgloss.Color("#DDA036") // Primary/Active
	ColorBlue     = lipgloss.Color("#569FC6") // Secondary/Links
	ColorGray     = lipgloss.Color("#9A9EA0") // Inactive/Subtle
	ColorWhite    = lipgloss.Color("#FFFFFF") // Text
	ColorDarkGray = lipgloss.Color("#3A3A3A") // Background
	ColorRed      = lipgloss.Color("#E95420") // Error/Recording
	ColorGreen    = lipgloss.Color("#4CAF50") // Success
)

// HeaderWidth is the standard width for the header
const HeaderWidth = 60

const divider = "────────────────────────────────────────────────────────────"

// HeaderState contains the dynamic part of the header
type HeaderState struct {
	Status   string
	Active   bool
	Profile  string
	Duration string
	BlinkOn  bool
}

// RenderHeader renders the application header with an optional status line
func RenderHeader(screenTitle string, state *HeaderState) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorOrange).
		Align(lipgloss.Center).
		Width(HeaderWidth)

	mottoStyle := lipgloss.NewStyle().
		Italic(true).
		Foreground(ColorGray).
		Align(lipgloss.Center).
		Width(HeaderWidth)

	dividerStyle := lipgloss.NewStyle().
		Foreground(ColorGray).
		Width(HeaderWidth)

	title := titleStyle.Render("Kartoza Portal Recorder - " + screenTitle)
	motto := mottoStyle.Render("capture your screen")
	line := dividerStyle.Render(divider)

	if state == nil {
		return lipgloss.JoinVertical(lipgloss.Center, title, motto, line)
	}

	indicator := state.Status
	color := ColorGray
	if state.Active {
		dot := "○"
		if state.BlinkOn {
			dot = "●"
		}
		indicator = dot + " " + state.Status
		color = ColorRed
	}
	indicatorStyled := lipgloss.NewStyle().
		Foreground(color).
		Bold(true).
		Render(indicator)

	profile := state.Profile
	if profile == "" {
		profile = "default"
	}
	duration := state.Duration
	if duration == "" {
		duration = "00:00"
	}

	status := lipgloss.NewStyle().
		Foreground(ColorWhite).
		Align(lipgloss.Center).
		Width(HeaderWidth).
		Render(fmt.Sprintf("Status: %s  |  Profile: %s  |  Duration: %s", indicatorStyled, profile, duration))

	return lipgloss.JoinVertical(lipgloss.Center, title, motto, line, status, line)
}

// RenderHelpFooter renders the help footer at the bottom of the screen
func RenderHelpFooter(helpText string, width int) string {
	helpStyle := lipgloss.NewStyle().
		Foreground(ColorGray).
		Italic(true)

	footerStyle := lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center)

	return footerStyle.Render(helpStyle.Render(helpText))
}

// LayoutWithHeaderFooter puts the header at the top, the footer at the
// bottom and the content in between
func LayoutWithHeaderFooter(header, content, footer string, width, height int) string {
	mainSection := lipgloss.JoinVertical(
		lipgloss.Center,
		header,
		"",
		content,
	)

	centeredMain := lipgloss.Place(
		width,
		height-2,
		lipgloss.Center,
		lipgloss.Top,
		mainSection,
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		centeredMain,
		footer,
	)
}

// Common styles

var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorOrange)

var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

var ValueStyle = lipgloss.NewStyle().
	Foreground(ColorWhite)

var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed).
	Bold(true)

var SuccessStyle = lipgloss.NewStyle().
	Foreground(ColorGreen).
	Bold(true)

var PausedStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

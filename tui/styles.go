package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette for dark terminal themes.
var (
	// Colors
	ColorPrimary   = lipgloss.Color("255") // White
	ColorSecondary = lipgloss.Color("240") // Dark Gray
	ColorAccent    = lipgloss.Color("39")  // Blue / Cyan
	ColorSuccess   = lipgloss.Color("42")  // Green
	ColorError     = lipgloss.Color("196") // Red
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorDim       = lipgloss.Color("240") // Dimmed text

	// Backgrounds (only used for highlighting lines or headers)
	ColorHighlightBg = lipgloss.Color("236") // Very dark gray background for active items

	// SQL highlighting
	ColorKeyword = lipgloss.Color("75")  // Light blue
	ColorLiteral = lipgloss.Color("180") // Tan
)

// Shared styles - minimal and clean
var (
	// Standard Text
	StyleDimmed = lipgloss.NewStyle().Foreground(ColorDim)
	StyleBold   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	// Status & Feedback
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)

	// UI Elements
	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary)

	StyleTitle  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).MarginBottom(1)
	StylePrompt = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

	// List Item (Active)
	StyleListItemActive = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)

	// Bottom Bar
	StyleStatusBar = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	// Help Keys
	StyleHelpKey = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorDim)

	// Generated SQL
	StyleSQLKeyword = lipgloss.NewStyle().Foreground(ColorKeyword).Bold(true)
	StyleSQLString  = lipgloss.NewStyle().Foreground(ColorLiteral)
	StyleSQLNumber  = lipgloss.NewStyle().Foreground(ColorWarning)

	// Sidebar selection
	StyleSelected = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Background(ColorHighlightBg).
			Bold(true)
)

package ui

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors of the TUI. All colors use ANSI 256-color
// codes for broad terminal compatibility.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	HeaderForeground lipgloss.Color
	AccentForeground lipgloss.Color // Prices and ratings.
	ErrorForeground  lipgloss.Color
	HelpText         lipgloss.Color
	DisabledText     lipgloss.Color // Actions that cannot run right now.
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText:         lipgloss.Color("252"),
	FaintText:          lipgloss.Color("245"),
	SelectedBackground: lipgloss.Color("237"),
	SelectedForeground: lipgloss.Color("231"),
	HeaderForeground:   lipgloss.Color("75"),
	AccentForeground:   lipgloss.Color("214"),
	ErrorForeground:    lipgloss.Color("203"),
	HelpText:           lipgloss.Color("241"),
	DisabledText:       lipgloss.Color("238"),
}

type styles struct {
	normal   lipgloss.Style
	faint    lipgloss.Style
	selected lipgloss.Style
	header   lipgloss.Style
	accent   lipgloss.Style
	err      lipgloss.Style
	help     lipgloss.Style
	disabled lipgloss.Style
}

func newStyles(theme Theme) styles {
	return styles{
		normal:   lipgloss.NewStyle().Foreground(theme.NormalText),
		faint:    lipgloss.NewStyle().Foreground(theme.FaintText),
		selected: lipgloss.NewStyle().Foreground(theme.SelectedForeground).Background(theme.SelectedBackground).Bold(true),
		header:   lipgloss.NewStyle().Foreground(theme.HeaderForeground).Bold(true),
		accent:   lipgloss.NewStyle().Foreground(theme.AccentForeground),
		err:      lipgloss.NewStyle().Foreground(theme.ErrorForeground),
		help:     lipgloss.NewStyle().Foreground(theme.HelpText),
		disabled: lipgloss.NewStyle().Foreground(theme.DisabledText).Strikethrough(true),
	}
}

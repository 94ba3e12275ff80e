// Package styles holds the theme tokens and lipgloss helpers for the
// Harbordesk console.
package styles

import "github.com/charmbracelet/lipgloss"

// BaseColors defines global UI colors.
type BaseColors struct {
	Foreground string
	Muted      string
	Accent     string
	Border     string
}

// MessageColors defines colors for message authorship.
type MessageColors struct {
	Own    string
	Other  string
	System string
}

// PriorityColors defines colors for thread triage emphasis.
type PriorityColors struct {
	Urgent string
	High   string
}

// StatusColors defines colors for presence and call state.
type StatusColors struct {
	Unread string
	Typing string
	Call   string
}

// ChromeColors defines non-content UI colors.
type ChromeColors struct {
	Header       string
	Footer       string
	SelectedItem string
	Pinned       string
}

// Theme defines the console's style tokens.
type Theme struct {
	Name string

	Base     BaseColors
	Message  MessageColors
	Priority PriorityColors
	Status   StatusColors
	Chrome   ChromeColors
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default":       DefaultTheme,
	"high-contrast": HighContrastTheme,
}

// Resolve returns the named theme, falling back to the default palette.
func Resolve(name string) Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return DefaultTheme
}

// Muted returns the theme's muted text style.
func (t Theme) Muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Muted))
}

// Accent returns the theme's accent text style.
func (t Theme) Accent() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Accent))
}

// Error returns the style for inline error banners.
func (t Theme) Error() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Priority.Urgent))
}

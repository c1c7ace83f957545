package views

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all the style definitions for the UI
type Styles struct {
	Title         lipgloss.Style
	Dim           lipgloss.Style
	Status        lipgloss.Style
	Help          lipgloss.Style
	Main          lipgloss.Style
	Scroll        lipgloss.Style
	SelectionBg   lipgloss.Style
	Key           lipgloss.Style
	StatusError   lipgloss.Style
	StatusLoading lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusStale   lipgloss.Style
	Inserted      lipgloss.Style
	Updated       lipgloss.Style
	Moved         lipgloss.Style
}

// NewStyles creates a new Styles instance with default values
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1),
		Dim: lipgloss.NewStyle().Faint(true),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
		Help: lipgloss.NewStyle().Faint(true),
		Main: lipgloss.NewStyle().
			Padding(1, 2),
		Scroll:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		SelectionBg:   lipgloss.NewStyle().Background(lipgloss.Color("238")),
		Key:           lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")), // red
		StatusLoading: lipgloss.NewStyle().Foreground(lipgloss.Color("241")), // gray
		StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("78")),  // green
		StatusStale:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // yellow
		Inserted:      lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		Updated:       lipgloss.NewStyle().Foreground(lipgloss.Color("51")),
		Moved:         lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// MarkStyle returns the style of the marker shown next to a row that changed
// in the last pass
func (s *Styles) MarkStyle(mark string) lipgloss.Style {
	switch mark {
	case "+":
		return s.Inserted
	case "~":
		return s.Updated
	case "↕":
		return s.Moved
	default:
		return s.Dim
	}
}

package console

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Request lipgloss.Style
	Reply   lipgloss.Style
	Help    lipgloss.Style
}

func NewStyles() Styles {
	primary := lipgloss.Color("#00ff9f")
	dim := lipgloss.Color("#6e7681")
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1),
		Label:   lipgloss.NewStyle().Bold(true).Foreground(primary),
		Request: lipgloss.NewStyle().Foreground(lipgloss.Color("#e6edf3")),
		Reply:   lipgloss.NewStyle().Foreground(primary),
		Help:    lipgloss.NewStyle().Foreground(dim),
	}
}

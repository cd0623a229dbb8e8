package report

import (
	"io"

	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
)

// Styles renders report elements in a catppuccin flavor. Colors are
// dropped automatically when the output is not a terminal.
type Styles struct {
	flavor   catppuccin.Flavor
	renderer *lipgloss.Renderer
}

func NewStyles(w io.Writer, themeName string) *Styles {
	return &Styles{
		flavor:   flavorFromName(themeName),
		renderer: lipgloss.NewRenderer(w),
	}
}

func flavorFromName(name string) catppuccin.Flavor {
	switch name {
	case "latte":
		return catppuccin.Latte
	case "frappe":
		return catppuccin.Frappe
	case "macchiato":
		return catppuccin.Macchiato
	default:
		return catppuccin.Mocha
	}
}

func (s *Styles) color(c catppuccin.Color) lipgloss.Color {
	return lipgloss.Color(c.Hex)
}

func (s *Styles) TitleStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Bold(true).
		Foreground(s.color(s.flavor.Mauve()))
}

func (s *Styles) SectionStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Bold(true).
		Foreground(s.color(s.flavor.Lavender()))
}

func (s *Styles) SeparatorStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Foreground(s.color(s.flavor.Surface2()))
}

func (s *Styles) InfoStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Foreground(s.color(s.flavor.Blue()))
}

func (s *Styles) SuccessStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Foreground(s.color(s.flavor.Green()))
}

func (s *Styles) WarningStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Foreground(s.color(s.flavor.Yellow()))
}

func (s *Styles) ErrorStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Foreground(s.color(s.flavor.Red())).
		Bold(true)
}

func (s *Styles) MutedStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Foreground(s.color(s.flavor.Overlay1()))
}

func (s *Styles) AccentStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Foreground(s.color(s.flavor.Teal()))
}

func (s *Styles) TableHeaderStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Bold(true).
		Foreground(s.color(s.flavor.Mauve())).
		Padding(0, 1)
}

func (s *Styles) TableCellStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Foreground(s.color(s.flavor.Text())).
		Padding(0, 1)
}

func (s *Styles) TableBorderStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Foreground(s.color(s.flavor.Surface1()))
}

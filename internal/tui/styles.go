package tui

import (
	"github.com/charmbracelet/lipgloss"

	"shipdeck/internal/domain"
)

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	focusedColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("63"))

	columnTitleStyle = lipgloss.NewStyle().Bold(true)

	selectedCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	sectionTitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	liveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	statusStyles = map[domain.RunStatus]lipgloss.Style{
		domain.StatusPending:   lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		domain.StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		domain.StatusSucceeded: lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		domain.StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		domain.StatusBlocked:   lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		domain.StatusCanceled:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
)

func statusStyle(s domain.RunStatus) lipgloss.Style {
	if style, ok := statusStyles[s]; ok {
		return style
	}
	return dimStyle
}

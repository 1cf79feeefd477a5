package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"shipdeck/internal/domain"
)

// ciPhases and cdPhases split the board into its two kanban rows.
var (
	ciPhases = domain.Phases[:4] // intake, plan, implement, review
	cdPhases = domain.Phases[4:] // verify, deploy, observe, close
)

// BoardModel is an immutable model for the kanban board: one column per
// phase, a column cursor, and a card cursor within the focused column.
type BoardModel struct {
	columns  map[domain.Phase][]domain.Delivery
	phaseIdx int
	cardIdx  int
}

// NewBoardModel creates a board from deliveries grouped by phase.
func NewBoardModel(columns map[domain.Phase][]domain.Delivery) BoardModel {
	if columns == nil {
		columns = map[domain.Phase][]domain.Delivery{}
	}
	return BoardModel{columns: columns}
}

// UpdateColumns returns a board with fresh column contents. The cursor stays
// on the same delivery when it is still present in the focused column,
// otherwise it is clamped.
func (m BoardModel) UpdateColumns(columns map[domain.Phase][]domain.Delivery) BoardModel {
	selected, hadSelection := m.Selected()
	m.columns = columns
	cards := m.focusedCards()
	if hadSelection {
		for i, d := range cards {
			if d.ID == selected.ID {
				m.cardIdx = i
				return m
			}
		}
	}
	if m.cardIdx >= len(cards) {
		m.cardIdx = len(cards) - 1
	}
	if m.cardIdx < 0 {
		m.cardIdx = 0
	}
	return m
}

// MoveLeft returns a board with the column cursor moved one phase back.
func (m BoardModel) MoveLeft() BoardModel {
	if m.phaseIdx > 0 {
		m.phaseIdx--
		m.cardIdx = 0
	}
	return m
}

// MoveRight returns a board with the column cursor moved one phase forward.
func (m BoardModel) MoveRight() BoardModel {
	if m.phaseIdx < len(domain.Phases)-1 {
		m.phaseIdx++
		m.cardIdx = 0
	}
	return m
}

// MoveDown returns a board with the card cursor moved down by one.
func (m BoardModel) MoveDown() BoardModel {
	if m.cardIdx < len(m.focusedCards())-1 {
		m.cardIdx++
	}
	return m
}

// MoveUp returns a board with the card cursor moved up by one.
func (m BoardModel) MoveUp() BoardModel {
	if m.cardIdx > 0 {
		m.cardIdx--
	}
	return m
}

// FocusedPhase returns the phase of the focused column.
func (m BoardModel) FocusedPhase() domain.Phase {
	return domain.Phases[m.phaseIdx]
}

// Selected returns the delivery under the cursor, if any.
func (m BoardModel) Selected() (domain.Delivery, bool) {
	cards := m.focusedCards()
	if len(cards) == 0 || m.cardIdx >= len(cards) {
		return domain.Delivery{}, false
	}
	return cards[m.cardIdx], true
}

func (m BoardModel) focusedCards() []domain.Delivery {
	return m.columns[m.FocusedPhase()]
}

// View renders the board as two rows of phase columns.
func (m BoardModel) View(width int) string {
	colWidth := width/4 - 2
	if colWidth < 18 {
		colWidth = 18
	}
	ci := m.renderRow(ciPhases, colWidth)
	cd := m.renderRow(cdPhases, colWidth)
	return " CI\n" + ci + "\n CD\n" + cd
}

func (m BoardModel) renderRow(phases []domain.Phase, colWidth int) string {
	rendered := make([]string, len(phases))
	for i, phase := range phases {
		rendered[i] = m.renderColumn(phase, colWidth)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m BoardModel) renderColumn(phase domain.Phase, colWidth int) string {
	cards := m.columns[phase]
	focused := phase == m.FocusedPhase()

	var sb strings.Builder
	sb.WriteString(columnTitleStyle.Render(fmt.Sprintf("%s (%d)", phase, len(cards))))
	sb.WriteByte('\n')
	if len(cards) == 0 {
		sb.WriteString(dimStyle.Render("--"))
	}
	for i, d := range cards {
		line := fmt.Sprintf("%s #%d %s",
			statusStyle(d.RunStatus).Render(statusIcon(d.RunStatus)),
			d.Seq,
			truncate(firstLine(d.Summary), colWidth-8))
		if focused && i == m.cardIdx {
			line = selectedCardStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		sb.WriteString(line)
		if i < len(cards)-1 {
			sb.WriteByte('\n')
		}
	}

	style := columnStyle
	if focused {
		style = focusedColumnStyle
	}
	return style.Width(colWidth).Render(sb.String())
}

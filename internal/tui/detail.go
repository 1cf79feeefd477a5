package tui

import (
	"fmt"
	"strings"

	"shipdeck/internal/domain"
)

// renderDetail renders the full detail panel for one delivery.
func renderDetail(d domain.Delivery, actionErr error) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(" #%d %s\n", d.Seq, firstLine(d.Summary)))
	sb.WriteString(fmt.Sprintf(" %s  %s %s  %s  updated %s\n",
		columnTitleStyle.Render(string(d.Phase)),
		statusStyle(d.RunStatus).Render(statusIcon(d.RunStatus)),
		statusStyle(d.RunStatus).Render(string(d.RunStatus)),
		dimStyle.Render(d.Repository),
		formatAge(d.UpdatedAt)))
	if d.Endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf(" ends at %s", d.Endpoint)))
		if len(d.Checkpoints) > 0 {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("  gates: %s", joinPhases(d.Checkpoints))))
		}
		sb.WriteByte('\n')
	}

	if actionErr != nil {
		sb.WriteString(errorStyle.Render(fmt.Sprintf(" action failed: %v", actionErr)))
		sb.WriteString(dimStyle.Render("  (d: dismiss)"))
		sb.WriteByte('\n')
	}
	if d.Error != "" && !d.Terminal() {
		sb.WriteString(errorStyle.Render(" last error: " + firstLine(d.Error)))
		sb.WriteByte('\n')
	}

	if len(d.Refs) > 0 {
		sb.WriteString("\n" + sectionTitleStyle.Render(" References") + "\n")
		for _, ref := range d.Refs {
			line := fmt.Sprintf("  [%s] %s %s", ref.Role, ref.Type, ref.Label)
			if ref.URL != "" {
				line += "  " + dimStyle.Render(ref.URL)
			}
			sb.WriteString(line + "\n")
		}
	}

	if d.Plan != nil {
		sb.WriteString("\n" + sectionTitleStyle.Render(" Plan") + dimStyle.Render(
			fmt.Sprintf("  %s, %s", d.Plan.Model, formatTimestamp(d.Plan.GeneratedAt))) + "\n")
		sb.WriteString("  " + truncate(firstLine(d.Plan.Content), 100) + "\n")
	}

	if len(d.PhaseRuns) > 0 {
		sb.WriteString("\n" + sectionTitleStyle.Render(" Phase Runs") + "\n")
		for _, pr := range d.PhaseRuns {
			verdict := ""
			if pr.Verdict != "" {
				verdict = "  " + string(pr.Verdict)
			}
			sb.WriteString(fmt.Sprintf("  %s %-10s %-7s %s%s\n",
				statusStyle(pr.RunStatus).Render(statusIcon(pr.RunStatus)),
				pr.Phase,
				pr.Executor,
				formatTimestamp(pr.StartedAt),
				verdict))
		}
	}

	if len(d.Runs) > 0 {
		sb.WriteString("\n" + sectionTitleStyle.Render(" Agent Runs") + "\n")
		for _, run := range d.Runs {
			summary := run.Summary
			if summary == "" {
				summary = "-"
			}
			sb.WriteString(fmt.Sprintf("  %-9s %-7s %-28s %s\n",
				run.Mode, run.Status, truncate(run.Model, 28), formatStats(run.Stats)))
			sb.WriteString("    " + dimStyle.Render(truncate(firstLine(summary), 90)) + "\n")
		}
	}

	return sb.String()
}

func joinPhases(phases []domain.Phase) string {
	parts := make([]string, len(phases))
	for i, p := range phases {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}

// detailFooter lists the key bindings that apply to the delivery's state.
func detailFooter(d domain.Delivery) string {
	keys := []string{}
	if d.Running() {
		keys = append(keys, "x: cancel")
	} else {
		if domain.CanApproveReject(d.Phase, d.RunStatus) {
			keys = append(keys, "a: approve", "j: reject")
		}
		if _, ok := domain.AgentTrigger(d.Phase, d.RunStatus); ok {
			keys = append(keys, "g: run agent")
		}
		if d.RunStatus == domain.StatusFailed {
			keys = append(keys, "r: retry")
		}
	}
	keys = append(keys, "t: transcript", "esc: back", "q: quit")
	return " " + strings.Join(keys, "   ") + "\n"
}

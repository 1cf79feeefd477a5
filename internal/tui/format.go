package tui

import (
	"fmt"
	"time"

	"shipdeck/internal/domain"
)

func statusIcon(s domain.RunStatus) string {
	switch s {
	case domain.StatusSucceeded:
		return "✓"
	case domain.StatusFailed:
		return "✗"
	case domain.StatusRunning:
		return "●"
	case domain.StatusPending:
		return "↷"
	case domain.StatusBlocked:
		return "◼"
	case domain.StatusCanceled:
		return "○"
	default:
		return "?"
	}
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

func formatStats(stats domain.ExecutionStats) string {
	return fmt.Sprintf("$%.2f  %d in / %d out  %.1fs",
		stats.CostUSD, stats.InputTokens, stats.OutputTokens, stats.Duration.Seconds())
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	return t.Format("2006-01-02 15:04")
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

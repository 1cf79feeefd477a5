// Package transcript turns stream events and archived logs into plain-text
// conversation transcripts shared by the TUI and the CLI.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"shipdeck/internal/domain"
)

// BlockText renders one content block as display text.
func BlockText(block domain.ContentBlock) string {
	switch block.Type {
	case "text":
		return block.Text
	case "thinking":
		return "[thinking]\n" + block.Thinking
	case "tool_use":
		return fmt.Sprintf("[tool_use: %s]\n%s", block.Name, indentJSON(block.Input))
	case "tool_result":
		return "[tool_result]\n" + rawText(block.Content)
	}
	encoded, err := json.Marshal(block)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// MessageText renders one chat message with a role header.
func MessageText(role string, content domain.MessageContent) string {
	header := "--- " + role + " ---"
	if content.Text != "" {
		return header + "\n" + content.Text
	}
	if len(content.Blocks) == 0 {
		return header
	}
	parts := make([]string, 0, len(content.Blocks)+1)
	parts = append(parts, header)
	for _, block := range content.Blocks {
		parts = append(parts, BlockText(block))
	}
	return strings.Join(parts, "\n")
}

// EventText renders a stream event as transcript text. System and result
// events carry no conversational content and report ok=false, matching how
// the board's live view filters them.
func EventText(ev domain.StreamEvent) (string, bool) {
	if ev.Kind == domain.EventSystem || ev.Kind == domain.EventResult {
		return "", false
	}
	if ev.Chat == nil {
		return "", false
	}
	role := ev.Chat.Role
	if role == "" {
		role = string(ev.Kind)
	}
	return MessageText(role, ev.Chat.Content), true
}

// Render renders an ordered event sequence as one transcript string.
func Render(events []domain.StreamEvent) string {
	var sb strings.Builder
	for _, ev := range events {
		text, ok := EventText(ev)
		if !ok {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(text)
	}
	return sb.String()
}

// RenderLog renders an archived stream log with its run header.
func RenderLog(log domain.StreamLog) string {
	header := fmt.Sprintf("run %s  %s → %s",
		log.RunID,
		log.StartedAt.Format("2006-01-02 15:04:05"),
		log.CompletedAt.Format("2006-01-02 15:04:05"))
	body := Render(log.Events)
	if body == "" {
		return header + "\n(no events)"
	}
	return header + "\n" + body
}

func indentJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

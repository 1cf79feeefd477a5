package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind is the type tag of a stream event.
type EventKind string

const (
	EventAssistant EventKind = "assistant"
	EventUser      EventKind = "user"
	EventSystem    EventKind = "system"
	EventResult    EventKind = "result"
	EventMeta      EventKind = "meta"
)

// StreamEvent is one unit of the live, ordered event sequence describing an
// in-progress agent run. The payload is decoded per kind at the wire
// boundary; exactly one of Chat, Init, or Result is set depending on Kind,
// and Raw always holds the undecoded message payload for fallback rendering.
type StreamEvent struct {
	Kind            EventKind
	Subtype         string
	ParentToolUseID string
	SessionID       string

	Chat   *ChatMessage // assistant and user events
	Init   *SessionInit // system/init events
	Result *RunResult   // result events
	Raw    json.RawMessage
}

// ChatMessage is the conversational payload of assistant and user events.
type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// SessionInit is the payload of the system/init event opening a session.
type SessionInit struct {
	Model string   `json:"model"`
	Cwd   string   `json:"cwd"`
	Tools []string `json:"tools"`
}

// RunResult is the payload of the result event closing a session.
type RunResult struct {
	Result       string  `json:"result"`
	IsError      bool    `json:"is_error"`
	CostUSD      float64 `json:"cost_usd"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	DurationMS   int64   `json:"duration_ms"`
}

// MessageContent is either a plain string or a list of content blocks.
type MessageContent struct {
	Text   string
	Blocks []ContentBlock
}

// UnmarshalJSON accepts both wire encodings of message content.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	*c = MessageContent{}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &c.Text)
	}
	return json.Unmarshal(data, &c.Blocks)
}

// ContentBlock is a single block of structured message content.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
}

// rawStreamEvent is the wire shape shared by all event kinds.
type rawStreamEvent struct {
	Type            string          `json:"type"`
	Subtype         string          `json:"subtype"`
	ParentToolUseID string          `json:"parent_tool_use_id"`
	SessionID       string          `json:"session_id"`
	Message         json.RawMessage `json:"message"`
}

// ParseStreamEvent decodes one JSON stream event, dispatching the message
// payload by the event's type tag. Unknown kinds are kept with their raw
// payload rather than rejected.
func ParseStreamEvent(data []byte) (StreamEvent, error) {
	var raw rawStreamEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return StreamEvent{}, fmt.Errorf("decoding stream event: %w", err)
	}
	if raw.Type == "" {
		return StreamEvent{}, fmt.Errorf("stream event has no type tag")
	}
	ev := StreamEvent{
		Kind:            EventKind(raw.Type),
		Subtype:         raw.Subtype,
		ParentToolUseID: raw.ParentToolUseID,
		SessionID:       raw.SessionID,
		Raw:             raw.Message,
	}
	if len(raw.Message) == 0 {
		return ev, nil
	}
	switch ev.Kind {
	case EventAssistant, EventUser:
		var chat ChatMessage
		if err := json.Unmarshal(raw.Message, &chat); err != nil {
			return StreamEvent{}, fmt.Errorf("decoding %s message: %w", ev.Kind, err)
		}
		ev.Chat = &chat
	case EventSystem:
		if raw.Subtype == "init" {
			var init SessionInit
			if err := json.Unmarshal(raw.Message, &init); err != nil {
				return StreamEvent{}, fmt.Errorf("decoding init message: %w", err)
			}
			ev.Init = &init
		}
	case EventResult:
		var result RunResult
		if err := json.Unmarshal(raw.Message, &result); err != nil {
			return StreamEvent{}, fmt.Errorf("decoding result message: %w", err)
		}
		ev.Result = &result
	}
	return ev, nil
}

// AgentBucket labels one agent's slice of an archived stream log.
type AgentBucket struct {
	ID    string
	Label string
}

// StreamLog is the archived event log of a completed run.
type StreamLog struct {
	RunID        string
	StartedAt    time.Time
	CompletedAt  time.Time
	Events       []StreamEvent
	AgentBuckets []AgentBucket
}

// TranscriptMessage is one message of a historical run transcript.
type TranscriptMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// Transcript is the full historical transcript of a completed run, grouped
// into per-agent buckets keyed by agent identifier ("leader" plus one bucket
// per sub-agent).
type Transcript struct {
	AgentModels map[string]string
	Buckets     map[string][]TranscriptMessage
}

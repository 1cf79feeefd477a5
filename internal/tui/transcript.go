package tui

import (
	"strings"

	"shipdeck/internal/api"
	"shipdeck/internal/domain"
	"shipdeck/internal/transcript"
)

// TranscriptModel is an immutable model for the transcript panel. It shows
// either the live event stream of a running delivery or the archived log of
// a completed run.
type TranscriptModel struct {
	live    bool
	events  []domain.StreamEvent
	outcome api.StreamOutcome
	log     *domain.StreamLog
	offset  int
	follow  bool
}

// NewLiveTranscript creates an empty transcript tracking a live stream.
func NewLiveTranscript() TranscriptModel {
	return TranscriptModel{live: true, follow: true}
}

// NewArchivedTranscript creates a transcript over an archived stream log.
func NewArchivedTranscript(log domain.StreamLog) TranscriptModel {
	return TranscriptModel{log: &log}
}

// Append returns a transcript with one more live event. Previously received
// events are never reordered or mutated.
func (m TranscriptModel) Append(ev domain.StreamEvent) TranscriptModel {
	events := make([]domain.StreamEvent, len(m.events), len(m.events)+1)
	copy(events, m.events)
	m.events = append(events, ev)
	return m
}

// Finish returns a transcript marked with the stream's final outcome.
func (m TranscriptModel) Finish(outcome api.StreamOutcome) TranscriptModel {
	m.outcome = outcome
	return m
}

// Live reports whether the transcript still tracks an active stream.
func (m TranscriptModel) Live() bool {
	return m.live && m.outcome == api.StreamActive
}

// Events returns the accumulated live events in arrival order.
func (m TranscriptModel) Events() []domain.StreamEvent {
	return m.events
}

// ScrollUp returns a transcript scrolled up one line; scrolling detaches
// from follow mode.
func (m TranscriptModel) ScrollUp() TranscriptModel {
	m.follow = false
	if m.offset > 0 {
		m.offset--
	}
	return m
}

// ScrollDown returns a transcript scrolled down one line.
func (m TranscriptModel) ScrollDown() TranscriptModel {
	m.follow = false
	m.offset++
	return m
}

// ScrollTop returns a transcript scrolled to the first line.
func (m TranscriptModel) ScrollTop() TranscriptModel {
	m.follow = false
	m.offset = 0
	return m
}

// ScrollBottom returns a transcript that follows the newest lines again.
func (m TranscriptModel) ScrollBottom() TranscriptModel {
	m.follow = true
	return m
}

func (m TranscriptModel) text() string {
	if m.log != nil {
		return transcript.RenderLog(*m.log)
	}
	return transcript.Render(m.events)
}

// View renders the visible transcript window.
func (m TranscriptModel) View(height int) string {
	if height < 3 {
		height = 3
	}
	text := m.text()
	if text == "" {
		if m.Live() {
			return dimStyle.Render("waiting for events...")
		}
		return dimStyle.Render("no events received")
	}

	lines := strings.Split(text, "\n")
	offset := m.offset
	if m.follow || offset > len(lines)-height {
		offset = len(lines) - height
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + height
	if end > len(lines) {
		end = len(lines)
	}

	body := strings.Join(lines[offset:end], "\n")
	switch {
	case m.Live():
		return body + "\n" + liveStyle.Render("● live")
	case m.outcome == api.StreamErrored:
		return body + "\n" + errorStyle.Render("connection lost")
	default:
		return body
	}
}

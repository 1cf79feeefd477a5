package tui_test

import (
	"fmt"
	"strings"
	"testing"

	"shipdeck/internal/api"
	"shipdeck/internal/domain"
	"shipdeck/internal/tui"
)

func userEvent(text string) domain.StreamEvent {
	return domain.StreamEvent{
		Kind: domain.EventUser,
		Chat: &domain.ChatMessage{Role: "user", Content: domain.MessageContent{Text: text}},
	}
}

func TestTranscript_AppendDoesNotMutateOriginal(t *testing.T) {
	base := tui.NewLiveTranscript().Append(userEvent("one"))
	grown := base.Append(userEvent("two"))

	if len(base.Events()) != 1 {
		t.Errorf("original transcript grew to %d events", len(base.Events()))
	}
	if len(grown.Events()) != 2 {
		t.Errorf("appended transcript has %d events, want 2", len(grown.Events()))
	}
}

func TestTranscript_LiveUntilFinished(t *testing.T) {
	m := tui.NewLiveTranscript()
	if !m.Live() {
		t.Error("new live transcript should report live")
	}
	m = m.Finish(api.StreamCompleted)
	if m.Live() {
		t.Error("finished transcript should not report live")
	}
}

func TestTranscript_ViewMarksLiveStream(t *testing.T) {
	m := tui.NewLiveTranscript().Append(userEvent("hello"))
	view := m.View(10)
	if !strings.Contains(view, "● live") {
		t.Errorf("live view missing indicator:\n%s", view)
	}
}

func TestTranscript_ViewMarksConnectionLoss(t *testing.T) {
	m := tui.NewLiveTranscript().Append(userEvent("hello")).Finish(api.StreamErrored)
	view := m.View(10)
	if !strings.Contains(view, "connection lost") {
		t.Errorf("errored view missing notice:\n%s", view)
	}
}

func TestTranscript_EmptyViews(t *testing.T) {
	if view := tui.NewLiveTranscript().View(10); !strings.Contains(view, "waiting for events") {
		t.Errorf("empty live view: %q", view)
	}
	m := tui.NewLiveTranscript().Finish(api.StreamCompleted)
	if view := m.View(10); !strings.Contains(view, "no events received") {
		t.Errorf("empty finished view: %q", view)
	}
}

func TestTranscript_ArchivedViewShowsRunHeader(t *testing.T) {
	log := domain.StreamLog{RunID: "run-7", Events: []domain.StreamEvent{userEvent("go")}}
	view := tui.NewArchivedTranscript(log).View(10)
	if !strings.Contains(view, "run run-7") {
		t.Errorf("archived view missing header:\n%s", view)
	}
}

func TestTranscript_ScrollDetachesFromFollow(t *testing.T) {
	m := tui.NewLiveTranscript()
	for i := 0; i < 30; i++ {
		m = m.Append(userEvent(fmt.Sprintf("line %d", i)))
	}
	scrolled := m.ScrollUp().View(5)
	bottom := m.View(5)
	if scrolled == bottom {
		t.Error("scrolling up should change the visible window")
	}
	if followed := m.ScrollUp().ScrollBottom().View(5); followed != bottom {
		t.Error("scrolling back to bottom should restore follow mode")
	}
}

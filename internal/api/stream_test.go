package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shipdeck/internal/api"
	"shipdeck/internal/domain"
)

// sseHandler writes server-sent events and flushes after each write.
func sseHandler(serve func(w http.ResponseWriter, flush func())) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		serve(w, flusher.Flush)
	}
}

func collectEvents(t *testing.T, stream *api.Stream) []domain.StreamEvent {
	t.Helper()
	var events []domain.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-stream.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for the stream to end")
		}
	}
}

func TestStream_DeliversEventsInOrderUntilDone(t *testing.T) {
	server := httptest.NewServer(sseHandler(func(w http.ResponseWriter, flush func()) {
		for i := 0; i < 3; i++ {
			fmt.Fprintf(w, "data: {\"type\": \"user\", \"message\": {\"role\": \"user\", \"content\": \"msg %d\"}}\n\n", i)
			flush()
		}
		fmt.Fprint(w, "event: done\ndata: {}\n\n")
		flush()
	}))
	defer server.Close()

	stream, err := api.NewClient(server.URL).OpenStream(context.Background(), "d-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	events := collectEvents(t, stream)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		want := fmt.Sprintf("msg %d", i)
		if ev.Chat == nil || ev.Chat.Content.Text != want {
			t.Errorf("event %d out of order: %+v", i, ev.Chat)
		}
	}
	if stream.Outcome() != api.StreamCompleted {
		t.Errorf("outcome = %v, want completed", stream.Outcome())
	}
}

func TestStream_TransportDropEndsErrored(t *testing.T) {
	server := httptest.NewServer(sseHandler(func(w http.ResponseWriter, flush func()) {
		fmt.Fprint(w, "data: {\"type\": \"user\", \"message\": {\"role\": \"user\", \"content\": \"hi\"}}\n\n")
		flush()
		// return without a done event, dropping the connection
	}))
	defer server.Close()

	stream, err := api.NewClient(server.URL).OpenStream(context.Background(), "d-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	events := collectEvents(t, stream)
	if len(events) != 1 {
		t.Errorf("expected the event sent before the drop, got %d", len(events))
	}
	if stream.Outcome() != api.StreamErrored {
		t.Errorf("outcome = %v, want errored", stream.Outcome())
	}
}

func TestStream_SkipsMalformedPayloads(t *testing.T) {
	server := httptest.NewServer(sseHandler(func(w http.ResponseWriter, flush func()) {
		fmt.Fprint(w, "data: this is not json\n\n")
		fmt.Fprint(w, "data: {\"no_type\": true}\n\n")
		fmt.Fprint(w, "data: {\"type\": \"user\", \"message\": {\"role\": \"user\", \"content\": \"kept\"}}\n\n")
		fmt.Fprint(w, "event: done\ndata: {}\n\n")
		flush()
	}))
	defer server.Close()

	stream, err := api.NewClient(server.URL).OpenStream(context.Background(), "d-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	events := collectEvents(t, stream)
	if len(events) != 1 {
		t.Fatalf("expected only the well-formed event, got %d", len(events))
	}
	if events[0].Chat.Content.Text != "kept" {
		t.Errorf("unexpected event: %+v", events[0].Chat)
	}
	if stream.Outcome() != api.StreamCompleted {
		t.Errorf("outcome = %v, want completed", stream.Outcome())
	}
}

func TestStream_OwnerCloseKeepsOutcomeActive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\": \"user\", \"message\": {\"role\": \"user\", \"content\": \"hi\"}}\n\n")
		w.(http.Flusher).Flush()
		// hold the connection open until the client hangs up
		<-r.Context().Done()
	}))
	defer server.Close()

	stream, err := api.NewClient(server.URL).OpenStream(context.Background(), "d-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-stream.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first event")
	}
	stream.Close()
	stream.Close() // idempotent

	collectEvents(t, stream)
	if stream.Outcome() != api.StreamActive {
		t.Errorf("outcome = %v, want active after owner close", stream.Outcome())
	}
}

func TestOpenStream_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no stream", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := api.NewClient(server.URL).OpenStream(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

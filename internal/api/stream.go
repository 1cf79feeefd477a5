package api

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"shipdeck/internal/domain"
)

// StreamOutcome tags how a live event stream ended. A stream that is still
// delivering events is Active; Completed means the server sent its "done"
// event; Errored means the transport dropped before that.
type StreamOutcome int

const (
	StreamActive StreamOutcome = iota
	StreamCompleted
	StreamErrored
)

func (o StreamOutcome) String() string {
	switch o {
	case StreamCompleted:
		return "completed"
	case StreamErrored:
		return "errored"
	default:
		return "active"
	}
}

// Stream owns one live event connection for a delivery. Events arrive on
// Events() in server-emission order; the channel is closed when the stream
// ends for any reason. The owner must call Close when it is done, on every
// exit path.
type Stream struct {
	events chan domain.StreamEvent
	ctx    context.Context
	cancel context.CancelFunc
	body   io.ReadCloser

	mu      sync.Mutex
	outcome StreamOutcome
	closed  bool
}

// OpenStream opens the live event stream for a delivery. Exactly one
// connection is held per Stream; there is no automatic reconnection. A
// dropped connection ends the stream with StreamErrored and a fresh
// OpenStream starts over from an empty event sequence.
func (c *Client) OpenStream(ctx context.Context, id string) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/deliveries/"+id+"/stream", nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		defer cancel()
		return nil, responseError(resp)
	}

	s := &Stream{
		events: make(chan domain.StreamEvent, 16),
		ctx:    ctx,
		cancel: cancel,
		body:   resp.Body,
	}
	go s.consume()
	return s, nil
}

// Events returns the ordered event channel. It is closed when the stream
// finishes; check Outcome to distinguish a clean finish from a drop.
func (s *Stream) Events() <-chan domain.StreamEvent {
	return s.events
}

// Outcome reports how the stream ended, or StreamActive while it has not.
func (s *Stream) Outcome() StreamOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Close releases the connection. Safe to call more than once. A stream
// closed by its owner before the server finished keeps outcome Active.
func (s *Stream) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// consume reads the server-sent event stream until the "done" event, a
// transport error, or owner close. Malformed event payloads are skipped
// without aborting the connection.
func (s *Stream) consume() {
	defer close(s.events)
	defer s.body.Close()

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var eventName string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if eventName == "done" {
				s.finish(StreamCompleted)
				return
			}
			if data.Len() > 0 {
				if ev, err := domain.ParseStreamEvent([]byte(data.String())); err == nil {
					select {
					case s.events <- ev:
					case <-s.ctx.Done():
						return
					}
				}
			}
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	// the reader ended without a done event
	s.finish(StreamErrored)
}

// finish records the stream outcome. Owner close wins: outcome stays Active
// when the owner tore the connection down before the server finished.
func (s *Stream) finish(outcome StreamOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.outcome != StreamActive {
		return
	}
	s.outcome = outcome
}

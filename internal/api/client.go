package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"shipdeck/internal/domain"
)

// Error wraps a non-2xx backend response. Detail carries the human-readable
// message from the response body's "detail" field when one was present.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Client talks to the delivery pipeline backend API.
type Client struct {
	baseURL string
	client  *http.Client
	// streaming uses its own client: the request deadline must not apply to
	// a long-lived event stream.
	streamClient *http.Client
}

// NewClient creates a backend API client for the given base URL, e.g.
// "http://localhost:8800/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 15 * time.Second},
		streamClient: &http.Client{},
	}
}

// Deliveries returns the current snapshot of all deliveries.
func (c *Client) Deliveries(ctx context.Context) ([]domain.Delivery, error) {
	var docs []deliveryDoc
	if err := c.get(ctx, "/deliveries", &docs); err != nil {
		return nil, err
	}
	deliveries := make([]domain.Delivery, len(docs))
	for i, doc := range docs {
		deliveries[i] = doc.toDelivery()
	}
	return deliveries, nil
}

// Delivery returns a single delivery snapshot. Returns domain.ErrNotFound
// when the backend reports 404.
func (c *Client) Delivery(ctx context.Context, id string) (domain.Delivery, error) {
	var doc deliveryDoc
	if err := c.get(ctx, "/deliveries/"+id, &doc); err != nil {
		return domain.Delivery{}, err
	}
	return doc.toDelivery(), nil
}

// Approve advances a delivery one phase past its current gate.
func (c *Client) Approve(ctx context.Context, id string) error {
	return c.post(ctx, "/deliveries/"+id+"/approve", nil)
}

// Reject retreats a delivery one phase, recording an optional reason.
func (c *Client) Reject(ctx context.Context, id, reason string) error {
	var body any
	if reason != "" {
		body = map[string]string{"reason": reason}
	}
	return c.post(ctx, "/deliveries/"+id+"/reject", body)
}

// Cancel sets the delivery's run status to canceled.
func (c *Client) Cancel(ctx context.Context, id string) error {
	return c.post(ctx, "/deliveries/"+id+"/cancel", nil)
}

// Retry re-attempts the current phase's run after a failure.
func (c *Client) Retry(ctx context.Context, id string) error {
	return c.post(ctx, "/deliveries/"+id+"/retry", nil)
}

// Trigger starts the agent run for a phase. Action is one of the trigger
// names returned by domain.AgentTrigger ("generate-plan", "run-implement",
// "run-review").
func (c *Client) Trigger(ctx context.Context, id, action string) error {
	return c.post(ctx, "/deliveries/"+id+"/"+action, nil)
}

// Transcript returns the full historical transcript of a completed run.
func (c *Client) Transcript(ctx context.Context, id, runID string) (domain.Transcript, error) {
	var raw map[string]json.RawMessage
	if err := c.get(ctx, "/deliveries/"+id+"/runs/"+runID+"/transcript", &raw); err != nil {
		return domain.Transcript{}, err
	}
	return decodeTranscript(raw)
}

// StreamLog returns the archived event log of a completed run.
func (c *Client) StreamLog(ctx context.Context, id, runID string) (domain.StreamLog, error) {
	var doc streamLogDoc
	if err := c.get(ctx, "/deliveries/"+id+"/runs/"+runID+"/stream_log", &doc); err != nil {
		return domain.StreamLog{}, err
	}
	return doc.toStreamLog(), nil
}

// Sources returns the configured delivery sources.
func (c *Client) Sources(ctx context.Context) ([]domain.Source, error) {
	var docs []sourceDoc
	if err := c.get(ctx, "/sources", &docs); err != nil {
		return nil, err
	}
	sources := make([]domain.Source, len(docs))
	for i, doc := range docs {
		sources[i] = doc.toSource()
	}
	return sources, nil
}

// SyncSources asks the backend to poll all sources now.
func (c *Client) SyncSources(ctx context.Context) error {
	return c.post(ctx, "/sources/sync", nil)
}

// CreateSource registers a new source.
func (c *Client) CreateSource(ctx context.Context, create domain.SourceCreate) error {
	return c.post(ctx, "/sources", sourceCreateBody(create))
}

// UpdateSource applies a partial patch to a source.
func (c *Client) UpdateSource(ctx context.Context, id string, update domain.SourceUpdate) error {
	return c.send(ctx, http.MethodPatch, "/sources/"+id, sourceUpdateBody(update))
}

// DeleteSource removes a source. The backend keeps its past deliveries.
func (c *Client) DeleteSource(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/sources/"+id, nil)
}

// WorkerStatus returns the state of the backend's background pollers.
func (c *Client) WorkerStatus(ctx context.Context) ([]domain.WorkerStatus, error) {
	var doc struct {
		Workers []workerStatusDoc `json:"workers"`
	}
	if err := c.get(ctx, "/worker/status", &doc); err != nil {
		return nil, err
	}
	workers := make([]domain.WorkerStatus, len(doc.Workers))
	for i, w := range doc.Workers {
		workers[i] = w.toWorkerStatus()
	}
	return workers, nil
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	return c.send(ctx, http.MethodPost, path, body)
}

func (c *Client) send(ctx context.Context, method, path string, body any) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &payload)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}
	return nil
}

// responseError maps a non-2xx response to an error. 404 maps to
// domain.ErrNotFound; everything else carries the backend's "detail"
// message when the body is parseable JSON.
func responseError(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	var body struct {
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return &Error{Status: resp.StatusCode, Detail: body.Detail}
}

func decodeTranscript(raw map[string]json.RawMessage) (domain.Transcript, error) {
	transcript := domain.Transcript{
		AgentModels: map[string]string{},
		Buckets:     map[string][]domain.TranscriptMessage{},
	}
	if metaRaw, ok := raw["meta"]; ok {
		var meta struct {
			Agents map[string]struct {
				Model string `json:"model"`
			} `json:"agents"`
		}
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			return domain.Transcript{}, fmt.Errorf("decoding transcript meta: %w", err)
		}
		for key, agent := range meta.Agents {
			transcript.AgentModels[key] = agent.Model
		}
	}
	for key, value := range raw {
		if key == "meta" {
			continue
		}
		var messages []domain.TranscriptMessage
		if err := json.Unmarshal(value, &messages); err != nil {
			return domain.Transcript{}, fmt.Errorf("decoding transcript bucket %q: %w", key, err)
		}
		transcript.Buckets[key] = messages
	}
	return transcript, nil
}

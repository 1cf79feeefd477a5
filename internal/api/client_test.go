package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shipdeck/internal/api"
	"shipdeck/internal/domain"
)

func TestDeliveries_MapsWireFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deliveries" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`[{
			"id": "d-1",
			"seq": 7,
			"phase": "review",
			"run_status": "succeeded",
			"endpoint": "close",
			"checkpoints": ["plan", "review", "deploy"],
			"summary": "add retry logic",
			"repository": "acme/api",
			"refs": [{"role": "output", "type": "pr", "label": "#42", "url": "https://example.com/42"}],
			"runs": [{
				"id": "run-1",
				"mode": "execution",
				"status": "success",
				"session": {"model": "sonnet"},
				"stats": {"cost_usd": 1.25, "input_tokens": 1000, "output_tokens": 400, "duration_ms": 90000},
				"summary": "implemented retry",
				"created_at": "2026-08-30T10:00:00Z"
			}],
			"phase_runs": [{
				"phase": "implement",
				"run_status": "succeeded",
				"executor": "agent",
				"verdict": "pass",
				"started_at": "2026-08-30T09:00:00Z",
				"ended_at": "2026-08-30T09:30:00Z"
			}],
			"plan": {"content": "1. do the thing", "model": "opus", "generated_at": "2026-08-29T12:00:00Z"},
			"created_at": "2026-08-29T08:00:00Z",
			"updated_at": "2026-08-30T10:00:00Z"
		}]`))
	}))
	defer server.Close()

	deliveries, err := api.NewClient(server.URL).Deliveries(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(deliveries))
	}
	d := deliveries[0]
	if d.ID != "d-1" || d.Seq != 7 {
		t.Errorf("unexpected identity: %s #%d", d.ID, d.Seq)
	}
	if d.Phase != domain.PhaseReview || d.RunStatus != domain.StatusSucceeded {
		t.Errorf("unexpected state: %s/%s", d.Phase, d.RunStatus)
	}
	if d.Endpoint != domain.PhaseClose || len(d.Checkpoints) != 3 {
		t.Errorf("unexpected routing fields: endpoint=%s checkpoints=%v", d.Endpoint, d.Checkpoints)
	}
	if len(d.Refs) != 1 || d.Refs[0].Type != "pr" {
		t.Errorf("unexpected refs: %+v", d.Refs)
	}
	if len(d.Runs) != 1 {
		t.Fatalf("expected 1 agent run, got %d", len(d.Runs))
	}
	run := d.Runs[0]
	if run.Model != "sonnet" {
		t.Errorf("model should come from the nested session, got %q", run.Model)
	}
	if run.Stats.Duration != 90*time.Second {
		t.Errorf("duration = %v, want 90s", run.Stats.Duration)
	}
	if len(d.PhaseRuns) != 1 || d.PhaseRuns[0].Verdict != domain.VerdictPass {
		t.Errorf("unexpected phase runs: %+v", d.PhaseRuns)
	}
	if d.Plan == nil || d.Plan.Model != "opus" {
		t.Errorf("unexpected plan: %+v", d.Plan)
	}
}

func TestDelivery_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := api.NewClient(server.URL).Delivery(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResponseError_UsesDetailField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail": "phase is not awaiting approval"}`))
	}))
	defer server.Close()

	err := api.NewClient(server.URL).Approve(context.Background(), "d-1")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %v", err)
	}
	if apiErr.Status != http.StatusConflict {
		t.Errorf("status = %d, want 409", apiErr.Status)
	}
	if apiErr.Error() != "phase is not awaiting approval" {
		t.Errorf("message = %q, want the detail field", apiErr.Error())
	}
}

func TestResponseError_FallsBackToStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	err := api.NewClient(server.URL).Cancel(context.Background(), "d-1")
	if err == nil || err.Error() != "HTTP 500" {
		t.Errorf("expected 'HTTP 500', got %v", err)
	}
}

func TestApprove_PostsToActionPath(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
	}))
	defer server.Close()

	if err := api.NewClient(server.URL).Approve(context.Background(), "d-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/deliveries/d-1/approve" {
		t.Errorf("got %s %s, want POST /deliveries/d-1/approve", gotMethod, gotPath)
	}
}

func TestReject_SendsReasonBody(t *testing.T) {
	var body map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	if err := client.Reject(context.Background(), "d-1", "plan misses the migration"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["reason"] != "plan misses the migration" {
		t.Errorf("reason = %q, want the rejection reason", body["reason"])
	}

	body = nil
	if err := client.Reject(context.Background(), "d-1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) != 0 {
		t.Errorf("empty reason should send no body fields, got %v", body)
	}
}

func TestTrigger_PostsActionName(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer server.Close()

	if err := api.NewClient(server.URL).Trigger(context.Background(), "d-1", "generate-plan"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/deliveries/d-1/generate-plan" {
		t.Errorf("path = %s, want /deliveries/d-1/generate-plan", gotPath)
	}
}

func TestStreamLog_SkipsCorruptEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deliveries/d-1/runs/run-1/stream_log" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"run_id": "run-1",
			"started_at": "2026-08-30T09:00:00Z",
			"completed_at": "2026-08-30T09:30:00Z",
			"events": [
				{"type": "user", "message": {"role": "user", "content": "go"}},
				{"no_type_tag": true},
				{"type": "result", "message": {"result": "done"}}
			],
			"agent_buckets": [{"id": "leader", "label": "Leader"}]
		}`))
	}))
	defer server.Close()

	log, err := api.NewClient(server.URL).StreamLog(context.Background(), "d-1", "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.RunID != "run-1" {
		t.Errorf("run id = %q", log.RunID)
	}
	if len(log.Events) != 2 {
		t.Errorf("expected corrupt event to be skipped, got %d events", len(log.Events))
	}
	if len(log.AgentBuckets) != 1 || log.AgentBuckets[0].ID != "leader" {
		t.Errorf("unexpected buckets: %+v", log.AgentBuckets)
	}
}

func TestTranscript_DecodesMetaAndBuckets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"meta": {"agents": {"leader": {"model": "opus"}, "agent-1": {"model": "sonnet"}}},
			"leader": [{"role": "user", "content": "start"}],
			"agent-1": [{"role": "assistant", "content": [{"type": "text", "text": "done"}]}]
		}`))
	}))
	defer server.Close()

	transcript, err := api.NewClient(server.URL).Transcript(context.Background(), "d-1", "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript.AgentModels["leader"] != "opus" {
		t.Errorf("leader model = %q, want opus", transcript.AgentModels["leader"])
	}
	if len(transcript.Buckets["leader"]) != 1 {
		t.Errorf("leader bucket size = %d, want 1", len(transcript.Buckets["leader"]))
	}
	if got := transcript.Buckets["agent-1"][0].Content.Blocks[0].Text; got != "done" {
		t.Errorf("agent-1 block text = %q, want done", got)
	}
}

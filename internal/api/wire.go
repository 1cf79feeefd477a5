package api

import (
	"encoding/json"
	"time"

	"shipdeck/internal/domain"
)

// deliveryDoc is the raw backend response shape for a delivery.
type deliveryDoc struct {
	ID          string        `json:"id"`
	Seq         int           `json:"seq"`
	Phase       string        `json:"phase"`
	RunStatus   string        `json:"run_status"`
	Endpoint    string        `json:"endpoint"`
	Checkpoints []string      `json:"checkpoints"`
	Summary     string        `json:"summary"`
	Repository  string        `json:"repository"`
	Refs        []refDoc      `json:"refs"`
	Runs        []agentRunDoc `json:"runs"`
	PhaseRuns   []phaseRunDoc `json:"phase_runs"`
	Plan        *planDoc      `json:"plan"`
	Error       string        `json:"error"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
}

type refDoc struct {
	Role  string `json:"role"`
	Type  string `json:"type"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

type agentRunDoc struct {
	ID      string `json:"id"`
	Mode    string `json:"mode"`
	Status  string `json:"status"`
	Session struct {
		Model string `json:"model"`
	} `json:"session"`
	Stats struct {
		CostUSD      float64 `json:"cost_usd"`
		InputTokens  int     `json:"input_tokens"`
		OutputTokens int     `json:"output_tokens"`
		DurationMS   int64   `json:"duration_ms"`
	} `json:"stats"`
	Error     string `json:"error"`
	Summary   string `json:"summary"`
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
}

type phaseRunDoc struct {
	Phase     string `json:"phase"`
	RunStatus string `json:"run_status"`
	Executor  string `json:"executor"`
	Verdict   string `json:"verdict"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at"`
}

type planDoc struct {
	Content     string `json:"content"`
	Model       string `json:"model"`
	GeneratedAt string `json:"generated_at"`
}

func (d deliveryDoc) toDelivery() domain.Delivery {
	delivery := domain.Delivery{
		ID:         d.ID,
		Seq:        d.Seq,
		Phase:      domain.Phase(d.Phase),
		RunStatus:  domain.RunStatus(d.RunStatus),
		Endpoint:   domain.Phase(d.Endpoint),
		Summary:    d.Summary,
		Repository: d.Repository,
		Error:      d.Error,
		CreatedAt:  parseTime(d.CreatedAt),
		UpdatedAt:  parseTime(d.UpdatedAt),
	}
	for _, checkpoint := range d.Checkpoints {
		delivery.Checkpoints = append(delivery.Checkpoints, domain.Phase(checkpoint))
	}
	for _, ref := range d.Refs {
		delivery.Refs = append(delivery.Refs, domain.Ref{
			Role:  ref.Role,
			Type:  ref.Type,
			Label: ref.Label,
			URL:   ref.URL,
		})
	}
	for _, run := range d.Runs {
		delivery.Runs = append(delivery.Runs, run.toAgentRun())
	}
	for _, pr := range d.PhaseRuns {
		delivery.PhaseRuns = append(delivery.PhaseRuns, domain.PhaseRun{
			Phase:     domain.Phase(pr.Phase),
			RunStatus: domain.RunStatus(pr.RunStatus),
			Executor:  domain.ExecutorKind(pr.Executor),
			Verdict:   domain.Verdict(pr.Verdict),
			StartedAt: parseTime(pr.StartedAt),
			EndedAt:   parseTime(pr.EndedAt),
		})
	}
	if d.Plan != nil {
		delivery.Plan = &domain.Plan{
			Content:     d.Plan.Content,
			Model:       d.Plan.Model,
			GeneratedAt: parseTime(d.Plan.GeneratedAt),
		}
	}
	return delivery
}

func (r agentRunDoc) toAgentRun() domain.AgentRun {
	return domain.AgentRun{
		ID:     r.ID,
		Mode:   r.Mode,
		Status: r.Status,
		Model:  r.Session.Model,
		Stats: domain.ExecutionStats{
			CostUSD:      r.Stats.CostUSD,
			InputTokens:  r.Stats.InputTokens,
			OutputTokens: r.Stats.OutputTokens,
			Duration:     time.Duration(r.Stats.DurationMS) * time.Millisecond,
		},
		Error:     r.Error,
		Summary:   r.Summary,
		SessionID: r.SessionID,
		CreatedAt: parseTime(r.CreatedAt),
	}
}

// streamLogDoc is the raw backend response shape for an archived stream log.
type streamLogDoc struct {
	RunID        string            `json:"run_id"`
	StartedAt    string            `json:"started_at"`
	CompletedAt  string            `json:"completed_at"`
	Events       []json.RawMessage `json:"events"`
	AgentBuckets []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"agent_buckets"`
}

func (d streamLogDoc) toStreamLog() domain.StreamLog {
	log := domain.StreamLog{
		RunID:       d.RunID,
		StartedAt:   parseTime(d.StartedAt),
		CompletedAt: parseTime(d.CompletedAt),
	}
	for _, raw := range d.Events {
		ev, err := domain.ParseStreamEvent(raw)
		if err != nil {
			// a single corrupt archived event must not lose the log
			continue
		}
		log.Events = append(log.Events, ev)
	}
	for _, bucket := range d.AgentBuckets {
		log.AgentBuckets = append(log.AgentBuckets, domain.AgentBucket{
			ID:    bucket.ID,
			Label: bucket.Label,
		})
	}
	return log
}

// sourceDoc is the raw backend response shape for a delivery source.
type sourceDoc struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Owner        string   `json:"owner"`
	Repo         string   `json:"repo"`
	Token        string   `json:"token"`
	Active       bool     `json:"active"`
	Endpoint     string   `json:"endpoint"`
	Checkpoints  []string `json:"checkpoints"`
	CreatedAt    string   `json:"created_at"`
	LastPolledAt string   `json:"last_polled_at"`
}

func (d sourceDoc) toSource() domain.Source {
	source := domain.Source{
		ID:           d.ID,
		Type:         d.Type,
		Owner:        d.Owner,
		Repo:         d.Repo,
		Token:        d.Token,
		Active:       d.Active,
		Endpoint:     domain.Phase(d.Endpoint),
		CreatedAt:    parseTime(d.CreatedAt),
		LastPolledAt: parseTime(d.LastPolledAt),
	}
	for _, checkpoint := range d.Checkpoints {
		source.Checkpoints = append(source.Checkpoints, domain.Phase(checkpoint))
	}
	return source
}

func sourceCreateBody(create domain.SourceCreate) map[string]any {
	checkpoints := make([]string, len(create.Checkpoints))
	for i, p := range create.Checkpoints {
		checkpoints[i] = string(p)
	}
	return map[string]any{
		"type":        create.Type,
		"owner":       create.Owner,
		"repo":        create.Repo,
		"token":       create.Token,
		"endpoint":    string(create.Endpoint),
		"checkpoints": checkpoints,
	}
}

// sourceUpdateBody keeps unset fields out of the patch payload.
func sourceUpdateBody(update domain.SourceUpdate) map[string]any {
	body := map[string]any{}
	if update.Token != nil {
		body["token"] = *update.Token
	}
	if update.Active != nil {
		body["active"] = *update.Active
	}
	if update.Endpoint != nil {
		body["endpoint"] = string(*update.Endpoint)
	}
	if update.Checkpoints != nil {
		checkpoints := make([]string, len(update.Checkpoints))
		for i, p := range update.Checkpoints {
			checkpoints[i] = string(p)
		}
		body["checkpoints"] = checkpoints
	}
	return body
}

type workerStatusDoc struct {
	Name        string          `json:"name"`
	Label       string          `json:"label"`
	Enabled     bool            `json:"enabled"`
	IntervalSec int             `json:"interval_sec"`
	LastPollAt  string          `json:"last_poll_at"`
	LastResult  json.RawMessage `json:"last_result"`
	LastError   string          `json:"last_error"`
}

func (d workerStatusDoc) toWorkerStatus() domain.WorkerStatus {
	return domain.WorkerStatus{
		Name:       d.Name,
		Label:      d.Label,
		Enabled:    d.Enabled,
		Interval:   time.Duration(d.IntervalSec) * time.Second,
		LastPollAt: parseTime(d.LastPollAt),
		LastResult: d.LastResult,
		LastError:  d.LastError,
	}
}

func parseTime(value string) time.Time {
	t, _ := time.Parse(time.RFC3339, value)
	return t
}

package domain

import "time"

// ExecutorKind identifies who performed a phase run.
type ExecutorKind string

const (
	ExecutorSystem ExecutorKind = "system"
	ExecutorAgent  ExecutorKind = "agent"
)

// Verdict is an optional pass/fail judgement attached to a phase run.
type Verdict string

const (
	VerdictPass    Verdict = "pass"
	VerdictNotPass Verdict = "not_pass"
)

// Ref is a reference link attached to a delivery (issue, PR, commit, ...).
type Ref struct {
	Role  string
	Type  string
	Label string
	URL   string
}

// ExecutionStats carries the cost and token telemetry of one agent run.
type ExecutionStats struct {
	CostUSD      float64
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// AgentRun is one execution of an automated agent against a delivery.
type AgentRun struct {
	ID        string
	Mode      string // "plan" or "execution"
	Status    string // "success" or "failed"
	Model     string
	Stats     ExecutionStats
	Error     string
	Summary   string
	SessionID string
	CreatedAt time.Time
}

// PhaseRun is an immutable historical record of one phase execution.
type PhaseRun struct {
	Phase     Phase
	RunStatus RunStatus
	Executor  ExecutorKind
	Verdict   Verdict
	StartedAt time.Time
	EndedAt   time.Time
}

// Plan holds the generated plan content for a delivery.
type Plan struct {
	Content     string
	Model       string
	GeneratedAt time.Time
}

// Delivery is one unit of work moving through the phase pipeline.
type Delivery struct {
	ID        string
	Seq       int
	Phase     Phase
	RunStatus RunStatus
	// Endpoint is the phase this delivery is configured to stop at.
	Endpoint Phase
	// Checkpoints are the gate phases configured for this delivery.
	Checkpoints []Phase
	Summary     string
	Repository  string
	Refs       []Ref
	Runs       []AgentRun
	PhaseRuns  []PhaseRun
	Plan       *Plan
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Terminal reports whether the delivery will not change further.
func (d Delivery) Terminal() bool {
	return IsTerminal(d.Phase, d.RunStatus)
}

// Running reports whether the delivery has an in-flight run.
func (d Delivery) Running() bool {
	return d.RunStatus == StatusRunning
}

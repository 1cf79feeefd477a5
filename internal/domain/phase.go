package domain

// Phase is one of the ordered pipeline stages a delivery moves through.
type Phase string

const (
	PhaseIntake    Phase = "intake"
	PhasePlan      Phase = "plan"
	PhaseImplement Phase = "implement"
	PhaseReview    Phase = "review"
	PhaseVerify    Phase = "verify"
	PhaseDeploy    Phase = "deploy"
	PhaseObserve   Phase = "observe"
	PhaseClose     Phase = "close"
)

// Phases lists all pipeline phases in order. Position defines what counts as
// a forward or backward move.
var Phases = []Phase{
	PhaseIntake, PhasePlan, PhaseImplement, PhaseReview,
	PhaseVerify, PhaseDeploy, PhaseObserve, PhaseClose,
}

// GatePhases are the human checkpoints: a delivery sitting in one of these
// with a succeeded run waits for an explicit approve or reject.
var GatePhases = map[Phase]bool{
	PhasePlan:   true,
	PhaseReview: true,
	PhaseDeploy: true,
}

// AgentPhases are the phases whose work is performed by an agent run. Each
// maps to its trigger action on the backend.
var AgentPhases = map[Phase]string{
	PhasePlan:      "generate-plan",
	PhaseImplement: "run-implement",
	PhaseReview:    "run-review",
}

// PhaseIndex returns the position of p in the pipeline, or -1 if p is not a
// known phase.
func PhaseIndex(p Phase) int {
	for i, candidate := range Phases {
		if candidate == p {
			return i
		}
	}
	return -1
}

// RunStatus is the outcome state of the current phase's latest execution.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
	StatusBlocked   RunStatus = "blocked"
	StatusCanceled  RunStatus = "canceled"
)

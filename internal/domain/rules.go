package domain

// DropAction is the backend action a legal board move maps to.
type DropAction string

const (
	DropApprove DropAction = "approve"
	DropReject  DropAction = "reject"
)

// EvaluateDrop decides whether moving a delivery from one phase column to
// another is legal, and which action it maps to. Only single-step moves out
// of a gate phase with a succeeded run are allowed: one phase forward is an
// approve, one phase back is a reject. Every other move is a no-op.
func EvaluateDrop(from Phase, status RunStatus, to Phase) (DropAction, bool) {
	if from == to {
		return "", false
	}
	if status != StatusSucceeded {
		return "", false
	}
	if from == PhaseClose {
		return "", false
	}
	if !GatePhases[from] {
		return "", false
	}
	diff := PhaseIndex(to) - PhaseIndex(from)
	switch diff {
	case 1:
		return DropApprove, true
	case -1:
		return DropReject, true
	}
	return "", false
}

// IsTerminal reports whether a delivery will not change further: either it
// completed the close phase successfully, or it was canceled.
func IsTerminal(phase Phase, status RunStatus) bool {
	if phase == PhaseClose && status == StatusSucceeded {
		return true
	}
	return status == StatusCanceled
}

// CanApproveReject reports whether the human approve/reject actions apply.
func CanApproveReject(phase Phase, status RunStatus) bool {
	return GatePhases[phase] && status == StatusSucceeded
}

// AgentTrigger returns the backend action that starts an agent run for the
// given phase, when the delivery is waiting on one (pending or failed).
func AgentTrigger(phase Phase, status RunStatus) (string, bool) {
	action, ok := AgentPhases[phase]
	if !ok {
		return "", false
	}
	if status != StatusPending && status != StatusFailed {
		return "", false
	}
	return action, true
}

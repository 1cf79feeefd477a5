package domain

import (
	"encoding/json"
	"time"
)

// Source is a repository the backend polls to feed new deliveries into the
// pipeline.
type Source struct {
	ID           string
	Type         string
	Owner        string
	Repo         string
	Token        string
	Active       bool
	Endpoint     Phase
	Checkpoints  []Phase
	CreatedAt    time.Time
	LastPolledAt time.Time
}

// SourceCreate is the payload for registering a new source.
type SourceCreate struct {
	Type        string
	Owner       string
	Repo        string
	Token       string
	Endpoint    Phase
	Checkpoints []Phase
}

// SourceUpdate is a partial source patch; nil fields are left unchanged.
type SourceUpdate struct {
	Token       *string
	Active      *bool
	Endpoint    *Phase
	Checkpoints []Phase
}

// WorkerStatus reports one of the backend's background pollers.
type WorkerStatus struct {
	Name       string
	Label      string
	Enabled    bool
	Interval   time.Duration
	LastPollAt time.Time
	LastResult json.RawMessage
	LastError  string
}

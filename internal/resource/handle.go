// Package resource manages the client-side view of backend deliveries: the
// latest fetched snapshots, fetch and action errors kept apart so a failed
// mutation never blanks an otherwise healthy view, and the polling loop used
// while a run is in flight. The backend stays the authority on state; this
// package only reconciles the local picture against it.
package resource

import (
	"context"
	"sync"
	"time"

	"shipdeck/internal/api"
	"shipdeck/internal/domain"
)

// DefaultPollInterval is the re-fetch interval while a delivery is running.
const DefaultPollInterval = 3 * time.Second

// Handle tracks a single delivery.
type Handle struct {
	client *api.Client
	id     string

	mu        sync.Mutex
	delivery  *domain.Delivery
	err       error
	actionErr error
}

// NewHandle creates a handle for one delivery. Call Refresh to load the
// first snapshot.
func NewHandle(client *api.Client, id string) *Handle {
	return &Handle{client: client, id: id}
}

// ID returns the delivery identifier this handle tracks.
func (h *Handle) ID() string {
	return h.id
}

// Delivery returns the last fetched snapshot, if any.
func (h *Handle) Delivery() (domain.Delivery, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.delivery == nil {
		return domain.Delivery{}, false
	}
	return *h.delivery, true
}

// Err returns the last fetch error, or nil after a successful Refresh.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// ActionErr returns the last mutation error until it is cleared.
func (h *Handle) ActionErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.actionErr
}

// ClearActionError dismisses the recorded action error. Idempotent.
func (h *Handle) ClearActionError() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actionErr = nil
}

// Refresh fetches the current snapshot. A fetch failure records the error
// and leaves the previous snapshot in place.
func (h *Handle) Refresh(ctx context.Context) error {
	delivery, err := h.client.Delivery(ctx, h.id)
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.err = err
		return err
	}
	h.delivery = &delivery
	h.err = nil
	return nil
}

// Approve advances the delivery one phase past its current gate.
func (h *Handle) Approve(ctx context.Context) error {
	return h.perform(ctx, func(ctx context.Context) error {
		return h.client.Approve(ctx, h.id)
	})
}

// Reject retreats the delivery one phase with an optional reason.
func (h *Handle) Reject(ctx context.Context, reason string) error {
	return h.perform(ctx, func(ctx context.Context) error {
		return h.client.Reject(ctx, h.id, reason)
	})
}

// Cancel cancels the delivery's in-flight run.
func (h *Handle) Cancel(ctx context.Context) error {
	return h.perform(ctx, func(ctx context.Context) error {
		return h.client.Cancel(ctx, h.id)
	})
}

// Retry re-attempts the current phase's run after a failure.
func (h *Handle) Retry(ctx context.Context) error {
	return h.perform(ctx, func(ctx context.Context) error {
		return h.client.Retry(ctx, h.id)
	})
}

// Trigger starts an agent run; action is one of the trigger names returned
// by domain.AgentTrigger.
func (h *Handle) Trigger(ctx context.Context, action string) error {
	return h.perform(ctx, func(ctx context.Context) error {
		return h.client.Trigger(ctx, h.id, action)
	})
}

// perform issues a mutation and then re-fetches the delivery to reconcile
// local state. The re-fetch happens even when the mutation failed: the
// backend may have partially applied it. A mutation error is recorded as the
// action error and returned; the caller decides whether to surface it before
// the refreshed state arrives.
func (h *Handle) perform(ctx context.Context, mutate func(context.Context) error) error {
	h.ClearActionError()
	actionErr := mutate(ctx)
	refreshErr := h.Refresh(ctx)
	if actionErr != nil {
		h.mu.Lock()
		h.actionErr = actionErr
		h.mu.Unlock()
		return actionErr
	}
	return refreshErr
}

// PollWhileRunning re-fetches the delivery on a fixed interval for as long
// as its run status is running. It returns nil once the status moves away
// from running, or the first fetch error, or ctx.Err on cancellation. An
// interval <= 0 uses DefaultPollInterval.
func (h *Handle) PollWhileRunning(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		h.mu.Lock()
		running := h.delivery != nil && h.delivery.Running()
		h.mu.Unlock()
		if !running {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := h.Refresh(ctx); err != nil {
				return err
			}
		}
	}
}

package resource

import (
	"context"
	"sync"

	"shipdeck/internal/api"
	"shipdeck/internal/domain"
)

// Collection tracks the full set of deliveries for list and board views.
//
// Local optimistic patches and applied refreshes each bump a generation
// counter; a refresh that was already in flight when a patch landed is
// discarded on arrival instead of overwriting the newer local state.
type Collection struct {
	client *api.Client

	mu         sync.Mutex
	deliveries []domain.Delivery
	err        error
	gen        uint64
}

// NewCollection creates an empty collection. Call Refresh to populate it.
func NewCollection(client *api.Client) *Collection {
	return &Collection{client: client}
}

// Deliveries returns a copy of the current snapshot list.
func (c *Collection) Deliveries() []domain.Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Delivery, len(c.deliveries))
	copy(out, c.deliveries)
	return out
}

// Err returns the last fetch error, or nil after a successful Refresh.
func (c *Collection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Refresh fetches the delivery list. On failure the previously loaded list
// stays in place and only the error is recorded. A response that raced with
// a local patch is discarded as stale.
func (c *Collection) Refresh(ctx context.Context) error {
	c.mu.Lock()
	start := c.gen
	c.mu.Unlock()

	deliveries, err := c.client.Deliveries(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != start {
		return nil
	}
	if err != nil {
		c.err = err
		return err
	}
	c.gen++
	c.deliveries = deliveries
	c.err = nil
	return nil
}

// MarkRunning patches a delivery to running in place, so the list does not
// flash a stale pending/failed status between triggering a run and the next
// refresh round-trip.
func (c *Collection) MarkRunning(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.deliveries {
		if c.deliveries[i].ID == id {
			c.deliveries[i].RunStatus = domain.StatusRunning
			c.gen++
			return
		}
	}
}

// Active returns the deliveries that are not terminal.
func (c *Collection) Active() []domain.Delivery {
	var out []domain.Delivery
	for _, d := range c.Deliveries() {
		if !d.Terminal() {
			out = append(out, d)
		}
	}
	return out
}

// AnyRunning reports whether any delivery has an in-flight run.
func (c *Collection) AnyRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.deliveries {
		if d.Running() {
			return true
		}
	}
	return false
}

// ByPhase groups the current deliveries into board columns, preserving list
// order within each phase. Every phase gets a key even when empty.
func (c *Collection) ByPhase() map[domain.Phase][]domain.Delivery {
	grouped := make(map[domain.Phase][]domain.Delivery, len(domain.Phases))
	for _, phase := range domain.Phases {
		grouped[phase] = []domain.Delivery{}
	}
	for _, d := range c.Deliveries() {
		grouped[d.Phase] = append(grouped[d.Phase], d)
	}
	return grouped
}

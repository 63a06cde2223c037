package fanout

import (
	"context"
	"sync"

	"marketguard/internal/logger"
	"marketguard/pkg/metrics"
)

// Hub is the in-process session registry. Both indexes are guarded by one
// mutex; delivery always happens outside it.
type Hub struct {
	mu         sync.Mutex
	byIdentity map[string]map[string]Handle
	byHandle   map[string]Identity
	logger     logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Hub{
		byIdentity: make(map[string]map[string]Handle),
		byHandle:   make(map[string]Identity),
		logger:     log,
	}
}

// Register adds handle to the identity's session set. Registering the same
// handle again is a no-op; registering it under another identity moves it.
func (h *Hub) Register(identity Identity, handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := handle.ID()
	if prev, ok := h.byHandle[id]; ok {
		if prev == identity {
			h.byIdentity[identity.Key()][id] = handle
			return
		}
		h.removeLocked(id, prev)
	}

	key := identity.Key()
	set, ok := h.byIdentity[key]
	if !ok {
		set = make(map[string]Handle)
		h.byIdentity[key] = set
	}
	set[id] = handle
	h.byHandle[id] = identity
	h.reportSizeLocked()
}

// Unregister removes handle from whichever identity owns it.
func (h *Hub) Unregister(handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := handle.ID()
	identity, ok := h.byHandle[id]
	if !ok {
		return
	}
	h.removeLocked(id, identity)
	h.reportSizeLocked()
}

func (h *Hub) removeLocked(handleID string, identity Identity) {
	delete(h.byHandle, handleID)
	key := identity.Key()
	set, ok := h.byIdentity[key]
	if !ok {
		return
	}
	delete(set, handleID)
	if len(set) == 0 {
		delete(h.byIdentity, key)
	}
}

func (h *Hub) reportSizeLocked() {
	metrics.SetFanoutSize(len(h.byIdentity), len(h.byHandle))
}

func (h *Hub) snapshot(identity Identity) []Handle {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.byIdentity[identity.Key()]
	if len(set) == 0 {
		return nil
	}
	handles := make([]Handle, 0, len(set))
	for _, handle := range set {
		handles = append(handles, handle)
	}
	return handles
}

// dropIfOwned unregisters a failed handle unless it has meanwhile been moved
// to another identity.
func (h *Hub) dropIfOwned(handle Handle, identity Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := handle.ID()
	if owner, ok := h.byHandle[id]; ok && owner == identity {
		h.removeLocked(id, identity)
		h.reportSizeLocked()
	}
}

// Send delivers event to every live session of identity and returns the
// number of successful deliveries. Sessions whose delivery fails are
// unregistered before Send returns. There is no retry.
func (h *Hub) Send(ctx context.Context, identity Identity, event Event) int {
	delivered := 0
	for _, handle := range h.snapshot(identity) {
		if err := handle.Deliver(ctx, event); err != nil {
			h.dropIfOwned(handle, identity)
			metrics.IncFanoutDelivery(event.Type, "failed")
			h.logger.WarnwCtx(ctx, "Dropping session after failed delivery",
				"identity", identity.Key(),
				"handle_id", handle.ID(),
				"event_type", event.Type,
				"error", err,
			)
			continue
		}
		metrics.IncFanoutDelivery(event.Type, "delivered")
		delivered++
	}
	return delivered
}

// Broadcast sends event to both parties of a conversation. An identity is
// only sent to once when a and b are the same.
func (h *Hub) Broadcast(ctx context.Context, a, b Identity, event Event) int {
	delivered := h.Send(ctx, a, event)
	if b != a {
		delivered += h.Send(ctx, b, event)
	}
	return delivered
}

// IdentityCount returns the number of identities with at least one session.
func (h *Hub) IdentityCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byIdentity)
}

// SessionCount returns the number of sessions registered for identity.
func (h *Hub) SessionCount(identity Identity) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byIdentity[identity.Key()])
}

func (h *Hub) TotalSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byHandle)
}

// README: Order handlers for details and lifecycle transitions, guarded against duplicate submission.
package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/api"
	"courier/internal/modules/entity"
	"courier/internal/modules/order"
	"courier/internal/types"
)

// OrderService is the part of *order.Service the handlers call.
type OrderService interface {
	Get(ctx context.Context, id types.ID) api.Event
	MarkInProcess(ctx context.Context, cmd order.MarkInProcessCommand) api.Event
	Complete(ctx context.Context, cmd order.CompleteCommand) api.Event
	Cancel(ctx context.Context, cmd order.CancelCommand) api.Event
	Guard(id types.ID, to order.Status) error
}

// OrderReader reads the cached order after a dispatch settled.
type OrderReader interface {
	Order(id types.ID) (entity.Order, bool)
}

// OrderLocks admits one lifecycle submission per order until it settles.
// Every handler that can complete an order must share the same instance.
type OrderLocks struct {
	mu     sync.Mutex
	flight map[types.ID]struct{}
}

func NewOrderLocks() *OrderLocks {
	return &OrderLocks{flight: make(map[types.ID]struct{})}
}

// Acquire reports false while another submission for id is in flight.
func (l *OrderLocks) Acquire(id types.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.flight[id]; busy {
		return false
	}
	l.flight[id] = struct{}{}
	return true
}

func (l *OrderLocks) Release(id types.ID) {
	l.mu.Lock()
	delete(l.flight, id)
	l.mu.Unlock()
}

type OrderHandler struct {
	order OrderService
	cache OrderReader
	locks *OrderLocks
}

func NewOrderHandler(svc OrderService, cache OrderReader, locks *OrderLocks) *OrderHandler {
	if locks == nil {
		locks = NewOrderLocks()
	}
	return &OrderHandler{order: svc, cache: cache, locks: locks}
}

// Get refetches the order and returns the merged cache view.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ev := h.order.Get(c.Request.Context(), id)
	if ev.Kind == api.KindFailure {
		writeEvent(c, ev)
		return
	}
	o, found := h.cache.Order(id)
	if !found {
		writeDomainError(c, order.ErrNotFound)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) MarkInProcess(c *gin.Context) {
	h.transition(c, order.StatusInProcess, func(ctx context.Context, id types.ID) api.Event {
		return h.order.MarkInProcess(ctx, order.MarkInProcessCommand{OrderID: id})
	})
}

func (h *OrderHandler) Complete(c *gin.Context) {
	h.transition(c, order.StatusComplete, func(ctx context.Context, id types.ID) api.Event {
		return h.order.Complete(ctx, order.CompleteCommand{OrderID: id})
	})
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	h.transition(c, order.StatusCancelled, func(ctx context.Context, id types.ID) api.Event {
		return h.order.Cancel(ctx, order.CancelCommand{OrderID: id})
	})
}

// transition checks the cached status, then allows one submission per order
// until it settles.
func (h *OrderHandler) transition(c *gin.Context, to order.Status, send func(context.Context, types.ID) api.Event) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.order.Guard(id, to); err != nil {
		writeDomainError(c, err)
		return
	}
	if !h.locks.Acquire(id) {
		writeError(c, http.StatusConflict, errTransitionInFlight)
		return
	}
	defer h.locks.Release(id)
	writeEvent(c, send(c.Request.Context(), id))
}

const errTransitionInFlight = "order transition already in progress"

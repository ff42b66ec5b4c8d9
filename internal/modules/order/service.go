// README: Order service issues lifecycle intents; the service decides, the cache reflects.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"courier/internal/modules/api"
	"courier/internal/modules/entity"
	"courier/internal/types"
)

const (
	ActionGetDetails    = "GET_ORDER_DETAILS_WITH_ID"
	ActionMarkInProcess = "MARK_IN_PROCESS"
	ActionComplete      = "COMPLETE_ORDER"
	ActionCancel        = "CANCEL_ORDER"
)

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("order not found")
)

// Cache is the read side the service needs from the root store.
type Cache interface {
	Order(id types.ID) (entity.Order, bool)
}

type Service struct {
	api    api.Dispatcher
	cache  Cache
	logger *slog.Logger
}

func NewService(d api.Dispatcher, cache Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: d, cache: cache, logger: logger}
}

type MarkInProcessCommand struct {
	OrderID types.ID
}

type CompleteCommand struct {
	OrderID types.ID
}

type CancelCommand struct {
	OrderID types.ID
}

func (s *Service) Get(ctx context.Context, id types.ID) api.Event {
	return s.api.Dispatch(ctx, api.Get(ActionGetDetails, fmt.Sprintf("order/%d", id), entity.One(entity.Orders)))
}

// MarkInProcess does not reject a resubmission; the caller disables the
// control while the transition is in flight.
func (s *Service) MarkInProcess(ctx context.Context, cmd MarkInProcessCommand) api.Event {
	return s.transition(ctx, ActionMarkInProcess, "order/markInProcess", cmd.OrderID)
}

func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) api.Event {
	return s.transition(ctx, ActionComplete, "order/complete", cmd.OrderID)
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) api.Event {
	return s.transition(ctx, ActionCancel, "order/cancel", cmd.OrderID)
}

func (s *Service) transition(ctx context.Context, action, endPoint string, id types.ID) api.Event {
	ev := s.api.Dispatch(ctx, api.Post(action, endPoint, api.Ref{ID: id}, entity.One(entity.Orders)))
	if ev.OK() {
		s.logger.Info("order transition confirmed", slog.String("action", action), slog.String("order_id", id.String()))
	}
	return ev
}

// Guard checks a transition against the cached status. It is the UI-layer
// check; the service itself never refuses to send.
func (s *Service) Guard(id types.ID, to Status) error {
	o, ok := s.cache.Order(id)
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(Status(o.Status), to) {
		return ErrInvalidState
	}
	return nil
}

func CanMarkInProcess(o entity.Order) bool {
	return CanTransition(Status(o.Status), StatusInProcess)
}

func CanComplete(o entity.Order) bool {
	return CanTransition(Status(o.Status), StatusComplete)
}

func CanCancel(o entity.Order) bool {
	return CanTransition(Status(o.Status), StatusCancelled)
}

// README: Route service issues route intents and chains the dependent driver refresh.
package route

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"courier/internal/modules/api"
	"courier/internal/modules/driver"
	"courier/internal/modules/entity"
	"courier/internal/modules/order"
	"courier/internal/types"
)

const (
	ActionCreate         = "CREATE_NEW_DSPR_DRIVER_ROUTE"
	ActionCreateSilently = "CREATE_NEW_DSPR_DRIVER_ROUTE_WITHOUT_NOTIFICATIONS"
	ActionProgress       = "PROGRESS_DSPR_DRIVER_ROUTE"
	ActionDeactivate     = "DEACTIVATE_DSPR_DRIVER_ROUTE"

	RemovedMessage = "Order removed from route."
)

var (
	ErrRouteNotFound    = errors.New("route not found")
	ErrNoActiveRoute    = errors.New("driver has no active route")
	ErrDriverNotFound   = errors.New("driver not found")
	ErrOrderNotInRoute  = errors.New("order is not part of the route")
	ErrChoiceRequired   = errors.New("in-process order is outside the route; a choice is required")
	ErrUnknownChoice    = errors.New("unknown choice")
	ErrNoEstimator      = errors.New("travel estimates are not configured")
	ErrNoNextWaypoint   = errors.New("route has no remaining waypoint")
	ErrAddressNotCached = errors.New("waypoint address not cached")
)

// Cache is the read side the service needs from the root store.
type Cache interface {
	Route(id types.ID) (entity.Route, bool)
	ActiveRoute(driverID types.ID) (entity.Route, bool)
	Driver(id types.ID) (entity.DsprDriver, bool)
	Order(id types.ID) (entity.Order, bool)
	Address(id types.ID) (entity.Address, bool)
	DsprDriverID() types.ID
}

// OrderCompleter is the order transition the advance action may resolve to.
type OrderCompleter interface {
	Complete(ctx context.Context, cmd order.CompleteCommand) api.Event
}

// Estimator computes driving time between two places.
type Estimator interface {
	TravelEstimate(ctx context.Context, origin, destination string) (time.Duration, string, error)
}

type Service struct {
	api    api.Dispatcher
	cache  Cache
	orders OrderCompleter
	eta    Estimator
	logger *slog.Logger
}

// NewService wires the route service. eta may be nil when no maps key is
// configured.
func NewService(d api.Dispatcher, cache Cache, orders OrderCompleter, eta Estimator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: d, cache: cache, orders: orders, eta: eta, logger: logger}
}

type CreateCommand struct {
	DriverID                     types.ID   `json:"driverId"`
	Waypoints                    []types.ID `json:"waypoints"`
	FinalDestination             types.ID   `json:"finalDestination"`
	UsingFinalDestinationInRoute bool       `json:"usingFinalDestinationInRoute"`
}

type routeBody struct {
	DsprDriver                   api.Ref   `json:"dsprDriver"`
	Waypoints                    []api.Ref `json:"waypoints"`
	FinalDestination             *api.Ref  `json:"finalDestination"`
	UsingFinalDestinationInRoute bool      `json:"usingFinalDestinationInRoute"`
}

func (c CreateCommand) body() routeBody {
	b := routeBody{
		DsprDriver:                   api.Ref{ID: c.DriverID},
		Waypoints:                    make([]api.Ref, 0, len(c.Waypoints)),
		UsingFinalDestinationInRoute: c.UsingFinalDestinationInRoute,
	}
	for _, id := range c.Waypoints {
		b.Waypoints = append(b.Waypoints, api.Ref{ID: id})
	}
	if c.FinalDestination.Valid() {
		b.FinalDestination = &api.Ref{ID: c.FinalDestination}
	}
	return b
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) api.Event {
	return s.api.Dispatch(ctx, api.Post(ActionCreate, "dspr/driver/route", cmd.body(), entity.One(entity.Routes)))
}

// CreateSilently rebuilds a route without rider-facing notifications.
func (s *Service) CreateSilently(ctx context.Context, cmd CreateCommand) api.Event {
	return s.api.Dispatch(ctx, s.createSilentlyIntent(cmd))
}

func (s *Service) createSilentlyIntent(cmd CreateCommand) api.Intent {
	return api.Post(ActionCreateSilently, "dspr/driver/route/remakeWithoutNotifications", cmd.body(), entity.One(entity.Routes))
}

// Progress advances the route one leg and, once that settles successfully,
// refreshes the selected driver so its in-process order and queue follow.
func (s *Service) Progress(ctx context.Context, routeID types.ID) []api.Event {
	return api.Sequence{
		Policy: api.ShortCircuit,
		Steps: []api.Step{
			api.Then(api.Get(ActionProgress, fmt.Sprintf("dspr/driver/route/progress/%d", routeID), entity.One(entity.Routes))),
			s.refreshSelectedDriver,
		},
	}.Run(ctx, s.api)
}

func (s *Service) refreshSelectedDriver(context.Context) (api.Intent, bool) {
	id := s.cache.DsprDriverID()
	if !id.Valid() {
		return api.Intent{}, false
	}
	return driver.GetIntent(id), true
}

func (s *Service) Deactivate(ctx context.Context, routeID types.ID) api.Event {
	return s.api.Dispatch(ctx, api.Post(ActionDeactivate, "dspr/driver/route/deactivate", api.Ref{ID: routeID}, entity.One(entity.Routes)))
}

type RemoveOrderCommand struct {
	RouteID types.ID
	OrderID types.ID
}

type Removal struct {
	Deactivated bool        `json:"deactivated"`
	Remaining   []types.ID  `json:"remaining"`
	Final       types.ID    `json:"finalDestination,omitempty"`
	Message     string      `json:"message,omitempty"`
	Events      []api.Event `json:"-"`
}

// RemoveOrder takes one order off a route. An emptied route is deactivated;
// otherwise a replacement route is created silently from the remaining
// waypoints and the owning driver is refreshed.
func (s *Service) RemoveOrder(ctx context.Context, cmd RemoveOrderCommand) (Removal, error) {
	r, ok := s.cache.Route(cmd.RouteID)
	if !ok {
		return Removal{}, ErrRouteNotFound
	}
	if !r.Contains(cmd.OrderID) {
		return Removal{}, ErrOrderNotInRoute
	}
	remaining, final := PlanRemoval(r, cmd.OrderID)
	out := Removal{Remaining: remaining, Final: final}

	if !final.Valid() {
		ev := s.Deactivate(ctx, r.ID)
		out.Deactivated = true
		out.Events = []api.Event{ev}
		if ev.OK() {
			out.Message = RemovedMessage
		}
		return out, nil
	}

	cmdNew := CreateCommand{
		DriverID:         r.DsprDriver,
		Waypoints:        remaining,
		FinalDestination: final,
	}
	out.Events = api.Sequence{
		Policy: api.ShortCircuit,
		Steps: []api.Step{
			api.Then(s.createSilentlyIntent(cmdNew)),
			api.Then(driver.GetIntent(r.DsprDriver)),
		},
	}.Run(ctx, s.api)
	if api.Succeeded(out.Events) {
		s.logger.Info("order removed from route",
			slog.String("route_id", r.ID.String()),
			slog.String("order_id", cmd.OrderID.String()),
			slog.Int("remaining", len(remaining)))
	}
	return out, nil
}

// DecideAdvance resolves what the advance control does for driverID.
func (s *Service) DecideAdvance(driverID types.ID) (Decision, error) {
	d, ok := s.cache.Driver(driverID)
	if !ok {
		return Decision{}, ErrDriverNotFound
	}
	r, ok := s.cache.ActiveRoute(driverID)
	if !ok {
		return Decision{}, ErrNoActiveRoute
	}
	return Decide(d, r), nil
}

// Advance performs the decided step. choice is consulted only when the
// decision asks for one; ChoiceCancel dispatches nothing.
func (s *Service) Advance(ctx context.Context, driverID types.ID, choice Choice) (Decision, []api.Event, error) {
	dec, err := s.DecideAdvance(driverID)
	if err != nil {
		return dec, nil, err
	}
	switch dec.Step {
	case StepCompleteOrder:
		return dec, []api.Event{s.orders.Complete(ctx, order.CompleteCommand{OrderID: dec.OrderID})}, nil
	case StepProgress:
		return dec, s.Progress(ctx, dec.RouteID), nil
	}

	switch choice {
	case ChoiceNone:
		return dec, nil, ErrChoiceRequired
	case ChoiceCompleteStrayFirst:
		return dec, []api.Event{s.orders.Complete(ctx, order.CompleteCommand{OrderID: dec.OrderID})}, nil
	case ChoiceProgressAnyway:
		return dec, s.Progress(ctx, dec.RouteID), nil
	case ChoiceCancel:
		return dec, nil, nil
	}
	return dec, nil, fmt.Errorf("%w: %q", ErrUnknownChoice, choice)
}

type Estimate struct {
	OrderID  types.ID      `json:"orderId"`
	Duration time.Duration `json:"duration"`
	Distance string        `json:"distance"`
}

// NextLegEstimate estimates driving time from origin to the waypoint the
// driver's current leg targets.
func (s *Service) NextLegEstimate(ctx context.Context, driverID types.ID, origin types.Point) (Estimate, error) {
	if s.eta == nil {
		return Estimate{}, ErrNoEstimator
	}
	r, ok := s.cache.ActiveRoute(driverID)
	if !ok {
		return Estimate{}, ErrNoActiveRoute
	}
	next, ok := NextWaypoint(r)
	if !ok {
		return Estimate{}, ErrNoNextWaypoint
	}
	o, ok := s.cache.Order(next)
	if !ok {
		return Estimate{}, fmt.Errorf("%w: order %d", ErrAddressNotCached, next)
	}
	addr, ok := s.cache.Address(o.Address)
	if !ok {
		return Estimate{}, fmt.Errorf("%w: order %d", ErrAddressNotCached, next)
	}

	dest := addr.Line()
	if !addr.Point.IsZero() {
		dest = addr.Point.String()
	}
	d, dist, err := s.eta.TravelEstimate(ctx, origin.String(), dest)
	if err != nil {
		return Estimate{}, fmt.Errorf("next leg estimate: %w", err)
	}
	return Estimate{OrderID: next, Duration: d, Distance: dist}, nil
}

// NextWaypoint is the order the current leg targets; leg n drives to
// waypoint n.
func NextWaypoint(r entity.Route) (types.ID, bool) {
	if r.CurrentLeg < 0 || r.CurrentLeg >= len(r.Waypoints) {
		return 0, false
	}
	return r.Waypoints[r.CurrentLeg], true
}

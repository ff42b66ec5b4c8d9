// README: Driver service issues intents for the DsprDriver aggregate and the on-call switch.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"courier/internal/modules/api"
	"courier/internal/modules/entity"
	"courier/internal/modules/user"
	"courier/internal/types"
)

const (
	ActionGet          = "GET_DSPR_DRIVER"
	ActionGetAll       = "GET_ALL_DRIVERS_FOR_DSPR"
	ActionAssign       = "ASSIGN_DSPR_DRIVER"
	ActionToggleActive = "TOGGLE_DSPR_DRIVER_ACTIVE_STATUS"
	ActionSetOnCall    = "SET_ON_CALL_STATE_FOR_DRIVER"
	ActionSetLocation  = "SET_DRIVER_LOCATION"
	ActionUpdateInfo   = "SET_DRIVER_INFORMATION"
	ActionGetDSPR      = "GET_DSPR"

	FetchFailedMessage       = "Failed to fetch driver data."
	NoInventoryPeriodMessage = "You must have a current inventory period to go on call."
)

var (
	ErrNotFound          = errors.New("driver not found")
	ErrNoInventoryPeriod = errors.New(NoInventoryPeriodMessage)
	// ErrOnCallUnknown means the cached on-call flag is null; toggling is a
	// no-op until the server reports a value.
	ErrOnCallUnknown = errors.New("on-call state unknown")
)

// Cache is the read side the service needs from the root store.
type Cache interface {
	Driver(id types.ID) (entity.DsprDriver, bool)
	DsprDriverID() types.ID
}

// Navigator moves the UI collaborator to the dashboard of a selected driver.
type Navigator interface {
	ShowDashboard(driverID types.ID)
}

type Service struct {
	api    api.Dispatcher
	sink   api.Sink
	cache  Cache
	nav    Navigator
	logger *slog.Logger
}

func NewService(d api.Dispatcher, sink api.Sink, cache Cache, nav Navigator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: d, sink: sink, cache: cache, nav: nav, logger: logger}
}

// GetIntent fetches the full driver aggregate. Other modules chain it as the
// dependent refresh after route changes.
func GetIntent(id types.ID) api.Intent {
	return api.Get(ActionGet, fmt.Sprintf("dspr/driver/%d", id), entity.One(entity.DsprDrivers))
}

// Get fetches the driver and replaces a failure message with the
// user-facing one.
func (s *Service) Get(ctx context.Context, id types.ID) api.Event {
	ev := s.api.Dispatch(ctx, GetIntent(id))
	if ev.Kind == api.KindFailure {
		ev.Err = FetchFailedMessage
	}
	return ev
}

// Refresh is Get without the alert; used by polling.
func (s *Service) Refresh(ctx context.Context, id types.ID) api.Event {
	return s.api.Dispatch(ctx, GetIntent(id))
}

func (s *Service) GetAllForDSPR(ctx context.Context, dsprID types.ID) api.Event {
	in := api.Get(ActionGetAll, "dspr/driver/", entity.ArrayOf(entity.DsprDrivers))
	in.Query = url.Values{"dspr_id": {dsprID.String()}}
	return s.api.Dispatch(ctx, in)
}

func (s *Service) GetDSPR(ctx context.Context, id types.ID) api.Event {
	return s.api.Dispatch(ctx, GetDSPRIntent(id))
}

func GetDSPRIntent(id types.ID) api.Intent {
	return api.Get(ActionGetDSPR, fmt.Sprintf("dspr/%d", id), entity.One(entity.DSPRs))
}

type AssignCommand struct {
	DSPRID types.ID `json:"dsprId"`
	UserID types.ID `json:"userId"`
	OnCall *bool    `json:"onCall"`
}

type assignBody struct {
	DSPR   api.Ref `json:"dspr"`
	User   api.Ref `json:"user"`
	OnCall bool    `json:"onCall"`
}

// Assign makes a user a driver of a DSPR, then refreshes the DSPR and the
// user. Every step runs even if an earlier one failed.
func (s *Service) Assign(ctx context.Context, cmd AssignCommand) []api.Event {
	body := assignBody{DSPR: api.Ref{ID: cmd.DSPRID}, User: api.Ref{ID: cmd.UserID}}
	if cmd.OnCall != nil {
		body.OnCall = *cmd.OnCall
	}
	return api.Sequence{
		Policy: api.Continue,
		Steps: []api.Step{
			api.Then(api.Post(ActionAssign, "dspr/driver", body, entity.One(entity.DsprDrivers))),
			api.Then(GetDSPRIntent(cmd.DSPRID)),
			api.Then(user.GetIntent(cmd.UserID)),
		},
	}.Run(ctx, s.api)
}

// ToggleActive flips the cached active flag through the service.
func (s *Service) ToggleActive(ctx context.Context, id types.ID) (api.Event, error) {
	d, ok := s.cache.Driver(id)
	if !ok {
		return api.Event{}, ErrNotFound
	}
	ep := "dspr/driver/activate"
	if d.Active {
		ep = "dspr/driver/deactivate"
	}
	return s.api.Dispatch(ctx, api.Post(ActionToggleActive, ep, api.Ref{ID: id}, entity.One(entity.DsprDrivers))), nil
}

// SetOnCall selects the endpoint by the requested state; the body only ever
// carries the driver reference.
func (s *Service) SetOnCall(ctx context.Context, id types.ID, on bool) api.Event {
	ep := "dspr/driver/notoncall"
	if on {
		ep = "dspr/driver/oncall"
	}
	return s.api.Dispatch(ctx, api.Post(ActionSetOnCall, ep, api.Ref{ID: id}, entity.One(entity.DsprDrivers)))
}

// ToggleOnCall requests the opposite of the cached on-call flag.
func (s *Service) ToggleOnCall(ctx context.Context, id types.ID) (api.Event, error) {
	d, ok := s.cache.Driver(id)
	if !ok {
		return api.Event{}, ErrNotFound
	}
	if !d.HasInventoryPeriod {
		return api.Event{}, ErrNoInventoryPeriod
	}
	if d.OnCall == nil {
		return api.Event{}, ErrOnCallUnknown
	}
	ev := s.SetOnCall(ctx, id, !*d.OnCall)
	s.logger.Info("on-call toggled",
		slog.String("driver_id", id.String()),
		slog.Bool("on_call", !*d.OnCall),
		slog.String("outcome", ev.Kind.String()))
	return ev, nil
}

type LocationCommand struct {
	DSPRID types.ID
	Point  types.Point
}

type locationBody struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	DSPR      api.Ref `json:"dspr"`
}

func (s *Service) SetLocation(ctx context.Context, cmd LocationCommand) api.Event {
	body := locationBody{Longitude: cmd.Point.Lng, Latitude: cmd.Point.Lat, DSPR: api.Ref{ID: cmd.DSPRID}}
	return s.api.Dispatch(ctx, api.Post(ActionSetLocation, "dspr/driver/location", body, entity.One(entity.DriverLocations)))
}

// UpdateInformation posts arbitrary driver fields; id always wins over a
// conflicting key in values.
func (s *Service) UpdateInformation(ctx context.Context, id types.ID, values map[string]any) api.Event {
	body := make(map[string]any, len(values)+1)
	for k, v := range values {
		body[k] = v
	}
	body["id"] = id
	return s.api.Dispatch(ctx, api.Post(ActionUpdateInfo, "dspr/driver/update", body, entity.One(entity.DsprDrivers)))
}

// SelectDriver records the driver this agent acts for and navigates to its
// dashboard.
func (s *Service) SelectDriver(id types.ID) {
	s.sink.Apply(api.Event{Action: api.ActionSetDsprDriverID, Kind: api.KindLocal, DsprDriverID: id})
	if s.nav != nil {
		s.nav.ShowDashboard(id)
	}
}

// RunRefresher polls the selected driver every interval until ctx is done.
func (s *Service) RunRefresher(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			id := s.cache.DsprDriverID()
			if !id.Valid() {
				continue
			}
			if ev := s.Refresh(ctx, id); ev.Kind == api.KindFailure {
				s.logger.Debug("driver refresh failed", slog.String("driver_id", id.String()), slog.String("error", ev.Err))
			}
		}
	}
}

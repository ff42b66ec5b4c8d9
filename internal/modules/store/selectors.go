// README: Selectors derive typed views from a State; they never mutate it.
package store

import (
	"sort"

	"courier/internal/modules/entity"
	"courier/internal/types"
)

func SelectOrder(s State, id types.ID) (entity.Order, bool) {
	r, ok := s.Entities.Get(entity.Orders, id)
	if !ok {
		return entity.Order{}, false
	}
	return entity.OrderFrom(r), true
}

func SelectDriver(s State, id types.ID) (entity.DsprDriver, bool) {
	r, ok := s.Entities.Get(entity.DsprDrivers, id)
	if !ok {
		return entity.DsprDriver{}, false
	}
	return entity.DsprDriverFrom(r), true
}

// SelectSelectedDriver returns the driver chosen with SET_DSPR_DRIVER_ID.
func SelectSelectedDriver(s State) (entity.DsprDriver, bool) {
	if !s.DsprDriverID.Valid() {
		return entity.DsprDriver{}, false
	}
	return SelectDriver(s, s.DsprDriverID)
}

func SelectRoute(s State, id types.ID) (entity.Route, bool) {
	r, ok := s.Entities.Get(entity.Routes, id)
	if !ok {
		return entity.Route{}, false
	}
	return entity.RouteFrom(r), true
}

// SelectActiveRoute prefers the driver's currentRoute and falls back to any
// cached active route owned by the driver.
func SelectActiveRoute(s State, driverID types.ID) (entity.Route, bool) {
	if d, ok := SelectDriver(s, driverID); ok && d.CurrentRoute.Valid() {
		if r, ok := SelectRoute(s, d.CurrentRoute); ok && r.Active {
			return r, true
		}
	}
	for _, id := range sortedIDs(s.Entities[entity.Routes]) {
		r := entity.RouteFrom(s.Entities[entity.Routes][id])
		if r.Active && r.DsprDriver == driverID {
			return r, true
		}
	}
	return entity.Route{}, false
}

func SelectUser(s State, id types.ID) (entity.User, bool) {
	r, ok := s.Entities.Get(entity.Users, id)
	if !ok {
		return entity.User{}, false
	}
	return entity.UserFrom(r), true
}

func SelectLoggedInUser(s State) (entity.User, bool) {
	return SelectUser(s, s.LoggedInUserID)
}

func SelectAddress(s State, id types.ID) (entity.Address, bool) {
	r, ok := s.Entities.Get(entity.Addresses, id)
	if !ok {
		return entity.Address{}, false
	}
	return entity.AddressFrom(r), true
}

func SelectDSPR(s State, id types.ID) (entity.DSPR, bool) {
	r, ok := s.Entities.Get(entity.DSPRs, id)
	if !ok {
		return entity.DSPR{}, false
	}
	return entity.DSPRFrom(r), true
}

// SelectOrders resolves ids in order, skipping ids missing from the cache.
func SelectOrders(s State, ids []types.ID) []entity.Order {
	out := make([]entity.Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := SelectOrder(s, id); ok {
			out = append(out, o)
		}
	}
	return out
}

// SelectDriversForDSPR lists cached drivers of one DSPR ordered by id.
func SelectDriversForDSPR(s State, dsprID types.ID) []entity.DsprDriver {
	var out []entity.DsprDriver
	for _, id := range sortedIDs(s.Entities[entity.DsprDrivers]) {
		d := entity.DsprDriverFrom(s.Entities[entity.DsprDrivers][id])
		if d.DSPR == dsprID {
			out = append(out, d)
		}
	}
	return out
}

// SelectUserNotes returns the notes attached to a user, newest first.
func SelectUserNotes(s State, userID types.ID) []entity.UserNote {
	var out []entity.UserNote
	for _, r := range s.Entities[entity.UserNotes] {
		n := entity.UserNoteFrom(r)
		if n.User == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// DriverView is the driver aggregate the UI renders: the driver with its user,
// DSPR, in-process order, queue and active route resolved.
type DriverView struct {
	Driver           entity.DsprDriver `json:"driver"`
	User             *entity.User      `json:"user,omitempty"`
	DSPR             *entity.DSPR      `json:"dspr,omitempty"`
	InProcessOrder   *entity.Order     `json:"inProcessOrder,omitempty"`
	Queue            []entity.Order    `json:"queue"`
	ActiveRoute      *entity.Route     `json:"activeRoute,omitempty"`
	RouteOrders      []entity.Order    `json:"routeOrders"`
	InProcessInRoute bool              `json:"inProcessInRoute"`
}

func SelectDriverView(s State, driverID types.ID) (DriverView, bool) {
	d, ok := SelectDriver(s, driverID)
	if !ok {
		return DriverView{}, false
	}
	v := DriverView{Driver: d, Queue: SelectOrders(s, d.QueuedOrders)}
	if u, ok := SelectUser(s, d.User); ok {
		v.User = &u
	}
	if p, ok := SelectDSPR(s, d.DSPR); ok {
		v.DSPR = &p
	}
	if o, ok := SelectOrder(s, d.CurrentInProcessOrder); ok {
		v.InProcessOrder = &o
	}
	if r, ok := SelectActiveRoute(s, driverID); ok {
		v.ActiveRoute = &r
		v.RouteOrders = SelectOrders(s, r.Waypoints)
		v.InProcessInRoute = d.CurrentInProcessOrder.Valid() && r.Contains(d.CurrentInProcessOrder)
	}
	return v, true
}

func sortedIDs(t entity.Table) []types.ID {
	ids := make([]types.ID, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Store-bound readers. They satisfy the small Cache interfaces declared by
// the services that consume the store.

func (s *Store) Order(id types.ID) (entity.Order, bool) {
	return SelectOrder(s.State(), id)
}

func (s *Store) Driver(id types.ID) (entity.DsprDriver, bool) {
	return SelectDriver(s.State(), id)
}

func (s *Store) SelectedDriver() (entity.DsprDriver, bool) {
	return SelectSelectedDriver(s.State())
}

func (s *Store) Route(id types.ID) (entity.Route, bool) {
	return SelectRoute(s.State(), id)
}

func (s *Store) ActiveRoute(driverID types.ID) (entity.Route, bool) {
	return SelectActiveRoute(s.State(), driverID)
}

func (s *Store) Address(id types.ID) (entity.Address, bool) {
	return SelectAddress(s.State(), id)
}

func (s *Store) DriverView(driverID types.ID) (DriverView, bool) {
	return SelectDriverView(s.State(), driverID)
}

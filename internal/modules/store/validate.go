// README: Consistency checks over a State, used by tests and the dev-mode store.
package store

import (
	"errors"
	"fmt"

	"courier/internal/modules/entity"
	"courier/internal/types"
)

var (
	ErrDanglingReference     = errors.New("dangling reference")
	ErrMultipleActiveRoutes  = errors.New("driver has more than one active route")
	ErrInProcessQueuedRouted = errors.New("in-process order is both queued and routed")
)

// Validate returns every inconsistency found in s, in a stable order.
func Validate(s State) []error {
	var errs []error
	for _, k := range entity.Keys() {
		schema, _ := entity.SchemaFor(k)
		t := s.Entities[k]
		for _, id := range sortedIDs(t) {
			rec := t[id]
			for _, rel := range schema.Relations {
				refs := []types.ID{rec.Ref(rel.Field)}
				if rel.Many {
					refs = rec.Refs(rel.Field)
				}
				for _, ref := range refs {
					if !ref.Valid() {
						continue
					}
					if _, ok := s.Entities.Get(rel.Target, ref); !ok {
						errs = append(errs, fmt.Errorf("%w: %s[%d].%s -> %s[%d]", ErrDanglingReference, k, id, rel.Field, rel.Target, ref))
					}
				}
			}
		}
	}

	active := map[types.ID]int{}
	for _, id := range sortedIDs(s.Entities[entity.Routes]) {
		r := entity.RouteFrom(s.Entities[entity.Routes][id])
		if r.Active && r.DsprDriver.Valid() {
			active[r.DsprDriver]++
		}
	}
	for _, id := range sortedIDs(s.Entities[entity.DsprDrivers]) {
		if active[id] > 1 {
			errs = append(errs, fmt.Errorf("%w: driver %d has %d", ErrMultipleActiveRoutes, id, active[id]))
		}
		d := entity.DsprDriverFrom(s.Entities[entity.DsprDrivers][id])
		if !d.CurrentInProcessOrder.Valid() {
			continue
		}
		r, ok := SelectActiveRoute(s, id)
		if ok && r.Contains(d.CurrentInProcessOrder) && containsID(d.QueuedOrders, d.CurrentInProcessOrder) {
			errs = append(errs, fmt.Errorf("%w: driver %d order %d", ErrInProcessQueuedRouted, id, d.CurrentInProcessOrder))
		}
	}
	return errs
}

func containsID(ids []types.ID, id types.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

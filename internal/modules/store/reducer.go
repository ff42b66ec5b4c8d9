// README: Root reducer; the only code that produces a new State from an event.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"courier/internal/modules/api"
	"courier/internal/modules/entity"
	"courier/internal/modules/order"
	"courier/internal/types"
)

// ErrMergeInconsistency marks a SUCCESS payload carrying an entity type the
// cache has no table for. It is a programming defect.
var ErrMergeInconsistency = errors.New("payload references entity type absent from cache schema")

// Reduce is pure: it never mutates s or ev. Unknown entity types are skipped
// and reported through the returned error.
func Reduce(s State, ev api.Event) (State, error) {
	switch ev.Kind {
	case api.KindPending:
		s.IsLoading = true
	case api.KindFailure:
		s.IsLoading = false
	case api.KindLocal:
		switch ev.Action {
		case api.ActionSetDsprDriverID:
			s.DsprDriverID = ev.DsprDriverID
		case api.ActionPreloadAccessToken:
			s.AccessToken = ev.AccessToken
		case api.ActionLogout:
			return Initial(), nil
		}
	case api.KindSuccess:
		switch ev.Effect {
		case api.EffectAccessToken:
			// the login-info fetch that follows settles the loading flag
			s.AccessToken = ev.AccessToken
			s.IsLoading = true
			return s, nil
		case api.EffectLoggedInUser:
			if id := loggedInUser(ev.Payload); id.Valid() {
				s.LoggedInUserID = id
			}
		}
		s.IsLoading = false
		var err error
		s.Entities, err = merge(s.Entities, ev.Payload, ev.Replace)
		return s, err
	}
	return s, nil
}

func loggedInUser(n *entity.Normalized) types.ID {
	if n == nil {
		return 0
	}
	if id := n.ResultID(); id.Valid() {
		return id
	}
	for id := range n.Entities[entity.Users] {
		return id
	}
	return 0
}

func merge(ents entity.Entities, n *entity.Normalized, replace []entity.Scope) (entity.Entities, error) {
	out := ents.Clone()
	for _, sc := range replace {
		dropOwned(out, sc)
	}
	if n == nil {
		for _, sc := range replace {
			relinkOwner(out, sc, nil)
		}
		return out, nil
	}

	var unknown []string
	for k, incoming := range n.Entities {
		if !entity.Known(k) {
			unknown = append(unknown, string(k))
			continue
		}
		t := out[k].Clone()
		for id, rec := range incoming {
			prev, ok := t[id]
			if !ok {
				t[id] = rec
				continue
			}
			if k == entity.Orders {
				rec = guardOrderStatus(prev, rec)
			}
			t[id] = entity.MergeRecord(prev, rec)
		}
		out[k] = t
	}
	if routes, ok := n.Entities[entity.Routes]; ok {
		out[entity.Routes] = supersedeRoutes(out[entity.Routes], routes)
	}
	for _, sc := range replace {
		relinkOwner(out, sc, n.Result)
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return out, fmt.Errorf("%w: %s", ErrMergeInconsistency, strings.Join(unknown, ", "))
	}
	return out, nil
}

// dropOwned removes the rows selected by sc. Rows of other owners stay.
func dropOwned(out entity.Entities, sc entity.Scope) {
	if !entity.Known(sc.Key) {
		return
	}
	t := out[sc.Key].Clone()
	for id, rec := range t {
		if sc.Owns(rec) {
			delete(t, id)
		}
	}
	out[sc.Key] = t
}

// relinkOwner points the cached owner's relation at the replacement ids so
// it never references a dropped row. An owner not in the cache is left alone.
func relinkOwner(out entity.Entities, sc entity.Scope, ids []types.ID) {
	parent, rel, ok := sc.Parent()
	if !ok {
		return
	}
	owner, ok := out[parent][sc.Owner]
	if !ok {
		return
	}
	var rec entity.Record
	switch {
	case rel.Many:
		rec = owner.With(rel.Field, append([]types.ID{}, ids...))
	case len(ids) > 0:
		rec = owner.With(rel.Field, ids[len(ids)-1])
	default:
		rec = owner.Without(rel.Field)
	}
	t := out[parent].Clone()
	t[sc.Owner] = rec
	out[parent] = t
}

// guardOrderStatus drops an incoming status that would move the cached order
// backwards, which happens when an older response settles after a newer one.
func guardOrderStatus(prev, incoming entity.Record) entity.Record {
	if !incoming.Has("orderStatus") {
		return incoming
	}
	from := order.Status(prev.String("orderStatus"))
	to := order.Status(incoming.String("orderStatus"))
	if order.Regresses(from, to) {
		return incoming.Without("orderStatus")
	}
	return incoming
}

// supersedeRoutes keeps at most one active route per driver. For every driver
// an incoming active route belongs to, the highest active route id in the
// table wins and the rest are deactivated, so a stale response for an older
// route cannot take the driver back.
func supersedeRoutes(t entity.Table, incoming entity.Table) entity.Table {
	drivers := map[types.ID]struct{}{}
	for id := range incoming {
		if rec := t[id]; rec.Bool("active") && rec.Ref("dsprDriver").Valid() {
			drivers[rec.Ref("dsprDriver")] = struct{}{}
		}
	}
	if len(drivers) == 0 {
		return t
	}

	winner := map[types.ID]types.ID{}
	for id, rec := range t {
		if !rec.Bool("active") {
			continue
		}
		driver := rec.Ref("dsprDriver")
		if _, ok := drivers[driver]; ok && id > winner[driver] {
			winner[driver] = id
		}
	}
	for id, rec := range t {
		driver := rec.Ref("dsprDriver")
		if w, ok := winner[driver]; ok && id != w && rec.Bool("active") {
			t[id] = rec.With("active", false)
		}
	}
	return t
}

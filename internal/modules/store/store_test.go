package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/modules/api"
	"courier/internal/modules/entity"
	"courier/internal/types"
)

func payload(t *testing.T, shape *entity.Shape, raw string) *entity.Normalized {
	t.Helper()
	n, err := entity.Normalize([]byte(raw), *shape)
	require.NoError(t, err)
	return n
}

func success(action string, n *entity.Normalized) api.Event {
	return api.Event{Action: action, Kind: api.KindSuccess, Payload: n}
}

const driverJSON = `{
	"id": 7, "onCall": false, "active": true,
	"dspr": {"id": 3, "name": "Downtown"},
	"user": {"id": 11, "firstName": "Ana"},
	"currentInProcessOrder": {"id": 100, "orderStatus": "in_process"},
	"queuedOrders": [{"id": 101, "orderStatus": "queued"}, {"id": 102, "orderStatus": "queued"}]
}`

func TestMergeIsIdempotent(t *testing.T) {
	s := New(true, nil)
	ev := success("GET_DSPR_DRIVER", payload(t, entity.One(entity.DsprDrivers), driverJSON))

	s.Apply(ev)
	first := s.State().Entities
	s.Apply(ev)

	assert.Equal(t, first, s.State().Entities)
	assert.Empty(t, Validate(s.State()))
}

func TestMergeKeepsUnmentionedFields(t *testing.T) {
	s := New(true, nil)
	s.Apply(success("GET_DSPR_DRIVER", payload(t, entity.One(entity.DsprDrivers), driverJSON)))
	s.Apply(success("SET_DSPR_DRIVER_ON_CALL_STATE", payload(t, entity.One(entity.DsprDrivers), `{"id": 7, "onCall": true}`)))

	d, ok := s.Driver(7)
	require.True(t, ok)
	assert.True(t, d.IsOnCall())
	assert.True(t, d.Active)
	assert.Equal(t, []types.ID{101, 102}, d.QueuedOrders)
}

func TestMergeDoesNotMutatePreviousState(t *testing.T) {
	s := New(true, nil)
	s.Apply(success("GET_DSPR_DRIVER", payload(t, entity.One(entity.DsprDrivers), driverJSON)))
	before := s.State()

	s.Apply(success("SET_DSPR_DRIVER_ON_CALL_STATE", payload(t, entity.One(entity.DsprDrivers), `{"id": 7, "onCall": true}`)))

	d, _ := SelectDriver(before, 7)
	assert.False(t, d.IsOnCall())
}

const twoUsersJSON = `[
	{"id": 11, "firstName": "Ana", "notes": [{"id": 1, "note": "A", "user": 11}, {"id": 3, "note": "C", "user": 11}]},
	{"id": 12, "firstName": "Bo", "notes": [{"id": 9, "note": "Z", "user": 12}]}
]`

func TestReplaceOnlyTouchesOwnersRows(t *testing.T) {
	s := New(true, nil)
	s.Apply(success("GET_USERS", payload(t, entity.ArrayOf(entity.Users), twoUsersJSON)))

	ev := success("GET_ALL_NOTES", payload(t, entity.ArrayOf(entity.UserNotes),
		`[{"id": 1, "note": "A", "user": 11}, {"id": 2, "note": "B", "user": 11}]`))
	ev.Replace = []entity.Scope{entity.OwnedBy(entity.UserNotes, 11)}
	s.Apply(ev)

	st := s.State()
	notes := st.Entities[entity.UserNotes]
	assert.Len(t, notes, 3)
	assert.Contains(t, notes, types.ID(1))
	assert.Contains(t, notes, types.ID(2))
	assert.NotContains(t, notes, types.ID(3))
	assert.Contains(t, notes, types.ID(9))

	assert.Equal(t, []types.ID{1, 2}, st.Entities[entity.Users][11].Refs("notes"))
	assert.Equal(t, []types.ID{9}, st.Entities[entity.Users][12].Refs("notes"))
	assert.Empty(t, Validate(st))
}

func TestReplaceRelinksSingleOwnerRelation(t *testing.T) {
	s := New(true, nil)
	s.Apply(success("GET_USER", payload(t, entity.One(entity.Users),
		`{"id": 11, "identificationDocument": {"id": 4, "idNumber": "X1", "user": 11}}`)))

	ev := success("GET_ID_DOCUMENTS", payload(t, entity.ArrayOf(entity.UserIDDocuments),
		`[{"id": 5, "idNumber": "X2", "user": 11}]`))
	ev.Replace = []entity.Scope{entity.OwnedBy(entity.UserIDDocuments, 11)}
	s.Apply(ev)

	st := s.State()
	assert.NotContains(t, st.Entities[entity.UserIDDocuments], types.ID(4))
	assert.Equal(t, types.ID(5), st.Entities[entity.Users][11].Ref("identificationDocument"))
	assert.Empty(t, Validate(st))

	empty := success("GET_ID_DOCUMENTS", payload(t, entity.ArrayOf(entity.UserIDDocuments), `[]`))
	empty.Replace = []entity.Scope{entity.OwnedBy(entity.UserIDDocuments, 11)}
	s.Apply(empty)

	st = s.State()
	assert.Empty(t, st.Entities[entity.UserIDDocuments])
	assert.False(t, st.Entities[entity.Users][11].Has("identificationDocument"))
	assert.Empty(t, Validate(st))
}

func TestActiveRouteSupersedesOlderRoute(t *testing.T) {
	s := New(true, nil)
	s.Apply(success("CREATE_ROUTE", payload(t, entity.One(entity.Routes),
		`{"id": 1, "active": true, "dsprDriver": 7, "waypoints": [101]}`)))
	s.Apply(success("CREATE_ROUTE", payload(t, entity.One(entity.Routes),
		`{"id": 2, "active": true, "dsprDriver": 7, "waypoints": [102]}`)))

	old, _ := s.Route(1)
	cur, _ := s.Route(2)
	assert.False(t, old.Active)
	assert.True(t, cur.Active)

	r, ok := s.ActiveRoute(7)
	require.True(t, ok)
	assert.Equal(t, types.ID(2), r.ID)
	for _, err := range Validate(s.State()) {
		assert.False(t, errors.Is(err, ErrMultipleActiveRoutes), err)
	}
}

func TestStaleOlderRouteDoesNotReactivate(t *testing.T) {
	s := New(true, nil)
	s.Apply(success("CREATE_ROUTE", payload(t, entity.One(entity.Routes),
		`{"id": 5, "active": true, "dsprDriver": 7}`)))
	s.Apply(success("CREATE_ROUTE", payload(t, entity.One(entity.Routes),
		`{"id": 6, "active": true, "dsprDriver": 7}`)))
	s.Apply(success("PROGRESS_ROUTE", payload(t, entity.One(entity.Routes),
		`{"id": 5, "active": true, "dsprDriver": 7}`)))

	r, ok := s.ActiveRoute(7)
	require.True(t, ok)
	assert.Equal(t, types.ID(6), r.ID)
	old, _ := s.Route(5)
	assert.False(t, old.Active)
	for _, err := range Validate(s.State()) {
		assert.False(t, errors.Is(err, ErrMultipleActiveRoutes), err)
	}
}

func TestActiveRoutesOfOtherDriversUntouched(t *testing.T) {
	s := New(true, nil)
	s.Apply(success("CREATE_ROUTE", payload(t, entity.ArrayOf(entity.Routes),
		`[{"id": 1, "active": true, "dsprDriver": 7}, {"id": 2, "active": true, "dsprDriver": 8}, {"id": 3, "active": true, "dsprDriver": 7}]`)))

	r1, _ := s.Route(1)
	r2, _ := s.Route(2)
	r3, _ := s.Route(3)
	assert.False(t, r1.Active)
	assert.True(t, r2.Active)
	assert.True(t, r3.Active)
}

func TestOrderStatusNeverRegresses(t *testing.T) {
	tests := []struct {
		name   string
		cached string
		stale  string
		want   string
	}{
		{"in process ignores queued", "in_process", "queued", "in_process"},
		{"complete is frozen", "complete", "in_process", "complete"},
		{"cancelled is frozen", "cancelled", "complete", "cancelled"},
		{"forward move applies", "queued", "in_process", "in_process"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(true, nil)
			s.Apply(success("GET_ORDER_DETAILS_WITH_ID", payload(t, entity.One(entity.Orders),
				`{"id": 100, "orderStatus": "`+tt.cached+`", "cashTotal": 10}`)))
			s.Apply(success("GET_ORDER_DETAILS_WITH_ID", payload(t, entity.One(entity.Orders),
				`{"id": 100, "orderStatus": "`+tt.stale+`", "cashTotal": 12.5}`)))

			o, ok := s.Order(100)
			require.True(t, ok)
			assert.Equal(t, tt.want, o.Status)
			assert.Equal(t, int64(1250), o.CashTotal.Amount)
		})
	}
}

func TestLoginLoadingSequence(t *testing.T) {
	s := New(true, nil)
	var seen []bool
	s.Subscribe(func(_ api.Event, prev, next State) {
		if len(seen) == 0 || seen[len(seen)-1] != next.IsLoading {
			seen = append(seen, next.IsLoading)
		}
	})
	seen = append(seen, s.State().IsLoading)

	s.Apply(api.Event{Action: "GET_ACCESS_TOKEN", Kind: api.KindPending})
	s.Apply(api.Event{Action: "GET_ACCESS_TOKEN", Kind: api.KindSuccess, Effect: api.EffectAccessToken, AccessToken: "tok"})
	s.Apply(api.Event{Action: "GET_LOGGED_IN_USER_INFO", Kind: api.KindPending})
	s.Apply(api.Event{
		Action:  "GET_LOGGED_IN_USER_INFO",
		Kind:    api.KindSuccess,
		Effect:  api.EffectLoggedInUser,
		Payload: payload(t, entity.One(entity.Users), `{"id": 11, "firstName": "Ana"}`),
	})

	assert.Equal(t, []bool{false, true, false}, seen)
	st := s.State()
	assert.Equal(t, "tok", st.AccessToken)
	assert.Equal(t, types.ID(11), st.LoggedInUserID)
	u, ok := SelectLoggedInUser(st)
	require.True(t, ok)
	assert.Equal(t, "Ana", u.FirstName)
}

func TestFailureLeavesEntitiesIntact(t *testing.T) {
	s := New(true, nil)
	s.Apply(success("GET_DSPR_DRIVER", payload(t, entity.One(entity.DsprDrivers), driverJSON)))
	before := s.State().Entities

	s.Apply(api.Event{Action: "GET_DSPR_DRIVER", Kind: api.KindPending})
	assert.True(t, s.State().IsLoading)
	s.Apply(api.Failure("GET_DSPR_DRIVER", "boom"))

	assert.False(t, s.State().IsLoading)
	assert.Equal(t, before, s.State().Entities)
}

func TestOutOfOrderSettlement(t *testing.T) {
	s := New(true, nil)
	s.Apply(api.Event{Action: "A", Kind: api.KindPending})
	s.Apply(api.Event{Action: "B", Kind: api.KindPending})
	s.Apply(success("B", payload(t, entity.One(entity.Orders), `{"id": 100, "orderStatus": "complete"}`)))
	s.Apply(success("A", payload(t, entity.One(entity.Orders), `{"id": 100, "orderStatus": "in_process"}`)))

	o, _ := s.Order(100)
	assert.Equal(t, "complete", o.Status)
	assert.False(t, s.State().IsLoading)
}

func TestLocalEvents(t *testing.T) {
	s := New(true, nil)
	s.Apply(api.Event{Action: api.ActionPreloadAccessToken, Kind: api.KindLocal, AccessToken: "saved"})
	s.Apply(api.Event{Action: api.ActionSetDsprDriverID, Kind: api.KindLocal, DsprDriverID: 7})
	s.Apply(success("GET_DSPR_DRIVER", payload(t, entity.One(entity.DsprDrivers), driverJSON)))

	st := s.State()
	assert.Equal(t, "saved", st.AccessToken)
	d, ok := SelectSelectedDriver(st)
	require.True(t, ok)
	assert.Equal(t, types.ID(7), d.ID)

	s.Apply(api.Local(api.ActionLogout))
	st = s.State()
	assert.Empty(t, st.AccessToken)
	assert.False(t, st.DsprDriverID.Valid())
	assert.Empty(t, st.Entities[entity.DsprDrivers])
	assert.Len(t, st.Entities, len(entity.Keys()))
}

func TestUnknownEntityType(t *testing.T) {
	n := payload(t, entity.One(entity.Orders), `{"id": 100, "orderStatus": "queued"}`)
	n.Entities["coupons"] = entity.Table{1: entity.Record{"id": types.ID(1)}}

	t.Run("strict panics", func(t *testing.T) {
		s := New(true, nil)
		assert.Panics(t, func() { s.Apply(success("X", n)) })
	})
	t.Run("lenient skips", func(t *testing.T) {
		s := New(false, nil)
		s.Apply(success("X", n))
		_, ok := s.Order(100)
		assert.True(t, ok)
		assert.NotContains(t, s.State().Entities, entity.Key("coupons"))
	})
}

func TestListenersSeeChainedStates(t *testing.T) {
	s := New(true, nil)
	var (
		mu    sync.Mutex
		chain []State
	)
	s.Subscribe(func(_ api.Event, prev, next State) {
		mu.Lock()
		defer mu.Unlock()
		if len(chain) > 0 {
			assert.Equal(t, chain[len(chain)-1].DsprDriverID, prev.DsprDriverID)
		}
		chain = append(chain, next)
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.Apply(api.Event{Action: api.ActionSetDsprDriverID, Kind: api.KindLocal, DsprDriverID: types.ID(id)})
		}(i)
	}
	wg.Wait()
	assert.Len(t, chain, 50)
	assert.Equal(t, chain[49].DsprDriverID, s.DsprDriverID())
}

func TestUnsubscribe(t *testing.T) {
	s := New(true, nil)
	calls := 0
	stop := s.Subscribe(func(api.Event, State, State) { calls++ })
	s.Apply(api.Local(api.ActionLogout))
	stop()
	s.Apply(api.Local(api.ActionLogout))
	assert.Equal(t, 1, calls)
}

// README: Order lifecycle tests (transition table + intents issued).
package order

import (
	"context"
	"testing"

	"courier/internal/modules/api"
	"courier/internal/modules/entity"
	"courier/internal/types"
)

// TestCanTransition verifies the state machine transition table.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusQueued, StatusInProcess, true},
		{StatusInProcess, StatusComplete, true},
		// cancels from every non-terminal state
		{StatusQueued, StatusCancelled, true},
		{StatusInProcess, StatusCancelled, true},
		// invalid: terminal states have no outgoing transitions
		{StatusComplete, StatusQueued, false},
		{StatusComplete, StatusCancelled, false},
		{StatusCancelled, StatusInProcess, false},
		// invalid: repeating or skipping states
		{StatusInProcess, StatusInProcess, false},
		{StatusQueued, StatusComplete, false},
		{StatusInProcess, StatusQueued, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRegresses(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{"", StatusQueued, false},
		{StatusQueued, StatusQueued, false},
		{StatusQueued, StatusComplete, false},
		{StatusInProcess, StatusQueued, true},
		{StatusComplete, StatusInProcess, true},
		{StatusComplete, StatusCancelled, true},
		{StatusCancelled, StatusComplete, true},
		{StatusInProcess, "unknown", false},
	}
	for _, tc := range cases {
		if got := Regresses(tc.from, tc.to); got != tc.want {
			t.Errorf("Regresses(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

type fakeDispatcher struct {
	intents []api.Intent
	kind    api.Kind
}

func (f *fakeDispatcher) Dispatch(_ context.Context, in api.Intent) api.Event {
	f.intents = append(f.intents, in)
	return api.Event{Action: in.Action, Kind: f.kind}
}

type fakeCache map[types.ID]entity.Order

func (c fakeCache) Order(id types.ID) (entity.Order, bool) {
	o, ok := c[id]
	return o, ok
}

func TestServiceIssuesTransitionIntents(t *testing.T) {
	d := &fakeDispatcher{kind: api.KindSuccess}
	svc := NewService(d, fakeCache{}, nil)
	ctx := context.Background()

	svc.MarkInProcess(ctx, MarkInProcessCommand{OrderID: 5})
	svc.Complete(ctx, CompleteCommand{OrderID: 5})
	svc.Cancel(ctx, CancelCommand{OrderID: 6})
	svc.Get(ctx, 6)

	want := []struct {
		action, method, endPoint string
	}{
		{ActionMarkInProcess, "POST", "order/markInProcess"},
		{ActionComplete, "POST", "order/complete"},
		{ActionCancel, "POST", "order/cancel"},
		{ActionGetDetails, "GET", "order/6"},
	}
	if len(d.intents) != len(want) {
		t.Fatalf("expected %d intents, got %d", len(want), len(d.intents))
	}
	for i, w := range want {
		in := d.intents[i]
		if in.Action != w.action || in.Method != w.method || in.EndPoint != w.endPoint {
			t.Errorf("intent %d = %s %s %s, want %s %s %s", i, in.Action, in.Method, in.EndPoint, w.action, w.method, w.endPoint)
		}
		if in.Schema == nil || in.Schema.Key != entity.Orders {
			t.Errorf("intent %d must normalize against orders", i)
		}
	}
	if ref, ok := d.intents[0].Body.(api.Ref); !ok || ref.ID != 5 {
		t.Fatalf("unexpected body %#v", d.intents[0].Body)
	}
}

func TestServiceFailureIsReturnedNotRetried(t *testing.T) {
	d := &fakeDispatcher{kind: api.KindFailure}
	svc := NewService(d, fakeCache{}, nil)

	ev := svc.Complete(context.Background(), CompleteCommand{OrderID: 5})
	if ev.Kind != api.KindFailure {
		t.Fatalf("expected failure, got %s", ev.Kind)
	}
	if len(d.intents) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(d.intents))
	}
}

func TestGuard(t *testing.T) {
	cache := fakeCache{
		1: {ID: 1, Status: string(StatusQueued)},
		2: {ID: 2, Status: string(StatusInProcess)},
		3: {ID: 3, Status: string(StatusComplete)},
	}
	svc := NewService(&fakeDispatcher{}, cache, nil)

	if err := svc.Guard(1, StatusInProcess); err != nil {
		t.Fatalf("queued -> in_process: %v", err)
	}
	if err := svc.Guard(2, StatusInProcess); err != ErrInvalidState {
		t.Fatalf("in_process -> in_process: expected ErrInvalidState, got %v", err)
	}
	if err := svc.Guard(3, StatusCancelled); err != ErrInvalidState {
		t.Fatalf("complete -> cancelled: expected ErrInvalidState, got %v", err)
	}
	if err := svc.Guard(9, StatusCancelled); err != ErrNotFound {
		t.Fatalf("missing order: expected ErrNotFound, got %v", err)
	}
	if !CanComplete(cache[2]) || CanComplete(cache[1]) {
		t.Fatal("only in-process orders can be completed")
	}
	if !CanCancel(cache[1]) || CanCancel(cache[3]) {
		t.Fatal("cancel allowed from queued, not from complete")
	}
	if !CanMarkInProcess(cache[1]) || CanMarkInProcess(cache[2]) {
		t.Fatal("mark in process allowed only from queued")
	}
}

// README: Explicit dependent-dispatch chains with a per-call-site failure policy.
package api

import "context"

type Policy int

const (
	// ShortCircuit stops the chain at the first FAILURE.
	ShortCircuit Policy = iota
	// Continue issues every step regardless of earlier outcomes.
	Continue
)

// Step builds the next intent once the previous step has settled. Returning
// false skips the step.
type Step func(ctx context.Context) (Intent, bool)

// Then wraps an intent that does not depend on earlier results.
func Then(in Intent) Step {
	return func(context.Context) (Intent, bool) { return in, true }
}

// Sequence is an ordered list of dependent dispatches.
type Sequence struct {
	Steps  []Step
	Policy Policy
}

// Run issues each step only after the previous one settled and returns the
// settling events in order.
func (s Sequence) Run(ctx context.Context, d Dispatcher) []Event {
	events := make([]Event, 0, len(s.Steps))
	for _, step := range s.Steps {
		if ctx.Err() != nil {
			break
		}
		in, ok := step(ctx)
		if !ok {
			continue
		}
		ev := d.Dispatch(ctx, in)
		events = append(events, ev)
		if ev.Kind == KindFailure && s.Policy == ShortCircuit {
			break
		}
	}
	return events
}

// Last returns the final settled event of a chain.
func Last(events []Event) (Event, bool) {
	if len(events) == 0 {
		return Event{}, false
	}
	return events[len(events)-1], true
}

// Succeeded reports whether every step of a chain succeeded.
func Succeeded(events []Event) bool {
	for _, ev := range events {
		if ev.Kind != KindSuccess {
			return false
		}
	}
	return len(events) > 0
}

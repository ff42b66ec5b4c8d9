// README: Route phases, the removal plan and the driver-facing advance decision.
package route

import (
	"courier/internal/modules/entity"
	"courier/internal/types"
)

type Phase string

const (
	PhaseNoRoute     Phase = "no_route"
	PhaseActive      Phase = "active"
	PhaseComplete    Phase = "complete"
	PhaseDeactivated Phase = "deactivated"
)

// PhaseOf derives the phase of a cached route. An inactive route whose leg
// counter ran past the last waypoint finished; any other inactive route was
// deactivated or superseded.
func PhaseOf(r entity.Route, ok bool) Phase {
	switch {
	case !ok:
		return PhaseNoRoute
	case r.Active:
		return PhaseActive
	case len(r.Waypoints) > 0 && r.CurrentLeg >= len(r.Waypoints):
		return PhaseComplete
	}
	return PhaseDeactivated
}

// PlanRemoval filters orderID out of the route. final is the last remaining
// waypoint, or zero when nothing remains and the route must be deactivated.
func PlanRemoval(r entity.Route, orderID types.ID) (remaining []types.ID, final types.ID) {
	remaining = make([]types.ID, 0, len(r.Waypoints))
	for _, id := range r.Waypoints {
		if id != orderID {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) > 0 {
		final = remaining[len(remaining)-1]
	}
	return remaining, final
}

// Step is the action the advance control resolves to.
type Step int

const (
	StepProgress Step = iota + 1
	StepCompleteOrder
	StepChoose
)

func (s Step) String() string {
	switch s {
	case StepProgress:
		return "progress_route"
	case StepCompleteOrder:
		return "complete_order"
	case StepChoose:
		return "choose"
	}
	return "unknown"
}

// Choice answers a StepChoose decision.
type Choice string

const (
	ChoiceNone               Choice = ""
	ChoiceCompleteStrayFirst Choice = "complete_order_first"
	ChoiceProgressAnyway     Choice = "progress_anyway"
	ChoiceCancel             Choice = "cancel"
)

const StrayOrderPrompt = "You currently have an in-process order that is not part of the route. Would you like to complete this order before continuing route?"

type Decision struct {
	Step    Step     `json:"-"`
	Action  string   `json:"action"`
	RouteID types.ID `json:"routeId"`
	OrderID types.ID `json:"orderId,omitempty"`
	Prompt  string   `json:"prompt,omitempty"`
	Choices []Choice `json:"choices,omitempty"`
}

// Decide never progresses past an in-process order that sits outside the
// active route without asking first.
func Decide(d entity.DsprDriver, active entity.Route) Decision {
	dec := Decision{RouteID: active.ID}
	switch {
	case !d.CurrentInProcessOrder.Valid():
		dec.Step = StepProgress
	case active.Contains(d.CurrentInProcessOrder):
		dec.Step = StepCompleteOrder
		dec.OrderID = d.CurrentInProcessOrder
	default:
		dec.Step = StepChoose
		dec.OrderID = d.CurrentInProcessOrder
		dec.Prompt = StrayOrderPrompt
		dec.Choices = []Choice{ChoiceCompleteStrayFirst, ChoiceProgressAnyway, ChoiceCancel}
	}
	dec.Action = dec.Step.String()
	return dec
}

// README: Typed events emitted by the dispatch pipeline and by local transitions.
package api

import (
	"courier/internal/modules/entity"
	"courier/internal/types"
)

type Kind int

const (
	KindPending Kind = iota + 1
	KindSuccess
	KindFailure
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindPending:
		return "PENDING"
	case KindSuccess:
		return "SUCCESS"
	case KindFailure:
		return "FAILURE"
	case KindLocal:
		return "LOCAL"
	}
	return "UNKNOWN"
}

// Effect tells the reducer what a SUCCESS means beyond merging entities.
type Effect int

const (
	EffectMerge Effect = iota
	EffectAccessToken
	EffectLoggedInUser
)

// Local, network-free actions.
const (
	ActionSetDsprDriverID     = "SET_DSPR_DRIVER_ID"
	ActionLogout              = "LOGOUT"
	ActionPreloadAccessToken  = "PRELOAD_ACCESS_TOKEN_FROM_LOCAL_STORAGE"
	GenericFailureMessage     = "Something went wrong. Please try again."
	accessTokenFailureMessage = "Fetch Access Token Fail"
)

// Event is one step of an intent's PENDING -> SUCCESS|FAILURE sequence, or a
// local transition.
type Event struct {
	ID           string             `json:"id,omitempty"`
	Action       string             `json:"action"`
	Kind         Kind               `json:"kind"`
	Effect       Effect             `json:"effect,omitempty"`
	Payload      *entity.Normalized `json:"payload,omitempty"`
	Replace      []entity.Scope     `json:"replace,omitempty"`
	AccessToken  string             `json:"-"`
	DsprDriverID types.ID           `json:"dsprDriverId,omitempty"`
	Status       int                `json:"status,omitempty"`
	Err          string             `json:"error,omitempty"`
}

// Type follows the PENDING=action, ACTION_SUCCESS, ACTION_FAILURE convention.
func (e Event) Type() string {
	switch e.Kind {
	case KindSuccess, KindFailure:
		return e.Action + "_" + e.Kind.String()
	}
	return e.Action
}

func (e Event) OK() bool {
	return e.Kind == KindSuccess
}

// AlertMessage is what a UI collaborator shows for a failed event.
func AlertMessage(e Event) string {
	if e.Err != "" {
		return e.Err
	}
	return GenericFailureMessage
}

// Local builds a network-free event.
func Local(action string) Event {
	return Event{Action: action, Kind: KindLocal}
}

// Failure builds a FAILURE event without a network round trip, for intents
// that could not be built from current state.
func Failure(action, msg string) Event {
	return Event{Action: action, Kind: KindFailure, Err: msg}
}

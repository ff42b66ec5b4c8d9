// README: Base handler utilities (JSON helpers, id parsing, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/maps"
	"courier/internal/modules/api"
	"courier/internal/modules/driver"
	"courier/internal/modules/location"
	"courier/internal/modules/order"
	"courier/internal/modules/route"
	"courier/internal/modules/session"
	"courier/internal/modules/user"
	"courier/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

// eventResponse is the JSON shape of one settled event.
type eventResponse struct {
	Type   string `json:"type"`
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	Alert  string `json:"alert,omitempty"`
}

func toEventResponse(ev api.Event) eventResponse {
	out := eventResponse{Type: ev.Type(), OK: ev.OK(), Status: ev.Status}
	if ev.Kind == api.KindFailure {
		out.Alert = api.AlertMessage(ev)
	}
	return out
}

func toEventResponses(events []api.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResponse(ev))
	}
	return out
}

// pathID reads a positive numeric id from the named path parameter and
// writes a 400 when it is missing or malformed.
func pathID(c *gin.Context, name string) (types.ID, bool) {
	id, err := types.ParseID(c.Param(name))
	if err != nil || !id.Valid() {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeEvent reports a single dispatch. A FAILURE maps to 502: the agent
// itself worked, the dispatch service refused or was unreachable.
func writeEvent(c *gin.Context, ev api.Event) {
	status := http.StatusOK
	if ev.Kind == api.KindFailure {
		status = http.StatusBadGateway
	}
	writeJSON(c, status, toEventResponse(ev))
}

// writeEvents reports a chain; the chain fails if its last step failed.
func writeEvents(c *gin.Context, events []api.Event) {
	status := http.StatusOK
	if last, ok := api.Last(events); ok && last.Kind == api.KindFailure {
		status = http.StatusBadGateway
	}
	writeJSON(c, status, gin.H{"events": toEventResponses(events)})
}

func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, driver.ErrNotFound),
		errors.Is(err, route.ErrRouteNotFound),
		errors.Is(err, route.ErrDriverNotFound),
		errors.Is(err, route.ErrNoActiveRoute),
		errors.Is(err, route.ErrOrderNotInRoute),
		errors.Is(err, route.ErrNoNextWaypoint),
		errors.Is(err, route.ErrAddressNotCached):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrInvalidState),
		errors.Is(err, driver.ErrNoInventoryPeriod),
		errors.Is(err, driver.ErrOnCallUnknown),
		errors.Is(err, route.ErrChoiceRequired):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, route.ErrUnknownChoice),
		errors.Is(err, user.ErrEmptyNote),
		errors.Is(err, user.ErrEmptyToken),
		errors.Is(err, session.ErrMissingCredentials):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, maps.ErrNoRoute):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, route.ErrNoEstimator), errors.Is(err, location.ErrNoGeoBackend):
		writeError(c, http.StatusNotImplemented, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

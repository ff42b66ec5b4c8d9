// README: Route handlers: create, progress, deactivate, order removal and the guarded advance control.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/api"
	"courier/internal/modules/route"
	"courier/internal/types"
)

type RouteService interface {
	Create(ctx context.Context, cmd route.CreateCommand) api.Event
	Progress(ctx context.Context, routeID types.ID) []api.Event
	Deactivate(ctx context.Context, routeID types.ID) api.Event
	RemoveOrder(ctx context.Context, cmd route.RemoveOrderCommand) (route.Removal, error)
	DecideAdvance(driverID types.ID) (route.Decision, error)
	Advance(ctx context.Context, driverID types.ID, choice route.Choice) (route.Decision, []api.Event, error)
	NextLegEstimate(ctx context.Context, driverID types.ID, origin types.Point) (route.Estimate, error)
}

type RouteHandler struct {
	routes RouteService
	locks  *OrderLocks
}

// NewRouteHandler takes the order handler's locks so an advance that
// completes an order waits its turn like a direct completion.
func NewRouteHandler(svc RouteService, locks *OrderLocks) *RouteHandler {
	if locks == nil {
		locks = NewOrderLocks()
	}
	return &RouteHandler{routes: svc, locks: locks}
}

func (h *RouteHandler) Create(c *gin.Context) {
	var cmd route.CreateCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !cmd.DriverID.Valid() || len(cmd.Waypoints) == 0 {
		writeError(c, http.StatusBadRequest, "driverId and waypoints are required")
		return
	}
	writeEvent(c, h.routes.Create(c.Request.Context(), cmd))
}

func (h *RouteHandler) Progress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	writeEvents(c, h.routes.Progress(c.Request.Context(), id))
}

func (h *RouteHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	writeEvent(c, h.routes.Deactivate(c.Request.Context(), id))
}

func (h *RouteHandler) RemoveOrder(c *gin.Context) {
	routeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}
	res, err := h.routes.RemoveOrder(c.Request.Context(), route.RemoveOrderCommand{RouteID: routeID, OrderID: orderID})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	status := http.StatusOK
	if last, ok := api.Last(res.Events); ok && last.Kind == api.KindFailure {
		status = http.StatusBadGateway
	}
	writeJSON(c, status, gin.H{"removal": res, "events": toEventResponses(res.Events)})
}

// Decision answers what the advance control would do right now.
func (h *RouteHandler) Decision(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dec, err := h.routes.DecideAdvance(id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, dec)
}

type advanceReq struct {
	Choice route.Choice `json:"choice"`
}

// Advance performs the decided step. A stray in-process order without a
// choice answers 409 with the prompt and the available choices.
func (h *RouteHandler) Advance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req advanceReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	if dec, err := h.routes.DecideAdvance(id); err == nil && completesOrder(dec, req.Choice) {
		if !h.locks.Acquire(dec.OrderID) {
			writeError(c, http.StatusConflict, errTransitionInFlight)
			return
		}
		defer h.locks.Release(dec.OrderID)
	}
	dec, events, err := h.routes.Advance(c.Request.Context(), id, req.Choice)
	if errors.Is(err, route.ErrChoiceRequired) {
		writeJSON(c, http.StatusConflict, gin.H{"error": err.Error(), "decision": dec})
		return
	}
	if err != nil {
		writeDomainError(c, err)
		return
	}
	status := http.StatusOK
	if last, ok := api.Last(events); ok && last.Kind == api.KindFailure {
		status = http.StatusBadGateway
	}
	writeJSON(c, status, gin.H{"decision": dec, "events": toEventResponses(events)})
}

func completesOrder(dec route.Decision, choice route.Choice) bool {
	switch dec.Step {
	case route.StepCompleteOrder:
		return true
	case route.StepChoose:
		return choice == route.ChoiceCompleteStrayFirst
	}
	return false
}

// Estimate needs the driver's current position as lat and lng query values.
func (h *RouteHandler) Estimate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	est, err := h.routes.NextLegEstimate(c.Request.Context(), id, types.Point{Lat: lat, Lng: lng})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"orderId":         est.OrderID,
		"durationSeconds": int64(est.Duration.Seconds()),
		"distance":        est.Distance,
	})
}

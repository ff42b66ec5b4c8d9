// README: Driver handlers for selection, dashboard view, on-call/active toggles and DSPR rosters.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/api"
	"courier/internal/modules/driver"
	"courier/internal/modules/store"
	"courier/internal/types"
)

type DriverService interface {
	Get(ctx context.Context, id types.ID) api.Event
	GetAllForDSPR(ctx context.Context, dsprID types.ID) api.Event
	Assign(ctx context.Context, cmd driver.AssignCommand) []api.Event
	ToggleActive(ctx context.Context, id types.ID) (api.Event, error)
	ToggleOnCall(ctx context.Context, id types.ID) (api.Event, error)
	UpdateInformation(ctx context.Context, id types.ID, values map[string]any) api.Event
	SelectDriver(id types.ID)
}

// StateReader is the read side of the root store.
type StateReader interface {
	State() store.State
}

type DriverHandler struct {
	drivers DriverService
	state   StateReader
}

func NewDriverHandler(svc DriverService, state StateReader) *DriverHandler {
	return &DriverHandler{drivers: svc, state: state}
}

// Select makes id the driver this agent acts for and loads it.
func (h *DriverHandler) Select(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.drivers.SelectDriver(id)
	writeEvent(c, h.drivers.Get(c.Request.Context(), id))
}

// Get fetches the driver and answers with the dashboard view.
func (h *DriverHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if ev := h.drivers.Get(c.Request.Context(), id); ev.Kind == api.KindFailure {
		writeEvent(c, ev)
		return
	}
	view, found := store.SelectDriverView(h.state.State(), id)
	if !found {
		writeDomainError(c, driver.ErrNotFound)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

func (h *DriverHandler) ToggleOnCall(c *gin.Context) {
	h.toggle(c, h.drivers.ToggleOnCall)
}

func (h *DriverHandler) ToggleActive(c *gin.Context) {
	h.toggle(c, h.drivers.ToggleActive)
}

func (h *DriverHandler) toggle(c *gin.Context, fn func(context.Context, types.ID) (api.Event, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ev, err := fn(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeEvent(c, ev)
}

func (h *DriverHandler) UpdateInformation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var values map[string]any
	if err := c.ShouldBindJSON(&values); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	writeEvent(c, h.drivers.UpdateInformation(c.Request.Context(), id, values))
}

// ListForDSPR loads every driver of the DSPR and answers from the cache.
func (h *DriverHandler) ListForDSPR(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if ev := h.drivers.GetAllForDSPR(c.Request.Context(), id); ev.Kind == api.KindFailure {
		writeEvent(c, ev)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"drivers": store.SelectDriversForDSPR(h.state.State(), id)})
}

type assignReq struct {
	UserID types.ID `json:"user_id"`
	OnCall *bool    `json:"on_call"`
}

func (h *DriverHandler) Assign(c *gin.Context) {
	dsprID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil || !req.UserID.Valid() {
		writeError(c, http.StatusBadRequest, "missing user_id")
		return
	}
	writeEvents(c, h.drivers.Assign(c.Request.Context(), driver.AssignCommand{
		DSPRID: dsprID,
		UserID: req.UserID,
		OnCall: req.OnCall,
	}))
}

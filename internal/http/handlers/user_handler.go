// README: User handlers for customer notes, documents, recommendations and the push token.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/api"
	"courier/internal/modules/store"
	"courier/internal/modules/user"
	"courier/internal/types"
)

type UserService interface {
	Get(ctx context.Context, id types.ID) api.Event
	CreateNote(ctx context.Context, cmd user.CreateNoteCommand) (api.Event, error)
	HideNote(ctx context.Context, noteID types.ID) api.Event
	UnhideNote(ctx context.Context, noteID types.ID) api.Event
	GetAllNotes(ctx context.Context, userID types.ID) api.Event
	GetAllIDDocuments(ctx context.Context, userID types.ID) api.Event
	GetAllMedicalRecommendations(ctx context.Context, userID types.ID) api.Event
	RegisterPushToken(ctx context.Context, token string) (api.Event, error)
}

type UserHandler struct {
	users UserService
	state StateReader
}

func NewUserHandler(svc UserService, state StateReader) *UserHandler {
	return &UserHandler{users: svc, state: state}
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if ev := h.users.Get(c.Request.Context(), id); ev.Kind == api.KindFailure {
		writeEvent(c, ev)
		return
	}
	u, found := store.SelectUser(h.state.State(), id)
	if !found {
		writeError(c, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(c, http.StatusOK, u)
}

// Notes replaces the cached notes from the service and lists them newest
// first.
func (h *UserHandler) Notes(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if ev := h.users.GetAllNotes(c.Request.Context(), id); ev.Kind == api.KindFailure {
		writeEvent(c, ev)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"notes": store.SelectUserNotes(h.state.State(), id)})
}

type noteReq struct {
	DriverID types.ID `json:"dsprDriverId"`
	Note     string   `json:"note"`
}

func (h *UserHandler) CreateNote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req noteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	ev, err := h.users.CreateNote(c.Request.Context(), user.CreateNoteCommand{UserID: id, DriverID: req.DriverID, Note: req.Note})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeEvent(c, ev)
}

func (h *UserHandler) HideNote(c *gin.Context) {
	h.byID(c, "note_id", h.users.HideNote)
}

func (h *UserHandler) UnhideNote(c *gin.Context) {
	h.byID(c, "note_id", h.users.UnhideNote)
}

func (h *UserHandler) IDDocuments(c *gin.Context) {
	h.byID(c, "id", h.users.GetAllIDDocuments)
}

func (h *UserHandler) MedicalRecommendations(c *gin.Context) {
	h.byID(c, "id", h.users.GetAllMedicalRecommendations)
}

func (h *UserHandler) byID(c *gin.Context, param string, fn func(context.Context, types.ID) api.Event) {
	id, ok := pathID(c, param)
	if !ok {
		return
	}
	writeEvent(c, fn(c.Request.Context(), id))
}

type pushTokenReq struct {
	Token string `json:"token"`
}

func (h *UserHandler) RegisterPushToken(c *gin.Context) {
	var req pushTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	ev, err := h.users.RegisterPushToken(c.Request.Context(), req.Token)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeEvent(c, ev)
}

// README: Session handlers for login, app token and logout.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/api"
)

type SessionService interface {
	Login(ctx context.Context, email, password string) ([]api.Event, error)
	AppToken(ctx context.Context) (api.Event, bool)
	Logout(ctx context.Context) error
}

type SessionHandler struct {
	session SessionService
}

func NewSessionHandler(svc SessionService) *SessionHandler {
	return &SessionHandler{session: svc}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *SessionHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	events, err := h.session.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeEvents(c, events)
}

func (h *SessionHandler) AppToken(c *gin.Context) {
	ev, sent := h.session.AppToken(c.Request.Context())
	if !sent {
		writeJSON(c, http.StatusOK, gin.H{"sent": false})
		return
	}
	writeEvent(c, ev)
}

// Logout always resets the cache; a secure-store failure is reported but
// the session is gone either way.
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.session.Logout(c.Request.Context()); err != nil {
		writeJSON(c, http.StatusOK, gin.H{"loggedOut": true, "warning": err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"loggedOut": true})
}

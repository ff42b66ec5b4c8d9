// README: State handlers expose a read-only summary of the cache and its consistency report.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/entity"
	"courier/internal/modules/store"
	"courier/internal/types"
)

type StateHandler struct {
	state StateReader
}

func NewStateHandler(state StateReader) *StateHandler {
	return &StateHandler{state: state}
}

type stateSummary struct {
	IsLoading      bool               `json:"isLoading"`
	LoggedIn       bool               `json:"loggedIn"`
	LoggedInUserID types.ID           `json:"loggedInUserId,omitempty"`
	DsprDriverID   types.ID           `json:"dsprDriverId,omitempty"`
	Counts         map[entity.Key]int `json:"counts"`
	Driver         *store.DriverView  `json:"driver,omitempty"`
}

// Summary never exposes the access token.
func (h *StateHandler) Summary(c *gin.Context) {
	s := h.state.State()
	out := stateSummary{
		IsLoading:      s.IsLoading,
		LoggedIn:       s.AccessToken != "",
		LoggedInUserID: s.LoggedInUserID,
		DsprDriverID:   s.DsprDriverID,
		Counts:         make(map[entity.Key]int, len(s.Entities)),
	}
	for k, t := range s.Entities {
		out.Counts[k] = len(t)
	}
	if view, ok := store.SelectDriverView(s, s.DsprDriverID); ok {
		out.Driver = &view
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *StateHandler) Validate(c *gin.Context) {
	errs := store.Validate(h.state.State())
	problems := make([]string, 0, len(errs))
	for _, err := range errs {
		problems = append(problems, err.Error())
	}
	writeJSON(c, http.StatusOK, gin.H{"consistent": len(problems) == 0, "problems": problems})
}

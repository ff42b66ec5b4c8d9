// README: Root client state: session identity, global loading flag and the entity cache.
package store

import (
	"courier/internal/modules/entity"
	"courier/internal/types"
)

// State is treated as an immutable value. The reducer returns new tables for
// anything it changes, so a State handed to a reader stays valid forever.
type State struct {
	AccessToken    string
	LoggedInUserID types.ID
	DsprDriverID   types.ID
	IsLoading      bool
	Entities       entity.Entities
}

func Initial() State {
	return State{Entities: entity.NewEntities()}
}

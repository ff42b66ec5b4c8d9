// README: Declarative network intents consumed by the dispatch pipeline.
package api

import (
	"net/url"

	"courier/internal/modules/entity"
	"courier/internal/types"
)

type Credentials struct {
	Username string
	Password string
}

// Intent describes one network call and how to interpret its response.
type Intent struct {
	Action   string
	Method   string
	EndPoint string
	Body     any
	Query    url.Values
	// Form switches the body to application/x-www-form-urlencoded.
	Form      url.Values
	BasicAuth *Credentials
	Schema    *entity.Shape
	// Replace lists the owned rows a successful payload supersedes.
	Replace []entity.Scope
	Effect  Effect
}

// Get and Post are shorthands for the two supported methods.
func Get(action, endPoint string, schema *entity.Shape) Intent {
	return Intent{Action: action, Method: "GET", EndPoint: endPoint, Schema: schema}
}

func Post(action, endPoint string, body any, schema *entity.Shape) Intent {
	return Intent{Action: action, Method: "POST", EndPoint: endPoint, Body: body, Schema: schema}
}

// Ref is the {"id": n} body fragment the service uses for references.
type Ref struct {
	ID types.ID `json:"id"`
}

// README: Mirror publishes applied events to NATS for out-of-process UI collaborators.
package store

import (
	"encoding/json"
	"log/slog"
	"time"

	"courier/internal/modules/api"
	"courier/internal/types"
)

// Publisher is the subset of *nats.Conn the mirror uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Mirror struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
}

// Envelope is the message body published for each event.
type Envelope struct {
	Type         string    `json:"type"`
	Event        api.Event `json:"event"`
	IsLoading    bool      `json:"isLoading"`
	DsprDriverID types.ID  `json:"dsprDriverId,omitempty"`
	LoggedIn     bool      `json:"loggedIn"`
	At           time.Time `json:"at"`
}

func NewMirror(pub Publisher, prefix string, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "courier.events"
	}
	return &Mirror{pub: pub, prefix: prefix, logger: logger}
}

// Subject is the NATS subject an event is published on.
func (m *Mirror) Subject(ev api.Event) string {
	return m.prefix + "." + ev.Type()
}

// Listener returns the store listener that performs the publishing. Publish
// errors are logged and never block the store.
func (m *Mirror) Listener() Listener {
	return func(ev api.Event, _, next State) {
		data, err := json.Marshal(Envelope{
			Type:         ev.Type(),
			Event:        ev,
			IsLoading:    next.IsLoading,
			DsprDriverID: next.DsprDriverID,
			LoggedIn:     next.AccessToken != "",
			At:           time.Now().UTC(),
		})
		if err != nil {
			m.logger.Error("encode mirrored event", slog.String("event", ev.Type()), slog.Any("error", err))
			return
		}
		if err := m.pub.Publish(m.Subject(ev), data); err != nil {
			m.logger.Warn("publish mirrored event", slog.String("event", ev.Type()), slog.Any("error", err))
		}
	}
}

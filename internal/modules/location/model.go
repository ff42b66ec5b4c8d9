// README: Location fixes delivered by the host and breadcrumb snapshots kept by the recorder.
package location

import (
	"time"

	"courier/internal/types"
)

// Fix is one coordinate sample from the device's location service.
type Fix struct {
	Point     types.Point `json:"point"`
	Accuracy  float64     `json:"accuracy,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Snapshot is a forwarded fix as stored in the breadcrumb log.
type Snapshot struct {
	ID         int64
	DriverID   types.ID
	DSPRID     types.ID
	Position   types.Point
	RecordedAt time.Time
}

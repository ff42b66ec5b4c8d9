// README: Location service is the background task handler that forwards fixes for an on-call driver.
package location

import (
	"context"
	"log/slog"
	"time"

	"courier/internal/modules/api"
	"courier/internal/modules/driver"
	"courier/internal/modules/entity"
)

// DriverSource reads the selected driver fresh on every call.
type DriverSource interface {
	SelectedDriver() (entity.DsprDriver, bool)
}

// LocationSetter is the driver-location-update intent.
type LocationSetter interface {
	SetLocation(ctx context.Context, cmd driver.LocationCommand) api.Event
}

// Recorder keeps a breadcrumb of forwarded fixes.
type Recorder interface {
	Record(ctx context.Context, snap Snapshot) error
}

type Service struct {
	drivers  DriverSource
	setter   LocationSetter
	recorder Recorder
	logger   *slog.Logger
}

// NewService builds the task handler. recorder may be nil.
func NewService(drivers DriverSource, setter LocationSetter, recorder Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{drivers: drivers, setter: setter, recorder: recorder, logger: logger}
}

// HandleFixes is registered with the task runtime. On-call status and the
// DSPR are read at delivery time, never captured at registration.
func (s *Service) HandleFixes(ctx context.Context, batch []Fix, err error) {
	if err != nil {
		s.logger.Warn("location task error", slog.Any("error", err))
		return
	}
	d, ok := s.drivers.SelectedDriver()
	if !ok || !d.IsOnCall() {
		s.logger.Debug("dropping fixes; driver not on call", slog.Int("fixes", len(batch)))
		return
	}
	fix, ok := latestFix(batch)
	if !ok {
		return
	}

	ev := s.setter.SetLocation(ctx, driver.LocationCommand{DSPRID: d.DSPR, Point: fix.Point})
	if !ev.OK() {
		return
	}
	if s.recorder == nil {
		return
	}
	snap := Snapshot{DriverID: d.ID, DSPRID: d.DSPR, Position: fix.Point, RecordedAt: fix.Timestamp}
	if snap.RecordedAt.IsZero() {
		snap.RecordedAt = time.Now().UTC()
	}
	if err := s.recorder.Record(ctx, snap); err != nil {
		s.logger.Warn("record location snapshot", slog.String("driver_id", d.ID.String()), slog.Any("error", err))
	}
}

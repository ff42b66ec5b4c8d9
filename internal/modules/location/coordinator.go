// README: Coordinator keeps the location task running exactly while the selected driver is on call.
package location

import (
	"context"
	"log/slog"

	"courier/internal/modules/api"
	"courier/internal/modules/store"
)

type Coordinator struct {
	runtime TaskRuntime
	perm    PermissionChecker
	drivers DriverSource
	opts    TaskOptions
	logger  *slog.Logger
	wake    chan struct{}
}

func NewCoordinator(rt TaskRuntime, perm PermissionChecker, drivers DriverSource, opts TaskOptions, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		runtime: rt,
		perm:    perm,
		drivers: drivers,
		opts:    opts,
		logger:  logger,
		wake:    make(chan struct{}, 1),
	}
}

// Listener wakes the coordinator after state changes. It never blocks, so
// it is safe to run inside store notification.
func (c *Coordinator) Listener() store.Listener {
	return func(_ api.Event, prev, next store.State) {
		if onCallChanged(prev, next) {
			c.Poke()
		}
	}
}

func onCallChanged(prev, next store.State) bool {
	p, pok := store.SelectSelectedDriver(prev)
	n, nok := store.SelectSelectedDriver(next)
	return pok != nok || p.IsOnCall() != n.IsOnCall()
}

// Poke schedules a reconcile, for example after the host reports a new
// permission grant.
func (c *Coordinator) Poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Reconcile starts or stops the task to match the current state. The
// runtime absorbs repeated starts and stops.
func (c *Coordinator) Reconcile(ctx context.Context) error {
	d, ok := c.drivers.SelectedDriver()
	if ok && d.IsOnCall() && c.perm.Granted(ctx) {
		return c.runtime.Start(TaskName, c.opts)
	}
	return c.runtime.Stop(TaskName)
}

// Run reconciles once, then on every wake-up until ctx is done. The task is
// stopped on return.
func (c *Coordinator) Run(ctx context.Context) error {
	c.Poke()
	for {
		select {
		case <-ctx.Done():
			if err := c.runtime.Stop(TaskName); err != nil {
				c.logger.Warn("stop location task", slog.Any("error", err))
			}
			return ctx.Err()
		case <-c.wake:
			if err := c.Reconcile(ctx); err != nil {
				c.logger.Error("reconcile location task", slog.Any("error", err))
			}
		}
	}
}

// README: Background task runtime: named tasks that receive batched location fixes.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	TaskName            = "location-tracking"
	DefaultTimeInterval = 30 * time.Second
)

var ErrUndefinedTask = errors.New("task not defined")

// Handler receives either a batch of fixes or an error.
type Handler func(ctx context.Context, batch []Fix, err error)

type TaskOptions struct {
	TimeInterval time.Duration
	// DistanceInterval drops fixes closer than this many meters to the
	// previously delivered one. Zero keeps everything.
	DistanceInterval float64
}

// TaskRuntime is the host service that owns task lifetimes. Start on a
// started task and Stop on a stopped task are no-ops.
type TaskRuntime interface {
	Define(name string, h Handler)
	Start(name string, opts TaskOptions) error
	Stop(name string) error
	Started(name string) bool
}

// Runtime is the in-process TaskRuntime. Fixes pushed with Feed are buffered
// per started task and delivered every TimeInterval.
type Runtime struct {
	mu       sync.Mutex
	handlers map[string]Handler
	tasks    map[string]*task
	logger   *slog.Logger
}

type task struct {
	opts   TaskOptions
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	pending []Fix
	err     error
	last    *Fix
}

func NewRuntime(logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		handlers: make(map[string]Handler),
		tasks:    make(map[string]*task),
		logger:   logger,
	}
}

func (r *Runtime) Define(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Runtime) Start(name string, opts TaskOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[name]; ok {
		return nil
	}
	h, ok := r.handlers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUndefinedTask, name)
	}
	if opts.TimeInterval <= 0 {
		opts.TimeInterval = DefaultTimeInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{opts: opts, cancel: cancel, done: make(chan struct{})}
	r.tasks[name] = t
	go t.loop(ctx, h)
	r.logger.Info("task started", slog.String("task", name), slog.Duration("interval", opts.TimeInterval))
	return nil
}

// Stop cancels the task and waits for an in-flight delivery to return.
func (r *Runtime) Stop(name string) error {
	r.mu.Lock()
	t, ok := r.tasks[name]
	delete(r.tasks, name)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	t.cancel()
	<-t.done
	r.logger.Info("task stopped", slog.String("task", name))
	return nil
}

func (r *Runtime) Started(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[name]
	return ok
}

// Feed hands fixes to every started task and reports how many received
// them.
func (r *Runtime) Feed(fixes ...Fix) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		t.mu.Lock()
		t.pending = append(t.pending, fixes...)
		t.mu.Unlock()
	}
	return len(r.tasks)
}

// FeedError reports a host location error to every started task.
func (r *Runtime) FeedError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
	}
}

// Close stops every task.
func (r *Runtime) Close() {
	r.mu.Lock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	r.mu.Unlock()
	for _, name := range names {
		_ = r.Stop(name)
	}
}

func (t *task) loop(ctx context.Context, h Handler) {
	defer close(t.done)
	ticker := time.NewTicker(t.opts.TimeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.flush(ctx, h)
		}
	}
}

func (t *task) flush(ctx context.Context, h Handler) {
	t.mu.Lock()
	batch := thinByDistance(t.pending, t.last, t.opts.DistanceInterval)
	t.pending = nil
	err := t.err
	t.err = nil
	if len(batch) > 0 {
		last := batch[len(batch)-1]
		t.last = &last
	}
	t.mu.Unlock()

	if err != nil {
		h(ctx, nil, err)
	}
	if len(batch) > 0 {
		h(ctx, batch, nil)
	}
}

package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultAutoRunInterval is the delay between automatic steps.
const DefaultAutoRunInterval = 4 * time.Second

// AutoRunner advances an orchestrator on a fixed interval until the chunk
// loop completes, a step fails, Stop is called, or the session is reset.
//
// Stopping never aborts an outstanding LLM call; the step in flight commits
// normally and no further step is scheduled.
type AutoRunner struct {
	o        *Orchestrator
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	err     error
	started bool
}

// NewAutoRunner creates a runner for o. A non-positive interval selects
// DefaultAutoRunInterval.
func NewAutoRunner(o *Orchestrator, interval time.Duration) *AutoRunner {
	if interval <= 0 {
		interval = DefaultAutoRunInterval
	}
	return &AutoRunner{
		o:        o,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the run loop. The first step runs immediately. Start may
// only be called once.
func (r *AutoRunner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	unregister := r.o.OnHalt(r.Stop)
	go func() {
		defer close(r.done)
		defer unregister()
		r.loop(ctx)
	}()
}

func (r *AutoRunner) loop(ctx context.Context) {
	logger := r.o.logger
	logger.Info("auto-run started", "session_id", r.o.SessionID(), "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if r.stopped() {
			logger.Info("auto-run stopped", "session_id", r.o.SessionID())
			return
		}

		kind, err := r.o.Step(ctx)
		switch {
		case errors.Is(err, ErrStepInProgress):
			// A manual step is running; try again on the next tick.
		case errors.Is(err, ErrSessionReset):
			logger.Info("auto-run stopped by reset")
			return
		case err != nil:
			r.setErr(err)
			logger.Warn("auto-run halted", "session_id", r.o.SessionID(), "error", err)
			return
		case kind == StepComplete:
			logger.Info("auto-run finished", "session_id", r.o.SessionID())
			return
		}

		select {
		case <-ctx.Done():
			r.setErr(ctx.Err())
			return
		case <-r.stop:
		case <-ticker.C:
		}
	}
}

// Stop requests the loop to end. It does not wait; use Done for that.
func (r *AutoRunner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *AutoRunner) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// Done is closed when the loop has exited.
func (r *AutoRunner) Done() <-chan struct{} {
	return r.done
}

// Err returns the error that halted the loop, if any.
func (r *AutoRunner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *AutoRunner) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Running reports whether the loop is active.
func (r *AutoRunner) Running() bool {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

package cpu

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sysim/exc"
	"github.com/sarchlab/sysim/translate"
)

var f = translate.From

// ErrTickLimit is returned by a runner that stopped at its tick budget.
var ErrTickLimit = errors.New(f("tick limit reached"))

// DefaultQuantum is how long an idle core or device sleeps between polls.
const DefaultQuantum = time.Millisecond

// Runner executes a Core until the shared halt flag is set.
type Runner struct {
	name     string
	core     Core
	halt     *atomic.Bool
	maxTicks uint64
	quantum  time.Duration
	logger   logrus.FieldLogger

	done chan struct{}
	err  error
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithName labels the runner in logs.
func WithName(name string) RunnerOption {
	return func(r *Runner) {
		r.name = name
	}
}

// WithMaxTicks stops the runner after n ticks. Zero means no limit.
func WithMaxTicks(n uint64) RunnerOption {
	return func(r *Runner) {
		r.maxTicks = n
	}
}

// WithQuantum sets the idle sleep.
func WithQuantum(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.quantum = d
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l logrus.FieldLogger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a runner for core that stops when halt is set.
func NewRunner(core Core, halt *atomic.Bool, opts ...RunnerOption) *Runner {
	r := &Runner{
		name:    "cpu0",
		core:    core,
		halt:    halt,
		quantum: DefaultQuantum,
		logger:  logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Core returns the driven core.
func (r *Runner) Core() Core {
	return r.core
}

// Start runs the core on a new goroutine.
func (r *Runner) Start() {
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		r.err = r.Run()
	}()
}

// Wait blocks until a started runner finishes and returns its error.
func (r *Runner) Wait() error {
	if r.done == nil {
		return nil
	}
	<-r.done
	return r.err
}

// Run executes the core on the calling goroutine. A contract violation
// raised by the core, or the tick budget running out, stops the runner and
// sets the halt flag; the cause is returned.
func (r *Runner) Run() (err error) {
	log := r.logger.WithField("cpu", r.name)
	log.Info("core started")

	defer func() {
		if v := recover(); v != nil {
			err = exc.AsContractViolation(v)
		}
		if err != nil {
			r.halt.Store(true)
		}

		st := r.core.Stats()
		entry := log.WithFields(logrus.Fields{
			"ticks":        st.Ticks,
			"instructions": st.Instructions,
			"exceptions":   st.Exceptions,
		})
		if err != nil {
			entry.WithError(err).Info("core stopped")
		} else {
			entry.Info("core stopped")
		}
	}()

	idler, _ := r.core.(Idler)
	var ticks uint64

	for !r.halt.Load() {
		if r.maxTicks > 0 && ticks >= r.maxTicks {
			return ErrTickLimit
		}

		r.core.Tick()
		ticks++

		if idler != nil && idler.Idle() {
			time.Sleep(r.quantum)
		}
	}

	return nil
}

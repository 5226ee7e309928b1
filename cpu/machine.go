package cpu

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Unit is an autonomous device loop. Run must return soon after halt is
// set.
type Unit interface {
	Run(halt *atomic.Bool)
}

// Machine owns the halt flag shared by every core and device goroutine.
type Machine struct {
	halt    atomic.Bool
	runners []*Runner
	units   []Unit
	wg      sync.WaitGroup
}

// NewMachine creates an empty machine.
func NewMachine() *Machine {
	return &Machine{}
}

// HaltFlag returns the shared halt flag.
func (m *Machine) HaltFlag() *atomic.Bool {
	return &m.halt
}

// AddCore attaches a core and returns its runner.
func (m *Machine) AddCore(core Core, opts ...RunnerOption) *Runner {
	r := NewRunner(core, &m.halt, opts...)
	m.runners = append(m.runners, r)
	return r
}

// AddUnit attaches a device loop.
func (m *Machine) AddUnit(u Unit) {
	m.units = append(m.units, u)
}

// Runners returns the attached runners.
func (m *Machine) Runners() []*Runner {
	return m.runners
}

// Start launches every unit and core goroutine.
func (m *Machine) Start() {
	for _, u := range m.units {
		m.wg.Add(1)
		go func(u Unit) {
			defer m.wg.Done()
			u.Run(&m.halt)
		}(u)
	}

	for _, r := range m.runners {
		r.Start()
	}
}

// Halt requests every goroutine to stop.
func (m *Machine) Halt() {
	m.halt.Store(true)
}

// Wait blocks until all cores stop, then halts and waits for the device
// loops. It returns the cores' errors joined.
func (m *Machine) Wait() error {
	var errs []error
	for _, r := range m.runners {
		if err := r.Wait(); err != nil {
			errs = append(errs, err)
		}
	}

	m.Halt()
	m.wg.Wait()

	return errors.Join(errs...)
}

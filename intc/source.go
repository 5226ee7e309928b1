// Package intc aggregates interrupt request lines into IRQ and FIQ outputs.
package intc

import "sync/atomic"

// Source is a level-sensitive interrupt request signal.
type Source interface {
	IsAsserted() bool
	Describe() string
}

// NullSource never asserts. Unconnected lines are bound to it.
type NullSource struct{}

func (NullSource) IsAsserted() bool { return false }
func (NullSource) Describe() string { return "null" }

// Flag is a Source whose level is set directly. Devices embed or own one
// and drive it from their own goroutine.
type Flag struct {
	name  string
	level atomic.Bool
}

// NewFlag returns a deasserted flag.
func NewFlag(name string) *Flag {
	return &Flag{name: name}
}

// Set drives the line to level.
func (fl *Flag) Set(level bool) {
	fl.level.Store(level)
}

func (fl *Flag) IsAsserted() bool { return fl.level.Load() }
func (fl *Flag) Describe() string { return fl.name }

// Func adapts a predicate to a Source.
type Func struct {
	Name string
	Fn   func() bool
}

func (s Func) IsAsserted() bool { return s.Fn() }
func (s Func) Describe() string { return s.Name }

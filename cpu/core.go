// Package cpu drives processor cores and autonomous devices on their own
// goroutines and coordinates their cooperative shutdown.
package cpu

// Stats holds execution counters for a core.
type Stats struct {
	// Ticks is the number of Tick calls.
	Ticks uint64
	// Instructions is the number of instructions that reached execute.
	Instructions uint64
	// Exceptions is the number of exceptions serviced, interrupts included.
	Exceptions uint64
	// Interrupts is the number of IRQ/FIQ entries.
	Interrupts uint64
	// IdleTicks is the number of ticks spent waiting for an interrupt.
	IdleTicks uint64
}

// Core is a processor that advances by one instruction (or one exception
// entry) per Tick. A Tick is atomic with respect to the runner.
type Core interface {
	Tick()
	Reset()
	Stats() Stats
}

// Idler is implemented by cores that can wait for an interrupt. While Idle
// reports true the runner sleeps one quantum between ticks.
type Idler interface {
	Idle() bool
}

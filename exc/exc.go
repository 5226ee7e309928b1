// Package exc models the exception/interrupt state shared by all CPU cores:
// the exception kinds and their fixed service priority, the single pending
// exception record, and the two error families (recoverable architectural
// faults and fatal contract violations).
package exc

import "github.com/sarchlab/sysim/translate"

var f = translate.From

// Kind identifies an exception class. Lower values have higher service
// priority.
type Kind uint8

// Exception kinds, in descending service priority.
const (
	Reset Kind = iota
	Undefined
	SupervisorCall
	PrefetchAbort
	DataAbort
	NormalInterrupt
	FastInterrupt
	numKinds
)

var kindNames = [numKinds]string{
	Reset:           "reset",
	Undefined:       "undefined-instruction",
	SupervisorCall:  "supervisor-call",
	PrefetchAbort:   "prefetch-abort",
	DataAbort:       "data-abort",
	NormalInterrupt: "normal-interrupt",
	FastInterrupt:   "fast-interrupt",
}

func (k Kind) String() string {
	if k >= numKinds {
		return f("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// IsInterrupt reports whether k is an asynchronous interrupt.
func (k Kind) IsInterrupt() bool {
	return k == NormalInterrupt || k == FastInterrupt
}

// Access is the kind of memory access that was being performed.
type Access uint8

// Memory access kinds.
const (
	AccessRead Access = iota
	AccessWrite
	AccessFetch
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessFetch:
		return "fetch"
	}
	return "?"
}

// Record describes one raised exception.
type Record struct {
	Kind Kind
	// Cause is the architecture-specific cause code (ARM fault status,
	// SWI comment field, RISC-V mcause value).
	Cause uint64
	// Addr is the faulting address or trap value, when there is one.
	Addr uint64
	// PC is the address of the instruction the exception is attributed to,
	// or of the next instruction to execute for interrupts.
	PC uint64
}

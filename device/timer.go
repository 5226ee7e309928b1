package device

import (
	"sync"
	"sync/atomic"

	"github.com/sarchlab/sysim/bus"
)

// Timer register offsets.
const (
	TimerLoad    = 0x00
	TimerValue   = 0x04
	TimerControl = 0x08
	TimerIntClr  = 0x0C
	TimerRIS     = 0x10
	TimerMIS     = 0x14
	TimerBGLoad  = 0x18
)

// CONTROL bits.
const (
	TimerOneShot   uint32 = 1 << 0
	Timer32Bit     uint32 = 1 << 1
	TimerIntEnable uint32 = 1 << 5
	TimerPeriodic  uint32 = 1 << 6
	TimerEnable    uint32 = 1 << 7

	timerPrescale      = 3 << 2
	timerPrescaleShift = 2
)

// prescaleShift is log2 of the divider selected by CONTROL[3:2]. The
// reserved encoding behaves as divide by 256.
var prescaleShift = [4]uint{0, 4, 8, 8}

// Timer is an SP804-style down counter. It raises its interrupt whenever
// the counter reaches zero, then reloads from LOAD in periodic mode, wraps
// to the maximum in free-running mode, or stops in one-shot mode.
//
// The counter is shared between the bus (core goroutine) and Run (device
// goroutine); every read-modify-write holds mu.
type Timer struct {
	name string
	cfg  config
	regs *bus.RegisterTable

	mu       sync.Mutex
	load     uint32
	value    uint32
	control  uint32
	raw      bool
	residual uint64
}

// NewTimer creates a stopped timer.
func NewTimer(name string, opts ...Option) *Timer {
	t := &Timer{name: name, cfg: newConfig(opts)}
	t.Reset()

	t.regs = bus.NewRegisterTable(name, t.cfg.logger,
		bus.Register{Name: "LOAD", Offset: TimerLoad,
			OnRead:  t.locked(func() uint32 { return t.load }),
			OnWrite: t.setLoad(true)},
		bus.Register{Name: "VALUE", Offset: TimerValue, Access: bus.ReadOnly,
			OnRead: t.Value},
		bus.Register{Name: "CONTROL", Offset: TimerControl,
			OnRead: t.locked(func() uint32 { return t.control }),
			OnWrite: func(v uint32) {
				t.mu.Lock()
				t.control = v & 0xEF
				t.mu.Unlock()
			}},
		bus.Register{Name: "INTCLR", Offset: TimerIntClr, Access: bus.WriteOnly,
			OnWrite: func(uint32) {
				t.mu.Lock()
				t.raw = false
				t.mu.Unlock()
			}},
		bus.Register{Name: "RIS", Offset: TimerRIS, Access: bus.ReadOnly,
			OnRead: t.locked(func() uint32 { return boolBit(t.raw) })},
		bus.Register{Name: "MIS", Offset: TimerMIS, Access: bus.ReadOnly,
			OnRead: t.locked(func() uint32 { return boolBit(t.maskedLocked()) })},
		bus.Register{Name: "BGLOAD", Offset: TimerBGLoad,
			OnRead:  t.locked(func() uint32 { return t.load }),
			OnWrite: t.setLoad(false)},
	)

	return t
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (t *Timer) locked(fn func() uint32) func() uint32 {
	return func() uint32 {
		t.mu.Lock()
		defer t.mu.Unlock()
		return fn()
	}
}

// setLoad returns the LOAD or BGLOAD write hook. Only LOAD restarts the
// current count.
func (t *Timer) setLoad(restart bool) func(uint32) {
	return func(v uint32) {
		t.mu.Lock()
		defer t.mu.Unlock()

		t.load = v
		if restart {
			t.value = v & t.maskLocked()
			t.residual = 0
		}
	}
}

// Reset stops the timer and restores its power-on register values.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.load = 0
	t.value = 0xFFFFFFFF
	t.control = TimerIntEnable
	t.raw = false
	t.residual = 0
}

// Registers returns the timer's memory-mapped interface.
func (t *Timer) Registers() *bus.RegisterTable {
	return t.regs
}

// Value returns the current count.
func (t *Timer) Value() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value & t.maskLocked()
}

func (t *Timer) maskLocked() uint32 {
	if t.control&Timer32Bit != 0 {
		return 0xFFFFFFFF
	}
	return 0xFFFF
}

func (t *Timer) maskedLocked() bool {
	return t.raw && t.control&TimerIntEnable != 0
}

// IsAsserted implements intc.Source.
func (t *Timer) IsAsserted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maskedLocked()
}

// Describe implements intc.Source.
func (t *Timer) Describe() string {
	return t.name
}

// Advance counts n input clock ticks through the prescaler.
func (t *Timer) Advance(n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.control&TimerEnable == 0 {
		return
	}

	shift := prescaleShift[t.control&timerPrescale>>timerPrescaleShift]
	total := t.residual + n
	t.residual = total & (1<<shift - 1)
	n = total >> shift

	mask := t.maskLocked()
	for n > 0 {
		cur := uint64(t.value & mask)
		if n < cur {
			t.value = uint32(cur - n)
			return
		}

		n -= cur
		t.raw = true

		switch {
		case t.control&TimerOneShot != 0:
			t.value = 0
			t.control &^= TimerEnable
			return
		case t.control&TimerPeriodic != 0:
			t.value = t.load & mask
		default:
			t.value = mask
		}

		if t.value == 0 {
			return
		}
	}
}

// Run advances the counter once per quantum until halt is set.
func (t *Timer) Run(halt *atomic.Bool) {
	t.cfg.logger.WithField("device", t.name).Debug("timer loop started")
	runEvery(halt, t.cfg.quantum, func() { t.Advance(t.cfg.ticks) })
}

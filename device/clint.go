package device

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/sarchlab/sysim/intc"
)

// CLINT register offsets.
const (
	CLINTMsip     = 0x0000
	CLINTMtimecmp = 0x4000
	CLINTMtime    = 0xBFF8

	// CLINTSize is the span of the register window.
	CLINTSize = 0x10000
)

type clintReg uint8

const (
	regNone clintReg = iota
	regMsip
	regMtimecmp
	regMtime
)

// CLINT is the RISC-V core-local interruptor: one software interrupt bit
// and one timer compare register per hart against a shared mtime.
//
// It is a bus.Device of its own rather than a RegisterTable so that 64-bit
// accesses to mtime and mtimecmp are atomic.
type CLINT struct {
	name string
	cfg  config

	mu       sync.Mutex
	msip     []bool
	mtimecmp []uint64
	mtime    uint64
}

// MaxHarts is the widest CLINT the register layout can address.
const MaxHarts = 4095

// NewCLINT creates a CLINT serving harts harts. A count outside
// [1, MaxHarts] is a wiring mistake and panics.
func NewCLINT(name string, harts int, opts ...Option) *CLINT {
	if harts <= 0 || harts > MaxHarts {
		panic(f("%v: hart count %d out of range", name, harts))
	}

	c := &CLINT{
		name:     name,
		cfg:      newConfig(opts),
		msip:     make([]bool, harts),
		mtimecmp: make([]uint64, harts),
	}
	c.Reset()
	return c
}

// Harts returns the number of harts served.
func (c *CLINT) Harts() int {
	return len(c.msip)
}

// Reset clears every software interrupt and parks the compare registers.
func (c *CLINT) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mtime = 0
	for i := range c.msip {
		c.msip[i] = false
		c.mtimecmp[i] = math.MaxUint64
	}
}

// Time returns mtime.
func (c *CLINT) Time() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mtime
}

// Advance moves mtime forward by n ticks.
func (c *CLINT) Advance(n uint64) {
	c.mu.Lock()
	c.mtime += n
	c.mu.Unlock()
}

// Timer returns the machine timer interrupt line of hart.
func (c *CLINT) Timer(hart int) intc.Source {
	return intc.Func{
		Name: f("%v.mtip%d", c.name, hart),
		Fn: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.mtime >= c.mtimecmp[hart]
		},
	}
}

// Software returns the machine software interrupt line of hart.
func (c *CLINT) Software(hart int) intc.Source {
	return intc.Func{
		Name: f("%v.msip%d", c.name, hart),
		Fn: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.msip[hart]
		},
	}
}

// Run advances mtime once per quantum until halt is set.
func (c *CLINT) Run(halt *atomic.Bool) {
	c.cfg.logger.WithField("device", c.name).Debug("clint loop started")
	runEvery(halt, c.cfg.quantum, func() { c.Advance(c.cfg.ticks) })
}

// locate maps offset to a register, the hart it belongs to and whether
// it addresses the upper half of a 64-bit register.
func (c *CLINT) locate(offset uint64) (clintReg, int, bool) {
	harts := uint64(len(c.msip))
	switch {
	case offset < CLINTMsip+4*harts:
		return regMsip, int(offset / 4), false
	case offset >= CLINTMtimecmp && offset < CLINTMtimecmp+8*harts:
		rel := offset - CLINTMtimecmp
		return regMtimecmp, int(rel / 8), rel%8 == 4
	case offset == CLINTMtime || offset == CLINTMtime+4:
		return regMtime, 0, offset == CLINTMtime+4
	}
	return regNone, 0, false
}

func (c *CLINT) accepts(offset uint64, size int) bool {
	reg, _, _ := c.locate(offset)
	switch size {
	case 4:
		return reg != regNone && offset%4 == 0
	case 8:
		return (reg == regMtimecmp || reg == regMtime) && offset%8 == 0
	}
	return false
}

// TryRead implements bus.Device.
func (c *CLINT) TryRead(offset uint64, size int) bool {
	return c.accepts(offset, size)
}

// TryWrite implements bus.Device.
func (c *CLINT) TryWrite(offset uint64, size int) bool {
	return c.accepts(offset, size)
}

func (c *CLINT) read64Locked(reg clintReg, hart int) uint64 {
	switch reg {
	case regMsip:
		return uint64(boolBit(c.msip[hart]))
	case regMtimecmp:
		return c.mtimecmp[hart]
	case regMtime:
		return c.mtime
	}
	return 0
}

func (c *CLINT) write64Locked(reg clintReg, hart int, v uint64) {
	switch reg {
	case regMsip:
		c.msip[hart] = v&1 != 0
	case regMtimecmp:
		c.mtimecmp[hart] = v
	case regMtime:
		c.mtime = v
	}
}

func (c *CLINT) Read8(uint64) uint8   { return 0 }
func (c *CLINT) Read16(uint64) uint16 { return 0 }

func (c *CLINT) Read32(offset uint64) uint32 {
	reg, hart, upper := c.locate(offset)

	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.read64Locked(reg, hart)
	if upper {
		return uint32(v >> 32)
	}
	return uint32(v)
}

func (c *CLINT) Read64(offset uint64) uint64 {
	reg, hart, _ := c.locate(offset)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read64Locked(reg, hart)
}

func (c *CLINT) Write8(uint64, uint8)   {}
func (c *CLINT) Write16(uint64, uint16) {}

// Write32 replaces one half of a 64-bit register.
func (c *CLINT) Write32(offset uint64, v uint32) {
	reg, hart, upper := c.locate(offset)

	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.read64Locked(reg, hart)
	if upper {
		cur = cur&0xFFFFFFFF | uint64(v)<<32
	} else {
		cur = cur&^0xFFFFFFFF | uint64(v)
	}
	if reg == regMsip {
		cur = uint64(v)
	}
	c.write64Locked(reg, hart, cur)
}

func (c *CLINT) Write64(offset uint64, v uint64) {
	reg, hart, _ := c.locate(offset)

	c.mu.Lock()
	c.write64Locked(reg, hart, v)
	c.mu.Unlock()
}

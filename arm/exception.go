package arm

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sysim/exc"
)

type vector struct {
	offset  uint32
	mode    Mode
	maskFIQ bool
}

var vectors = [...]vector{
	exc.Reset:           {0x00, ModeSVC, true},
	exc.Undefined:       {0x04, ModeUndef, false},
	exc.SupervisorCall:  {0x08, ModeSVC, false},
	exc.PrefetchAbort:   {0x0C, ModeAbort, false},
	exc.DataAbort:       {0x10, ModeAbort, false},
	exc.NormalInterrupt: {0x18, ModeIRQ, false},
	exc.FastInterrupt:   {0x1C, ModeFIQ, true},
}

// returnAddress is the value the handler finds in its banked LR.
func (c *Core) returnAddress(r exc.Record) uint32 {
	pc := uint32(r.PC)
	size := uint32(4)
	if c.rf.Thumb() {
		size = 2
	}

	switch r.Kind {
	case exc.Undefined, exc.SupervisorCall:
		return pc + size
	case exc.PrefetchAbort:
		return pc + 4
	case exc.DataAbort:
		return pc + 8
	case exc.NormalInterrupt, exc.FastInterrupt:
		return pc + 4
	}
	return 0
}

// enter performs exception entry: the old CPSR goes to the new mode's SPSR,
// the return address to its LR, and execution continues at the vector in
// ARM state with IRQs (and for reset and FIQ, FIQs) masked.
func (c *Core) enter(r exc.Record) {
	c.stats.Exceptions++
	c.waiting = false

	v := vectors[r.Kind]
	saved := c.rf.CPSR()
	lr := c.returnAddress(r)

	next := saved.WithMode(v.mode).With(PSRI, true).With(PSRT, false)
	if v.maskFIQ {
		next = next.With(PSRF, true)
	}

	c.rf.SetCPSR(next)
	c.rf.SetSPSR(saved)
	c.rf.SetR(14, lr)
	c.rf.SetPC(c.cp15.VectorBase() + v.offset)
	c.rf.ClearBranched()

	c.logger.WithFields(logrus.Fields{
		"kind":  r.Kind.String(),
		"pc":    sprintf("%08x", uint32(r.PC)),
		"cause": r.Cause,
		"addr":  sprintf("%08x", uint32(r.Addr)),
	}).Debug("exception taken")
}

// undefined raises the undefined-instruction exception for w at the
// executing address.
func (c *Core) undefined(word uint32) {
	c.exc.Raise(exc.Record{Kind: exc.Undefined, Cause: uint64(word), PC: uint64(c.rf.PC())})
}

// dataAbort records the fault in CP15 and raises a data abort.
func (c *Core) dataAbort(va, fsr uint32, access exc.Access) {
	c.cp15.DFSR = fsr
	if access == exc.AccessWrite {
		c.cp15.DFSR |= 1 << 11
	}
	c.cp15.FAR = va
	c.exc.Raise(exc.Record{
		Kind:  exc.DataAbort,
		Cause: uint64(fsr),
		Addr:  uint64(va),
		PC:    uint64(c.rf.PC()),
	})
}

// prefetchAbort records the fault in CP15 and raises a prefetch abort.
func (c *Core) prefetchAbort(va, fsr uint32) {
	c.cp15.IFSR = fsr
	c.exc.Raise(exc.Record{
		Kind:  exc.PrefetchAbort,
		Cause: uint64(fsr),
		Addr:  uint64(va),
		PC:    uint64(c.rf.PC()),
	})
}

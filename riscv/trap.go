package riscv

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sysim/exc"
	"github.com/sarchlab/sysim/insts"
)

// kindOf classifies a synchronous cause for the exception unit.
func kindOf(cause uint64) exc.Kind {
	switch cause {
	case CauseIllegal:
		return exc.Undefined
	case CauseUserECall, CauseSupervisorECall, CauseMachineECall:
		return exc.SupervisorCall
	case CauseFetchMisaligned, CauseFetchAccess, CauseFetchPage, CauseBreakpoint:
		return exc.PrefetchAbort
	}
	return exc.DataAbort
}

// fault raises a synchronous exception for the executing instruction.
func (c *Core) fault(cause, tval uint64) {
	c.exc.Raise(exc.Record{Kind: kindOf(cause), Cause: cause, Addr: tval, PC: c.rf.pc})
}

func (c *Core) illegal(w insts.RVWord) {
	c.fault(CauseIllegal, uint64(w))
}

func trapVector(tvec, code uint64, interrupt bool) uint64 {
	base := tvec &^ 3
	if interrupt && tvec&3 == 1 {
		return base + 4*code
	}
	return base
}

// trap enters the handler for r, in supervisor mode when the cause is
// delegated and the hart is not running in machine mode.
func (c *Core) trap(r exc.Record) {
	c.stats.Exceptions++
	c.waiting = false
	c.reservationValid = false

	if r.Kind == exc.Reset {
		c.reset()
		return
	}

	interrupt := r.Kind.IsInterrupt()
	code := r.Cause
	cause := code
	deleg := c.csr.Medeleg
	if interrupt {
		cause |= causeInterrupt
		deleg = c.csr.Mideleg
	}

	from := c.priv
	f := &c.csr
	if from <= PrivSupervisor && deleg>>code&1 != 0 {
		f.Sepc = r.PC
		f.Scause = cause
		f.Stval = r.Addr
		f.set(StatusSPIE, f.has(StatusSIE))
		f.set(StatusSIE, false)
		f.set(StatusSPP, from == PrivSupervisor)
		c.priv = PrivSupervisor
		c.rf.pc = trapVector(f.Stvec, code, interrupt)
	} else {
		f.Mepc = r.PC
		f.Mcause = cause
		f.Mtval = r.Addr
		f.set(StatusMPIE, f.has(StatusMIE))
		f.set(StatusMIE, false)
		f.setMPP(from)
		c.priv = PrivMachine
		c.rf.pc = trapVector(f.Mtvec, code, interrupt)
	}

	c.logger.WithFields(logrus.Fields{
		"kind":  r.Kind.String(),
		"cause": cause,
		"epc":   sprintf("%016x", r.PC),
		"tval":  sprintf("%x", r.Addr),
		"from":  from.String(),
		"to":    c.priv.String(),
	}).Debug("trap taken")
}

func (c *Core) reset() {
	c.rf.reset()
	c.csr.reset()
	c.mmu.Flush()
	c.priv = PrivMachine
	c.rf.pc = c.resetPC
	c.rf.SetX(10, c.hartID)

	c.logger.WithField("pc", sprintf("%016x", c.resetPC)).Debug("hart reset")
}

// mret returns from a machine trap.
func (c *Core) mret() {
	f := &c.csr
	prev := f.MPP()

	f.set(StatusMIE, f.has(StatusMPIE))
	f.set(StatusMPIE, true)
	f.setMPP(PrivUser)
	if prev != PrivMachine {
		f.set(StatusMPRV, false)
	}

	c.priv = prev
	c.next = f.Mepc
}

// sret returns from a supervisor trap.
func (c *Core) sret() {
	f := &c.csr
	prev := PrivUser
	if f.has(StatusSPP) {
		prev = PrivSupervisor
	}

	f.set(StatusSIE, f.has(StatusSPIE))
	f.set(StatusSPIE, true)
	f.set(StatusSPP, false)
	f.set(StatusMPRV, false)

	c.priv = prev
	c.next = f.Sepc
}

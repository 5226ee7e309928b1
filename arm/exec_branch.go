package arm

import (
	"github.com/sarchlab/sysim/exc"
	"github.com/sarchlab/sysim/insts"
)

// branchText renders a branch target relative to the instruction address.
func branchText(offset int32) string {
	return sprintf("pc%+#x", offset)
}

func execBranch(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	link := insts.DecodeARM(uint32(w)).Op == insts.OpBL
	off := w.BranchOffset()

	if dis != nil {
		dis.Mnemonic = "b"
		if link {
			dis.Mnemonic = "bl"
		}
		dis.Mnemonic += condSuffix(w)
		dis.Operands = branchText(off + 8)
		return
	}

	if link {
		c.rf.SetR(14, c.rf.PC()+4)
	}
	c.rf.SetR(15, c.rf.R(15)+uint32(off))
}

func execBX(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	link := insts.DecodeARM(uint32(w)).Op == insts.OpBLXReg
	rm := w.Rm()

	if dis != nil {
		dis.Mnemonic = "bx"
		if link {
			dis.Mnemonic = "blx"
		}
		dis.Mnemonic += condSuffix(w)
		dis.Operands = regName(rm)
		return
	}

	target := c.rf.R(rm)
	if link {
		c.rf.SetR(14, c.rf.PC()+4)
	}
	c.branchExchange(target)
}

func execBLXImm(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	off := w.BLXOffset()

	if dis != nil {
		dis.Mnemonic = "blx"
		dis.Operands = branchText(off + 8)
		return
	}

	target := c.rf.R(15) + uint32(off)
	c.rf.SetR(14, c.rf.PC()+4)
	c.rf.SetCPSR(c.rf.CPSR().With(PSRT, true))
	c.rf.SetR(15, target)
}

func execSWI(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "swi" + condSuffix(w)
		dis.Operands = sprintf("%#x", w.Comment())
		return
	}

	c.exc.Raise(exc.Record{
		Kind:  exc.SupervisorCall,
		Cause: uint64(w.Comment()),
		PC:    uint64(c.rf.PC()),
	})
}

func execBKPT(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "bkpt"
		dis.Operands = sprintf("%#x", w.BKPTImm())
		return
	}

	c.breakpoint()
}

// breakpoint raises the prefetch abort that BKPT reports as a debug event.
func (c *Core) breakpoint() {
	pc := c.rf.PC()
	c.cp15.IFSR = FaultDebug
	c.exc.Raise(exc.Record{
		Kind:  exc.PrefetchAbort,
		Cause: uint64(FaultDebug),
		Addr:  uint64(pc),
		PC:    uint64(pc),
	})
}

func execCoprocessor(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	read := insts.DecodeARM(uint32(w)).Op == insts.OpMRC
	rd := w.Rd()
	op := cpOp{crn: w.CRn(), crm: w.CRm(), op2: w.CPOpc2()}

	if dis != nil {
		dis.Mnemonic = "mcr"
		if read {
			dis.Mnemonic = "mrc"
		}
		dis.Mnemonic += condSuffix(w)
		dis.Operands = sprintf("p%d, %d, %s, c%d, c%d, %d",
			w.CPNum(), w.CPOpc1(), regName(rd), op.crn, op.crm, op.op2)
		return
	}

	if c.userMode() || w.CPOpc1() != 0 {
		c.undefined(uint32(w))
		return
	}

	if !read {
		if !c.mcr(op, c.rf.R(rd)) {
			c.undefined(uint32(w))
		}
		return
	}

	v, ok := c.mrc(op)
	if !ok {
		c.undefined(uint32(w))
		return
	}
	if rd == 15 {
		cpsr := c.rf.CPSR()
		c.rf.SetCPSR(cpsr&^(PSRN|PSRZ|PSRC|PSRV) | PSR(v)&(PSRN|PSRZ|PSRC|PSRV))
		return
	}
	c.rf.SetR(rd, v)
}

func execPLD(_ *Core, w insts.ARMWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "pld"
		dis.Operands = sprintf("[%s]", regName(w.Rn()))
	}
}

func execUndefined(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "undefined"
		dis.Operands = sprintf("%#08x", uint32(w))
		return
	}

	c.undefined(uint32(w))
}

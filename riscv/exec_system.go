package riscv

import (
	"github.com/sarchlab/sysim/insts"
)

func execECall(c *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "ecall"
		return
	}

	c.fault(CauseUserECall+uint64(c.priv), 0)
}

func execEBreak(c *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "ebreak"
		return
	}

	c.fault(CauseBreakpoint, c.rf.pc)
}

func execMRET(c *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "mret"
		return
	}

	if c.priv != PrivMachine {
		c.illegal(w)
		return
	}
	c.mret()
}

func execSRET(c *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "sret"
		return
	}

	if c.priv == PrivUser || c.priv == PrivSupervisor && c.csr.has(StatusTSR) {
		c.illegal(w)
		return
	}
	c.sret()
}

func execWFI(c *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "wfi"
		return
	}

	if c.priv == PrivUser || c.priv == PrivSupervisor && c.csr.has(StatusTW) {
		c.illegal(w)
		return
	}
	c.waiting = true
}

func execSFenceVMA(c *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "sfence.vma"
		dis.Operands = sprintf("%s, %s", regName(w.Rs1()), regName(w.Rs2()))
		return
	}

	if c.priv == PrivUser || c.priv == PrivSupervisor && c.csr.has(StatusTVM) {
		c.illegal(w)
		return
	}

	if w.Rs1() == 0 {
		c.mmu.Flush()
		return
	}
	c.mmu.FlushPage(c.rf.X(w.Rs1()))
}

func execCSR(c *Core, w insts.RVWord, dis *insts.Disasm) {
	op := opOf(w)
	immediate := op >= insts.OpRVCSRRWI
	n := w.CSR()

	if dis != nil {
		src := regName(w.Rs1())
		if immediate {
			src = sprintf("%d", w.Rs1())
		}
		dis.Mnemonic = op.String()
		dis.Operands = sprintf("%s, %s, %s", regName(w.Rd()), csrName(n), src)
		return
	}

	src := uint64(w.Rs1())
	if !immediate {
		src = c.rf.X(w.Rs1())
	}

	old, ok := c.readCSR(n)
	if !ok {
		c.illegal(w)
		return
	}

	var v uint64
	write := true
	switch op {
	case insts.OpRVCSRRW, insts.OpRVCSRRWI:
		v = src
	case insts.OpRVCSRRS, insts.OpRVCSRRSI:
		v = old | src
		write = w.Rs1() != 0
	default:
		v = old &^ src
		write = w.Rs1() != 0
	}

	if write && !c.writeCSR(n, v) {
		c.illegal(w)
		return
	}
	c.rf.SetX(w.Rd(), old)
}

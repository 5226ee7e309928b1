package arm

import (
	"math/bits"

	"github.com/sarchlab/sysim/alu"
	"github.com/sarchlab/sysim/insts"
)

type armHandler func(c *Core, w insts.ARMWord, dis *insts.Disasm)

var armHandlers [insts.NumOps]armHandler

func init() {
	for op := range armHandlers {
		armHandlers[op] = execUndefined
	}

	for op := insts.OpAND; op <= insts.OpMVN; op++ {
		armHandlers[op] = execDataProcessing
	}

	armHandlers[insts.OpMRS] = execMRS
	armHandlers[insts.OpMSR] = execMSR
	armHandlers[insts.OpMUL] = execMultiply
	armHandlers[insts.OpMLA] = execMultiply
	armHandlers[insts.OpUMULL] = execMultiplyLong
	armHandlers[insts.OpUMLAL] = execMultiplyLong
	armHandlers[insts.OpSMULL] = execMultiplyLong
	armHandlers[insts.OpSMLAL] = execMultiplyLong
	armHandlers[insts.OpCLZ] = execCLZ

	armHandlers[insts.OpSWP] = execSWP
	armHandlers[insts.OpLDR] = execSingleTransfer
	armHandlers[insts.OpSTR] = execSingleTransfer
	armHandlers[insts.OpLDRH] = execHalfTransfer
	armHandlers[insts.OpSTRH] = execHalfTransfer
	armHandlers[insts.OpLDRSB] = execHalfTransfer
	armHandlers[insts.OpLDRSH] = execHalfTransfer
	armHandlers[insts.OpLDRD] = execDoubleTransfer
	armHandlers[insts.OpSTRD] = execDoubleTransfer
	armHandlers[insts.OpLDM] = execBlockTransfer
	armHandlers[insts.OpSTM] = execBlockTransfer

	armHandlers[insts.OpB] = execBranch
	armHandlers[insts.OpBL] = execBranch
	armHandlers[insts.OpBX] = execBX
	armHandlers[insts.OpBLXReg] = execBX
	armHandlers[insts.OpBLXImm] = execBLXImm
	armHandlers[insts.OpSWI] = execSWI
	armHandlers[insts.OpBKPT] = execBKPT
	armHandlers[insts.OpMRC] = execCoprocessor
	armHandlers[insts.OpMCR] = execCoprocessor
	armHandlers[insts.OpPLD] = execPLD
}

// writeResult writes a data-processing result. r15 destinations keep the
// current state's alignment.
func (c *Core) writeResult(rd int, v uint32) {
	if rd == 15 {
		if c.rf.Thumb() {
			v &^= 1
		} else {
			v &^= 3
		}
	}
	c.rf.SetR(rd, v)
}

// branchExchange jumps to v, selecting Thumb state from bit 0.
func (c *Core) branchExchange(v uint32) {
	cpsr := c.rf.CPSR()
	if v&1 != 0 {
		c.rf.SetCPSR(cpsr.With(PSRT, true))
		c.rf.SetR(15, v&^1)
		return
	}
	c.rf.SetCPSR(cpsr.With(PSRT, false))
	c.rf.SetR(15, v&^3)
}

// restoreCPSR copies the SPSR into the CPSR on exception return.
func (c *Core) restoreCPSR() {
	if c.rf.HasSPSR() {
		c.rf.SetCPSR(c.rf.SPSR())
	}
}

func isTest(op insts.Op) bool {
	return op >= insts.OpTST && op <= insts.OpCMN
}

func execDataProcessing(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	op := insts.OpAND + insts.Op(w.DPOpcode())
	rd, rn := w.Rd(), w.Rn()
	sh := w.DPShifter()

	if dis != nil {
		s := ""
		if w.S() && !isTest(op) {
			s = "s"
		}
		dis.Mnemonic = op.String() + condSuffix(w) + s
		switch {
		case isTest(op):
			dis.Operands = sprintf("%s, %s", regName(rn), shifterText(sh))
		case op == insts.OpMOV || op == insts.OpMVN:
			dis.Operands = sprintf("%s, %s", regName(rd), shifterText(sh))
		default:
			dis.Operands = sprintf("%s, %s, %s", regName(rd), regName(rn), shifterText(sh))
		}
		return
	}

	a := c.rf.R(rn)
	if sh.ByReg && rn == 15 {
		a += 4
	}
	b, shCarry := c.shifterOperand(sh)

	cpsr := c.rf.CPSR()
	carry, overflow := shCarry, cpsr.V()
	var res uint32

	switch op {
	case insts.OpAND, insts.OpTST:
		res = a & b
	case insts.OpEOR, insts.OpTEQ:
		res = a ^ b
	case insts.OpORR:
		res = a | b
	case insts.OpMOV:
		res = b
	case insts.OpBIC:
		res = a &^ b
	case insts.OpMVN:
		res = ^b
	case insts.OpSUB, insts.OpCMP:
		var borrow bool
		res, borrow, overflow = alu.Sub(a, b, false)
		carry = !borrow
	case insts.OpRSB:
		var borrow bool
		res, borrow, overflow = alu.Sub(b, a, false)
		carry = !borrow
	case insts.OpADD, insts.OpCMN:
		res, carry, overflow = alu.Add(a, b, false)
	case insts.OpADC:
		res, carry, overflow = alu.Add(a, b, cpsr.C())
	case insts.OpSBC:
		var borrow bool
		res, borrow, overflow = alu.Sub(a, b, !cpsr.C())
		carry = !borrow
	case insts.OpRSC:
		var borrow bool
		res, borrow, overflow = alu.Sub(b, a, !cpsr.C())
		carry = !borrow
	}

	if !isTest(op) {
		if rd == 15 && w.S() {
			c.restoreCPSR()
			c.writeResult(rd, res)
			return
		}
		c.writeResult(rd, res)
	}

	if !w.S() {
		return
	}
	c.rf.SetCPSR(cpsr.WithNZCV(alu.Negative(res), res == 0, carry, overflow))
}

// PSR field mask bytes selected by MSR.
var psrFieldBytes = [4]uint32{0x000000FF, 0x0000FF00, 0x00FF0000, 0xFF000000}

func execMRS(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	rd := w.Rd()
	src := "cpsr"
	if w.B() {
		src = "spsr"
	}

	if dis != nil {
		dis.Mnemonic = "mrs" + condSuffix(w)
		dis.Operands = sprintf("%s, %s", regName(rd), src)
		return
	}

	v := c.rf.CPSR()
	if w.B() {
		v = c.rf.SPSR()
	}
	c.rf.SetR(rd, uint32(v))
}

func execMSR(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	fields := w.FieldMask()
	var mask uint32
	for i, m := range psrFieldBytes {
		if fields&(1<<i) != 0 {
			mask |= m
		}
	}

	if dis != nil {
		dst := "cpsr_"
		if w.B() {
			dst = "spsr_"
		}
		for i, f := range "cxsf" {
			if fields&(1<<i) != 0 {
				dst += string(f)
			}
		}
		src := regName(w.Rm())
		if w.I() {
			src = shifterText(w.DPShifter())
		}
		dis.Mnemonic = "msr" + condSuffix(w)
		dis.Operands = dst + ", " + src
		return
	}

	v := c.rf.R(w.Rm())
	if w.I() {
		v = w.DPShifter().Value()
	}

	if w.B() {
		if c.rf.HasSPSR() {
			old := uint32(c.rf.SPSR())
			c.rf.SetSPSR(PSR(old&^mask | v&mask))
		}
		return
	}

	if !c.rf.Mode().Privileged() {
		mask &= psrFieldBytes[3]
	}
	// The T bit is not writable through MSR.
	mask &^= uint32(PSRT)

	old := uint32(c.rf.CPSR())
	c.rf.SetCPSR(PSR(old&^mask | v&mask))
}

func execMultiply(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	rd, rn, rs, rm := w.Rn(), w.Rd(), w.Rs(), w.Rm()
	acc := w.W()

	if dis != nil {
		s := ""
		if w.S() {
			s = "s"
		}
		if acc {
			dis.Mnemonic = "mla" + condSuffix(w) + s
			dis.Operands = sprintf("%s, %s, %s, %s", regName(rd), regName(rm), regName(rs), regName(rn))
		} else {
			dis.Mnemonic = "mul" + condSuffix(w) + s
			dis.Operands = sprintf("%s, %s, %s", regName(rd), regName(rm), regName(rs))
		}
		return
	}

	res := c.rf.R(rm) * c.rf.R(rs)
	if acc {
		res += c.rf.R(rn)
	}
	c.rf.SetR(rd, res)

	if w.S() {
		c.rf.SetCPSR(c.rf.CPSR().WithNZ(res))
	}
}

func execMultiplyLong(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	hi, lo, rs, rm := w.RdHi(), w.RdLo(), w.Rs(), w.Rm()
	signed, acc := w.B(), w.W()

	if dis != nil {
		name := [2][2]string{{"umull", "umlal"}, {"smull", "smlal"}}[b2i(signed)][b2i(acc)]
		s := ""
		if w.S() {
			s = "s"
		}
		dis.Mnemonic = name + condSuffix(w) + s
		dis.Operands = sprintf("%s, %s, %s, %s", regName(lo), regName(hi), regName(rm), regName(rs))
		return
	}

	var res uint64
	if signed {
		res = uint64(int64(int32(c.rf.R(rm))) * int64(int32(c.rf.R(rs))))
	} else {
		res = uint64(c.rf.R(rm)) * uint64(c.rf.R(rs))
	}
	if acc {
		res += uint64(c.rf.R(hi))<<32 | uint64(c.rf.R(lo))
	}

	c.rf.SetR(lo, uint32(res))
	c.rf.SetR(hi, uint32(res>>32))

	if w.S() {
		c.rf.SetCPSR(c.rf.CPSR().With(PSRN, res>>63 != 0).With(PSRZ, res == 0))
	}
}

func execCLZ(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	rd, rm := w.Rd(), w.Rm()

	if dis != nil {
		dis.Mnemonic = "clz" + condSuffix(w)
		dis.Operands = sprintf("%s, %s", regName(rd), regName(rm))
		return
	}

	c.rf.SetR(rd, uint32(bits.LeadingZeros32(c.rf.R(rm))))
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

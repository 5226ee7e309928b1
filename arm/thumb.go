package arm

import (
	"github.com/sarchlab/sysim/alu"
	"github.com/sarchlab/sysim/bitfield"
	"github.com/sarchlab/sysim/exc"
	"github.com/sarchlab/sysim/insts"
)

type thumbHandler func(c *Core, w insts.ThumbWord, dis *insts.Disasm)

var thumbHandlers [insts.NumOps]thumbHandler

func init() {
	for op := range thumbHandlers {
		thumbHandlers[op] = thumbUndefined
	}

	for _, op := range []insts.Op{insts.OpThumbLSLImm, insts.OpThumbLSRImm, insts.OpThumbASRImm} {
		thumbHandlers[op] = thumbShiftImm
	}
	for _, op := range []insts.Op{
		insts.OpThumbADDReg, insts.OpThumbSUBReg, insts.OpThumbADDImm3, insts.OpThumbSUBImm3,
	} {
		thumbHandlers[op] = thumbAddSub
	}
	for _, op := range []insts.Op{
		insts.OpThumbMOVImm, insts.OpThumbCMPImm, insts.OpThumbADDImm8, insts.OpThumbSUBImm8,
	} {
		thumbHandlers[op] = thumbImm8
	}
	for op := insts.OpThumbAND; op <= insts.OpThumbMVN; op++ {
		thumbHandlers[op] = thumbALU
	}
	for _, op := range []insts.Op{
		insts.OpThumbADDHi, insts.OpThumbCMPHi, insts.OpThumbMOVHi,
	} {
		thumbHandlers[op] = thumbHiReg
	}
	thumbHandlers[insts.OpThumbBX] = thumbBX
	thumbHandlers[insts.OpThumbBLX] = thumbBX

	thumbHandlers[insts.OpThumbLDRPC] = thumbLoadLiteral
	for _, op := range []insts.Op{
		insts.OpThumbSTRReg, insts.OpThumbSTRBReg, insts.OpThumbLDRReg, insts.OpThumbLDRBReg,
		insts.OpThumbSTRHReg, insts.OpThumbLDRSBReg, insts.OpThumbLDRHReg, insts.OpThumbLDRSHReg,
		insts.OpThumbSTRImm, insts.OpThumbLDRImm, insts.OpThumbSTRBImm, insts.OpThumbLDRBImm,
		insts.OpThumbSTRHImm, insts.OpThumbLDRHImm, insts.OpThumbSTRSP, insts.OpThumbLDRSP,
	} {
		thumbHandlers[op] = thumbTransfer
	}

	thumbHandlers[insts.OpThumbADDPC] = thumbAddress
	thumbHandlers[insts.OpThumbADDSP] = thumbAddress
	thumbHandlers[insts.OpThumbADJSP] = thumbAdjustSP
	thumbHandlers[insts.OpThumbPUSH] = thumbPushPop
	thumbHandlers[insts.OpThumbPOP] = thumbPushPop
	thumbHandlers[insts.OpThumbSTMIA] = thumbMultiple
	thumbHandlers[insts.OpThumbLDMIA] = thumbMultiple

	thumbHandlers[insts.OpThumbBCond] = thumbBranch
	thumbHandlers[insts.OpThumbB] = thumbBranch
	thumbHandlers[insts.OpThumbBLPrefix] = thumbLongBranch
	thumbHandlers[insts.OpThumbBLSuffix] = thumbLongBranch
	thumbHandlers[insts.OpThumbBLXSuffix] = thumbLongBranch
	thumbHandlers[insts.OpThumbSWI] = thumbSWI
	thumbHandlers[insts.OpThumbBKPT] = thumbBKPT
}

func thumbOp(w insts.ThumbWord) insts.Op {
	return insts.DecodeThumb(uint16(w)).Op
}

func (c *Core) setNZC(res uint32, carry bool) {
	p := c.rf.CPSR()
	c.rf.SetCPSR(p.WithNZCV(alu.Negative(res), res == 0, carry, p.V()))
}

func (c *Core) setNZCV(res uint32, carry, overflow bool) {
	c.rf.SetCPSR(c.rf.CPSR().WithNZCV(alu.Negative(res), res == 0, carry, overflow))
}

// subtract returns a-b with ARM carry (not borrow) and overflow.
func subtract(a, b uint32, borrowIn bool) (uint32, bool, bool) {
	res, borrow, overflow := alu.Sub(a, b, borrowIn)
	return res, !borrow, overflow
}

var thumbShifts = map[insts.Op]insts.ShiftType{
	insts.OpThumbLSLImm: insts.ShiftLSL,
	insts.OpThumbLSRImm: insts.ShiftLSR,
	insts.OpThumbASRImm: insts.ShiftASR,
	insts.OpThumbLSL:    insts.ShiftLSL,
	insts.OpThumbLSR:    insts.ShiftLSR,
	insts.OpThumbASR:    insts.ShiftASR,
	insts.OpThumbROR:    insts.ShiftROR,
}

func thumbShiftImm(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	typ := thumbShifts[thumbOp(w)]
	amount := w.Imm5()

	if dis != nil {
		dis.Mnemonic = typ.String()
		dis.Operands = sprintf("%s, %s, #%d", regName(w.Rd()), regName(w.Rs()), amount)
		return
	}

	if amount == 0 && typ != insts.ShiftLSL {
		amount = 32
	}
	res, carry := shift(c.rf.R(w.Rs()), typ, amount, c.rf.CPSR().C())
	c.rf.SetR(w.Rd(), res)
	c.setNZC(res, carry)
}

func thumbAddSub(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	op := thumbOp(w)
	sub := op == insts.OpThumbSUBReg || op == insts.OpThumbSUBImm3
	imm := op == insts.OpThumbADDImm3 || op == insts.OpThumbSUBImm3

	if dis != nil {
		dis.Mnemonic = "add"
		if sub {
			dis.Mnemonic = "sub"
		}
		operand := regName(w.Rn())
		if imm {
			operand = sprintf("#%d", w.Imm3())
		}
		dis.Operands = sprintf("%s, %s, %s", regName(w.Rd()), regName(w.Rs()), operand)
		return
	}

	a := c.rf.R(w.Rs())
	b := w.Imm3()
	if !imm {
		b = c.rf.R(w.Rn())
	}

	var res uint32
	var carry, overflow bool
	if sub {
		res, carry, overflow = subtract(a, b, false)
	} else {
		res, carry, overflow = alu.Add(a, b, false)
	}
	c.rf.SetR(w.Rd(), res)
	c.setNZCV(res, carry, overflow)
}

func thumbImm8(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	op := thumbOp(w)
	rd, imm := w.Rd8(), w.Imm8()

	if dis != nil {
		dis.Mnemonic = [...]string{"mov", "cmp", "add", "sub"}[op-insts.OpThumbMOVImm]
		dis.Operands = sprintf("%s, #%#x", regName(rd), imm)
		return
	}

	a := c.rf.R(rd)
	switch op {
	case insts.OpThumbMOVImm:
		c.rf.SetR(rd, imm)
		c.setNZC(imm, c.rf.CPSR().C())
	case insts.OpThumbCMPImm:
		res, carry, overflow := subtract(a, imm, false)
		c.setNZCV(res, carry, overflow)
	case insts.OpThumbADDImm8:
		res, carry, overflow := alu.Add(a, imm, false)
		c.rf.SetR(rd, res)
		c.setNZCV(res, carry, overflow)
	default:
		res, carry, overflow := subtract(a, imm, false)
		c.rf.SetR(rd, res)
		c.setNZCV(res, carry, overflow)
	}
}

func thumbALU(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	op := thumbOp(w)
	rd, rs := w.Rd(), w.Rs()

	if dis != nil {
		dis.Mnemonic = op.String()
		dis.Operands = sprintf("%s, %s", regName(rd), regName(rs))
		return
	}

	a, b := c.rf.R(rd), c.rf.R(rs)
	cpsr := c.rf.CPSR()

	switch op {
	case insts.OpThumbAND, insts.OpThumbTST:
		res := a & b
		if op == insts.OpThumbAND {
			c.rf.SetR(rd, res)
		}
		c.setNZC(res, cpsr.C())
	case insts.OpThumbEOR:
		c.rf.SetR(rd, a^b)
		c.setNZC(a^b, cpsr.C())
	case insts.OpThumbORR:
		c.rf.SetR(rd, a|b)
		c.setNZC(a|b, cpsr.C())
	case insts.OpThumbBIC:
		c.rf.SetR(rd, a&^b)
		c.setNZC(a&^b, cpsr.C())
	case insts.OpThumbMVN:
		c.rf.SetR(rd, ^b)
		c.setNZC(^b, cpsr.C())
	case insts.OpThumbMUL:
		// C is left unchanged on ARMv5.
		c.rf.SetR(rd, a*b)
		c.setNZC(a*b, cpsr.C())
	case insts.OpThumbLSL, insts.OpThumbLSR, insts.OpThumbASR, insts.OpThumbROR:
		res, carry := shift(a, thumbShifts[op], b&0xFF, cpsr.C())
		c.rf.SetR(rd, res)
		c.setNZC(res, carry)
	case insts.OpThumbADC:
		res, carry, overflow := alu.Add(a, b, cpsr.C())
		c.rf.SetR(rd, res)
		c.setNZCV(res, carry, overflow)
	case insts.OpThumbSBC:
		res, carry, overflow := subtract(a, b, !cpsr.C())
		c.rf.SetR(rd, res)
		c.setNZCV(res, carry, overflow)
	case insts.OpThumbNEG:
		res, carry, overflow := subtract(0, b, false)
		c.rf.SetR(rd, res)
		c.setNZCV(res, carry, overflow)
	case insts.OpThumbCMP:
		res, carry, overflow := subtract(a, b, false)
		c.setNZCV(res, carry, overflow)
	case insts.OpThumbCMN:
		res, carry, overflow := alu.Add(a, b, false)
		c.setNZCV(res, carry, overflow)
	}
}

func thumbHiReg(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	op := thumbOp(w)
	rd, rs := w.HiRd(), w.HiRs()

	if dis != nil {
		dis.Mnemonic = [...]string{"add", "cmp", "mov"}[op-insts.OpThumbADDHi]
		dis.Operands = sprintf("%s, %s", regName(rd), regName(rs))
		return
	}

	b := c.rf.R(rs)
	switch op {
	case insts.OpThumbADDHi:
		c.writeResult(rd, c.rf.R(rd)+b)
	case insts.OpThumbCMPHi:
		res, carry, overflow := subtract(c.rf.R(rd), b, false)
		c.setNZCV(res, carry, overflow)
	default:
		c.writeResult(rd, b)
	}
}

func thumbBX(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	link := thumbOp(w) == insts.OpThumbBLX
	rs := w.HiRs()

	if dis != nil {
		dis.Mnemonic = "bx"
		if link {
			dis.Mnemonic = "blx"
		}
		dis.Operands = regName(rs)
		return
	}

	target := c.rf.R(rs)
	if link {
		c.rf.SetR(14, (c.rf.PC()+2)|1)
	}
	c.branchExchange(target)
}

func thumbLoadLiteral(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	rd, off := w.Rd8(), w.Imm8()<<2

	if dis != nil {
		dis.Mnemonic = "ldr"
		dis.Operands = sprintf("%s, [pc, #%#x]", regName(rd), off)
		return
	}

	v, ok := c.load(c.rf.R(15)&^3+off, 4, c.userMode())
	if ok {
		c.rf.SetR(rd, v)
	}
}

// thumbTransferForm describes one load/store encoding and how its address
// is formed.
type thumbTransferForm struct {
	name   string
	size   int
	load   bool
	signed bool
	base   func(w insts.ThumbWord) int
	offset func(c *Core, w insts.ThumbWord) (uint32, string)
	rd     func(w insts.ThumbWord) int
}

func regOffset(c *Core, w insts.ThumbWord) (uint32, string) {
	if c == nil {
		return 0, regName(w.Rn())
	}
	return c.rf.R(w.Rn()), ""
}

func immOffset(scale uint) func(*Core, insts.ThumbWord) (uint32, string) {
	return func(_ *Core, w insts.ThumbWord) (uint32, string) {
		off := w.Imm5() << scale
		return off, sprintf("#%#x", off)
	}
}

func spOffset(_ *Core, w insts.ThumbWord) (uint32, string) {
	off := w.Imm8() << 2
	return off, sprintf("#%#x", off)
}

func lowBase(w insts.ThumbWord) int { return w.Rs() }
func spBase(insts.ThumbWord) int    { return 13 }
func lowRd(w insts.ThumbWord) int   { return w.Rd() }
func rd8(w insts.ThumbWord) int     { return w.Rd8() }

var thumbTransfers = map[insts.Op]thumbTransferForm{
	insts.OpThumbSTRReg:   {"str", 4, false, false, lowBase, regOffset, lowRd},
	insts.OpThumbSTRBReg:  {"strb", 1, false, false, lowBase, regOffset, lowRd},
	insts.OpThumbLDRReg:   {"ldr", 4, true, false, lowBase, regOffset, lowRd},
	insts.OpThumbLDRBReg:  {"ldrb", 1, true, false, lowBase, regOffset, lowRd},
	insts.OpThumbSTRHReg:  {"strh", 2, false, false, lowBase, regOffset, lowRd},
	insts.OpThumbLDRSBReg: {"ldrsb", 1, true, true, lowBase, regOffset, lowRd},
	insts.OpThumbLDRHReg:  {"ldrh", 2, true, false, lowBase, regOffset, lowRd},
	insts.OpThumbLDRSHReg: {"ldrsh", 2, true, true, lowBase, regOffset, lowRd},
	insts.OpThumbSTRImm:   {"str", 4, false, false, lowBase, immOffset(2), lowRd},
	insts.OpThumbLDRImm:   {"ldr", 4, true, false, lowBase, immOffset(2), lowRd},
	insts.OpThumbSTRBImm:  {"strb", 1, false, false, lowBase, immOffset(0), lowRd},
	insts.OpThumbLDRBImm:  {"ldrb", 1, true, false, lowBase, immOffset(0), lowRd},
	insts.OpThumbSTRHImm:  {"strh", 2, false, false, lowBase, immOffset(1), lowRd},
	insts.OpThumbLDRHImm:  {"ldrh", 2, true, false, lowBase, immOffset(1), lowRd},
	insts.OpThumbSTRSP:    {"str", 4, false, false, spBase, spOffset, rd8},
	insts.OpThumbLDRSP:    {"ldr", 4, true, false, spBase, spOffset, rd8},
}

func thumbTransfer(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	form := thumbTransfers[thumbOp(w)]
	rd, rb := form.rd(w), form.base(w)

	if dis != nil {
		_, text := form.offset(nil, w)
		dis.Mnemonic = form.name
		dis.Operands = sprintf("%s, [%s, %s]", regName(rd), regName(rb), text)
		return
	}

	off, _ := form.offset(c, w)
	addr := c.rf.R(rb) + off
	user := c.userMode()

	if !form.load {
		c.store(addr, form.size, c.rf.R(rd), user)
		return
	}

	v, ok := c.load(addr, form.size, user)
	if !ok {
		return
	}
	if form.signed {
		v = bitfield.SignExtend(v, uint(form.size*8))
	}
	c.rf.SetR(rd, v)
}

func thumbAddress(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	fromSP := thumbOp(w) == insts.OpThumbADDSP
	rd, off := w.Rd8(), w.Imm8()<<2

	if dis != nil {
		base := "pc"
		if fromSP {
			base = "sp"
		}
		dis.Mnemonic = "add"
		dis.Operands = sprintf("%s, %s, #%#x", regName(rd), base, off)
		return
	}

	base := c.rf.R(15) &^ 3
	if fromSP {
		base = c.rf.R(13)
	}
	c.rf.SetR(rd, base+off)
}

func thumbAdjustSP(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	off := w.SPImm()

	if dis != nil {
		dis.Mnemonic = "add"
		if w.SPNegative() {
			dis.Mnemonic = "sub"
		}
		dis.Operands = sprintf("sp, #%#x", off)
		return
	}

	sp := c.rf.R(13)
	if w.SPNegative() {
		c.rf.SetR(13, sp-off)
		return
	}
	c.rf.SetR(13, sp+off)
}

func thumbPushPop(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	pop := thumbOp(w) == insts.OpThumbPOP
	list := w.RegList()
	if w.R() {
		if pop {
			list |= 1 << 15
		} else {
			list |= 1 << 14
		}
	}

	if dis != nil {
		dis.Mnemonic = "push"
		if pop {
			dis.Mnemonic = "pop"
		}
		dis.Operands = regListText(list)
		return
	}

	if pop {
		c.blockTransfer(13, list, true, false, true, true, false)
		return
	}
	c.blockTransfer(13, list, false, true, false, true, false)
}

func thumbMultiple(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	load := thumbOp(w) == insts.OpThumbLDMIA
	rb, list := w.Rd8(), w.RegList()

	if dis != nil {
		dis.Mnemonic = "stmia"
		if load {
			dis.Mnemonic = "ldmia"
		}
		dis.Operands = regName(rb) + "!, " + regListText(list)
		return
	}

	wb := !load || list&(1<<rb) == 0
	c.blockTransfer(rb, list, load, false, true, wb, false)
}

func thumbBranch(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	conditional := thumbOp(w) == insts.OpThumbBCond
	off := w.BranchOffset()
	if conditional {
		off = w.CondOffset()
	}

	if dis != nil {
		dis.Mnemonic = "b"
		if conditional {
			dis.Mnemonic += w.Cond().String()
		}
		dis.Operands = branchText(off + 4)
		return
	}

	if conditional && !c.conditionPassed(w.Cond()) {
		return
	}
	c.rf.SetR(15, c.rf.R(15)+uint32(off))
}

// thumbLongBranch executes the two halves of BL and BLX. The prefix parks
// the high offset in LR; the suffix adds the low offset and links.
func thumbLongBranch(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	op := thumbOp(w)

	if dis != nil {
		switch op {
		case insts.OpThumbBLPrefix:
			dis.Mnemonic = "bl.prefix"
			dis.Operands = "lr, " + branchText(w.PrefixOffset()+4)
		case insts.OpThumbBLSuffix:
			dis.Mnemonic = "bl.suffix"
			dis.Operands = sprintf("lr%+#x", w.Imm11()<<1)
		default:
			dis.Mnemonic = "blx.suffix"
			dis.Operands = sprintf("lr%+#x", w.Imm11()<<1)
		}
		return
	}

	if op == insts.OpThumbBLPrefix {
		c.rf.SetR(14, c.rf.R(15)+uint32(w.PrefixOffset()))
		return
	}

	target := c.rf.R(14) + w.Imm11()<<1
	c.rf.SetR(14, (c.rf.PC()+2)|1)
	if op == insts.OpThumbBLXSuffix {
		c.rf.SetCPSR(c.rf.CPSR().With(PSRT, false))
		target &^= 3
	}
	c.rf.SetR(15, target)
}

func thumbSWI(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "swi"
		dis.Operands = sprintf("%#x", w.Imm8())
		return
	}

	c.exc.Raise(exc.Record{
		Kind:  exc.SupervisorCall,
		Cause: uint64(w.Imm8()),
		PC:    uint64(c.rf.PC()),
	})
}

func thumbBKPT(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "bkpt"
		dis.Operands = sprintf("%#x", w.Imm8())
		return
	}

	c.breakpoint()
}

func thumbUndefined(c *Core, w insts.ThumbWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "undefined"
		dis.Operands = sprintf("%#04x", uint16(w))
		return
	}

	c.undefined(uint32(w))
}

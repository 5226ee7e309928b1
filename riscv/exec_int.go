package riscv

import (
	"github.com/sarchlab/sysim/bitfield"
	"github.com/sarchlab/sysim/insts"
)

type handler func(c *Core, w insts.RVWord, dis *insts.Disasm)

var handlers [insts.NumOps]handler

// binaryOps computes register-register and register-immediate results.
var binaryOps [insts.NumOps]func(a, b uint64) uint64

func init() {
	for op := range handlers {
		handlers[op] = execIllegal
	}

	handlers[insts.OpRVLUI] = execUpper
	handlers[insts.OpRVAUIPC] = execUpper
	handlers[insts.OpRVJAL] = execJAL
	handlers[insts.OpRVJALR] = execJALR
	for op := insts.OpRVBEQ; op <= insts.OpRVBGEU; op++ {
		handlers[op] = execBranch
	}
	for op := insts.OpRVLB; op <= insts.OpRVLWU; op++ {
		handlers[op] = execLoad
	}
	for op := insts.OpRVSB; op <= insts.OpRVSD; op++ {
		handlers[op] = execStore
	}
	for op := insts.OpRVADDI; op <= insts.OpRVSRAI; op++ {
		handlers[op] = execRegImm
	}
	for op := insts.OpRVADDIW; op <= insts.OpRVSRAIW; op++ {
		handlers[op] = execRegImm
	}
	for op := insts.OpRVADD; op <= insts.OpRVAND; op++ {
		handlers[op] = execRegReg
	}
	for op := insts.OpRVADDW; op <= insts.OpRVREMUW; op++ {
		handlers[op] = execRegReg
	}
	handlers[insts.OpRVLR] = execLR
	handlers[insts.OpRVSC] = execSC
	for op := insts.OpRVAMOSWAP; op <= insts.OpRVAMOMAXU; op++ {
		handlers[op] = execAMO
	}
	handlers[insts.OpRVFENCE] = execFence
	handlers[insts.OpRVFENCEI] = execFence
	handlers[insts.OpRVECALL] = execECall
	handlers[insts.OpRVEBREAK] = execEBreak
	handlers[insts.OpRVMRET] = execMRET
	handlers[insts.OpRVSRET] = execSRET
	handlers[insts.OpRVWFI] = execWFI
	handlers[insts.OpRVSFENCEVMA] = execSFenceVMA
	for op := insts.OpRVCSRRW; op <= insts.OpRVCSRRCI; op++ {
		handlers[op] = execCSR
	}

	for op, fn := range map[insts.Op]func(a, b uint64) uint64{
		insts.OpRVADDI: add, insts.OpRVADD: add, insts.OpRVSUB: sub,
		insts.OpRVSLTI: slt, insts.OpRVSLT: slt,
		insts.OpRVSLTIU: sltu, insts.OpRVSLTU: sltu,
		insts.OpRVXORI: xor, insts.OpRVXOR: xor,
		insts.OpRVORI: or, insts.OpRVOR: or,
		insts.OpRVANDI: and, insts.OpRVAND: and,
		insts.OpRVSLLI: sll, insts.OpRVSLL: sll,
		insts.OpRVSRLI: srl, insts.OpRVSRL: srl,
		insts.OpRVSRAI: sra, insts.OpRVSRA: sra,

		insts.OpRVADDIW: addw, insts.OpRVADDW: addw, insts.OpRVSUBW: subw,
		insts.OpRVSLLIW: sllw, insts.OpRVSLLW: sllw,
		insts.OpRVSRLIW: srlw, insts.OpRVSRLW: srlw,
		insts.OpRVSRAIW: sraw, insts.OpRVSRAW: sraw,

		insts.OpRVMUL: mul, insts.OpRVMULH: mulh, insts.OpRVMULHSU: mulhsu,
		insts.OpRVMULHU: mulhu, insts.OpRVDIV: div, insts.OpRVDIVU: divu,
		insts.OpRVREM: rem, insts.OpRVREMU: remu,
		insts.OpRVMULW: mulw, insts.OpRVDIVW: divw, insts.OpRVDIVUW: divuw,
		insts.OpRVREMW: remw, insts.OpRVREMUW: remuw,
	} {
		binaryOps[op] = fn
	}
}

func opOf(w insts.RVWord) insts.Op {
	return insts.DecodeRV(uint32(w)).Op
}

// sext32 sign-extends the low word of a W-form result.
func sext32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}

// jump sets the next PC, or raises a misaligned fetch for the jump itself.
func (c *Core) jump(target uint64) bool {
	if target&3 != 0 {
		c.fault(CauseFetchMisaligned, target)
		return false
	}
	c.next = target
	return true
}

func execUpper(c *Core, w insts.RVWord, dis *insts.Disasm) {
	op := opOf(w)

	if dis != nil {
		dis.Mnemonic = op.String()
		dis.Operands = sprintf("%s, %#x", regName(w.Rd()), uint32(w)>>12)
		return
	}

	v := uint64(w.ImmU())
	if op == insts.OpRVAUIPC {
		v += c.rf.pc
	}
	c.rf.SetX(w.Rd(), v)
}

func execJAL(c *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "jal"
		dis.Operands = sprintf("%s, pc%+d", regName(w.Rd()), w.ImmJ())
		return
	}

	link := c.rf.pc + 4
	if c.jump(c.rf.pc + uint64(w.ImmJ())) {
		c.rf.SetX(w.Rd(), link)
	}
}

func execJALR(c *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "jalr"
		dis.Operands = sprintf("%s, %d(%s)", regName(w.Rd()), w.ImmI(), regName(w.Rs1()))
		return
	}

	link := c.rf.pc + 4
	target := (c.rf.X(w.Rs1()) + uint64(w.ImmI())) &^ 1
	if c.jump(target) {
		c.rf.SetX(w.Rd(), link)
	}
}

func execBranch(c *Core, w insts.RVWord, dis *insts.Disasm) {
	op := opOf(w)

	if dis != nil {
		dis.Mnemonic = op.String()
		dis.Operands = sprintf("%s, %s, pc%+d", regName(w.Rs1()), regName(w.Rs2()), w.ImmB())
		return
	}

	a, b := c.rf.X(w.Rs1()), c.rf.X(w.Rs2())
	var taken bool
	switch op {
	case insts.OpRVBEQ:
		taken = a == b
	case insts.OpRVBNE:
		taken = a != b
	case insts.OpRVBLT:
		taken = int64(a) < int64(b)
	case insts.OpRVBGE:
		taken = int64(a) >= int64(b)
	case insts.OpRVBLTU:
		taken = a < b
	case insts.OpRVBGEU:
		taken = a >= b
	}

	if taken {
		c.jump(c.rf.pc + uint64(w.ImmB()))
	}
}

type loadForm struct {
	size   int
	signed bool
}

var loadForms = map[insts.Op]loadForm{
	insts.OpRVLB:  {1, true},
	insts.OpRVLH:  {2, true},
	insts.OpRVLW:  {4, true},
	insts.OpRVLD:  {8, false},
	insts.OpRVLBU: {1, false},
	insts.OpRVLHU: {2, false},
	insts.OpRVLWU: {4, false},
}

func execLoad(c *Core, w insts.RVWord, dis *insts.Disasm) {
	op := opOf(w)

	if dis != nil {
		dis.Mnemonic = op.String()
		dis.Operands = sprintf("%s, %d(%s)", regName(w.Rd()), w.ImmI(), regName(w.Rs1()))
		return
	}

	form := loadForms[op]
	v, ok := c.load(c.rf.X(w.Rs1())+uint64(w.ImmI()), form.size)
	if !ok {
		return
	}
	if form.signed {
		v = bitfield.SignExtend(v, uint(form.size*8))
	}
	c.rf.SetX(w.Rd(), v)
}

var storeSizes = map[insts.Op]int{
	insts.OpRVSB: 1,
	insts.OpRVSH: 2,
	insts.OpRVSW: 4,
	insts.OpRVSD: 8,
}

func execStore(c *Core, w insts.RVWord, dis *insts.Disasm) {
	op := opOf(w)

	if dis != nil {
		dis.Mnemonic = op.String()
		dis.Operands = sprintf("%s, %d(%s)", regName(w.Rs2()), w.ImmS(), regName(w.Rs1()))
		return
	}

	c.store(c.rf.X(w.Rs1())+uint64(w.ImmS()), storeSizes[op], c.rf.X(w.Rs2()))
}

func isShiftImm(op insts.Op) bool {
	switch op {
	case insts.OpRVSLLI, insts.OpRVSRLI, insts.OpRVSRAI,
		insts.OpRVSLLIW, insts.OpRVSRLIW, insts.OpRVSRAIW:
		return true
	}
	return false
}

func execRegImm(c *Core, w insts.RVWord, dis *insts.Disasm) {
	op := opOf(w)
	imm := uint64(w.ImmI())
	if isShiftImm(op) {
		imm = uint64(w.Shamt())
	}

	if dis != nil {
		dis.Mnemonic = op.String()
		dis.Operands = sprintf("%s, %s, %d", regName(w.Rd()), regName(w.Rs1()), int64(imm))
		return
	}

	c.rf.SetX(w.Rd(), binaryOps[op](c.rf.X(w.Rs1()), imm))
}

func execRegReg(c *Core, w insts.RVWord, dis *insts.Disasm) {
	op := opOf(w)

	if dis != nil {
		dis.Mnemonic = op.String()
		dis.Operands = sprintf("%s, %s, %s", regName(w.Rd()), regName(w.Rs1()), regName(w.Rs2()))
		return
	}

	c.rf.SetX(w.Rd(), binaryOps[op](c.rf.X(w.Rs1()), c.rf.X(w.Rs2())))
}

func execFence(_ *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = opOf(w).String()
	}
}

func execIllegal(c *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		dis.Mnemonic = "undefined"
		dis.Operands = sprintf("%#08x", uint32(w))
		return
	}

	c.illegal(w)
}

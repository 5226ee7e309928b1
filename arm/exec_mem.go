package arm

import (
	"math/bits"

	"github.com/sarchlab/sysim/bitfield"
	"github.com/sarchlab/sysim/exc"
	"github.com/sarchlab/sysim/insts"
)

// addressText renders a pre- or post-indexed address.
func addressText(rn int, offset string, pre, wb bool) string {
	if !pre {
		return sprintf("[%s], %s", regName(rn), offset)
	}
	bang := ""
	if wb {
		bang = "!"
	}
	return sprintf("[%s, %s]%s", regName(rn), offset, bang)
}

func offsetAddress(base, off uint32, up bool) uint32 {
	if up {
		return base + off
	}
	return base - off
}

// storeValue reads a register for storing. r15 stores the instruction
// address plus 12.
func (c *Core) storeValue(i int) uint32 {
	if i == 15 {
		return c.rf.R(15) + 4
	}
	return c.rf.R(i)
}

func execSingleTransfer(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	load, byteSize := w.L(), w.B()
	rd, rn := w.Rd(), w.Rn()
	pre, up, wb := w.P(), w.U(), w.W()
	translated := !pre && wb
	regOffset := w.I()

	var sh insts.ShifterOperand
	if regOffset {
		sh = w.AddrShifter()
	}

	if dis != nil {
		name := "str"
		if load {
			name = "ldr"
		}
		name += condSuffix(w)
		if byteSize {
			name += "b"
		}
		if translated {
			name += "t"
		}
		off := sprintf("#%s%#x", signText(up), w.Imm12())
		if regOffset {
			off = signText(up) + shifterText(sh)
		}
		dis.Mnemonic = name
		dis.Operands = regName(rd) + ", " + addressText(rn, off, pre, wb)
		return
	}

	off := w.Imm12()
	if regOffset {
		off, _ = shift(c.rf.R(sh.Rm), sh.Shift, sh.Amount, c.rf.CPSR().C())
	}

	base := c.rf.R(rn)
	target := offsetAddress(base, off, up)
	addr := base
	if pre {
		addr = target
	}

	size := 4
	if byteSize {
		size = 1
	}
	user := translated || c.userMode()
	writeback := (!pre || wb) && rn != 15

	if load {
		v, ok := c.load(addr, size, user)
		if !ok {
			return
		}
		if writeback {
			c.rf.SetR(rn, target)
		}
		if rd == 15 {
			c.branchExchange(v)
			return
		}
		c.rf.SetR(rd, v)
		return
	}

	if !c.store(addr, size, c.storeValue(rd), user) {
		return
	}
	if writeback {
		c.rf.SetR(rn, target)
	}
}

func execHalfTransfer(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	op := insts.DecodeARM(uint32(w)).Op
	rd, rn, rm := w.Rd(), w.Rn(), w.Rm()
	pre, up, wb := w.P(), w.U(), w.W()

	if dis != nil {
		off := sprintf("#%s%#x", signText(up), w.Imm8HL())
		if !w.HalfImm() {
			off = signText(up) + regName(rm)
		}
		dis.Mnemonic = op.String() + condSuffix(w)
		dis.Operands = regName(rd) + ", " + addressText(rn, off, pre, wb)
		return
	}

	off := w.Imm8HL()
	if !w.HalfImm() {
		off = c.rf.R(rm)
	}

	base := c.rf.R(rn)
	target := offsetAddress(base, off, up)
	addr := base
	if pre {
		addr = target
	}
	writeback := (!pre || wb) && rn != 15
	user := c.userMode()

	if op == insts.OpSTRH {
		if !c.store(addr, 2, c.storeValue(rd), user) {
			return
		}
		if writeback {
			c.rf.SetR(rn, target)
		}
		return
	}

	size := 2
	if op == insts.OpLDRSB {
		size = 1
	}
	v, ok := c.load(addr, size, user)
	if !ok {
		return
	}

	switch op {
	case insts.OpLDRSB:
		v = bitfield.SignExtend(v, 8)
	case insts.OpLDRSH:
		v = bitfield.SignExtend(v, 16)
	}

	if writeback {
		c.rf.SetR(rn, target)
	}
	if rd == 15 {
		c.branchExchange(v)
		return
	}
	c.rf.SetR(rd, v)
}

func execDoubleTransfer(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	load := insts.DecodeARM(uint32(w)).Op == insts.OpLDRD
	rd, rn, rm := w.Rd(), w.Rn(), w.Rm()
	pre, up, wb := w.P(), w.U(), w.W()

	if dis != nil {
		off := sprintf("#%s%#x", signText(up), w.Imm8HL())
		if !w.HalfImm() {
			off = signText(up) + regName(rm)
		}
		name := "strd"
		if load {
			name = "ldrd"
		}
		dis.Mnemonic = name + condSuffix(w)
		dis.Operands = regName(rd) + ", " + regName(rd+1) + ", " + addressText(rn, off, pre, wb)
		return
	}

	if rd&1 != 0 || rd == 14 {
		c.undefined(uint32(w))
		return
	}

	off := w.Imm8HL()
	if !w.HalfImm() {
		off = c.rf.R(rm)
	}

	base := c.rf.R(rn)
	target := offsetAddress(base, off, up)
	addr := base
	if pre {
		addr = target
	}
	writeback := (!pre || wb) && rn != 15
	user := c.userMode()

	if load {
		lo, ok := c.load(addr, 4, user)
		if !ok {
			return
		}
		hi, ok := c.load(addr+4, 4, user)
		if !ok {
			return
		}
		if writeback {
			c.rf.SetR(rn, target)
		}
		c.rf.SetR(rd, lo)
		c.rf.SetR(rd+1, hi)
		return
	}

	if !c.store(addr, 4, c.rf.R(rd), user) || !c.store(addr+4, 4, c.rf.R(rd+1), user) {
		return
	}
	if writeback {
		c.rf.SetR(rn, target)
	}
}

func execSWP(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	rd, rn, rm := w.Rd(), w.Rn(), w.Rm()

	if dis != nil {
		dis.Mnemonic = "swp" + condSuffix(w)
		if w.B() {
			dis.Mnemonic += "b"
		}
		dis.Operands = sprintf("%s, %s, [%s]", regName(rd), regName(rm), regName(rn))
		return
	}

	size := 4
	if w.B() {
		size = 1
	}
	addr := c.rf.R(rn)
	user := c.userMode()

	v, ok := c.load(addr, size, user)
	if !ok {
		return
	}
	if !c.store(addr, size, c.rf.R(rm), user) {
		return
	}
	c.rf.SetR(rd, v)
}

var blockModes = [2][2]string{{"da", "ia"}, {"db", "ib"}}

func execBlockTransfer(c *Core, w insts.ARMWord, dis *insts.Disasm) {
	rn, list := w.Rn(), w.RegList()
	load := w.L()

	if dis != nil {
		name := "stm"
		if load {
			name = "ldm"
		}
		dis.Mnemonic = name + condSuffix(w) + blockModes[b2i(w.P())][b2i(w.U())]
		bang, hat := "", ""
		if w.W() {
			bang = "!"
		}
		if w.B() {
			hat = "^"
		}
		dis.Operands = regName(rn) + bang + ", " + regListText(list) + hat
		return
	}

	c.blockTransfer(rn, list, load, w.P(), w.U(), w.W(), w.B())
}

// blockTransfer moves the registers in list to or from consecutive words.
// Every address is translated before any register or memory is changed; s
// selects the user bank, or an exception return when loading r15.
func (c *Core) blockTransfer(rn int, list uint16, load, pre, up, wb, s bool) {
	n := uint32(bits.OnesCount16(list))
	base := c.rf.R(rn)

	var start, final uint32
	switch {
	case up && !pre:
		start, final = base, base+4*n
	case up && pre:
		start, final = base+4, base+4*n
	case !up && !pre:
		start, final = base-4*n+4, base-4*n
	default:
		start, final = base-4*n, base-4*n
	}

	hasPC := list&(1<<15) != 0
	userBank := s && !(load && hasPC)
	user := c.userMode()

	access := exc.AccessWrite
	if load {
		access = exc.AccessRead
	}

	var pas [16]uint32
	addr := start
	for i := 0; i < 16; i++ {
		if list&(1<<i) == 0 {
			continue
		}
		if !c.aligned(addr, 4, access) {
			return
		}
		pa, ok := c.translate(addr&^3, access, user)
		if !ok {
			return
		}
		pas[i] = pa
		addr += 4
	}

	addr = start
	if !load {
		for i := 0; i < 16; i++ {
			if list&(1<<i) == 0 {
				continue
			}
			v := c.storeValue(i)
			if userBank && i < 15 {
				v = c.rf.UserR(i)
			}
			if err := c.bus.Write32(uint64(pas[i]), v); err != nil {
				c.dataAbort(addr, FaultExternal, exc.AccessWrite)
				return
			}
			addr += 4
		}
		if wb && rn != 15 {
			c.rf.SetR(rn, final)
		}
		return
	}

	var vals [16]uint32
	for i := 0; i < 16; i++ {
		if list&(1<<i) == 0 {
			continue
		}
		v, err := c.bus.Read32(uint64(pas[i]))
		if err != nil {
			c.dataAbort(addr, FaultExternal, exc.AccessRead)
			return
		}
		vals[i] = v
		addr += 4
	}

	if wb && rn != 15 {
		c.rf.SetR(rn, final)
	}
	for i := 0; i < 15; i++ {
		if list&(1<<i) == 0 {
			continue
		}
		if userBank {
			c.rf.SetUserR(i, vals[i])
		} else {
			c.rf.SetR(i, vals[i])
		}
	}

	if !hasPC {
		return
	}
	if s {
		c.restoreCPSR()
		c.writeResult(15, vals[15])
		return
	}
	c.branchExchange(vals[15])
}

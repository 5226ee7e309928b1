package riscv

import (
	"github.com/sarchlab/sysim/exc"
	"github.com/sarchlab/sysim/insts"
)

func amoText(w insts.RVWord, dis *insts.Disasm, withSource bool) {
	suffix := ".w"
	if w.Width() == 8 {
		suffix = ".d"
	}
	if w.Aq() {
		suffix += ".aq"
	}
	if w.Rl() {
		suffix += ".rl"
	}

	dis.Mnemonic = opOf(w).String() + suffix
	if withSource {
		dis.Operands = sprintf("%s, %s, (%s)", regName(w.Rd()), regName(w.Rs2()), regName(w.Rs1()))
		return
	}
	dis.Operands = sprintf("%s, (%s)", regName(w.Rd()), regName(w.Rs1()))
}

// loaded widens a value read by an atomic access.
func loaded(v uint64, size int) uint64 {
	if size == 4 {
		return sext32(uint32(v))
	}
	return v
}

func execLR(c *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		amoText(w, dis, false)
		return
	}

	size := w.Width()
	va := c.rf.X(w.Rs1())
	pa, ok := c.translate(va, size, exc.AccessRead)
	if !ok {
		return
	}

	v, err := c.bus.Read(pa, size)
	if err != nil {
		c.fault(CauseLoadAccess, va)
		return
	}

	c.reservation = pa &^ 7
	c.reservationValid = true
	c.rf.SetX(w.Rd(), loaded(v, size))
}

func execSC(c *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		amoText(w, dis, true)
		return
	}

	size := w.Width()
	va := c.rf.X(w.Rs1())
	pa, ok := c.translate(va, size, exc.AccessWrite)
	if !ok {
		return
	}

	held := c.reservationValid && c.reservation == pa&^7
	c.reservationValid = false
	if !held {
		c.rf.SetX(w.Rd(), 1)
		return
	}

	if err := c.bus.Write(pa, size, c.rf.X(w.Rs2())); err != nil {
		c.fault(CauseStoreAccess, va)
		return
	}
	c.rf.SetX(w.Rd(), 0)
}

func execAMO(c *Core, w insts.RVWord, dis *insts.Disasm) {
	if dis != nil {
		amoText(w, dis, true)
		return
	}

	size := w.Width()
	va := c.rf.X(w.Rs1())
	pa, ok := c.translate(va, size, exc.AccessWrite)
	if !ok {
		return
	}

	raw, err := c.bus.Read(pa, size)
	if err != nil {
		c.fault(CauseStoreAccess, va)
		return
	}

	old := loaded(raw, size)
	src := loaded(c.rf.X(w.Rs2()), size)
	if err := c.bus.Write(pa, size, amoResult(opOf(w), old, src, size)); err != nil {
		c.fault(CauseStoreAccess, va)
		return
	}
	if c.reservationValid && c.reservation == pa&^7 {
		c.reservationValid = false
	}
	c.rf.SetX(w.Rd(), old)
}

// amoResult computes the value an AMO stores. Word operands arrive
// sign-extended, so unsigned comparisons look at the low word only.
func amoResult(op insts.Op, old, src uint64, size int) uint64 {
	ua, ub := old, src
	if size == 4 {
		ua, ub = uint64(uint32(old)), uint64(uint32(src))
	}

	switch op {
	case insts.OpRVAMOSWAP:
		return src
	case insts.OpRVAMOADD:
		return old + src
	case insts.OpRVAMOXOR:
		return old ^ src
	case insts.OpRVAMOAND:
		return old & src
	case insts.OpRVAMOOR:
		return old | src
	case insts.OpRVAMOMIN:
		return pickIf(int64(old) < int64(src), old, src)
	case insts.OpRVAMOMAX:
		return pickIf(int64(old) > int64(src), old, src)
	case insts.OpRVAMOMINU:
		return pickIf(ua < ub, old, src)
	case insts.OpRVAMOMAXU:
		return pickIf(ua > ub, old, src)
	}
	return old
}

func pickIf(cond bool, a, b uint64) uint64 {
	if cond {
		return a
	}
	return b
}

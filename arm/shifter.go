package arm

import (
	"math/bits"

	"github.com/sarchlab/sysim/insts"
)

// shift applies a barrel shifter operation and returns the result and the
// shifter carry-out. amount is the full shift amount (0-255 for
// register-specified shifts); carryIn is returned when the operand passes
// through unshifted.
func shift(v uint32, typ insts.ShiftType, amount uint32, carryIn bool) (uint32, bool) {
	if typ == insts.ShiftRRX {
		out := v >> 1
		if carryIn {
			out |= 1 << 31
		}
		return out, v&1 != 0
	}

	if amount == 0 {
		return v, carryIn
	}

	switch typ {
	case insts.ShiftLSL:
		switch {
		case amount < 32:
			return v << amount, v>>(32-amount)&1 != 0
		case amount == 32:
			return 0, v&1 != 0
		}
		return 0, false
	case insts.ShiftLSR:
		switch {
		case amount < 32:
			return v >> amount, v>>(amount-1)&1 != 0
		case amount == 32:
			return 0, v>>31 != 0
		}
		return 0, false
	case insts.ShiftASR:
		if amount >= 32 {
			if v>>31 != 0 {
				return 0xFFFFFFFF, true
			}
			return 0, false
		}
		return uint32(int32(v) >> amount), v>>(amount-1)&1 != 0
	default:
		r := amount & 31
		if r == 0 {
			return v, v>>31 != 0
		}
		return bits.RotateLeft32(v, -int(r)), v>>(r-1)&1 != 0
	}
}

// shifterOperand evaluates a decoded shifter operand against the current
// registers. Register-specified shifts read r15 one word further ahead.
func (c *Core) shifterOperand(s insts.ShifterOperand) (uint32, bool) {
	carry := c.rf.CPSR().C()

	if s.Imm {
		v := s.Value()
		if s.Rotate == 0 {
			return v, carry
		}
		return v, v>>31 != 0
	}

	if s.ByReg {
		rm := c.regShiftOperand(s.Rm)
		amount := c.regShiftOperand(s.Rs) & 0xFF
		return shift(rm, s.Shift, amount, carry)
	}

	return shift(c.rf.R(s.Rm), s.Shift, s.Amount, carry)
}

func (c *Core) regShiftOperand(i int) uint32 {
	if i == 15 {
		return c.rf.R(15) + 4
	}
	return c.rf.R(i)
}

func shifterText(s insts.ShifterOperand) string {
	if s.Imm {
		return sprintf("#%#x", s.Value())
	}

	rm := regName(s.Rm)
	switch {
	case s.ByReg:
		return sprintf("%s, %s %s", rm, s.Shift, regName(s.Rs))
	case s.Shift == insts.ShiftRRX:
		return rm + ", rrx"
	case s.Shift == insts.ShiftLSL && s.Amount == 0:
		return rm
	}
	return sprintf("%s, %s #%d", rm, s.Shift, s.Amount)
}

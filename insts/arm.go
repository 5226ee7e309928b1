package insts

// ARMWord is a 32-bit ARM-state instruction word.
type ARMWord uint32

func (w ARMWord) bits(hi, lo uint) uint32 {
	return uint32(w) >> lo & (1<<(hi-lo+1) - 1)
}

func (w ARMWord) bit(n uint) bool {
	return uint32(w)>>n&1 != 0
}

// Cond returns the condition field.
func (w ARMWord) Cond() Cond { return Cond(w.bits(31, 28)) }

// Rn returns bits 19:16.
func (w ARMWord) Rn() int { return int(w.bits(19, 16)) }

// Rd returns bits 15:12.
func (w ARMWord) Rd() int { return int(w.bits(15, 12)) }

// Rs returns bits 11:8.
func (w ARMWord) Rs() int { return int(w.bits(11, 8)) }

// Rm returns bits 3:0.
func (w ARMWord) Rm() int { return int(w.bits(3, 0)) }

// RdHi and RdLo name the long-multiply destinations.
func (w ARMWord) RdHi() int { return w.Rn() }
func (w ARMWord) RdLo() int { return w.Rd() }

// I is the immediate-operand bit (25).
func (w ARMWord) I() bool { return w.bit(25) }

// P is the pre-index bit (24).
func (w ARMWord) P() bool { return w.bit(24) }

// U is the add-offset bit (23).
func (w ARMWord) U() bool { return w.bit(23) }

// B is the byte bit (22). For LDM/STM it is the S (user bank) bit and for
// MRS/MSR it selects SPSR.
func (w ARMWord) B() bool { return w.bit(22) }

// W is the writeback bit (21). For multiplies it is the accumulate bit.
func (w ARMWord) W() bool { return w.bit(21) }

// L is the load bit (20). For data processing it is the S bit.
func (w ARMWord) L() bool { return w.bit(20) }

// S is the set-flags bit of data processing and multiplies.
func (w ARMWord) S() bool { return w.bit(20) }

// DPOpcode returns the data-processing opcode field (bits 24:21).
func (w ARMWord) DPOpcode() uint32 { return w.bits(24, 21) }

// Imm12 returns the 12-bit load/store offset.
func (w ARMWord) Imm12() uint32 { return w.bits(11, 0) }

// Imm8HL returns the split 8-bit offset of halfword transfers.
func (w ARMWord) Imm8HL() uint32 { return w.bits(11, 8)<<4 | w.bits(3, 0) }

// HalfImm reports whether a halfword transfer uses the immediate offset.
func (w ARMWord) HalfImm() bool { return w.bit(22) }

// RegList returns the LDM/STM register mask.
func (w ARMWord) RegList() uint16 { return uint16(w.bits(15, 0)) }

// BranchOffset returns the sign-extended byte offset of B/BL.
func (w ARMWord) BranchOffset() int32 {
	return int32(uint32(w)<<8) >> 6
}

// BLXOffset returns the byte offset of BLX immediate, H bit included.
func (w ARMWord) BLXOffset() int32 {
	return w.BranchOffset() | int32(w.bits(24, 24)<<1)
}

// Comment returns the SWI comment field.
func (w ARMWord) Comment() uint32 { return w.bits(23, 0) }

// BKPTImm returns the 16-bit BKPT immediate.
func (w ARMWord) BKPTImm() uint32 { return w.bits(19, 8)<<4 | w.bits(3, 0) }

// FieldMask returns the MSR field mask (c, x, s, f).
func (w ARMWord) FieldMask() uint32 { return w.bits(19, 16) }

// Coprocessor fields of MRC/MCR.
func (w ARMWord) CPNum() int  { return int(w.bits(11, 8)) }
func (w ARMWord) CPOpc1() int { return int(w.bits(23, 21)) }
func (w ARMWord) CPOpc2() int { return int(w.bits(7, 5)) }
func (w ARMWord) CRn() int    { return int(w.bits(19, 16)) }
func (w ARMWord) CRm() int    { return int(w.bits(3, 0)) }

// ShifterOperand is the second operand of data processing and the
// register offset of loads and stores.
type ShifterOperand struct {
	// Imm selects the rotated 8-bit immediate form.
	Imm    bool
	Imm8   uint32
	Rotate uint32

	Rm    int
	Shift ShiftType
	// ByReg selects a shift amount taken from the bottom byte of Rs.
	ByReg  bool
	Rs     int
	Amount uint32
}

// Value returns the rotated immediate.
func (s ShifterOperand) Value() uint32 {
	r := s.Rotate & 31
	return s.Imm8>>r | s.Imm8<<((32-r)&31)
}

// registerShift decodes the Rm/shift form shared by both users.
func (w ARMWord) registerShift() ShifterOperand {
	s := ShifterOperand{
		Rm:    w.Rm(),
		Shift: ShiftType(w.bits(6, 5)),
	}

	if w.bit(4) {
		s.ByReg = true
		s.Rs = w.Rs()
		return s
	}

	s.Amount = w.bits(11, 7)
	switch {
	case s.Shift == ShiftROR && s.Amount == 0:
		s.Shift = ShiftRRX
	case (s.Shift == ShiftLSR || s.Shift == ShiftASR) && s.Amount == 0:
		s.Amount = 32
	}
	return s
}

// DPShifter decodes the data-processing shifter operand.
func (w ARMWord) DPShifter() ShifterOperand {
	if w.I() {
		return ShifterOperand{
			Imm:    true,
			Imm8:   w.bits(7, 0),
			Rotate: w.bits(11, 8) * 2,
		}
	}
	return w.registerShift()
}

// AddrShifter decodes the register-offset form of LDR/STR. Register-based
// shift amounts do not exist there.
func (w ARMWord) AddrShifter() ShifterOperand {
	s := w.registerShift()
	s.ByReg = false
	return s
}

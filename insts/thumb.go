package insts

// ThumbWord is a 16-bit Thumb-state instruction.
type ThumbWord uint16

func (w ThumbWord) bits(hi, lo uint) uint32 {
	return uint32(w) >> lo & (1<<(hi-lo+1) - 1)
}

func (w ThumbWord) bit(n uint) bool {
	return uint32(w)>>n&1 != 0
}

// Rd returns bits 2:0.
func (w ThumbWord) Rd() int { return int(w.bits(2, 0)) }

// Rs returns bits 5:3, the source or base register of most formats.
func (w ThumbWord) Rs() int { return int(w.bits(5, 3)) }

// Rn returns bits 8:6, the second register or 3-bit immediate.
func (w ThumbWord) Rn() int { return int(w.bits(8, 6)) }

// Imm3 returns bits 8:6.
func (w ThumbWord) Imm3() uint32 { return w.bits(8, 6) }

// Imm5 returns bits 10:6.
func (w ThumbWord) Imm5() uint32 { return w.bits(10, 6) }

// Imm8 returns bits 7:0.
func (w ThumbWord) Imm8() uint32 { return w.bits(7, 0) }

// Imm11 returns bits 10:0.
func (w ThumbWord) Imm11() uint32 { return w.bits(10, 0) }

// Rd8 returns bits 10:8, the register of the imm8 formats.
func (w ThumbWord) Rd8() int { return int(w.bits(10, 8)) }

// HiRd and HiRs return the full 4-bit registers of the high-register
// operations.
func (w ThumbWord) HiRd() int { return int(w.bits(7, 7)<<3 | w.bits(2, 0)) }
func (w ThumbWord) HiRs() int { return int(w.bits(6, 3)) }

// Cond returns the conditional-branch condition.
func (w ThumbWord) Cond() Cond { return Cond(w.bits(11, 8)) }

// CondOffset returns the sign-extended conditional branch offset in bytes.
func (w ThumbWord) CondOffset() int32 {
	return int32(int8(w.bits(7, 0))) << 1
}

// BranchOffset returns the sign-extended unconditional branch offset.
func (w ThumbWord) BranchOffset() int32 {
	return int32(uint32(w)<<21) >> 20
}

// PrefixOffset returns the sign-extended high part of a BL pair.
func (w ThumbWord) PrefixOffset() int32 {
	return int32(uint32(w)<<21) >> 9
}

// RegList returns the low-register mask of PUSH/POP/LDMIA/STMIA.
func (w ThumbWord) RegList() uint16 { return uint16(w.bits(7, 0)) }

// R returns the LR/PC bit of PUSH/POP.
func (w ThumbWord) R() bool { return w.bit(8) }

// SPNegative is the sign bit of ADD SP, #imm.
func (w ThumbWord) SPNegative() bool { return w.bit(7) }

// SPImm returns the 7-bit word offset of ADD SP, #imm in bytes.
func (w ThumbWord) SPImm() uint32 { return w.bits(6, 0) << 2 }

// DecodeThumb decodes a Thumb-state halfword.
func DecodeThumb(half uint16) Opcode {
	return Opcode{Word: uint32(half), Family: FamilyThumb, Op: decodeThumbOp(ThumbWord(half))}
}

func decodeThumbOp(w ThumbWord) Op {
	switch w.bits(15, 13) {
	case 0b000:
		if w.bits(12, 11) == 0b11 {
			return [4]Op{OpThumbADDReg, OpThumbSUBReg, OpThumbADDImm3, OpThumbSUBImm3}[w.bits(10, 9)]
		}
		return [3]Op{OpThumbLSLImm, OpThumbLSRImm, OpThumbASRImm}[w.bits(12, 11)]
	case 0b001:
		return [4]Op{OpThumbMOVImm, OpThumbCMPImm, OpThumbADDImm8, OpThumbSUBImm8}[w.bits(12, 11)]
	case 0b010:
		return decodeThumb010(w)
	case 0b011:
		return [4]Op{OpThumbSTRImm, OpThumbLDRImm, OpThumbSTRBImm, OpThumbLDRBImm}[w.bits(12, 11)]
	case 0b100:
		if w.bit(12) {
			return pick(w.bit(11), OpThumbLDRSP, OpThumbSTRSP)
		}
		return pick(w.bit(11), OpThumbLDRHImm, OpThumbSTRHImm)
	case 0b101:
		if !w.bit(12) {
			return pick(w.bit(11), OpThumbADDSP, OpThumbADDPC)
		}
		return decodeThumbMisc(w)
	case 0b110:
		if !w.bit(12) {
			if w.RegList() == 0 {
				return OpUndefined
			}
			return pick(w.bit(11), OpThumbLDMIA, OpThumbSTMIA)
		}
		switch w.Cond() {
		case CondNV:
			return OpThumbSWI
		case CondAL:
			return OpUndefined
		}
		return OpThumbBCond
	default:
		switch w.bits(12, 11) {
		case 0b00:
			return OpThumbB
		case 0b01:
			if w.bit(0) {
				return OpUndefined
			}
			return OpThumbBLXSuffix
		case 0b10:
			return OpThumbBLPrefix
		}
		return OpThumbBLSuffix
	}
}

func decodeThumb010(w ThumbWord) Op {
	switch {
	case w.bits(12, 10) == 0b000:
		return OpThumbAND + Op(w.bits(9, 6))
	case w.bits(12, 10) == 0b001:
		switch w.bits(9, 8) {
		case 0b00:
			return OpThumbADDHi
		case 0b01:
			return OpThumbCMPHi
		case 0b10:
			return OpThumbMOVHi
		}
		return pick(w.bit(7), OpThumbBLX, OpThumbBX)
	case w.bits(12, 11) == 0b01:
		return OpThumbLDRPC
	case !w.bit(9):
		return [4]Op{OpThumbSTRReg, OpThumbSTRBReg, OpThumbLDRReg, OpThumbLDRBReg}[w.bits(11, 10)]
	}
	return [4]Op{OpThumbSTRHReg, OpThumbLDRSBReg, OpThumbLDRHReg, OpThumbLDRSHReg}[w.bits(11, 10)]
}

func decodeThumbMisc(w ThumbWord) Op {
	switch {
	case w.bits(11, 8) == 0b0000:
		return OpThumbADJSP
	case w.bits(10, 9) == 0b10:
		if w.RegList() == 0 && !w.R() {
			return OpUndefined
		}
		return pick(w.bit(11), OpThumbPOP, OpThumbPUSH)
	case w.bits(11, 8) == 0b1110:
		return OpThumbBKPT
	}
	return OpUndefined
}

func pick(cond bool, yes, no Op) Op {
	if cond {
		return yes
	}
	return no
}

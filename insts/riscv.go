package insts

// RVWord is a 32-bit RISC-V instruction.
type RVWord uint32

func (w RVWord) bits(hi, lo uint) uint32 {
	return uint32(w) >> lo & (1<<(hi-lo+1) - 1)
}

// Opcode returns the major opcode, bits 6:0.
func (w RVWord) Opcode() uint32 { return w.bits(6, 0) }

func (w RVWord) Rd() int        { return int(w.bits(11, 7)) }
func (w RVWord) Rs1() int       { return int(w.bits(19, 15)) }
func (w RVWord) Rs2() int       { return int(w.bits(24, 20)) }
func (w RVWord) Funct3() uint32 { return w.bits(14, 12) }
func (w RVWord) Funct7() uint32 { return w.bits(31, 25) }

// Funct5 returns the AMO operation field.
func (w RVWord) Funct5() uint32 { return w.bits(31, 27) }

// Aq and Rl are the AMO ordering bits.
func (w RVWord) Aq() bool { return w.bits(26, 26) != 0 }
func (w RVWord) Rl() bool { return w.bits(25, 25) != 0 }

// Shamt returns the 6-bit shift amount of the RV64 immediate shifts.
func (w RVWord) Shamt() uint32 { return w.bits(25, 20) }

// CSR returns the 12-bit CSR address.
func (w RVWord) CSR() uint32 { return w.bits(31, 20) }

// ImmI returns the sign-extended I-type immediate.
func (w RVWord) ImmI() int64 {
	return int64(int32(w) >> 20)
}

// ImmS returns the sign-extended S-type immediate.
func (w RVWord) ImmS() int64 {
	return int64(int32(w)>>25<<5) | int64(w.bits(11, 7))
}

// ImmB returns the sign-extended B-type byte offset.
func (w RVWord) ImmB() int64 {
	v := int64(int32(w)>>31) << 12
	v |= int64(w.bits(7, 7)) << 11
	v |= int64(w.bits(30, 25)) << 5
	v |= int64(w.bits(11, 8)) << 1
	return v
}

// ImmU returns the sign-extended U-type immediate, already shifted.
func (w RVWord) ImmU() int64 {
	return int64(int32(uint32(w) & 0xFFFFF000))
}

// ImmJ returns the sign-extended J-type byte offset.
func (w RVWord) ImmJ() int64 {
	v := int64(int32(w)>>31) << 20
	v |= int64(w.bits(19, 12)) << 12
	v |= int64(w.bits(20, 20)) << 11
	v |= int64(w.bits(30, 21)) << 1
	return v
}

// Width returns the access size in bytes of an AMO.
func (w RVWord) Width() int {
	return 1 << w.Funct3()
}

// Fixed SYSTEM encodings.
const (
	rvECALL  = 0x00000073
	rvEBREAK = 0x00100073
	rvSRET   = 0x10200073
	rvMRET   = 0x30200073
	rvWFI    = 0x10500073
)

// DecodeRV decodes a 32-bit RISC-V instruction. Compressed encodings are
// not implemented and decode to OpUndefined.
func DecodeRV(word uint32) Opcode {
	return Opcode{Word: word, Family: FamilyRISCV, Op: decodeRVOp(RVWord(word))}
}

func decodeRVOp(w RVWord) Op {
	f3 := w.Funct3()
	f7 := w.Funct7()

	switch w.Opcode() {
	case 0x37:
		return OpRVLUI
	case 0x17:
		return OpRVAUIPC
	case 0x6F:
		return OpRVJAL
	case 0x67:
		if f3 == 0 {
			return OpRVJALR
		}
	case 0x63:
		return [8]Op{OpRVBEQ, OpRVBNE, OpUndefined, OpUndefined,
			OpRVBLT, OpRVBGE, OpRVBLTU, OpRVBGEU}[f3]
	case 0x03:
		return [8]Op{OpRVLB, OpRVLH, OpRVLW, OpRVLD,
			OpRVLBU, OpRVLHU, OpRVLWU, OpUndefined}[f3]
	case 0x23:
		return [8]Op{OpRVSB, OpRVSH, OpRVSW, OpRVSD,
			OpUndefined, OpUndefined, OpUndefined, OpUndefined}[f3]
	case 0x13:
		return decodeOpImm(w, f3)
	case 0x1B:
		return decodeOpImm32(f3, f7)
	case 0x33:
		return decodeOp(f3, f7)
	case 0x3B:
		return decodeOp32(f3, f7)
	case 0x2F:
		return decodeAMO(w, f3)
	case 0x0F:
		switch f3 {
		case 0:
			return OpRVFENCE
		case 1:
			return OpRVFENCEI
		}
	case 0x73:
		return decodeSystem(w, f3, f7)
	}

	return OpUndefined
}

func decodeOpImm(w RVWord, f3 uint32) Op {
	switch f3 {
	case 0:
		return OpRVADDI
	case 1:
		if w.bits(31, 26) == 0 {
			return OpRVSLLI
		}
	case 2:
		return OpRVSLTI
	case 3:
		return OpRVSLTIU
	case 4:
		return OpRVXORI
	case 5:
		switch w.bits(31, 26) {
		case 0x00:
			return OpRVSRLI
		case 0x10:
			return OpRVSRAI
		}
	case 6:
		return OpRVORI
	case 7:
		return OpRVANDI
	}
	return OpUndefined
}

func decodeOpImm32(f3, f7 uint32) Op {
	switch {
	case f3 == 0:
		return OpRVADDIW
	case f3 == 1 && f7 == 0:
		return OpRVSLLIW
	case f3 == 5 && f7 == 0:
		return OpRVSRLIW
	case f3 == 5 && f7 == 0x20:
		return OpRVSRAIW
	}
	return OpUndefined
}

func decodeOp(f3, f7 uint32) Op {
	switch f7 {
	case 0x00:
		return [8]Op{OpRVADD, OpRVSLL, OpRVSLT, OpRVSLTU,
			OpRVXOR, OpRVSRL, OpRVOR, OpRVAND}[f3]
	case 0x20:
		switch f3 {
		case 0:
			return OpRVSUB
		case 5:
			return OpRVSRA
		}
	case 0x01:
		return [8]Op{OpRVMUL, OpRVMULH, OpRVMULHSU, OpRVMULHU,
			OpRVDIV, OpRVDIVU, OpRVREM, OpRVREMU}[f3]
	}
	return OpUndefined
}

func decodeOp32(f3, f7 uint32) Op {
	switch f7 {
	case 0x00:
		switch f3 {
		case 0:
			return OpRVADDW
		case 1:
			return OpRVSLLW
		case 5:
			return OpRVSRLW
		}
	case 0x20:
		switch f3 {
		case 0:
			return OpRVSUBW
		case 5:
			return OpRVSRAW
		}
	case 0x01:
		return [8]Op{OpRVMULW, OpUndefined, OpUndefined, OpUndefined,
			OpRVDIVW, OpRVDIVUW, OpRVREMW, OpRVREMUW}[f3]
	}
	return OpUndefined
}

func decodeAMO(w RVWord, f3 uint32) Op {
	if f3 != 2 && f3 != 3 {
		return OpUndefined
	}

	switch w.Funct5() {
	case 0x02:
		if w.Rs2() == 0 {
			return OpRVLR
		}
	case 0x03:
		return OpRVSC
	case 0x01:
		return OpRVAMOSWAP
	case 0x00:
		return OpRVAMOADD
	case 0x04:
		return OpRVAMOXOR
	case 0x0C:
		return OpRVAMOAND
	case 0x08:
		return OpRVAMOOR
	case 0x10:
		return OpRVAMOMIN
	case 0x14:
		return OpRVAMOMAX
	case 0x18:
		return OpRVAMOMINU
	case 0x1C:
		return OpRVAMOMAXU
	}
	return OpUndefined
}

func decodeSystem(w RVWord, f3, f7 uint32) Op {
	if f3 == 0 {
		switch uint32(w) {
		case rvECALL:
			return OpRVECALL
		case rvEBREAK:
			return OpRVEBREAK
		case rvMRET:
			return OpRVMRET
		case rvSRET:
			return OpRVSRET
		case rvWFI:
			return OpRVWFI
		}
		if f7 == 0x09 && w.Rd() == 0 {
			return OpRVSFENCEVMA
		}
		return OpUndefined
	}

	return [8]Op{OpUndefined, OpRVCSRRW, OpRVCSRRS, OpRVCSRRC,
		OpUndefined, OpRVCSRRWI, OpRVCSRRSI, OpRVCSRRCI}[f3]
}

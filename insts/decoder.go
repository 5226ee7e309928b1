package insts

// DecodeARM decodes an ARM-state word.
func DecodeARM(word uint32) Opcode {
	return Opcode{Word: word, Family: FamilyARM, Op: decodeARMOp(ARMWord(word))}
}

func decodeARMOp(w ARMWord) Op {
	if w.Cond() == CondNV {
		return decodeUnconditional(w)
	}

	switch w.bits(27, 25) {
	case 0b000:
		return decodeDataOrMisc(w)
	case 0b001:
		if isMiscSpace(w) {
			if w.W() {
				return OpMSR
			}
			return OpUndefined
		}
		return OpAND + Op(w.DPOpcode())
	case 0b010:
		return loadOrStore(w)
	case 0b011:
		if w.bit(4) {
			return OpUndefined
		}
		return loadOrStore(w)
	case 0b100:
		if w.RegList() == 0 {
			return OpUndefined
		}
		if w.L() {
			return OpLDM
		}
		return OpSTM
	case 0b101:
		if w.bit(24) {
			return OpBL
		}
		return OpB
	case 0b110:
		return OpUndefined
	default:
		return decodeCoprocessor(w)
	}
}

// decodeUnconditional handles the cond == 0b1111 space.
func decodeUnconditional(w ARMWord) Op {
	switch {
	case w.bits(27, 25) == 0b101:
		return OpBLXImm
	case uint32(w)&0x0D70F000 == 0x0550F000:
		return OpPLD
	}
	return OpUndefined
}

// isMiscSpace matches the TST/TEQ/CMP/CMN opcodes without the S bit, which
// encode status-register and branch-exchange instructions instead.
func isMiscSpace(w ARMWord) bool {
	return w.bits(24, 23) == 0b10 && !w.S()
}

func decodeDataOrMisc(w ARMWord) Op {
	if w.bit(7) && w.bit(4) {
		return decodeMultiplyOrExtra(w)
	}

	if isMiscSpace(w) {
		return decodeMisc(w)
	}

	return OpAND + Op(w.DPOpcode())
}

func decodeMisc(w ARMWord) Op {
	op := w.bits(22, 21)

	switch w.bits(7, 4) {
	case 0b0000:
		if op&1 == 0 {
			return OpMRS
		}
		return OpMSR
	case 0b0001:
		switch op {
		case 0b01:
			return OpBX
		case 0b11:
			return OpCLZ
		}
	case 0b0011:
		if op == 0b01 {
			return OpBLXReg
		}
	case 0b0111:
		if op == 0b01 {
			return OpBKPT
		}
	}

	return OpUndefined
}

func decodeMultiplyOrExtra(w ARMWord) Op {
	sh := w.bits(6, 5)

	if sh == 0 {
		switch {
		case w.bits(27, 22) == 0:
			if w.W() {
				return OpMLA
			}
			return OpMUL
		case w.bits(27, 23) == 0b00001:
			return [4]Op{OpUMULL, OpUMLAL, OpSMULL, OpSMLAL}[w.bits(22, 21)]
		case w.bits(27, 23) == 0b00010 && w.bits(21, 20) == 0 && w.bits(11, 8) == 0:
			return OpSWP
		}
		return OpUndefined
	}

	if w.L() {
		return [4]Op{OpUndefined, OpLDRH, OpLDRSB, OpLDRSH}[sh]
	}
	return [4]Op{OpUndefined, OpSTRH, OpLDRD, OpSTRD}[sh]
}

func loadOrStore(w ARMWord) Op {
	if w.L() {
		return OpLDR
	}
	return OpSTR
}

func decodeCoprocessor(w ARMWord) Op {
	if w.bit(24) {
		return OpSWI
	}
	if !w.bit(4) || w.CPNum() != 15 {
		return OpUndefined
	}
	if w.L() {
		return OpMRC
	}
	return OpMCR
}

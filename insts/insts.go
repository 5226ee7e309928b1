// Package insts decodes ARM, Thumb and RV64 machine words.
//
// Decoding is pure and total: every word of a family maps to exactly one
// Op, with OpUndefined for encodings the cores do not implement.
//
// Usage:
//
//	op := insts.DecodeARM(0xE2800001) // add r0, r0, #1
//	fmt.Println(op.Op, insts.ARMWord(op.Word).Rd())
package insts

// Family selects the instruction set a word belongs to.
type Family uint8

// Instruction families.
const (
	FamilyARM Family = iota
	FamilyThumb
	FamilyRISCV
)

func (f Family) String() string {
	switch f {
	case FamilyARM:
		return "arm"
	case FamilyThumb:
		return "thumb"
	case FamilyRISCV:
		return "riscv"
	}
	return "?"
}

// Opcode is one decoded instruction: the raw word and its operation tag.
// Operand fields are read from the word through the family's accessors.
type Opcode struct {
	Word   uint32
	Family Family
	Op     Op
}

// Cond is an ARM condition code.
type Cond uint8

// Condition codes.
const (
	CondEQ Cond = iota
	CondNE
	CondCS
	CondCC
	CondMI
	CondPL
	CondVS
	CondVC
	CondHI
	CondLS
	CondGE
	CondLT
	CondGT
	CondLE
	CondAL
	CondNV
)

var condNames = [16]string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le", "", "nv",
}

// String returns the mnemonic suffix, empty for AL.
func (c Cond) String() string {
	return condNames[c&0xF]
}

// Holds reports whether the condition passes for the given flags.
func (c Cond) Holds(n, z, carry, v bool) bool {
	switch c & 0xF {
	case CondEQ:
		return z
	case CondNE:
		return !z
	case CondCS:
		return carry
	case CondCC:
		return !carry
	case CondMI:
		return n
	case CondPL:
		return !n
	case CondVS:
		return v
	case CondVC:
		return !v
	case CondHI:
		return carry && !z
	case CondLS:
		return !carry || z
	case CondGE:
		return n == v
	case CondLT:
		return n != v
	case CondGT:
		return !z && n == v
	case CondLE:
		return z || n != v
	}
	return true
}

// ShiftType is the barrel shifter operation.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL ShiftType = iota
	ShiftLSR
	ShiftASR
	ShiftROR
	// ShiftRRX is ROR #0 in the immediate-shift form.
	ShiftRRX
)

func (s ShiftType) String() string {
	return [...]string{"lsl", "lsr", "asr", "ror", "rrx"}[s]
}

// Disasm receives the text form of an instruction. Handlers fill it in
// when asked to disassemble instead of execute.
type Disasm struct {
	Mnemonic string
	Operands string
}

func (d Disasm) String() string {
	if d.Operands == "" {
		return d.Mnemonic
	}
	return d.Mnemonic + " " + d.Operands
}

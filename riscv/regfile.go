package riscv

// RegFile holds x0-x31 and the PC. x0 reads as zero and ignores writes.
type RegFile struct {
	x  [32]uint64
	pc uint64
}

// X reads register i.
func (rf *RegFile) X(i int) uint64 {
	return rf.x[i&31]
}

// SetX writes register i. Writes to x0 are dropped.
func (rf *RegFile) SetX(i int, v uint64) {
	if i&31 != 0 {
		rf.x[i&31] = v
	}
}

// PC returns the address of the executing instruction.
func (rf *RegFile) PC() uint64 {
	return rf.pc
}

// SetPC sets the address of the next instruction to fetch.
func (rf *RegFile) SetPC(pc uint64) {
	rf.pc = pc
}

func (rf *RegFile) reset() {
	*rf = RegFile{}
}

var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func regName(i int) string {
	return abiNames[i&31]
}

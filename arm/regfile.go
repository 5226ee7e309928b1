package arm

// Banks of mode-private registers. System mode shares the user bank.
const (
	bankUser = iota
	bankFIQ
	bankIRQ
	bankSVC
	bankAbort
	bankUndef
	numBanks
)

func bankOf(m Mode) (int, bool) {
	switch m {
	case ModeUser, ModeSystem:
		return bankUser, true
	case ModeFIQ:
		return bankFIQ, true
	case ModeIRQ:
		return bankIRQ, true
	case ModeSVC:
		return bankSVC, true
	case ModeAbort:
		return bankAbort, true
	case ModeUndef:
		return bankUndef, true
	}
	return 0, false
}

// firstPrivate is the lowest register a bank owns privately.
func firstPrivate(bank int) int {
	switch bank {
	case bankUser:
		return 15
	case bankFIQ:
		return 8
	}
	return 13
}

// holder returns the bank whose shadow holds register i while bank is
// active.
func holder(bank, i int) int {
	if i >= firstPrivate(bank) {
		return bank
	}
	return bankUser
}

// RegFile is the ARM register file.
//
// r holds the registers visible in the current mode. shadow keeps each
// bank's private registers while another bank is active, and the user
// bank's copies of r8-r14 while a bank that privately owns them is active.
// Switching banks saves the outgoing private slots and loads the incoming
// ones, so no register is lost or duplicated.
type RegFile struct {
	r      [16]uint32
	shadow [numBanks][15]uint32
	spsr   [numBanks]PSR
	cpsr   PSR
	bank   int

	branched bool
}

// NewRegFile returns a register file in SVC mode with interrupts masked.
func NewRegFile() *RegFile {
	rf := &RegFile{}
	rf.Reset()
	return rf
}

// Reset clears every register and enters SVC mode with I and F set.
func (rf *RegFile) Reset() {
	*rf = RegFile{}
	rf.cpsr = PSR(ModeUser)
	rf.SetCPSR(PSR(ModeSVC) | PSRI | PSRF)
}

// CPSR returns the current program status register.
func (rf *RegFile) CPSR() PSR {
	return rf.cpsr
}

// SetCPSR replaces the CPSR, switching register banks when the mode
// changes. An unimplemented mode value leaves the mode unchanged.
func (rf *RegFile) SetCPSR(p PSR) {
	in, ok := bankOf(p.Mode())
	if !ok {
		p = p.WithMode(rf.cpsr.Mode())
		in = rf.bank
	}

	if in != rf.bank {
		rf.switchBank(rf.bank, in)
	}
	rf.cpsr = p
}

func (rf *RegFile) switchBank(out, in int) {
	lo := min(firstPrivate(out), firstPrivate(in))

	for i := lo; i < 15; i++ {
		rf.shadow[holder(out, i)][i] = rf.r[i]
	}
	for i := lo; i < 15; i++ {
		rf.r[i] = rf.shadow[holder(in, i)][i]
	}

	rf.bank = in
}

// Mode returns the current mode.
func (rf *RegFile) Mode() Mode {
	return rf.cpsr.Mode()
}

// Thumb reports whether the T bit is set.
func (rf *RegFile) Thumb() bool {
	return rf.cpsr.T()
}

// HasSPSR reports whether the current mode has a saved status register.
func (rf *RegFile) HasSPSR() bool {
	return rf.bank != bankUser
}

// SPSR returns the current mode's saved status register. User and system
// modes have none and read the CPSR.
func (rf *RegFile) SPSR() PSR {
	if rf.bank == bankUser {
		return rf.cpsr
	}
	return rf.spsr[rf.bank]
}

// SetSPSR writes the current mode's saved status register. It is ignored in
// user and system modes.
func (rf *RegFile) SetSPSR(p PSR) {
	if rf.bank != bankUser {
		rf.spsr[rf.bank] = p
	}
}

// lookahead is how far the PC reads ahead of the executing instruction.
func (rf *RegFile) lookahead() uint32 {
	if rf.cpsr.T() {
		return 4
	}
	return 8
}

// R reads register i. Reading r15 yields the executing instruction's
// address plus 8 in ARM state or plus 4 in Thumb state.
func (rf *RegFile) R(i int) uint32 {
	if i == 15 {
		return rf.r[15] + rf.lookahead()
	}
	return rf.r[i]
}

// SetR writes register i. Writing r15 stores the value as the next
// instruction address and marks the instruction as having branched; a
// later R(15) reads it back plus the lookahead, as the instruction at that
// address would see it.
func (rf *RegFile) SetR(i int, v uint32) {
	if i == 15 {
		rf.branched = true
	}
	rf.r[i] = v
}

// UserR reads register i of the user bank regardless of the current mode.
func (rf *RegFile) UserR(i int) uint32 {
	if i < 15 && holder(rf.bank, i) != bankUser {
		return rf.shadow[bankUser][i]
	}
	return rf.R(i)
}

// SetUserR writes register i of the user bank regardless of the current
// mode.
func (rf *RegFile) SetUserR(i int, v uint32) {
	if i < 15 && holder(rf.bank, i) != bankUser {
		rf.shadow[bankUser][i] = v
		return
	}
	rf.SetR(i, v)
}

// PC returns the address of the executing instruction.
func (rf *RegFile) PC() uint32 {
	return rf.r[15]
}

// SetPC sets the next instruction address without marking a branch.
func (rf *RegFile) SetPC(v uint32) {
	rf.r[15] = v
}

// Branched reports whether r15 was written since ClearBranched.
func (rf *RegFile) Branched() bool {
	return rf.branched
}

// ClearBranched resets the branch-taken flag.
func (rf *RegFile) ClearBranched() {
	rf.branched = false
}

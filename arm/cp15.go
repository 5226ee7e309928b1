package arm

// CP15 control register bits.
const (
	CtrlM  uint32 = 1 << 0
	CtrlA  uint32 = 1 << 1
	CtrlC  uint32 = 1 << 2
	CtrlW  uint32 = 1 << 3
	CtrlS  uint32 = 1 << 8
	CtrlR  uint32 = 1 << 9
	CtrlI  uint32 = 1 << 12
	CtrlV  uint32 = 1 << 13
	CtrlRR uint32 = 1 << 14

	ctrlWritable = CtrlM | CtrlA | CtrlC | CtrlW | CtrlS | CtrlR | CtrlI | CtrlV | CtrlRR
	ctrlFixed    = 0x00050078
)

// Identification values of an ARM926EJ-S.
const (
	MainID    uint32 = 0x41069265
	CacheType uint32 = 0x1D152152
)

// Fault status codes.
const (
	FaultAlignment        uint32 = 0x1
	FaultDebug            uint32 = 0x2
	FaultExternal         uint32 = 0x8
	FaultTranslationL1Ext uint32 = 0xC
	FaultTranslationL2Ext uint32 = 0xE
	FaultTranslationSect  uint32 = 0x5
	FaultTranslationPage  uint32 = 0x7
	FaultDomainSect       uint32 = 0x9
	FaultDomainPage       uint32 = 0xB
	FaultPermissionSect   uint32 = 0xD
	FaultPermissionPage   uint32 = 0xF
)

// CP15 is the system control coprocessor.
type CP15 struct {
	Control uint32
	TTBR    uint32
	DACR    uint32
	DFSR    uint32
	IFSR    uint32
	FAR     uint32
	PID     uint32
	Context uint32
}

func (cp *CP15) reset(highVectors bool) {
	*cp = CP15{Control: ctrlFixed}
	if highVectors {
		cp.Control |= CtrlV
	}
}

// MMUEnabled reports the M bit.
func (cp *CP15) MMUEnabled() bool { return cp.Control&CtrlM != 0 }

// AlignmentCheck reports the A bit.
func (cp *CP15) AlignmentCheck() bool { return cp.Control&CtrlA != 0 }

// HighVectors reports the V bit.
func (cp *CP15) HighVectors() bool { return cp.Control&CtrlV != 0 }

// VectorBase returns the exception vector base address.
func (cp *CP15) VectorBase() uint32 {
	if cp.HighVectors() {
		return 0xFFFF0000
	}
	return 0
}

// cpOp identifies one CP15 register access.
type cpOp struct {
	crn, crm, op2 int
}

// mrc reads a CP15 register. ok is false for encodings that do not exist.
func (c *Core) mrc(op cpOp) (uint32, bool) {
	cp := &c.cp15

	switch op.crn {
	case 0:
		if op.op2 == 1 {
			return CacheType, true
		}
		return MainID, true
	case 1:
		return cp.Control, true
	case 2:
		return cp.TTBR, true
	case 3:
		return cp.DACR, true
	case 5:
		if op.op2 == 1 {
			return cp.IFSR, true
		}
		return cp.DFSR, true
	case 6:
		return cp.FAR, true
	case 7:
		// Test-and-clean operations report a clean cache through Z.
		if op.crm == 10 && op.op2 == 3 || op.crm == 14 && op.op2 == 3 {
			return uint32(PSRZ), true
		}
		return 0, true
	case 13:
		if op.op2 == 1 {
			return cp.Context, true
		}
		return cp.PID, true
	case 9, 10, 15:
		return 0, true
	}
	return 0, false
}

// mcr writes a CP15 register. ok is false for encodings that do not exist.
func (c *Core) mcr(op cpOp, v uint32) bool {
	cp := &c.cp15

	switch op.crn {
	case 1:
		old := cp.Control
		cp.Control = v&ctrlWritable | ctrlFixed
		if (old^cp.Control)&(CtrlM|CtrlS|CtrlR) != 0 {
			c.mmu.Flush()
		}
	case 2:
		cp.TTBR = v
		c.mmu.Flush()
	case 3:
		cp.DACR = v
	case 5:
		if op.op2 == 1 {
			cp.IFSR = v
		} else {
			cp.DFSR = v
		}
	case 6:
		cp.FAR = v
	case 7:
		if op.crm == 0 && op.op2 == 4 || op.crm == 8 && op.op2 == 2 {
			c.waiting = true
		}
	case 8:
		if op.op2 == 1 {
			c.mmu.FlushPage(v)
		} else {
			c.mmu.Flush()
		}
	case 13:
		if op.op2 == 1 {
			cp.Context = v
		} else {
			cp.PID = v & 0xFE000000
		}
	case 0:
		// ID registers ignore writes.
	case 9, 10, 15:
		// Cache lockdown and test registers are accepted and ignored.
	default:
		return false
	}
	return true
}

package riscv

// Privilege levels.
type Priv uint8

const (
	PrivUser       Priv = 0
	PrivSupervisor Priv = 1
	PrivMachine    Priv = 3
)

func (p Priv) String() string {
	switch p {
	case PrivUser:
		return "U"
	case PrivSupervisor:
		return "S"
	case PrivMachine:
		return "M"
	}
	return "?"
}

// CSR addresses.
const (
	CSRSstatus    = 0x100
	CSRSie        = 0x104
	CSRStvec      = 0x105
	CSRScounteren = 0x106
	CSRSscratch   = 0x140
	CSRSepc       = 0x141
	CSRScause     = 0x142
	CSRStval      = 0x143
	CSRSip        = 0x144
	CSRSatp       = 0x180

	CSRMstatus    = 0x300
	CSRMisa       = 0x301
	CSRMedeleg    = 0x302
	CSRMideleg    = 0x303
	CSRMie        = 0x304
	CSRMtvec      = 0x305
	CSRMcounteren = 0x306
	CSRMscratch   = 0x340
	CSRMepc       = 0x341
	CSRMcause     = 0x342
	CSRMtval      = 0x343
	CSRMip        = 0x344

	CSRMcycle   = 0xB00
	CSRMinstret = 0xB02
	CSRCycle    = 0xC00
	CSRTime     = 0xC01
	CSRInstret  = 0xC02

	CSRMvendorid = 0xF11
	CSRMarchid   = 0xF12
	CSRMimpid    = 0xF13
	CSRMhartid   = 0xF14
)

// mstatus fields.
const (
	StatusSIE  uint64 = 1 << 1
	StatusMIE  uint64 = 1 << 3
	StatusSPIE uint64 = 1 << 5
	StatusMPIE uint64 = 1 << 7
	StatusSPP  uint64 = 1 << 8
	StatusMPP  uint64 = 3 << 11
	StatusMPRV uint64 = 1 << 17
	StatusSUM  uint64 = 1 << 18
	StatusMXR  uint64 = 1 << 19
	StatusTVM  uint64 = 1 << 20
	StatusTW   uint64 = 1 << 21
	StatusTSR  uint64 = 1 << 22
	StatusUXL  uint64 = 3 << 32
	StatusSXL  uint64 = 3 << 34

	statusMPPShift = 11

	// UXL and SXL read as 64-bit.
	statusFixed = 2<<32 | 2<<34

	mstatusWritable = StatusSIE | StatusMIE | StatusSPIE | StatusMPIE | StatusSPP |
		StatusMPP | StatusMPRV | StatusSUM | StatusMXR | StatusTVM | StatusTW | StatusTSR
	sstatusMask = StatusSIE | StatusSPIE | StatusSPP | StatusSUM | StatusMXR | StatusUXL
)

// Interrupt cause codes, which are also the mip/mie bit positions.
const (
	IntSSoft     = 1
	IntMSoft     = 3
	IntSTimer    = 5
	IntMTimer    = 7
	IntSExternal = 9
	IntMExternal = 11
)

// Exception cause codes.
const (
	CauseFetchMisaligned = 0
	CauseFetchAccess     = 1
	CauseIllegal         = 2
	CauseBreakpoint      = 3
	CauseLoadMisaligned  = 4
	CauseLoadAccess      = 5
	CauseStoreMisaligned = 6
	CauseStoreAccess     = 7
	CauseUserECall       = 8
	CauseSupervisorECall = 9
	CauseMachineECall    = 11
	CauseFetchPage       = 12
	CauseLoadPage        = 13
	CauseStorePage       = 15
)

const (
	// misaValue is RV64 with A, I, M, S and U.
	misaValue uint64 = 2<<62 | 1<<0 | 1<<8 | 1<<12 | 1<<18 | 1<<20

	interruptMask uint64 = 1<<IntSSoft | 1<<IntMSoft | 1<<IntSTimer |
		1<<IntMTimer | 1<<IntSExternal | 1<<IntMExternal
	supervisorInts uint64 = 1<<IntSSoft | 1<<IntSTimer | 1<<IntSExternal

	// Machine-mode software may set the supervisor pending bits directly.
	mipWritable uint64 = supervisorInts

	medelegWritable uint64 = 0xB3FF

	causeInterrupt uint64 = 1 << 63
)

// interruptOrder lists interrupts from highest to lowest priority.
var interruptOrder = [...]uint64{
	IntMExternal, IntMSoft, IntMTimer, IntSExternal, IntSSoft, IntSTimer,
}

// Satp modes.
const (
	SatpBare uint64 = 0
	SatpSv39 uint64 = 8
)

// CSRFile holds the control and status registers that keep state.
type CSRFile struct {
	Mstatus    uint64
	Medeleg    uint64
	Mideleg    uint64
	Mie        uint64
	Mip        uint64
	Mtvec      uint64
	Mcounteren uint64
	Mscratch   uint64
	Mepc       uint64
	Mcause     uint64
	Mtval      uint64

	Stvec      uint64
	Scounteren uint64
	Sscratch   uint64
	Sepc       uint64
	Scause     uint64
	Stval      uint64
	Satp       uint64

	Cycle   uint64
	Instret uint64
}

func (f *CSRFile) reset() {
	*f = CSRFile{Mstatus: statusFixed}
}

// MPP returns the previous privilege saved by a machine trap.
func (f *CSRFile) MPP() Priv {
	return Priv(f.Mstatus & StatusMPP >> statusMPPShift)
}

func (f *CSRFile) setMPP(p Priv) {
	f.Mstatus = f.Mstatus&^StatusMPP | uint64(p)<<statusMPPShift
}

func (f *CSRFile) set(bit uint64, on bool) {
	if on {
		f.Mstatus |= bit
	} else {
		f.Mstatus &^= bit
	}
}

func (f *CSRFile) has(bit uint64) bool {
	return f.Mstatus&bit != 0
}

// SatpMode returns the translation mode selected by satp.
func (f *CSRFile) SatpMode() uint64 {
	return f.Satp >> 60
}

// csrNames names CSRs for the disassembler.
var csrNames = map[uint32]string{
	CSRSstatus: "sstatus", CSRSie: "sie", CSRStvec: "stvec",
	CSRScounteren: "scounteren", CSRSscratch: "sscratch", CSRSepc: "sepc",
	CSRScause: "scause", CSRStval: "stval", CSRSip: "sip", CSRSatp: "satp",
	CSRMstatus: "mstatus", CSRMisa: "misa", CSRMedeleg: "medeleg",
	CSRMideleg: "mideleg", CSRMie: "mie", CSRMtvec: "mtvec",
	CSRMcounteren: "mcounteren", CSRMscratch: "mscratch", CSRMepc: "mepc",
	CSRMcause: "mcause", CSRMtval: "mtval", CSRMip: "mip",
	CSRMcycle: "mcycle", CSRMinstret: "minstret",
	CSRCycle: "cycle", CSRTime: "time", CSRInstret: "instret",
	CSRMvendorid: "mvendorid", CSRMarchid: "marchid", CSRMimpid: "mimpid",
	CSRMhartid: "mhartid",
}

func csrName(n uint32) string {
	if s, ok := csrNames[n]; ok {
		return s
	}
	return sprintf("%#x", n)
}

// readCSR returns the value of CSR n as seen from the current privilege
// level. ok is false when the access is illegal.
func (c *Core) readCSR(n uint32) (uint64, bool) {
	if !c.csrAccessible(n) {
		return 0, false
	}
	f := &c.csr

	switch n {
	case CSRSstatus:
		return f.Mstatus & sstatusMask, true
	case CSRSie:
		return f.Mie & f.Mideleg, true
	case CSRStvec:
		return f.Stvec, true
	case CSRScounteren:
		return f.Scounteren, true
	case CSRSscratch:
		return f.Sscratch, true
	case CSRSepc:
		return f.Sepc, true
	case CSRScause:
		return f.Scause, true
	case CSRStval:
		return f.Stval, true
	case CSRSip:
		return c.pendingBits() & f.Mideleg, true
	case CSRSatp:
		if c.priv == PrivSupervisor && f.has(StatusTVM) {
			return 0, false
		}
		return f.Satp, true
	case CSRMstatus:
		return f.Mstatus, true
	case CSRMisa:
		return misaValue, true
	case CSRMedeleg:
		return f.Medeleg, true
	case CSRMideleg:
		return f.Mideleg, true
	case CSRMie:
		return f.Mie, true
	case CSRMip:
		return c.pendingBits(), true
	case CSRMtvec:
		return f.Mtvec, true
	case CSRMcounteren:
		return f.Mcounteren, true
	case CSRMscratch:
		return f.Mscratch, true
	case CSRMepc:
		return f.Mepc, true
	case CSRMcause:
		return f.Mcause, true
	case CSRMtval:
		return f.Mtval, true
	case CSRMcycle:
		return f.Cycle, true
	case CSRMinstret:
		return f.Instret, true
	case CSRCycle, CSRTime, CSRInstret:
		if !c.counterEnabled(n - CSRCycle) {
			return 0, false
		}
		switch n {
		case CSRCycle:
			return f.Cycle, true
		case CSRTime:
			return c.time(), true
		}
		return f.Instret, true
	case CSRMvendorid, CSRMarchid, CSRMimpid:
		return 0, true
	case CSRMhartid:
		return c.hartID, true
	}
	return 0, false
}

// writeCSR stores v into CSR n. ok is false when the access is illegal.
func (c *Core) writeCSR(n uint32, v uint64) bool {
	if !c.csrAccessible(n) || n>>10 == 3 {
		return false
	}
	f := &c.csr

	switch n {
	case CSRSstatus:
		f.Mstatus = f.Mstatus&^sstatusMask | v&sstatusMask&^StatusUXL
	case CSRSie:
		f.Mie = f.Mie&^f.Mideleg | v&f.Mideleg
	case CSRStvec:
		f.Stvec = v &^ 2
	case CSRScounteren:
		f.Scounteren = v & 7
	case CSRSscratch:
		f.Sscratch = v
	case CSRSepc:
		f.Sepc = v &^ 3
	case CSRScause:
		f.Scause = v
	case CSRStval:
		f.Stval = v
	case CSRSip:
		mask := f.Mideleg & (1 << IntSSoft)
		f.Mip = f.Mip&^mask | v&mask
	case CSRSatp:
		if c.priv == PrivSupervisor && f.has(StatusTVM) {
			return false
		}
		c.writeSatp(v)
	case CSRMstatus:
		f.Mstatus = v&mstatusWritable | statusFixed
		if f.MPP() == 2 {
			f.setMPP(PrivUser)
		}
	case CSRMisa:
	case CSRMedeleg:
		f.Medeleg = v & medelegWritable
	case CSRMideleg:
		f.Mideleg = v & supervisorInts
	case CSRMie:
		f.Mie = v & interruptMask
	case CSRMip:
		f.Mip = f.Mip&^mipWritable | v&mipWritable
	case CSRMtvec:
		f.Mtvec = v &^ 2
	case CSRMcounteren:
		f.Mcounteren = v & 7
	case CSRMscratch:
		f.Mscratch = v
	case CSRMepc:
		f.Mepc = v &^ 3
	case CSRMcause:
		f.Mcause = v
	case CSRMtval:
		f.Mtval = v
	case CSRMcycle:
		f.Cycle = v
	case CSRMinstret:
		f.Instret = v
	default:
		return false
	}
	return true
}

// csrAccessible checks the privilege encoded in bits 9:8 of the address.
func (c *Core) csrAccessible(n uint32) bool {
	return Priv(n>>8&3) <= c.priv
}

// counterEnabled reports whether counter i (0 cycle, 1 time, 2 instret) may
// be read at the current privilege.
func (c *Core) counterEnabled(i uint32) bool {
	switch c.priv {
	case PrivMachine:
		return true
	case PrivSupervisor:
		return c.csr.Mcounteren>>i&1 != 0
	}
	return c.csr.Mcounteren>>i&1 != 0 && c.csr.Scounteren>>i&1 != 0
}

func (c *Core) writeSatp(v uint64) {
	mode := v >> 60
	if mode != SatpBare && mode != SatpSv39 {
		return
	}
	// ASIDs are not implemented; the field reads as zero.
	c.csr.Satp = v &^ (0xFFFF << 44)
	c.mmu.Flush()
}

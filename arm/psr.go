package arm

import "fmt"

// Mode is the processor mode held in PSR bits 4:0.
type Mode uint32

// Processor modes.
const (
	ModeUser   Mode = 0x10
	ModeFIQ    Mode = 0x11
	ModeIRQ    Mode = 0x12
	ModeSVC    Mode = 0x13
	ModeAbort  Mode = 0x17
	ModeUndef  Mode = 0x1B
	ModeSystem Mode = 0x1F
)

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "usr"
	case ModeFIQ:
		return "fiq"
	case ModeIRQ:
		return "irq"
	case ModeSVC:
		return "svc"
	case ModeAbort:
		return "abt"
	case ModeUndef:
		return "und"
	case ModeSystem:
		return "sys"
	}
	return fmt.Sprintf("mode(%#x)", uint32(m))
}

// Valid reports whether m names an implemented mode.
func (m Mode) Valid() bool {
	_, ok := bankOf(m)
	return ok
}

// Privileged reports whether m is any mode but user.
func (m Mode) Privileged() bool {
	return m != ModeUser
}

// PSR is a program status register (CPSR or SPSR).
type PSR uint32

// PSR bits.
const (
	PSRN     PSR = 1 << 31
	PSRZ     PSR = 1 << 30
	PSRC     PSR = 1 << 29
	PSRV     PSR = 1 << 28
	PSRQ     PSR = 1 << 27
	PSRI     PSR = 1 << 7
	PSRF     PSR = 1 << 6
	PSRT     PSR = 1 << 5
	modeMask PSR = 0x1F
)

func (p PSR) N() bool { return p&PSRN != 0 }
func (p PSR) Z() bool { return p&PSRZ != 0 }
func (p PSR) C() bool { return p&PSRC != 0 }
func (p PSR) V() bool { return p&PSRV != 0 }
func (p PSR) I() bool { return p&PSRI != 0 }
func (p PSR) F() bool { return p&PSRF != 0 }
func (p PSR) T() bool { return p&PSRT != 0 }

// Mode returns the mode field.
func (p PSR) Mode() Mode { return Mode(p & modeMask) }

// WithMode returns p with the mode field replaced.
func (p PSR) WithMode(m Mode) PSR {
	return p&^modeMask | PSR(m)&modeMask
}

// With returns p with bit set or cleared.
func (p PSR) With(bit PSR, on bool) PSR {
	if on {
		return p | bit
	}
	return p &^ bit
}

// WithNZ sets N and Z from a result.
func (p PSR) WithNZ(result uint32) PSR {
	return p.With(PSRN, result&(1<<31) != 0).With(PSRZ, result == 0)
}

// WithNZCV sets all four condition flags.
func (p PSR) WithNZCV(n, z, c, v bool) PSR {
	return p.With(PSRN, n).With(PSRZ, z).With(PSRC, c).With(PSRV, v)
}

func (p PSR) String() string {
	flag := func(on bool, s string) string {
		if on {
			return s
		}
		return "-"
	}
	return flag(p.N(), "N") + flag(p.Z(), "Z") + flag(p.C(), "C") + flag(p.V(), "V") +
		" " + flag(p.I(), "I") + flag(p.F(), "F") + flag(p.T(), "T") + " " + p.Mode().String()
}

package riscv_test

import (
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sysim/bus"
	"github.com/sarchlab/sysim/intc"
	"github.com/sarchlab/sysim/riscv"
)

// Register numbers used by the test programs.
const (
	zero = 0
	ra   = 1
	t0   = 5
	t1   = 6
	a0   = 10
	a1   = 11
	a2   = 12
	a3   = 13
)

const (
	ramBase = 0x80000000
	ramSize = 0x10000
)

// Fixed SYSTEM encodings.
const (
	ecall  uint32 = 0x00000073
	ebreak uint32 = 0x00100073
	mret   uint32 = 0x30200073
	wfi    uint32 = 0x10500073
)

func u(v int) uint32 { return uint32(v) }

func iType(imm int64, rs1, f3, rd int, opcode uint32) uint32 {
	return uint32(imm)&0xFFF<<20 | u(rs1)<<15 | u(f3)<<12 | u(rd)<<7 | opcode
}

func rType(f7 uint32, rs2, rs1, f3, rd int, opcode uint32) uint32 {
	return f7<<25 | u(rs2)<<20 | u(rs1)<<15 | u(f3)<<12 | u(rd)<<7 | opcode
}

func sType(imm int64, rs2, rs1, f3 int) uint32 {
	v := uint32(imm)
	return v>>5&0x7F<<25 | u(rs2)<<20 | u(rs1)<<15 | u(f3)<<12 | v&0x1F<<7 | 0x23
}

func bType(imm int64, rs2, rs1, f3 int) uint32 {
	v := uint32(imm)
	return v>>12&1<<31 | v>>5&0x3F<<25 | u(rs2)<<20 | u(rs1)<<15 | u(f3)<<12 |
		v>>1&0xF<<8 | v>>11&1<<7 | 0x63
}

func jal(rd int, imm int64) uint32 {
	v := uint32(imm)
	return v>>20&1<<31 | v>>1&0x3FF<<21 | v>>11&1<<20 | v>>12&0xFF<<12 | u(rd)<<7 | 0x6F
}

func addi(rd, rs1 int, imm int64) uint32 { return iType(imm, rs1, 0, rd, 0x13) }
func auipc(rd int) uint32                { return u(rd)<<7 | 0x17 }
func add(rd, rs1, rs2 int) uint32        { return rType(0, rs2, rs1, 0, rd, 0x33) }
func div(rd, rs1, rs2 int) uint32        { return rType(1, rs2, rs1, 4, rd, 0x33) }
func rem(rd, rs1, rs2 int) uint32        { return rType(1, rs2, rs1, 6, rd, 0x33) }
func mulh(rd, rs1, rs2 int) uint32       { return rType(1, rs2, rs1, 1, rd, 0x33) }
func addw(rd, rs1, rs2 int) uint32       { return rType(0, rs2, rs1, 0, rd, 0x3B) }
func ld(rd, rs1 int, imm int64) uint32   { return iType(imm, rs1, 3, rd, 0x03) }
func lw(rd, rs1 int, imm int64) uint32   { return iType(imm, rs1, 2, rd, 0x03) }
func lwu(rd, rs1 int, imm int64) uint32  { return iType(imm, rs1, 6, rd, 0x03) }
func sd(rs2, rs1 int, imm int64) uint32  { return sType(imm, rs2, rs1, 3) }
func sw(rs2, rs1 int, imm int64) uint32  { return sType(imm, rs2, rs1, 2) }
func beq(rs1, rs2 int, imm int64) uint32 { return bType(imm, rs2, rs1, 0) }

func csrrw(rd int, csr uint32, rs1 int) uint32 {
	return csr<<20 | u(rs1)<<15 | 1<<12 | u(rd)<<7 | 0x73
}

func csrrs(rd int, csr uint32, rs1 int) uint32 {
	return csr<<20 | u(rs1)<<15 | 2<<12 | u(rd)<<7 | 0x73
}

func csrrsi(rd int, csr uint32, imm int) uint32 {
	return csr<<20 | u(imm)<<15 | 6<<12 | u(rd)<<7 | 0x73
}

func amo(funct5 uint32, rd, rs1, rs2, f3 int) uint32 {
	return rType(funct5<<2, rs2, rs1, f3, rd, 0x2F)
}

type machine struct {
	core  *riscv.Core
	bus   *bus.Bus
	timer *intc.Flag
	ext   *intc.Flag
}

func newMachine() *machine {
	m := &machine{
		bus:   bus.New(),
		timer: intc.NewFlag("mtip"),
		ext:   intc.NewFlag("meip"),
	}
	Expect(m.bus.RegisterNamed("ram", bus.NewRAM(ramSize), ramBase, ramBase+ramSize-1)).To(Succeed())
	m.core = riscv.NewCore(m.bus,
		riscv.WithResetPC(ramBase),
		riscv.WithTimerInterrupt(m.timer),
		riscv.WithExternalInterrupts(m.ext, intc.NullSource{}),
	)
	return m
}

func (m *machine) program(offset uint64, words ...uint32) {
	for i, w := range words {
		Expect(m.bus.Write32(ramBase+offset+uint64(4*i), w)).To(Succeed())
	}
}

func (m *machine) ticks(n int) {
	for i := 0; i < n; i++ {
		m.core.Tick()
	}
}

func (m *machine) x(i int) uint64 {
	return m.core.RegFile().X(i)
}

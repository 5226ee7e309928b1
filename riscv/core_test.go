package riscv_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sysim/exc"
	"github.com/sarchlab/sysim/riscv"
)

const loopSelf = 0x0000006F // jal zero, 0

var _ = Describe("Core", func() {
	var m *machine

	BeforeEach(func() {
		m = newMachine()
	})

	It("should reset into machine mode at the reset address", func() {
		m.program(0, addi(a1, zero, 1))
		m.ticks(1)

		Expect(m.core.Priv()).To(Equal(riscv.PrivMachine))
		Expect(m.x(a0)).To(BeZero())
		Expect(m.x(a1)).To(Equal(uint64(1)))
		Expect(m.core.RegFile().PC()).To(Equal(uint64(ramBase + 4)))
		Expect(m.core.CSR().Mstatus & riscv.StatusMIE).To(BeZero())
	})

	It("should execute integer arithmetic", func() {
		m.program(0,
			addi(a0, zero, 5),
			addi(a1, zero, -3),
			add(a2, a0, a1),
			addw(a3, a1, a1),
		)
		m.ticks(4)

		Expect(m.x(a2)).To(Equal(uint64(2)))
		Expect(m.x(a3)).To(Equal(^uint64(5)))
		Expect(m.core.CSR().Instret).To(Equal(uint64(4)))
	})

	It("should discard writes to x0", func() {
		m.program(0, addi(zero, zero, 5))
		m.ticks(1)

		Expect(m.x(zero)).To(BeZero())
	})

	It("should load and store with sign and zero extension", func() {
		m.program(0,
			auipc(t0),
			addi(t0, t0, 0x100),
			addi(t1, zero, -1),
			sd(t1, t0, 0),
			lw(a0, t0, 0),
			lwu(a1, t0, 0),
			addi(t1, zero, 0x7F),
			sw(t1, t0, 4),
			ld(a2, t0, 0),
		)
		m.ticks(9)

		Expect(m.x(a0)).To(Equal(^uint64(0)))
		Expect(m.x(a1)).To(Equal(uint64(0xFFFFFFFF)))
		Expect(m.x(a2)).To(Equal(uint64(0x7F_FFFFFFFF)))
	})

	It("should follow branches and link on jal", func() {
		m.program(0,
			addi(a0, zero, 1),
			beq(a0, zero, 8),
			jal(ra, 8),
			addi(a1, zero, 9),
			addi(a2, zero, 7),
		)
		m.ticks(4)

		Expect(m.x(ra)).To(Equal(uint64(ramBase + 0xC)))
		Expect(m.x(a1)).To(BeZero())
		Expect(m.x(a2)).To(Equal(uint64(7)))
		Expect(m.core.RegFile().PC()).To(Equal(uint64(ramBase + 0x14)))
	})

	It("should give the defined results for division by zero", func() {
		m.program(0,
			addi(a0, zero, 7),
			div(a1, a0, zero),
			rem(a2, a0, zero),
			addi(t0, zero, -1),
			mulh(a3, t0, t0),
		)
		m.ticks(5)

		Expect(m.x(a1)).To(Equal(^uint64(0)))
		Expect(m.x(a2)).To(Equal(uint64(7)))
		Expect(m.x(a3)).To(BeZero())
	})

	It("should read and write CSRs", func() {
		m.program(0,
			addi(t0, zero, 0x55),
			csrrw(a0, riscv.CSRMscratch, t0),
			csrrs(a1, riscv.CSRMscratch, zero),
			csrrs(a2, riscv.CSRMhartid, zero),
			csrrs(a3, riscv.CSRMisa, zero),
		)
		m.ticks(5)

		Expect(m.x(a0)).To(BeZero())
		Expect(m.x(a1)).To(Equal(uint64(0x55)))
		Expect(m.x(a2)).To(BeZero())
		Expect(m.x(a3) >> 62).To(Equal(uint64(2)))
		Expect(m.x(a3) & (1 << 8)).NotTo(BeZero())
	})

	It("should reject writes to read-only CSRs", func() {
		m.program(0, csrrw(zero, riscv.CSRMhartid, t0))
		m.ticks(1)

		r, ok := m.core.Exceptions().Peek()
		Expect(ok).To(BeTrue())
		Expect(r.Kind).To(Equal(exc.Undefined))
		Expect(r.Cause).To(Equal(uint64(riscv.CauseIllegal)))
		Expect(r.PC).To(Equal(uint64(ramBase)))
	})

	It("should trap illegal instructions to mtvec", func() {
		m.program(0,
			auipc(t0),
			addi(t0, t0, 0x40),
			csrrw(zero, riscv.CSRMtvec, t0),
			0xFE000033,
		)
		m.program(0x40, loopSelf)
		m.ticks(5)

		f := m.core.CSR()
		Expect(f.Mcause).To(Equal(uint64(riscv.CauseIllegal)))
		Expect(f.Mepc).To(Equal(uint64(ramBase + 0xC)))
		Expect(f.Mtval).To(Equal(uint64(0xFE000033)))
		Expect(m.core.RegFile().PC()).To(Equal(uint64(ramBase + 0x40)))
		Expect(m.core.Exceptions().Pending()).To(BeFalse())
	})

	It("should raise misaligned and access faults on loads", func() {
		m.program(0, auipc(t0), lw(a0, t0, 2))
		m.ticks(2)

		r, ok := m.core.Exceptions().Peek()
		Expect(ok).To(BeTrue())
		Expect(r.Kind).To(Equal(exc.DataAbort))
		Expect(r.Cause).To(Equal(uint64(riscv.CauseLoadMisaligned)))
		Expect(r.Addr).To(Equal(uint64(ramBase + 2)))

		m = newMachine()
		m.program(0, lw(a0, zero, 0x10))
		m.ticks(1)

		r, _ = m.core.Exceptions().Peek()
		Expect(r.Cause).To(Equal(uint64(riscv.CauseLoadAccess)))
		Expect(r.Addr).To(Equal(uint64(0x10)))
	})

	It("should drop to user mode on mret and trap ecall back", func() {
		m.program(0,
			auipc(t0),
			addi(t0, t0, 0x40),
			csrrw(zero, riscv.CSRMtvec, t0),
			auipc(t1),
			addi(t1, t1, 0x20),
			csrrw(zero, riscv.CSRMepc, t1),
			mret,
		)
		m.program(0x2C, ecall)
		m.program(0x40, loopSelf)

		m.ticks(7)
		Expect(m.core.Priv()).To(Equal(riscv.PrivUser))
		Expect(m.core.RegFile().PC()).To(Equal(uint64(ramBase + 0x2C)))

		m.ticks(2)
		f := m.core.CSR()
		Expect(m.core.Priv()).To(Equal(riscv.PrivMachine))
		Expect(f.Mcause).To(Equal(uint64(riscv.CauseUserECall)))
		Expect(f.Mepc).To(Equal(uint64(ramBase + 0x2C)))
		Expect(f.MPP()).To(Equal(riscv.PrivUser))
		Expect(m.core.RegFile().PC()).To(Equal(uint64(ramBase + 0x40)))
	})

	It("should delegate supervisor ecalls to stvec", func() {
		m.program(0,
			auipc(t0),
			addi(t1, t0, 0x80),
			csrrw(zero, riscv.CSRStvec, t1),
			addi(t1, t0, 0x40),
			csrrw(zero, riscv.CSRMepc, t1),
			addi(t1, zero, 1<<riscv.CauseSupervisorECall),
			csrrw(zero, riscv.CSRMedeleg, t1),
			addi(t1, zero, 0x400),
			add(t1, t1, t1),
			csrrs(zero, riscv.CSRMstatus, t1),
			mret,
		)
		m.program(0x40, ecall)
		m.program(0x80, loopSelf)
		m.ticks(13)

		f := m.core.CSR()
		Expect(m.core.Priv()).To(Equal(riscv.PrivSupervisor))
		Expect(f.Scause).To(Equal(uint64(riscv.CauseSupervisorECall)))
		Expect(f.Sepc).To(Equal(uint64(ramBase + 0x40)))
		Expect(f.Mstatus & riscv.StatusSPP).NotTo(BeZero())
		Expect(f.Mcause).To(BeZero())
		Expect(m.core.RegFile().PC()).To(Equal(uint64(ramBase + 0x80)))
	})

	It("should make machine CSRs illegal from user mode", func() {
		m.program(0, loopSelf)
		m.program(0x10, mret)
		m.program(0x20, csrrs(a0, riscv.CSRMstatus, zero))
		m.program(0x100, loopSelf)
		m.ticks(1)

		m.core.CSR().Mepc = ramBase + 0x20
		m.core.CSR().Mtvec = ramBase + 0x100
		m.core.RegFile().SetPC(ramBase + 0x10)
		m.ticks(3)

		Expect(m.core.Priv()).To(Equal(riscv.PrivMachine))
		Expect(m.core.CSR().Mcause).To(Equal(uint64(riscv.CauseIllegal)))
		Expect(m.core.CSR().Mepc).To(Equal(uint64(ramBase + 0x20)))
		Expect(m.core.RegFile().PC()).To(Equal(uint64(ramBase + 0x100)))
	})

	Describe("interrupts", func() {
		BeforeEach(func() {
			m.program(0, loopSelf)
			m.program(0x100, loopSelf)
			m.program(0x100+4*riscv.IntMTimer, loopSelf)
			m.program(0x100+4*riscv.IntMExternal, loopSelf)
			m.ticks(1)
		})

		It("should ignore interrupts while MIE is clear", func() {
			m.core.CSR().Mie = 1 << riscv.IntMTimer
			m.timer.Set(true)
			m.ticks(3)

			Expect(m.core.Exceptions().Pending()).To(BeFalse())
			Expect(m.core.RegFile().PC()).To(Equal(uint64(ramBase)))
		})

		It("should take a vectored timer interrupt", func() {
			f := m.core.CSR()
			f.Mtvec = ramBase + 0x100 | 1
			f.Mie = 1 << riscv.IntMTimer
			f.Mstatus |= riscv.StatusMIE
			m.timer.Set(true)

			m.ticks(1)
			r, ok := m.core.Exceptions().Peek()
			Expect(ok).To(BeTrue())
			Expect(r.Kind).To(Equal(exc.NormalInterrupt))
			Expect(r.Cause).To(Equal(uint64(riscv.IntMTimer)))

			m.ticks(1)
			Expect(f.Mcause).To(Equal(uint64(1<<63 | riscv.IntMTimer)))
			Expect(f.Mepc).To(Equal(uint64(ramBase)))
			Expect(f.Mstatus & riscv.StatusMIE).To(BeZero())
			Expect(f.Mstatus & riscv.StatusMPIE).NotTo(BeZero())
			Expect(m.core.RegFile().PC()).To(Equal(uint64(ramBase + 0x11C)))
		})

		It("should prefer external over timer interrupts", func() {
			f := m.core.CSR()
			f.Mtvec = ramBase + 0x100
			f.Mie = 1<<riscv.IntMTimer | 1<<riscv.IntMExternal
			f.Mstatus |= riscv.StatusMIE
			m.timer.Set(true)
			m.ext.Set(true)

			m.ticks(2)
			Expect(f.Mcause).To(Equal(uint64(1<<63 | riscv.IntMExternal)))
			Expect(m.core.RegFile().PC()).To(Equal(uint64(ramBase + 0x100)))
		})

		It("should deliver delegated supervisor interrupts in user mode", func() {
			f := m.core.CSR()
			f.Stvec = ramBase + 0x100
			f.Mideleg = 1 << riscv.IntSSoft
			f.Mie = 1 << riscv.IntSSoft
			f.Mip = 1 << riscv.IntSSoft
			f.Mepc = ramBase
			m.program(0x20, mret)
			m.core.RegFile().SetPC(ramBase + 0x20)

			m.ticks(3)
			Expect(m.core.Priv()).To(Equal(riscv.PrivSupervisor))
			Expect(f.Scause).To(Equal(uint64(1<<63 | riscv.IntSSoft)))
			Expect(f.Mcause).To(BeZero())
		})
	})

	It("should idle in wfi until an interrupt is pending", func() {
		m.program(0, wfi, addi(a0, zero, 1), loopSelf)
		m.ticks(1)
		m.core.CSR().Mie = 1 << riscv.IntMTimer

		m.ticks(3)
		Expect(m.core.Idle()).To(BeTrue())
		Expect(m.x(a0)).To(BeZero())
		Expect(m.core.Stats().IdleTicks).To(Equal(uint64(3)))

		m.timer.Set(true)
		m.ticks(1)
		Expect(m.core.Idle()).To(BeFalse())
		Expect(m.x(a0)).To(Equal(uint64(1)))
	})

	It("should report ebreak as a breakpoint", func() {
		m.program(0, ebreak)
		m.ticks(1)

		r, _ := m.core.Exceptions().Peek()
		Expect(r.Kind).To(Equal(exc.PrefetchAbort))
		Expect(r.Cause).To(Equal(uint64(riscv.CauseBreakpoint)))
		Expect(r.Addr).To(Equal(uint64(ramBase)))
	})

	Describe("atomics", func() {
		BeforeEach(func() {
			m.program(0,
				auipc(t0),
				addi(t0, t0, 0x100),
				addi(t1, zero, 5),
				sd(t1, t0, 0),
			)
		})

		It("should pair lr and sc", func() {
			m.program(0x10,
				amo(0x02, a0, t0, zero, 3),
				addi(a0, a0, 1),
				amo(0x03, a1, t0, a0, 3),
				ld(a2, t0, 0),
				amo(0x03, a3, t0, a0, 3),
			)
			m.ticks(9)

			Expect(m.x(a1)).To(BeZero())
			Expect(m.x(a2)).To(Equal(uint64(6)))
			Expect(m.x(a3)).To(Equal(uint64(1)))
		})

		It("should fail sc after an intervening store", func() {
			m.program(0x10,
				amo(0x02, a0, t0, zero, 3),
				sd(zero, t0, 0),
				amo(0x03, a1, t0, t1, 3),
			)
			m.ticks(7)

			Expect(m.x(a1)).To(Equal(uint64(1)))
		})

		It("should add atomically and return the old word", func() {
			m.program(0x10,
				addi(t1, zero, -1),
				amo(0x00, a0, t0, t1, 2),
				ld(a1, t0, 0),
			)
			m.ticks(7)

			Expect(m.x(a0)).To(Equal(uint64(5)))
			Expect(m.x(a1)).To(Equal(uint64(4)))
		})
	})
})

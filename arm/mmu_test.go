package arm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sysim/arm"
	"github.com/sarchlab/sysim/exc"
)

var _ = Describe("MMU", func() {
	const ttb = 0x4000

	var (
		m   *machine
		cp  *arm.CP15
		mmu *arm.MMU
	)

	l1 := func(va, desc uint32) {
		m.words(ttb+va>>20<<2, desc)
	}

	BeforeEach(func() {
		m = newMachine()
		cp = m.core.CP15()
		mmu = m.core.MMU()

		cp.TTBR = ttb
		cp.DACR = 1 // domain 0: client
		cp.Control |= arm.CtrlM
	})

	It("should pass addresses through while disabled", func() {
		cp.Control &^= arm.CtrlM

		pa, _, ok := mmu.Translate(0x1234, exc.AccessRead, true)
		Expect(ok).To(BeTrue())
		Expect(pa).To(Equal(uint32(0x1234)))
	})

	It("should translate a section", func() {
		l1(0x10000000, 0x00000C02)

		pa, _, ok := mmu.Translate(0x10000ABC, exc.AccessWrite, true)
		Expect(ok).To(BeTrue())
		Expect(pa).To(Equal(uint32(0xABC)))
	})

	It("should cache translations in the TLB", func() {
		l1(0x10000000, 0x00000C02)

		mmu.Translate(0x10000004, exc.AccessRead, false)
		mmu.Translate(0x10000008, exc.AccessRead, false)

		stats := mmu.TLBStats()
		Expect(stats.Misses).To(Equal(uint64(1)))
		Expect(stats.Hits).To(Equal(uint64(1)))
	})

	It("should translate a small page through a coarse table", func() {
		l1(0x20000000, 0xC000|1)
		m.words(0xC000+1*4, 0x8000|0xFF0|2)

		pa, _, ok := mmu.Translate(0x20001234, exc.AccessRead, true)
		Expect(ok).To(BeTrue())
		Expect(pa).To(Equal(uint32(0x8234)))
	})

	It("should translate a large page", func() {
		l1(0x20000000, 0xC000|1)
		for i := uint32(0); i < 16; i++ {
			m.words(0xC000+i*4, 0x00010000|0xFF0|1)
		}

		pa, _, ok := mmu.Translate(0x2000ABCD, exc.AccessRead, true)
		Expect(ok).To(BeTrue())
		Expect(pa).To(Equal(uint32(0x1ABCD)))
	})

	DescribeTable("faults",
		func(desc, dacr uint32, access exc.Access, user bool, fsr uint32) {
			l1(0x30000000, desc)
			cp.DACR = dacr

			_, got, ok := mmu.Translate(0x30000000, access, user)
			Expect(ok).To(BeFalse())
			Expect(got).To(Equal(fsr))
		},
		Entry("unmapped section", uint32(0), uint32(1), exc.AccessRead, false, arm.FaultTranslationSect),
		Entry("no-access domain", uint32(0xC02|2<<5), uint32(0), exc.AccessRead, false, 2<<4|arm.FaultDomainSect),
		Entry("privileged-only section from user", uint32(0x402), uint32(1), exc.AccessRead, true, arm.FaultPermissionSect),
		Entry("read-only section written by user", uint32(0x802), uint32(1), exc.AccessWrite, true, arm.FaultPermissionSect),
		Entry("missing coarse entry", uint32(0xC000|1), uint32(1), exc.AccessRead, false, arm.FaultTranslationPage),
	)

	It("should let a manager domain bypass permissions", func() {
		l1(0x30000000, 0x002)
		cp.DACR = 3

		_, _, ok := mmu.Translate(0x30000000, exc.AccessWrite, true)
		Expect(ok).To(BeTrue())
	})

	It("should honour the S bit for AP 0", func() {
		l1(0x30000000, 0x002)
		cp.Control |= arm.CtrlS

		_, _, ok := mmu.Translate(0x30000000, exc.AccessRead, false)
		Expect(ok).To(BeTrue())
		_, _, ok = mmu.Translate(0x30000000, exc.AccessRead, true)
		Expect(ok).To(BeFalse())
	})

	It("should relocate low addresses by the process ID", func() {
		l1(0x02000000, 0x00100C02)
		cp.PID = 0x02000000

		pa, _, ok := mmu.Translate(0x1000, exc.AccessRead, false)
		Expect(ok).To(BeTrue())
		Expect(pa).To(Equal(uint32(0x00101000)))
	})

	It("should forget translations on flush", func() {
		l1(0x10000000, 0x00000C02)
		pa, _, _ := mmu.Translate(0x10000000, exc.AccessRead, false)
		Expect(pa).To(Equal(uint32(0)))

		l1(0x10000000, 0x00200C02)
		mmu.FlushPage(0x10000000)
		pa, _, _ = mmu.Translate(0x10000000, exc.AccessRead, false)
		Expect(pa).To(Equal(uint32(0x00200000)))
	})

	It("should raise a data abort when a load faults", func() {
		m.words(0,
			0xE3A01203, // mov r1, #0x30000000
			0xE5910000, // ldr r0, [r1]
		)
		// Identity-map the first megabyte for the code.
		l1(0, 0x00000C02)
		m.ticks(2)

		Expect(m.core.Exceptions().Pending()).To(BeTrue())
		Expect(cp.FAR).To(Equal(uint32(0x30000000)))
		Expect(cp.DFSR).To(Equal(arm.FaultTranslationSect))
	})
})

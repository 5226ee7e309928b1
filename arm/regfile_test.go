package arm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sysim/arm"
)

var _ = Describe("RegFile", func() {
	var rf *arm.RegFile

	BeforeEach(func() {
		rf = arm.NewRegFile()
		rf.Reset()
	})

	setMode := func(m arm.Mode) {
		rf.SetCPSR(rf.CPSR().WithMode(m))
	}

	It("should bank r13 and r14 per privileged mode", func() {
		rf.SetR(13, 0x1000)
		setMode(arm.ModeIRQ)
		rf.SetR(13, 0x2000)
		setMode(arm.ModeSVC)

		Expect(rf.R(13)).To(Equal(uint32(0x1000)))
		setMode(arm.ModeIRQ)
		Expect(rf.R(13)).To(Equal(uint32(0x2000)))
	})

	It("should bank r8 to r12 only in FIQ mode", func() {
		setMode(arm.ModeUser)
		rf.SetR(8, 8)
		rf.SetR(13, 13)

		setMode(arm.ModeFIQ)
		rf.SetR(8, 0x88)
		Expect(rf.UserR(8)).To(Equal(uint32(8)))
		Expect(rf.UserR(13)).To(Equal(uint32(13)))

		setMode(arm.ModeSystem)
		Expect(rf.R(8)).To(Equal(uint32(8)))
		setMode(arm.ModeFIQ)
		Expect(rf.R(8)).To(Equal(uint32(0x88)))
	})

	It("should keep every register through a round of mode switches", func() {
		modes := []arm.Mode{
			arm.ModeUser, arm.ModeFIQ, arm.ModeIRQ, arm.ModeSVC,
			arm.ModeAbort, arm.ModeUndef, arm.ModeSystem,
		}
		setMode(arm.ModeSystem)
		for i := 0; i < 15; i++ {
			rf.SetR(i, uint32(0x100+i))
		}

		for _, from := range modes {
			for _, to := range modes {
				setMode(from)
				setMode(to)
			}
		}

		setMode(arm.ModeSystem)
		for i := 0; i < 15; i++ {
			Expect(rf.R(i)).To(Equal(uint32(0x100 + i)))
		}
	})

	It("should treat a switch to the current mode as a no-op", func() {
		setMode(arm.ModeFIQ)
		rf.SetR(9, 99)
		setMode(arm.ModeFIQ)

		Expect(rf.R(9)).To(Equal(uint32(99)))
	})

	It("should ignore an invalid mode", func() {
		rf.SetCPSR(rf.CPSR().WithMode(arm.Mode(0x15)))

		Expect(rf.Mode()).To(Equal(arm.ModeSVC))
	})

	It("should read the PC ahead by state", func() {
		rf.SetPC(0x100)
		Expect(rf.R(15)).To(Equal(uint32(0x108)))

		rf.SetCPSR(rf.CPSR().With(arm.PSRT, true))
		Expect(rf.R(15)).To(Equal(uint32(0x104)))
	})

	It("should mark writes to r15 as branches", func() {
		rf.SetPC(0x100)
		Expect(rf.Branched()).To(BeFalse())

		rf.SetR(15, 0x200)
		Expect(rf.Branched()).To(BeTrue())
		Expect(rf.PC()).To(Equal(uint32(0x200)))
	})

	It("should store an r15 write as the address of the next instruction", func() {
		rf.SetR(15, 0x200)

		Expect(rf.PC()).To(Equal(uint32(0x200)))
		Expect(rf.R(15)).To(Equal(uint32(0x208)))

		rf.SetCPSR(rf.CPSR().With(arm.PSRT, true))
		rf.SetR(15, 0x300)
		Expect(rf.R(15)).To(Equal(uint32(0x304)))
	})

	It("should have no SPSR in user and system modes", func() {
		Expect(rf.HasSPSR()).To(BeTrue())

		setMode(arm.ModeSystem)
		Expect(rf.HasSPSR()).To(BeFalse())
	})
})

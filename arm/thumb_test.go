package arm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Thumb code starts at 0x8 after a two-instruction ARM trampoline.
var _ = Describe("Thumb", func() {
	var m *machine

	BeforeEach(func() {
		m = newMachine()
		m.words(0,
			0xE28F0001, // add r0, pc, #1
			0xE12FFF10, // bx r0
		)
	})

	run := func(n int, code ...uint16) {
		m.halves(8, code...)
		m.ticks(2 + n)
	}

	It("should run arithmetic and shifts", func() {
		run(3,
			0x2005, // movs r0, #5
			0x3003, // adds r0, #3
			0x0082, // lsls r2, r0, #2
		)

		Expect(m.r(0)).To(Equal(uint32(8)))
		Expect(m.r(2)).To(Equal(uint32(32)))
		Expect(m.core.RegFile().PC()).To(Equal(uint32(0xE)))
	})

	It("should branch on a condition", func() {
		run(4,
			0x2005, // movs r0, #5
			0x2805, // cmp r0, #5
			0xD000, // beq +4
			0x2101, // movs r1, #1
			0x2202, // movs r2, #2
		)

		Expect(m.r(1)).To(Equal(uint32(0)))
		Expect(m.r(2)).To(Equal(uint32(2)))
	})

	It("should link across a BL pair", func() {
		run(2,
			0xF000, // bl prefix
			0xF802, // bl suffix, +4
		)

		Expect(m.core.RegFile().PC()).To(Equal(uint32(0x10)))
		Expect(m.r(14)).To(Equal(uint32(0xD)))
	})

	It("should push and pop through the link register", func() {
		run(5,
			0x2080, // movs r0, #0x80
			0x4685, // mov sp, r0
			0xB501, // push {r0, lr}
			0x2000, // movs r0, #0
			0xBC01, // pop {r0}
		)

		Expect(m.r(0)).To(Equal(uint32(0x80)))
		Expect(m.r(13)).To(Equal(uint32(0x7C)))
		Expect(m.bus.Read32(0x7C)).To(Equal(m.r(14)))
	})

	It("should return to ARM state through bx lr", func() {
		m.words(0x40, branchSelf)
		run(3,
			0x2040, // movs r0, #0x40
			0x4686, // mov lr, r0
			0x4770, // bx lr
		)

		Expect(m.core.RegFile().Thumb()).To(BeFalse())
		Expect(m.core.RegFile().PC()).To(Equal(uint32(0x40)))
	})

	It("should load a PC-relative literal", func() {
		run(1,
			0x4801, // ldr r0, [pc, #4]
			0xE7FE, // b .
			0x0000,
			0x0000,
			0xBEEF,
			0xDEAD,
		)

		Expect(m.r(0)).To(Equal(uint32(0xDEADBEEF)))
	})

	It("should raise SWI with its comment", func() {
		run(1, 0xDF05)

		r, ok := m.core.Exceptions().Peek()
		Expect(ok).To(BeTrue())
		Expect(r.Cause).To(Equal(uint64(5)))
	})
})

package arm_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sysim/exc"
)

var _ = Describe("Disassemble", func() {
	var m *machine

	BeforeEach(func() {
		m = newMachine()
	})

	DescribeTable("ARM",
		func(word uint32, text string) {
			Expect(m.core.Disassemble(word, false)).To(Equal(text))
		},
		Entry("add immediate", uint32(0xE2800001), "add r0, r0, #0x1"),
		Entry("conditional flag-setting mov", uint32(0x13B01007), "movnes r1, #0x7"),
		Entry("shifted register", uint32(0xE1A00101), "mov r0, r1, lsl #2"),
		Entry("compare", uint32(0xE3500005), "cmp r0, #0x5"),
		Entry("pre-indexed store", uint32(0xE5A10004), "str r0, [r1, #0x4]!"),
		Entry("post-indexed load", uint32(0xE4912004), "ldr r2, [r1], #0x4"),
		Entry("block store", uint32(0xE92D4003), "stmdb sp!, {r0, r1, lr}"),
		Entry("branch exchange", uint32(0xE12FFF1E), "bx lr"),
		Entry("supervisor call", uint32(0xEF000012), "swi 0x12"),
		Entry("coprocessor read", uint32(0xEE100F10), "mrc p15, 0, r0, c0, c0, 0"),
	)

	DescribeTable("Thumb",
		func(half uint16, text string) {
			Expect(m.core.Disassemble(uint32(half), true)).To(Equal(text))
		},
		Entry("move immediate", uint16(0x2005), "mov r0, #0x5"),
		Entry("shift immediate", uint16(0x0082), "lsl r2, r0, #2"),
		Entry("push", uint16(0xB501), "push {r0, lr}"),
		Entry("hi register move", uint16(0x4686), "mov lr, r0"),
		Entry("sp-relative load", uint16(0x9801), "ldr r0, [sp, #0x4]"),
	)

	// Every word rendered as undefined must raise the undefined exception
	// when executed, and nothing else may.
	DescribeTable("agrees with execution on undefined encodings",
		func(word uint32) {
			undefinedText := strings.HasPrefix(m.core.Disassemble(word, false), "undefined")

			m.words(0, word)
			m.ticks(1)
			r, pending := m.core.Exceptions().Peek()
			raised := pending && r.Kind == exc.Undefined

			Expect(raised).To(Equal(undefinedText))
		},
		Entry("empty register list", uint32(0xE8BD0000)),
		Entry("coprocessor 14", uint32(0xEE100E10)),
		Entry("permanently undefined space", uint32(0xE7F000F0)),
		Entry("data processing", uint32(0xE2800001)),
		Entry("halfword load", uint32(0xE1D100B2)),
	)
})

package board_test

import (
	"encoding/binary"
	"errors"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sysim/arm"
	"github.com/sarchlab/sysim/board"
	"github.com/sarchlab/sysim/cpu"
	"github.com/sarchlab/sysim/device"
	"github.com/sarchlab/sysim/loader"
	"github.com/sarchlab/sysim/riscv"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func program(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}

func layout(src string) *board.Layout {
	l, err := board.ParseScript("test.star", []byte(src))
	Expect(err).NotTo(HaveOccurred())
	return l
}

const armBoard = `
arch("arm")
ram("ram", 0, 0x100000)
intc("vic", 0x10140000)
intc("sic", 0x10003000, lines=16, intc="vic", line=31)
timer("timer0", 0x101E2000, intc="vic", line=4)
uart("uart0", 0x101F1000, intc="vic", line=12)
uart("uart1", 0x101F2000, intc="sic", line=0)
`

const riscvBoard = `
arch("riscv")
ram("ram", 0x80000000, 0x100000)
clint("clint", 0x2000000)
intc("plic", 0xC000000)
uart("uart0", 0x10000000, intc="plic", line=10)
`

var _ = Describe("Board", func() {
	var cfg *board.Config

	BeforeEach(func() {
		cfg = board.DefaultConfig()
		cfg.MaxTicks = 200
	})

	Context("ARM", func() {
		It("should instantiate and map every component", func() {
			b, err := board.Build(cfg, layout(armBoard), board.WithLogger(quietLogger()))
			Expect(err).NotTo(HaveOccurred())

			Expect(b.Arch).To(Equal(loader.ArchARM))
			Expect(b.Core).To(BeAssignableToTypeOf(&arm.Core{}))
			Expect(b.Memories).To(HaveKey("ram"))
			Expect(b.Controllers).To(HaveLen(2))
			Expect(b.UARTs).To(HaveLen(2))
			Expect(b.Timers).To(HaveKey("timer0"))
			Expect(b.Bus.Regions()).To(HaveLen(6))

			v, err := b.Bus.Read32(0x101F1000 + device.UARTFlag)
			Expect(err).NotTo(HaveOccurred())
			Expect(v & device.FlagTXFE).NotTo(BeZero())
		})

		It("should cascade a secondary controller into the primary", func() {
			b, err := board.Build(cfg, layout(armBoard), board.WithLogger(quietLogger()))
			Expect(err).NotTo(HaveOccurred())

			b.Controllers["sic"].Enable(1, true)
			Expect(b.Bus.Write32(0x101F2000+device.UARTIntMask, device.IntRX)).To(Succeed())
			Expect(b.Controllers["vic"].RawStatus() & (1 << 31)).To(BeZero())

			Expect(b.UARTs["uart1"].Input('x')).To(BeTrue())

			Expect(b.Controllers["vic"].RawStatus() & (1 << 31)).NotTo(BeZero())
		})

		It("should boot a raw image through the reset vector", func() {
			out := gbytes.NewBuffer()
			img := loader.RawImage(program(
				0xE3A00041, // mov r0, #'A'
				0xE59F1004, // ldr r1, [pc, #4]
				0xE5810000, // str r0, [r1]
				0xEAFFFFFE, // b .
				0x101F1000,
			), cfg.ImageBase, loader.ArchARM)

			b, err := board.Build(cfg, layout(armBoard),
				board.WithLogger(quietLogger()),
				board.WithImage(img),
				board.WithConsole(nil, out),
			)
			Expect(err).NotTo(HaveOccurred())

			stub, err := b.Bus.Read32(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(stub).To(Equal(uint32(0xE51FF004)))

			err = b.Run()
			Expect(errors.Is(err, cpu.ErrTickLimit)).To(BeTrue())
			Expect(out).To(gbytes.Say("A"))
			Expect(b.Core.Stats().Ticks).To(Equal(uint64(200)))
		})

		It("should not install a boot stub over an image covering the vectors", func() {
			img := loader.RawImage(program(0xEAFFFFFE), 0, loader.ArchARM)

			b, err := board.Build(cfg, layout(armBoard),
				board.WithLogger(quietLogger()), board.WithImage(img))
			Expect(err).NotTo(HaveOccurred())

			v, _ := b.Bus.Read32(0)
			Expect(v).To(Equal(uint32(0xEAFFFFFE)))
		})

		It("should place the boot stub at the high vectors", func() {
			cfg.HighVectors = true
			img := loader.RawImage(program(0xEAFFFFFE), cfg.ImageBase, loader.ArchARM)

			b, err := board.Build(cfg, layout(armBoard+`rom("boot", 0xFFFF0000, 0x1000)`),
				board.WithLogger(quietLogger()), board.WithImage(img))
			Expect(err).NotTo(HaveOccurred())

			v, _ := b.Bus.Read32(0xFFFF0004)
			Expect(v).To(Equal(uint32(cfg.ImageBase)))
		})
	})

	Context("RISC-V", func() {
		BeforeEach(func() {
			cfg.Arch = "riscv"
		})

		It("should print through the UART", func() {
			out := gbytes.NewBuffer()
			img := loader.RawImage(program(
				0x100002B7, // lui t0, 0x10000
				0x04F00313, // addi t1, zero, 'O'
				0x0062A023, // sw t1, 0(t0)
				0x0000006F, // j .
			), 0x80000000, loader.ArchRISCV)

			b, err := board.Build(cfg, layout(riscvBoard),
				board.WithLogger(quietLogger()),
				board.WithImage(img),
				board.WithConsole(nil, out),
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Core).To(BeAssignableToTypeOf(&riscv.Core{}))
			Expect(b.CLINTs).To(HaveKey("clint"))

			err = b.Run()
			Expect(errors.Is(err, cpu.ErrTickLimit)).To(BeTrue())
			Expect(out).To(gbytes.Say("O"))
		})

		It("should take the architecture from the script", func() {
			cfg.Arch = "arm"
			b, err := board.Build(cfg, layout(riscvBoard), board.WithLogger(quietLogger()))
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Arch).To(Equal(loader.ArchRISCV))
		})

		It("should reject a hart the CLINT does not serve", func() {
			cfg.HartID = 1
			_, err := board.Build(cfg, layout(riscvBoard), board.WithLogger(quietLogger()))
			Expect(err).To(MatchError(ContainSubstring("hart 1")))
		})

		It("should reject an image for another architecture", func() {
			img := loader.RawImage(program(0), 0x80000000, loader.ArchARM)
			_, err := board.Build(cfg, layout(riscvBoard),
				board.WithLogger(quietLogger()), board.WithImage(img))
			Expect(err).To(MatchError(ContainSubstring("board is")))
		})
	})

	DescribeTable("invalid boards",
		func(src string) {
			_, err := board.Build(cfg, layout(src), board.WithLogger(quietLogger()))
			Expect(err).To(HaveOccurred())
		},
		Entry("overlapping regions", `
ram("a", 0, 0x2000)
ram("b", 0x1000, 0x2000)
`),
		Entry("unknown controller", `
ram("ram", 0, 0x1000)
uart("uart0", 0x10000, intc="vic", line=1)
`),
		Entry("two root controllers", `
intc("a", 0x10000)
intc("b", 0x20000)
`),
		Entry("cascade loop", `
intc("root", 0x10000)
intc("a", 0x20000, intc="b", line=0)
intc("b", 0x30000, intc="a", line=0)
`),
		Entry("line outside the controller", `
intc("vic", 0x10000, lines=8)
timer("t", 0x20000, intc="vic", line=8)
`),
		Entry("controller too wide", `
intc("vic", 0x10000, lines=64)
`),
		Entry("CLINT without harts", `
clint("clint", 0x2000000, harts=0)
`),
	)

	It("should reject an invalid config", func() {
		cfg.TLBWays = 0
		_, err := board.Build(cfg, layout(armBoard))
		Expect(err).To(HaveOccurred())
	})
})

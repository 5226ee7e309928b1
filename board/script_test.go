package board_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/sysim/board"
	"github.com/sarchlab/sysim/device"
)

const versatileScript = `
arch("arm")

RAM_SIZE = 0x100000

ram("ram", 0, RAM_SIZE)
rom("boot", 0xFFFF0000, 0x10000)
intc("vic", 0x10140000)
intc("sic", 0x10003000, lines=16, intc="vic", line=31)
timer("timer0", 0x101E2000, intc="vic", line=4)
uart("uart0", 0x101F1000, intc="vic", line=12)

for i in range(2):
    uart("uart%d" % (i + 1), 0x101F2000 + i * 0x1000, intc="sic", line=i)

print("board ready")
`

var _ = Describe("Board script", func() {
	It("should describe every component", func() {
		layout, err := board.ParseScript("versatile.star", []byte(versatileScript))
		Expect(err).NotTo(HaveOccurred())

		Expect(layout.Arch).To(Equal("arm"))
		Expect(layout.Regions).To(HaveLen(8))

		ram, ok := layout.Find("ram")
		Expect(ok).To(BeTrue())
		Expect(ram.Kind).To(Equal(board.KindRAM))
		Expect(ram.End()).To(Equal(uint64(0xFFFFF)))
		Expect(ram.Line).To(Equal(-1))

		sic, _ := layout.Find("sic")
		Expect(sic.Kind).To(Equal(board.KindINTC))
		Expect(sic.Lines).To(Equal(16))
		Expect(sic.Intc).To(Equal("vic"))
		Expect(sic.Line).To(Equal(31))

		vic, _ := layout.Find("vic")
		Expect(vic.Lines).To(Equal(32))
		Expect(vic.Intc).To(BeEmpty())

		uart2, ok := layout.Find("uart2")
		Expect(ok).To(BeTrue())
		Expect(uart2.Base).To(Equal(uint64(0x101F3000)))
		Expect(uart2.Intc).To(Equal("sic"))
		Expect(uart2.Line).To(Equal(1))
	})

	It("should size a CLINT from its hart count", func() {
		layout, err := board.ParseScript("virt.star", []byte(`
arch("riscv")
clint("clint", 0x2000000, harts=2)
`))
		Expect(err).NotTo(HaveOccurred())

		clint, _ := layout.Find("clint")
		Expect(clint.Harts).To(Equal(2))
		Expect(clint.Size).To(Equal(uint64(device.CLINTSize)))
	})

	It("should load a script from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "board.star")
		Expect(os.WriteFile(path, []byte(`ram("ram", 0x80000000, 0x1000)`), 0644)).To(Succeed())

		layout, err := board.LoadScript(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(layout.Arch).To(BeEmpty())
		Expect(layout.Regions).To(HaveLen(1))
	})

	DescribeTable("rejected scripts",
		func(src string) {
			_, err := board.ParseScript("bad.star", []byte(src))
			Expect(err).To(HaveOccurred())
		},
		Entry("syntax error", `ram("ram", 0,`),
		Entry("duplicate name", `ram("a", 0, 16)`+"\n"+`rom("a", 32, 16)`),
		Entry("zero size", `ram("a", 0, 0)`),
		Entry("wrapping region", `ram("a", 0xFFFFFFFFFFFFF000, 0x2000)`),
		Entry("negative address", `uart("u", -1)`),
		Entry("missing argument", `timer("t")`),
		Entry("unknown keyword", `uart("u", 0, irq=3)`),
		Entry("unknown builtin", `disk("d", 0)`),
	)

	It("should send print output to the board logger", func() {
		logger, hook := test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)

		_, err := board.ParseScript("versatile.star", []byte(versatileScript), board.WithLogger(logger))
		Expect(err).NotTo(HaveOccurred())

		Expect(hook.Entries).To(HaveLen(1))
		entry := hook.LastEntry()
		Expect(entry.Message).To(Equal("board ready"))
		Expect(entry.Level).To(Equal(logrus.DebugLevel))
		Expect(entry.Data).To(HaveKeyWithValue("script", "versatile.star"))
	})

	It("should report a missing file", func() {
		_, err := board.LoadScript(filepath.Join(GinkgoT().TempDir(), "none.star"))
		Expect(err).To(HaveOccurred())
	})
})

package bus_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sysim/bus"
)

var _ = Describe("RegisterTable", func() {
	var (
		t       *bus.RegisterTable
		written []uint32
	)

	BeforeEach(func() {
		written = nil
		t = bus.NewRegisterTable("dev", nil,
			bus.Register{Name: "CTRL", Offset: 0x0, Reset: 0x20},
			bus.Register{Name: "ID", Offset: 0x4, Reset: 0x1234, Access: bus.ReadOnly},
			bus.Register{Name: "CLR", Offset: 0x8, Access: bus.WriteOnly,
				OnWrite: func(v uint32) { written = append(written, v) }},
			bus.Register{Name: "NOW", Offset: 0xC, Access: bus.ReadOnly,
				OnRead: func() uint32 { return 77 }},
		)
	})

	It("should start at reset values", func() {
		Expect(t.Read32(0x0)).To(Equal(uint32(0x20)))
		Expect(t.Read32(0x4)).To(Equal(uint32(0x1234)))
	})

	It("should ignore writes to read-only registers", func() {
		t.Write32(0x4, 0xFFFF)
		Expect(t.Read32(0x4)).To(Equal(uint32(0x1234)))
	})

	It("should ignore writes to unknown offsets and read them as zero", func() {
		t.Write32(0x40, 5)
		Expect(t.Read32(0x40)).To(BeZero())
	})

	It("should route writes through hooks", func() {
		t.Write32(0x8, 3)
		Expect(written).To(Equal([]uint32{3}))
		Expect(t.Read32(0x8)).To(BeZero())
	})

	It("should serve reads from hooks", func() {
		Expect(t.Read32(0xC)).To(Equal(uint32(77)))
	})

	It("should merge narrow writes into the stored word", func() {
		t.Write32(0x0, 0xAABBCCDD)
		t.Write8(0x1, 0x11)
		Expect(t.Read32(0x0)).To(Equal(uint32(0xAABB11DD)))
		Expect(t.Read16(0x2)).To(Equal(uint16(0xAABB)))
	})

	It("should merge narrow writes into a hooked register's live value", func() {
		var live uint32 = 0x12345678
		h := bus.NewRegisterTable("dev", nil,
			bus.Register{Name: "LIVE", Offset: 0x0,
				OnRead:  func() uint32 { return live },
				OnWrite: func(v uint32) { live = v }},
		)

		h.Write16(0x2, 0xABCD)

		Expect(live).To(Equal(uint32(0xABCD5678)))
	})

	It("should not read a volatile register to merge a narrow write", func() {
		reads := 0
		var got uint32
		h := bus.NewRegisterTable("dev", nil,
			bus.Register{Name: "FIFO", Offset: 0x0, Volatile: true,
				OnRead:  func() uint32 { reads++; return 0xFFFFFFFF },
				OnWrite: func(v uint32) { got = v }},
		)

		h.Write8(0x0, 0x41)

		Expect(reads).To(BeZero())
		Expect(got).To(Equal(uint32(0x41)))
	})

	It("should restore reset values", func() {
		t.Write32(0x0, 1)
		t.Reset()
		Expect(t.Value("CTRL")).To(Equal(uint32(0x20)))
	})

	It("should refuse misaligned accesses", func() {
		Expect(t.TryRead(0x2, 4)).To(BeFalse())
		Expect(t.TryRead(0x3, 2)).To(BeFalse())
		Expect(t.TryWrite(0x2, 2)).To(BeTrue())
	})

	It("should panic on duplicate offsets", func() {
		Expect(func() {
			bus.NewRegisterTable("dup", nil,
				bus.Register{Name: "A", Offset: 0},
				bus.Register{Name: "B", Offset: 0},
			)
		}).To(Panic())
	})
})

package loader_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sysim/bus"
	"github.com/sarchlab/sysim/loader"
)

const (
	emARM   = 40
	emRISCV = 243
	emX8664 = 62

	pfX = 1
	pfW = 2
	pfR = 4
)

type segment struct {
	vaddr, paddr uint64
	data         []byte
	memsz        uint64
	flags        uint32
	kind         uint32
}

func loadSegment(addr uint64, data []byte, flags uint32) segment {
	return segment{vaddr: addr, paddr: addr, data: data, memsz: uint64(len(data)), flags: flags, kind: 1}
}

// buildELF lays out a little-endian executable with program headers
// straight after the ELF header and segment data after them.
func buildELF(is64 bool, machine uint16, entry uint64, segs ...segment) []byte {
	le := binary.LittleEndian
	ehsize, phentsize := 52, 32
	if is64 {
		ehsize, phentsize = 64, 56
	}

	header := make([]byte, ehsize)
	copy(header, []byte{0x7F, 'E', 'L', 'F'})
	header[4] = 1
	if is64 {
		header[4] = 2
	}
	header[5] = 1
	header[6] = 1
	le.PutUint16(header[16:], 2)
	le.PutUint16(header[18:], machine)
	le.PutUint32(header[20:], 1)

	phoff := uint64(ehsize)
	if is64 {
		le.PutUint64(header[24:], entry)
		le.PutUint64(header[32:], phoff)
		le.PutUint16(header[52:], uint16(ehsize))
		le.PutUint16(header[54:], uint16(phentsize))
		le.PutUint16(header[56:], uint16(len(segs)))
		le.PutUint16(header[58:], 64)
	} else {
		le.PutUint32(header[24:], uint32(entry))
		le.PutUint32(header[28:], uint32(phoff))
		le.PutUint16(header[40:], uint16(ehsize))
		le.PutUint16(header[42:], uint16(phentsize))
		le.PutUint16(header[44:], uint16(len(segs)))
		le.PutUint16(header[46:], 40)
	}

	var buf bytes.Buffer
	buf.Write(header)

	offset := uint64(ehsize + phentsize*len(segs))
	for _, s := range segs {
		ph := make([]byte, phentsize)
		if is64 {
			le.PutUint32(ph[0:], s.kind)
			le.PutUint32(ph[4:], s.flags)
			le.PutUint64(ph[8:], offset)
			le.PutUint64(ph[16:], s.vaddr)
			le.PutUint64(ph[24:], s.paddr)
			le.PutUint64(ph[32:], uint64(len(s.data)))
			le.PutUint64(ph[40:], s.memsz)
			le.PutUint64(ph[48:], 4)
		} else {
			le.PutUint32(ph[0:], s.kind)
			le.PutUint32(ph[4:], uint32(offset))
			le.PutUint32(ph[8:], uint32(s.vaddr))
			le.PutUint32(ph[12:], uint32(s.paddr))
			le.PutUint32(ph[16:], uint32(len(s.data)))
			le.PutUint32(ph[20:], uint32(s.memsz))
			le.PutUint32(ph[24:], s.flags)
			le.PutUint32(ph[28:], 4)
		}
		buf.Write(ph)
		offset += uint64(len(s.data))
	}

	for _, s := range segs {
		buf.Write(s.data)
	}
	return buf.Bytes()
}

var _ = Describe("ELF Loader", func() {
	var tempDir string

	write := func(name string, data []byte) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, data, 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	Context("with a 32-bit ARM executable", func() {
		code := []byte{0x01, 0x00, 0x80, 0xE2} // add r0, r0, #1

		It("should extract the entry point and segments", func() {
			path := write("arm.elf", buildELF(false, emARM, 0x8000,
				loadSegment(0x8000, code, pfR|pfX)))

			img, err := loader.LoadELF(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Arch).To(Equal(loader.ArchARM))
			Expect(img.Entry).To(Equal(uint64(0x8000)))
			Expect(img.Segments).To(HaveLen(1))
			Expect(img.Segments[0].Data).To(Equal(code))
			Expect(img.Segments[0].Flags).To(Equal(loader.SegmentFlagRead | loader.SegmentFlagExecute))
		})

		It("should place segments at their physical address", func() {
			seg := loadSegment(0xC0008000, code, pfR|pfX)
			seg.paddr = 0x8000
			path := write("kernel.elf", buildELF(false, emARM, 0xC0008000, seg))

			img, err := loader.LoadELF(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Segments[0].PhysAddr).To(Equal(uint64(0x8000)))
			Expect(img.Segments[0].VirtAddr).To(Equal(uint64(0xC0008000)))
		})
	})

	Context("with a 64-bit RISC-V executable", func() {
		It("should load multiple PT_LOAD segments and skip the rest", func() {
			note := loadSegment(0, []byte{1, 2, 3, 4}, pfR)
			note.kind = 4
			path := write("rv.elf", buildELF(true, emRISCV, 0x80000000,
				loadSegment(0x80000000, []byte{0x13, 0, 0, 0}, pfR|pfX),
				note,
				loadSegment(0x80001000, []byte{9, 9}, pfR|pfW)))

			img, err := loader.LoadELF(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Arch).To(Equal(loader.ArchRISCV))
			Expect(img.Segments).To(HaveLen(2))
			Expect(img.Segments[1].PhysAddr).To(Equal(uint64(0x80001000)))
			Expect(img.Segments[1].Flags & loader.SegmentFlagWrite).NotTo(BeZero())
		})
	})

	Context("with unsupported files", func() {
		It("should return an error for a missing file", func() {
			_, err := loader.LoadELF(filepath.Join(tempDir, "missing"))
			Expect(err).To(HaveOccurred())
		})

		It("should flag non-ELF data", func() {
			path := write("text", []byte("not an executable at all, just text"))

			_, err := loader.LoadELF(path)
			Expect(errors.Is(err, loader.ErrNotELF)).To(BeTrue())
		})

		It("should reject other machines", func() {
			path := write("x86.elf", buildELF(true, emX8664, 0))

			_, err := loader.LoadELF(path)
			Expect(err).To(MatchError(ContainSubstring("unsupported ELF target")))
		})

		It("should reject 64-bit ARM files", func() {
			path := write("arm64.elf", buildELF(true, emARM, 0))

			_, err := loader.LoadELF(path)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Load", func() {
		It("should fall back to a raw image", func() {
			path := write("raw.bin", []byte{1, 2, 3, 4})

			img, err := loader.Load(path, 0x1000, loader.ArchARM)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Entry).To(Equal(uint64(0x1000)))
			Expect(img.Segments).To(HaveLen(1))
			Expect(img.Segments[0].Data).To(Equal([]byte{1, 2, 3, 4}))
		})

		It("should reject an ELF for the other architecture", func() {
			path := write("rv.elf", buildELF(true, emRISCV, 0x80000000,
				loadSegment(0x80000000, []byte{0x13, 0, 0, 0}, pfR|pfX)))

			_, err := loader.Load(path, 0, loader.ArchARM)
			Expect(err).To(MatchError(ContainSubstring("board is arm")))
		})
	})

	Describe("WriteTo", func() {
		var b *bus.Bus

		BeforeEach(func() {
			b = bus.New()
			Expect(b.RegisterNamed("ram", bus.NewRAM(0x10000), 0, 0xFFFF)).To(Succeed())
			Expect(b.RegisterNamed("rom", bus.NewROM(0x100, nil), 0x20000, 0x200FF)).To(Succeed())
		})

		It("should copy data and clear BSS", func() {
			Expect(b.WriteBytes(0x2000, bytes.Repeat([]byte{0xAA}, 0x3000))).To(Succeed())

			img := &loader.Image{Segments: []loader.Segment{
				{PhysAddr: 0x2000, Data: []byte{1, 2}, MemSize: 0x2800},
			}}
			Expect(img.WriteTo(b)).To(Succeed())

			v, _ := b.Read16(0x2000)
			Expect(v).To(Equal(uint16(0x0201)))
			v8, _ := b.Read8(0x47FF)
			Expect(v8).To(BeZero())
			v8, _ = b.Read8(0x4800)
			Expect(v8).To(Equal(uint8(0xAA)))
		})

		It("should load read-only memory", func() {
			img := loader.RawImage([]byte{0xFE, 0xFF, 0xFF, 0xEA}, 0x20000, loader.ArchARM)
			Expect(img.WriteTo(b)).To(Succeed())

			w, _ := b.Read32(0x20000)
			Expect(w).To(Equal(uint32(0xEAFFFFFE)))
		})

		It("should report segments outside the address space", func() {
			img := loader.RawImage([]byte{1}, 0x90000, loader.ArchARM)
			Expect(img.WriteTo(b)).To(HaveOccurred())
		})
	})

	It("should parse architecture names", func() {
		a, err := loader.ParseArch("riscv64")
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(loader.ArchRISCV))

		_, err = loader.ParseArch("mips")
		Expect(err).To(HaveOccurred())
	})
})

// Package loader reads guest images, ELF executables for either core family
// or raw binaries, and copies them into the address space.
package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Arch is the instruction set an image targets.
type Arch uint8

const (
	ArchUnknown Arch = iota
	ArchARM
	ArchRISCV
)

func (a Arch) String() string {
	switch a {
	case ArchARM:
		return "arm"
	case ArchRISCV:
		return "riscv"
	}
	return "unknown"
}

// ParseArch maps a board or command-line name to an Arch.
func ParseArch(s string) (Arch, error) {
	switch s {
	case "arm", "armv5", "armv5te":
		return ArchARM, nil
	case "riscv", "riscv64", "rv64":
		return ArchRISCV, nil
	}
	return ArchUnknown, fmt.Errorf("unknown architecture %q", s)
}

// ErrNotELF is returned when a file lacks the ELF magic.
var ErrNotELF = errors.New("not an ELF file")

// Segment is one contiguous piece of an image.
type Segment struct {
	// PhysAddr is the bus address the segment is copied to.
	PhysAddr uint64
	// VirtAddr is the address the program expects to run the segment at.
	VirtAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Image is a parsed guest program ready to be written to the bus.
type Image struct {
	Arch Arch
	// Entry is the address where execution should begin.
	Entry    uint64
	Segments []Segment
}

// LoadELF parses the ELF executable at path.
func LoadELF(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadELF(file)
}

// ReadELF parses an ELF executable. It accepts little-endian 32-bit ARM and
// 64-bit RISC-V files. Segments are placed at their physical addresses.
func ReadELF(r io.ReaderAt) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		var fe *elf.FormatError
		if errors.As(err, &fe) {
			return nil, fmt.Errorf("%w: %v", ErrNotELF, err)
		}
		return nil, fmt.Errorf("failed to read ELF file: %w", err)
	}

	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}

	img := &Image{Entry: f.Entry}
	switch {
	case f.Machine == elf.EM_ARM && f.Class == elf.ELFCLASS32:
		img.Arch = ArchARM
	case f.Machine == elf.EM_RISCV && f.Class == elf.ELFCLASS64:
		img.Arch = ArchRISCV
	default:
		return nil, fmt.Errorf("unsupported ELF target (machine %v, class %v)", f.Machine, f.Class)
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Paddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Paddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		img.Segments = append(img.Segments, Segment{
			PhysAddr: phdr.Paddr,
			VirtAddr: phdr.Vaddr,
			Data:     data,
			MemSize:  phdr.Memsz,
			Flags:    flags,
		})
	}

	return img, nil
}

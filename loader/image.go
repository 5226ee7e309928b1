package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/sysim/bus"
)

var elfMagic = []byte{0x7F, 'E', 'L', 'F'}

// LoadRaw wraps the flat binary at path as a single segment at base that
// is entered at its first byte.
func LoadRaw(path string, base uint64, arch Arch) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return RawImage(data, base, arch), nil
}

// RawImage wraps data as a single segment at base.
func RawImage(data []byte, base uint64, arch Arch) *Image {
	return &Image{
		Arch:  arch,
		Entry: base,
		Segments: []Segment{{
			PhysAddr: base,
			VirtAddr: base,
			Data:     data,
			MemSize:  uint64(len(data)),
			Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}
}

// Load reads path as ELF when it carries the ELF magic and as a raw image
// at base otherwise. An ELF whose architecture differs from arch is
// rejected.
func Load(path string, base uint64, arch Arch) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	if !bytes.HasPrefix(data, elfMagic) {
		return RawImage(data, base, arch), nil
	}

	img, err := ReadELF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if arch != ArchUnknown && img.Arch != arch {
		return nil, fmt.Errorf("image is %v, board is %v", img.Arch, arch)
	}
	return img, nil
}

// zeroChunk bounds the buffer used to clear BSS.
const zeroChunk = 4096

// WriteTo copies every segment onto b and clears the part of each segment
// beyond its file data.
func (img *Image) WriteTo(b *bus.Bus) error {
	var errs []error
	for _, seg := range img.Segments {
		if err := writeSegment(b, seg); err != nil {
			errs = append(errs, fmt.Errorf("segment at 0x%x: %w", seg.PhysAddr, err))
		}
	}
	return errors.Join(errs...)
}

func writeSegment(b *bus.Bus, seg Segment) error {
	if err := b.WriteBytes(seg.PhysAddr, seg.Data); err != nil {
		return err
	}

	filled := uint64(len(seg.Data))
	if seg.MemSize <= filled {
		return nil
	}

	zeros := make([]byte, min(seg.MemSize-filled, zeroChunk))
	for filled < seg.MemSize {
		n := min(seg.MemSize-filled, uint64(len(zeros)))
		if err := b.WriteBytes(seg.PhysAddr+filled, zeros[:n]); err != nil {
			return err
		}
		filled += n
	}
	return nil
}

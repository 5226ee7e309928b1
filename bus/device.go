// Package bus routes CPU-side memory transactions to the device that owns
// the addressed range.
package bus

// Device is anything that can be mapped into the address space. Offsets are
// relative to the start of the region the device is registered at.
//
// TryRead and TryWrite report whether an access of size bytes at offset is
// acceptable to the device. The sized accessors are only called after the
// corresponding Try method returned true.
type Device interface {
	TryRead(offset uint64, size int) bool
	TryWrite(offset uint64, size int) bool

	Read8(offset uint64) uint8
	Read16(offset uint64) uint16
	Read32(offset uint64) uint32
	Read64(offset uint64) uint64

	Write8(offset uint64, v uint8)
	Write16(offset uint64, v uint16)
	Write32(offset uint64, v uint32)
	Write64(offset uint64, v uint64)
}

// Region binds a device to the inclusive address range [Start, End].
type Region struct {
	Name   string
	Device Device
	Start  uint64
	End    uint64
}

// Contains reports whether [addr, addr+size-1] lies inside the region.
func (r *Region) Contains(addr uint64, size int) bool {
	if size <= 0 {
		return false
	}
	last := addr + uint64(size) - 1
	if last < addr {
		return false
	}
	return addr >= r.Start && last <= r.End
}

// Size returns the number of bytes the region spans.
func (r *Region) Size() uint64 {
	return r.End - r.Start + 1
}

func (r *Region) overlaps(start, end uint64) bool {
	return start <= r.End && r.Start <= end
}

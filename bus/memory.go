package bus

import "encoding/binary"

// Memory is a little-endian byte store that can be mapped as RAM or ROM.
type Memory struct {
	data     []byte
	readOnly bool
}

// NewRAM allocates size bytes of zeroed, writable memory.
func NewRAM(size uint64) *Memory {
	return &Memory{data: make([]byte, size)}
}

// NewROM returns read-only memory holding a copy of image padded to size.
func NewROM(size uint64, image []byte) *Memory {
	m := &Memory{data: make([]byte, size), readOnly: true}
	copy(m.data, image)
	return m
}

// Size returns the capacity in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// ReadOnly reports whether guest writes are refused.
func (m *Memory) ReadOnly() bool {
	return m.readOnly
}

// LoadAt copies data to offset regardless of the read-only flag.
// It returns false if data does not fit.
func (m *Memory) LoadAt(offset uint64, data []byte) bool {
	if offset > uint64(len(m.data)) || uint64(len(data)) > uint64(len(m.data))-offset {
		return false
	}
	copy(m.data[offset:], data)
	return true
}

// Bytes exposes the backing store.
func (m *Memory) Bytes() []byte {
	return m.data
}

func (m *Memory) fits(offset uint64, size int) bool {
	return size > 0 && offset < uint64(len(m.data)) &&
		uint64(size) <= uint64(len(m.data))-offset
}

// TryRead implements Device.
func (m *Memory) TryRead(offset uint64, size int) bool {
	return m.fits(offset, size)
}

// TryWrite implements Device.
func (m *Memory) TryWrite(offset uint64, size int) bool {
	return !m.readOnly && m.fits(offset, size)
}

func (m *Memory) Read8(offset uint64) uint8 {
	return m.data[offset]
}

func (m *Memory) Read16(offset uint64) uint16 {
	return binary.LittleEndian.Uint16(m.data[offset:])
}

func (m *Memory) Read32(offset uint64) uint32 {
	return binary.LittleEndian.Uint32(m.data[offset:])
}

func (m *Memory) Read64(offset uint64) uint64 {
	return binary.LittleEndian.Uint64(m.data[offset:])
}

func (m *Memory) Write8(offset uint64, v uint8) {
	m.data[offset] = v
}

func (m *Memory) Write16(offset uint64, v uint16) {
	binary.LittleEndian.PutUint16(m.data[offset:], v)
}

func (m *Memory) Write32(offset uint64, v uint32) {
	binary.LittleEndian.PutUint32(m.data[offset:], v)
}

func (m *Memory) Write64(offset uint64, v uint64) {
	binary.LittleEndian.PutUint64(m.data[offset:], v)
}

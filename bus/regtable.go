package bus

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// RegAccess says which directions a register accepts.
type RegAccess uint8

// Register access modes.
const (
	ReadWrite RegAccess = iota
	ReadOnly
	WriteOnly
)

// Register describes one 32-bit register at a fixed word-aligned offset.
//
// OnRead, when set, supplies the value instead of the stored one. OnWrite,
// when set, receives the written value instead of it being stored; the hook
// may call RegisterTable.Set itself. Hooks run without the table's lock
// held.
//
// Narrow writes merge into the register's current value. Volatile marks a
// register whose reads have side effects (a FIFO pop); narrow writes to it
// merge with zero instead.
type Register struct {
	Name     string
	Offset   uint64
	Reset    uint32
	Access   RegAccess
	Volatile bool
	OnRead   func() uint32
	OnWrite  func(v uint32)
}

// RegisterTable is a Device built from a list of named registers. Reads of
// unknown or write-only offsets return zero; writes to unknown or read-only
// offsets are ignored.
type RegisterTable struct {
	name   string
	logger logrus.FieldLogger

	byOffset map[uint64]*Register
	byName   map[string]*Register

	mu     sync.Mutex
	values map[uint64]uint32
}

// NewRegisterTable builds a table. It panics on duplicate offsets or names,
// which are wiring mistakes.
func NewRegisterTable(name string, logger logrus.FieldLogger, regs ...Register) *RegisterTable {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	t := &RegisterTable{
		name:     name,
		logger:   logger.WithField("device", name),
		byOffset: make(map[uint64]*Register, len(regs)),
		byName:   make(map[string]*Register, len(regs)),
		values:   make(map[uint64]uint32, len(regs)),
	}

	for i := range regs {
		r := &regs[i]
		if r.Offset&3 != 0 {
			panic(f("%v: register %v at unaligned offset %#x", name, r.Name, r.Offset))
		}
		if _, dup := t.byOffset[r.Offset]; dup {
			panic(f("%v: duplicate register offset %#x", name, r.Offset))
		}
		if _, dup := t.byName[r.Name]; dup {
			panic(f("%v: duplicate register name %v", name, r.Name))
		}
		t.byOffset[r.Offset] = r
		t.byName[r.Name] = r
		t.values[r.Offset] = r.Reset
	}

	return t
}

// Name returns the table's device name.
func (t *RegisterTable) Name() string {
	return t.name
}

// Reset restores every register to its reset value.
func (t *RegisterTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for off, r := range t.byOffset {
		t.values[off] = r.Reset
	}
}

// Value returns the stored value of the named register.
func (t *RegisterTable) Value(name string) uint32 {
	r, ok := t.byName[name]
	if !ok {
		panic(f("%v: no register %v", t.name, name))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.values[r.Offset]
}

// Set stores v into the named register, bypassing access checks and hooks.
func (t *RegisterTable) Set(name string, v uint32) {
	r, ok := t.byName[name]
	if !ok {
		panic(f("%v: no register %v", t.name, name))
	}

	t.mu.Lock()
	t.values[r.Offset] = v
	t.mu.Unlock()
}

func sizeOK(offset uint64, size int) bool {
	switch size {
	case 1, 2, 4:
		return offset&3+uint64(size) <= 4 && offset%uint64(size) == 0
	case 8:
		return offset&7 == 0
	}
	return false
}

// TryRead implements Device.
func (t *RegisterTable) TryRead(offset uint64, size int) bool {
	return sizeOK(offset, size)
}

// TryWrite implements Device.
func (t *RegisterTable) TryWrite(offset uint64, size int) bool {
	return sizeOK(offset, size)
}

func (t *RegisterTable) readWord(offset uint64) uint32 {
	r, ok := t.byOffset[offset]
	if !ok || r.Access == WriteOnly {
		return 0
	}
	if r.OnRead != nil {
		return r.OnRead()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.values[offset]
}

func (t *RegisterTable) writeWord(offset uint64, v uint32) {
	r, ok := t.byOffset[offset]
	if !ok {
		t.logger.WithField("offset", offset).Debug("write to unknown register ignored")
		return
	}
	if r.Access == ReadOnly {
		t.logger.WithField("register", r.Name).Debug("write to read-only register ignored")
		return
	}
	if r.OnWrite != nil {
		r.OnWrite(v)
		return
	}

	t.mu.Lock()
	t.values[offset] = v
	t.mu.Unlock()
}

// current is the value a narrow write to r is merged with.
func (t *RegisterTable) current(r *Register) uint32 {
	switch {
	case r.Access == WriteOnly || r.Volatile:
		return 0
	case r.OnRead != nil:
		return r.OnRead()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.values[r.Offset]
}

// writePart merges a narrow write into the register's current value.
func (t *RegisterTable) writePart(offset uint64, width int, v uint32) {
	word := offset &^ 3
	shift := (offset & 3) * 8
	mask := uint32(1)<<(uint(width)*8) - 1

	var cur uint32
	if r, ok := t.byOffset[word]; ok {
		cur = t.current(r)
	}

	cur = cur&^(mask<<shift) | (v&mask)<<shift
	t.writeWord(word, cur)
}

func (t *RegisterTable) Read8(offset uint64) uint8 {
	return uint8(t.readWord(offset&^3) >> ((offset & 3) * 8))
}

func (t *RegisterTable) Read16(offset uint64) uint16 {
	return uint16(t.readWord(offset&^3) >> ((offset & 3) * 8))
}

func (t *RegisterTable) Read32(offset uint64) uint32 {
	return t.readWord(offset)
}

func (t *RegisterTable) Read64(offset uint64) uint64 {
	return uint64(t.readWord(offset)) | uint64(t.readWord(offset+4))<<32
}

func (t *RegisterTable) Write8(offset uint64, v uint8) {
	t.writePart(offset, 1, uint32(v))
}

func (t *RegisterTable) Write16(offset uint64, v uint16) {
	t.writePart(offset, 2, uint32(v))
}

func (t *RegisterTable) Write32(offset uint64, v uint32) {
	t.writeWord(offset, v)
}

func (t *RegisterTable) Write64(offset uint64, v uint64) {
	t.writeWord(offset, uint32(v))
	t.writeWord(offset+4, uint32(v>>32))
}

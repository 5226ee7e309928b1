package bus

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Bus is the single master-side view of the address space.
//
// Regions are kept sorted by start address and never change once
// registered. The last region that satisfied a lookup is cached and
// re-validated against every new request before it is used.
type Bus struct {
	mu      sync.RWMutex
	regions []*Region
	last    atomic.Pointer[Region]
	logger  logrus.FieldLogger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for mapping diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(b *Bus) {
		b.logger = l
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		logger: logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Register maps dev at the inclusive range [start, end].
func (b *Bus) Register(dev Device, start, end uint64) error {
	return b.RegisterNamed("", dev, start, end)
}

// RegisterNamed maps dev at [start, end] and records name for diagnostics.
func (b *Bus) RegisterNamed(name string, dev Device, start, end uint64) error {
	if start > end {
		return ErrInvalidRange
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.regions {
		if r.overlaps(start, end) {
			return &OverlapError{Name: name, Start: start, End: end, Existing: r.Name}
		}
	}

	r := &Region{Name: name, Device: dev, Start: start, End: end}
	i := sort.Search(len(b.regions), func(i int) bool {
		return b.regions[i].Start > start
	})
	b.regions = append(b.regions, nil)
	copy(b.regions[i+1:], b.regions[i:])
	b.regions[i] = r

	b.logger.WithFields(logrus.Fields{
		"region": name,
		"start":  start,
		"end":    end,
	}).Debug("bus: region registered")

	return nil
}

// Regions returns a snapshot of the registered regions in address order.
func (b *Bus) Regions() []Region {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Region, len(b.regions))
	for i, r := range b.regions {
		out[i] = *r
	}
	return out
}

// Lookup returns the region that covers [addr, addr+size-1].
func (b *Bus) Lookup(addr uint64, size int) (*Region, error) {
	if r := b.last.Load(); r != nil && r.Contains(addr, size) {
		return r, nil
	}

	b.mu.RLock()
	i := sort.Search(len(b.regions), func(i int) bool {
		return b.regions[i].End >= addr
	})
	var r *Region
	if i < len(b.regions) && b.regions[i].Contains(addr, size) {
		r = b.regions[i]
	}
	b.mu.RUnlock()

	if r == nil {
		return nil, &UnmappedAddressError{Addr: addr, Size: size}
	}

	b.last.Store(r)
	return r, nil
}

// TryRead reports whether a read of size bytes at addr would succeed.
func (b *Bus) TryRead(addr uint64, size int) bool {
	r, err := b.Lookup(addr, size)
	if err != nil {
		return false
	}
	return r.Device.TryRead(addr-r.Start, size)
}

// TryWrite reports whether a write of size bytes at addr would succeed.
func (b *Bus) TryWrite(addr uint64, size int) bool {
	r, err := b.Lookup(addr, size)
	if err != nil {
		return false
	}
	return r.Device.TryWrite(addr-r.Start, size)
}

func (b *Bus) route(addr uint64, size int, write bool) (*Region, uint64, error) {
	r, err := b.Lookup(addr, size)
	if err != nil {
		return nil, 0, err
	}

	off := addr - r.Start
	ok := false
	if write {
		ok = r.Device.TryWrite(off, size)
	} else {
		ok = r.Device.TryRead(off, size)
	}
	if !ok {
		return nil, 0, &AccessError{Region: r.Name, Addr: addr, Size: size, Write: write}
	}

	return r, off, nil
}

// Read8 reads one byte.
func (b *Bus) Read8(addr uint64) (uint8, error) {
	r, off, err := b.route(addr, 1, false)
	if err != nil {
		return 0, err
	}
	return r.Device.Read8(off), nil
}

// Read16 reads a little-endian halfword.
func (b *Bus) Read16(addr uint64) (uint16, error) {
	r, off, err := b.route(addr, 2, false)
	if err != nil {
		return 0, err
	}
	return r.Device.Read16(off), nil
}

// Read32 reads a little-endian word.
func (b *Bus) Read32(addr uint64) (uint32, error) {
	r, off, err := b.route(addr, 4, false)
	if err != nil {
		return 0, err
	}
	return r.Device.Read32(off), nil
}

// Read64 reads a little-endian doubleword.
func (b *Bus) Read64(addr uint64) (uint64, error) {
	r, off, err := b.route(addr, 8, false)
	if err != nil {
		return 0, err
	}
	return r.Device.Read64(off), nil
}

// Write8 writes one byte.
func (b *Bus) Write8(addr uint64, v uint8) error {
	r, off, err := b.route(addr, 1, true)
	if err != nil {
		return err
	}
	r.Device.Write8(off, v)
	return nil
}

// Write16 writes a little-endian halfword.
func (b *Bus) Write16(addr uint64, v uint16) error {
	r, off, err := b.route(addr, 2, true)
	if err != nil {
		return err
	}
	r.Device.Write16(off, v)
	return nil
}

// Write32 writes a little-endian word.
func (b *Bus) Write32(addr uint64, v uint32) error {
	r, off, err := b.route(addr, 4, true)
	if err != nil {
		return err
	}
	r.Device.Write32(off, v)
	return nil
}

// Write64 writes a little-endian doubleword.
func (b *Bus) Write64(addr uint64, v uint64) error {
	r, off, err := b.route(addr, 8, true)
	if err != nil {
		return err
	}
	r.Device.Write64(off, v)
	return nil
}

// Read reads size bytes (1, 2, 4 or 8) at addr, zero-extended.
func (b *Bus) Read(addr uint64, size int) (uint64, error) {
	switch size {
	case 1:
		v, err := b.Read8(addr)
		return uint64(v), err
	case 2:
		v, err := b.Read16(addr)
		return uint64(v), err
	case 4:
		v, err := b.Read32(addr)
		return uint64(v), err
	case 8:
		return b.Read64(addr)
	}
	return 0, ErrInvalidSize
}

// Write writes the low size bytes (1, 2, 4 or 8) of v at addr.
func (b *Bus) Write(addr uint64, size int, v uint64) error {
	switch size {
	case 1:
		return b.Write8(addr, uint8(v))
	case 2:
		return b.Write16(addr, uint16(v))
	case 4:
		return b.Write32(addr, uint32(v))
	case 8:
		return b.Write64(addr, v)
	}
	return ErrInvalidSize
}

type loader interface {
	LoadAt(offset uint64, data []byte) bool
}

// WriteBytes copies data into the address space starting at addr. It is
// meant for image loading, not for guest accesses: a region whose device can
// be bulk-loaded is written directly, even if it is read-only.
func (b *Bus) WriteBytes(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if r, err := b.Lookup(addr, len(data)); err == nil {
		if l, ok := r.Device.(loader); ok && l.LoadAt(addr-r.Start, data) {
			return nil
		}
	}

	for i, v := range data {
		if err := b.Write8(addr+uint64(i), v); err != nil {
			return err
		}
	}
	return nil
}

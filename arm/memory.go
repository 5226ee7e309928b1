package arm

import (
	"math/bits"

	"github.com/sarchlab/sysim/exc"
)

func (c *Core) userMode() bool {
	return c.rf.Mode() == ModeUser
}

// translate maps va or raises the matching abort.
func (c *Core) translate(va uint32, access exc.Access, user bool) (uint32, bool) {
	pa, fsr, ok := c.mmu.Translate(va, access, user)
	if ok {
		return pa, true
	}

	if access == exc.AccessFetch {
		c.prefetchAbort(va, fsr)
	} else {
		c.dataAbort(va, fsr, access)
	}
	return 0, false
}

func (c *Core) fetch32(pc uint32) (uint32, bool) {
	pa, ok := c.translate(pc, exc.AccessFetch, c.userMode())
	if !ok {
		return 0, false
	}

	w, err := c.bus.Read32(uint64(pa))
	if err != nil {
		c.prefetchAbort(pc, FaultExternal)
		return 0, false
	}
	return w, true
}

func (c *Core) fetch16(pc uint32) (uint16, bool) {
	pa, ok := c.translate(pc, exc.AccessFetch, c.userMode())
	if !ok {
		return 0, false
	}

	h, err := c.bus.Read16(uint64(pa))
	if err != nil {
		c.prefetchAbort(pc, FaultExternal)
		return 0, false
	}
	return h, true
}

// aligned checks alignment when the A bit is set.
func (c *Core) aligned(va uint32, size int, access exc.Access) bool {
	if !c.cp15.AlignmentCheck() || va&uint32(size-1) == 0 {
		return true
	}
	c.dataAbort(va, FaultAlignment, access)
	return false
}

// load reads size bytes at va. Unaligned words are read from the aligned
// address and rotated; unaligned halfwords read the aligned halfword.
func (c *Core) load(va uint32, size int, user bool) (uint32, bool) {
	if !c.aligned(va, size, exc.AccessRead) {
		return 0, false
	}

	aligned := va &^ uint32(size-1)
	pa, ok := c.translate(aligned, exc.AccessRead, user)
	if !ok {
		return 0, false
	}

	v, err := c.bus.Read(uint64(pa), size)
	if err != nil {
		c.dataAbort(va, FaultExternal, exc.AccessRead)
		return 0, false
	}

	out := uint32(v)
	if size == 4 && va&3 != 0 {
		out = bits.RotateLeft32(out, -int(va&3)*8)
	}
	return out, true
}

// store writes the low size bytes of v at va, aligned down.
func (c *Core) store(va uint32, size int, v uint32, user bool) bool {
	if !c.aligned(va, size, exc.AccessWrite) {
		return false
	}

	pa, ok := c.translate(va&^uint32(size-1), exc.AccessWrite, user)
	if !ok {
		return false
	}

	if err := c.bus.Write(uint64(pa), size, uint64(v)); err != nil {
		c.dataAbort(va, FaultExternal, exc.AccessWrite)
		return false
	}
	return true
}

// ReadVirtual reads a word through the MMU without raising exceptions. It
// is meant for debuggers and tests.
func (c *Core) ReadVirtual(va uint32) (uint32, error) {
	pa, fsr, ok := c.mmu.Translate(va, exc.AccessRead, false)
	if !ok {
		return 0, &exc.ArchitecturalFault{
			Record: exc.Record{Kind: exc.DataAbort, Cause: uint64(fsr), Addr: uint64(va)},
			Access: exc.AccessRead,
		}
	}
	return c.bus.Read32(uint64(pa))
}

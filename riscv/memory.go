package riscv

import (
	"github.com/sarchlab/sysim/exc"
)

// dataPriv is the privilege loads and stores are checked at. MPRV makes
// machine-mode accesses use the privilege in MPP.
func (c *Core) dataPriv() Priv {
	if c.priv == PrivMachine && c.csr.has(StatusMPRV) {
		return c.csr.MPP()
	}
	return c.priv
}

func (c *Core) fetch(pc uint64) (uint32, bool) {
	if pc&3 != 0 {
		c.fault(CauseFetchMisaligned, pc)
		return 0, false
	}

	pa, cause, ok := c.mmu.Translate(pc, exc.AccessFetch, c.priv)
	if !ok {
		c.fault(cause, pc)
		return 0, false
	}

	w, err := c.bus.Read32(pa)
	if err != nil {
		c.fault(CauseFetchAccess, pc)
		return 0, false
	}
	return w, true
}

// translate maps a data address, raising a misaligned or translation fault.
func (c *Core) translate(va uint64, size int, access exc.Access) (uint64, bool) {
	if va&uint64(size-1) != 0 {
		cause := uint64(CauseLoadMisaligned)
		if access == exc.AccessWrite {
			cause = CauseStoreMisaligned
		}
		c.fault(cause, va)
		return 0, false
	}

	pa, cause, ok := c.mmu.Translate(va, access, c.dataPriv())
	if !ok {
		c.fault(cause, va)
		return 0, false
	}
	return pa, true
}

func (c *Core) load(va uint64, size int) (uint64, bool) {
	pa, ok := c.translate(va, size, exc.AccessRead)
	if !ok {
		return 0, false
	}

	v, err := c.bus.Read(pa, size)
	if err != nil {
		c.fault(CauseLoadAccess, va)
		return 0, false
	}
	return v, true
}

func (c *Core) store(va uint64, size int, v uint64) bool {
	pa, ok := c.translate(va, size, exc.AccessWrite)
	if !ok {
		return false
	}

	if err := c.bus.Write(pa, size, v); err != nil {
		c.fault(CauseStoreAccess, va)
		return false
	}
	if c.reservationValid && c.reservation == pa&^7 {
		c.reservationValid = false
	}
	return true
}

// ReadVirtual reads a doubleword through the MMU at the current data
// privilege without raising exceptions.
func (c *Core) ReadVirtual(va uint64) (uint64, error) {
	pa, cause, ok := c.mmu.Translate(va, exc.AccessRead, c.dataPriv())
	if !ok {
		return 0, &exc.ArchitecturalFault{
			Record: exc.Record{Kind: exc.DataAbort, Cause: cause, Addr: va},
			Access: exc.AccessRead,
		}
	}
	return c.bus.Read64(pa)
}

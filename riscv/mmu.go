package riscv

import (
	"github.com/sarchlab/sysim/bus"
	"github.com/sarchlab/sysim/exc"
	"github.com/sarchlab/sysim/tlb"
)

// Page table entry bits.
const (
	pteV uint64 = 1 << iota
	pteR
	pteW
	pteX
	pteU
	pteG
	pteA
	pteD
)

const (
	pageShift = 12
	pageSize  = 1 << pageShift
	ppnMask   = 1<<44 - 1
	levels    = 3
)

type tlbEntry struct {
	page    uint64
	pte     uint64
	pteAddr uint64
}

// MMU implements Sv39 translation with a TLB.
type MMU struct {
	csr *CSRFile
	bus *bus.Bus
	tlb *tlb.TLB[tlbEntry]
}

func newMMU(csr *CSRFile, b *bus.Bus, sets, ways int) *MMU {
	return &MMU{
		csr: csr,
		bus: b,
		tlb: tlb.New[tlbEntry](sets, ways, pageSize),
	}
}

// Flush drops every cached translation.
func (m *MMU) Flush() {
	m.tlb.Flush()
}

// FlushPage drops the cached translation of va.
func (m *MMU) FlushPage(va uint64) {
	m.tlb.FlushPage(va)
}

// TLBStats exposes the translation cache counters.
func (m *MMU) TLBStats() tlb.Stats {
	return m.tlb.Stats()
}

func faultCause(access exc.Access, page bool) uint64 {
	switch access {
	case exc.AccessFetch:
		if page {
			return CauseFetchPage
		}
		return CauseFetchAccess
	case exc.AccessWrite:
		if page {
			return CauseStorePage
		}
		return CauseStoreAccess
	}
	if page {
		return CauseLoadPage
	}
	return CauseLoadAccess
}

// Translate maps va for an access made at privilege priv. On failure it
// returns the exception cause.
func (m *MMU) Translate(va uint64, access exc.Access, priv Priv) (uint64, uint64, bool) {
	if priv == PrivMachine || m.csr.SatpMode() != SatpSv39 {
		return va, 0, true
	}

	if uint64(int64(va<<25)>>25) != va {
		return 0, faultCause(access, true), false
	}

	e, hit := m.tlb.Lookup(va)
	if hit && !m.needsUpdate(e.pte, access) {
		if !m.permitted(e.pte, access, priv) {
			return 0, faultCause(access, true), false
		}
		return e.page | va&(pageSize-1), 0, true
	}

	e, cause, ok := m.walk(va, access)
	if !ok {
		return 0, cause, false
	}
	if !m.permitted(e.pte, access, priv) {
		return 0, faultCause(access, true), false
	}

	if m.needsUpdate(e.pte, access) {
		e.pte |= pteA
		if access == exc.AccessWrite {
			e.pte |= pteD
		}
		if err := m.bus.Write64(e.pteAddr, e.pte); err != nil {
			return 0, faultCause(access, false), false
		}
	}

	m.tlb.Insert(va, e)
	return e.page | va&(pageSize-1), 0, true
}

func (m *MMU) needsUpdate(pte uint64, access exc.Access) bool {
	return pte&pteA == 0 || access == exc.AccessWrite && pte&pteD == 0
}

func (m *MMU) walk(va uint64, access exc.Access) (tlbEntry, uint64, bool) {
	table := (m.csr.Satp & ppnMask) << pageShift

	for level := levels - 1; level >= 0; level-- {
		shift := uint(pageShift + 9*level)
		addr := table + (va>>shift&0x1FF)*8

		pte, err := m.bus.Read64(addr)
		if err != nil {
			return tlbEntry{}, faultCause(access, false), false
		}
		if pte&pteV == 0 || pte&pteR == 0 && pte&pteW != 0 {
			return tlbEntry{}, faultCause(access, true), false
		}

		ppn := pte >> 10 & ppnMask
		if pte&(pteR|pteX) == 0 {
			table = ppn << pageShift
			continue
		}

		// A superpage must be aligned to its own size.
		if ppn&(1<<(9*level)-1) != 0 {
			return tlbEntry{}, faultCause(access, true), false
		}

		page := ppn<<pageShift | va&(1<<shift-1)&^(pageSize-1)
		return tlbEntry{page: page, pte: pte, pteAddr: addr}, 0, true
	}

	return tlbEntry{}, faultCause(access, true), false
}

func (m *MMU) permitted(pte uint64, access exc.Access, priv Priv) bool {
	user := pte&pteU != 0
	switch priv {
	case PrivUser:
		if !user {
			return false
		}
	case PrivSupervisor:
		if user && (access == exc.AccessFetch || !m.csr.has(StatusSUM)) {
			return false
		}
	}

	switch access {
	case exc.AccessFetch:
		return pte&pteX != 0
	case exc.AccessWrite:
		return pte&pteW != 0
	}
	return pte&pteR != 0 || m.csr.has(StatusMXR) && pte&pteX != 0
}

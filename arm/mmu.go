package arm

import (
	"github.com/sarchlab/sysim/bus"
	"github.com/sarchlab/sysim/exc"
	"github.com/sarchlab/sysim/tlb"
)

// tlbEntry is the translation of one 1 KiB virtual chunk.
type tlbEntry struct {
	pa      uint32
	domain  uint32
	ap      uint32
	section bool
}

// MMU translates virtual addresses through ARMv5 short-descriptor tables.
type MMU struct {
	cp15 *CP15
	bus  *bus.Bus
	tlb  *tlb.TLB[tlbEntry]
}

const chunk = 1024

func newMMU(cp15 *CP15, b *bus.Bus, sets, ways int) *MMU {
	return &MMU{
		cp15: cp15,
		bus:  b,
		tlb:  tlb.New[tlbEntry](sets, ways, chunk),
	}
}

// Flush drops every cached translation.
func (m *MMU) Flush() {
	m.tlb.Flush()
}

// FlushPage drops the cached translations of the page holding mva.
func (m *MMU) FlushPage(mva uint32) {
	base := mva &^ 0xFFF
	for off := uint32(0); off < 0x1000; off += chunk {
		m.tlb.FlushPage(uint64(base + off))
	}
}

// TLBStats exposes the translation cache counters.
func (m *MMU) TLBStats() tlb.Stats {
	return m.tlb.Stats()
}

// modified applies the fast context switch extension.
func (m *MMU) modified(va uint32) uint32 {
	if va < 1<<25 {
		return va | m.cp15.PID
	}
	return va
}

// Translate maps va for the given access. On failure it returns the fault
// status value (domain in bits 7:4, status in bits 3:0).
func (m *MMU) Translate(va uint32, access exc.Access, user bool) (uint32, uint32, bool) {
	mva := m.modified(va)

	if !m.cp15.MMUEnabled() {
		return mva, 0, true
	}

	e, hit := m.tlb.Lookup(uint64(mva))
	if !hit {
		var fsr uint32
		var ok bool
		e, fsr, ok = m.walk(mva)
		if !ok {
			return 0, fsr, false
		}
		m.tlb.Insert(uint64(mva), e)
	}

	if fsr, ok := m.check(e, access, user); !ok {
		return 0, fsr, false
	}

	return e.pa | mva&(chunk-1), 0, true
}

func fsrOf(domain, status uint32) uint32 {
	return domain<<4 | status
}

func (m *MMU) walk(mva uint32) (tlbEntry, uint32, bool) {
	l1Addr := m.cp15.TTBR&0xFFFFC000 | mva>>20<<2
	l1, err := m.bus.Read32(uint64(l1Addr))
	if err != nil {
		return tlbEntry{}, fsrOf(0, FaultTranslationL1Ext), false
	}

	domain := l1 >> 5 & 0xF

	var l2Addr uint32
	switch l1 & 3 {
	case 0:
		return tlbEntry{}, fsrOf(0, FaultTranslationSect), false
	case 2:
		base := l1 & 0xFFF00000
		return tlbEntry{
			pa:      base | mva&0xFFC00,
			domain:  domain,
			ap:      l1 >> 10 & 3,
			section: true,
		}, 0, true
	case 1:
		l2Addr = l1&0xFFFFFC00 | mva>>12&0xFF<<2
	case 3:
		l2Addr = l1&0xFFFFF000 | mva>>10&0x3FF<<2
	}

	l2, err := m.bus.Read32(uint64(l2Addr))
	if err != nil {
		return tlbEntry{}, fsrOf(domain, FaultTranslationL2Ext), false
	}

	e := tlbEntry{domain: domain}
	switch l2 & 3 {
	case 0:
		return tlbEntry{}, fsrOf(domain, FaultTranslationPage), false
	case 1:
		sub := mva >> 14 & 3
		e.pa = l2&0xFFFF0000 | mva&0xFC00
		e.ap = l2 >> (4 + 2*sub) & 3
	case 2:
		sub := mva >> 10 & 3
		e.pa = l2&0xFFFFF000 | mva&0xC00
		e.ap = l2 >> (4 + 2*sub) & 3
	case 3:
		if l1&3 != 3 {
			return tlbEntry{}, fsrOf(domain, FaultTranslationPage), false
		}
		e.pa = l2 & 0xFFFFFC00
		e.ap = l2 >> 4 & 3
	}

	return e, 0, true
}

func (m *MMU) check(e tlbEntry, access exc.Access, user bool) (uint32, bool) {
	domainFault, permFault := FaultDomainPage, FaultPermissionPage
	if e.section {
		domainFault, permFault = FaultDomainSect, FaultPermissionSect
	}

	switch m.cp15.DACR >> (2 * e.domain) & 3 {
	case 0, 2:
		return fsrOf(e.domain, domainFault), false
	case 3:
		return 0, true
	}

	write := access == exc.AccessWrite
	if !permitted(e.ap, m.cp15.Control, write, user) {
		return fsrOf(e.domain, permFault), false
	}
	return 0, true
}

// permitted applies the AP bits together with the S and R control bits.
func permitted(ap, control uint32, write, user bool) bool {
	switch ap {
	case 0:
		s, r := control&CtrlS != 0, control&CtrlR != 0
		switch {
		case s && !r:
			return !write && !user
		case r && !s:
			return !write
		}
		return false
	case 1:
		return !user
	case 2:
		return !user || !write
	}
	return true
}

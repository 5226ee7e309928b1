// Package riscv implements an RV64IMA hart with Zicsr, Zifencei, machine,
// supervisor and user privilege, and Sv39 virtual memory.
package riscv

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sysim/bus"
	"github.com/sarchlab/sysim/cpu"
	"github.com/sarchlab/sysim/exc"
	"github.com/sarchlab/sysim/insts"
	"github.com/sarchlab/sysim/intc"
)

var sprintf = fmt.Sprintf

// Core is one RISC-V hart attached to a bus.
type Core struct {
	rf   RegFile
	csr  CSRFile
	priv Priv
	bus  *bus.Bus
	mmu  *MMU
	exc  exc.Unit

	// next is the address of the instruction after the executing one.
	// Control transfers overwrite it.
	next uint64

	reservation      uint64
	reservationValid bool

	external   intc.Source
	supervisor intc.Source
	timer      intc.Source
	software   intc.Source
	timeSource func() uint64
	resetPC    uint64
	hartID     uint64
	tlbSets    int
	tlbWays    int
	waiting    bool
	trace      bool
	logger     logrus.FieldLogger
	stats      cpu.Stats
}

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the core's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Core) {
		c.logger = l
	}
}

// WithTrace logs every executed instruction at trace level.
func WithTrace(on bool) Option {
	return func(c *Core) {
		c.trace = on
	}
}

// WithResetPC sets the address execution starts from after reset.
func WithResetPC(pc uint64) Option {
	return func(c *Core) {
		c.resetPC = pc
	}
}

// WithHartID sets the value of mhartid.
func WithHartID(id uint64) Option {
	return func(c *Core) {
		c.hartID = id
	}
}

// WithExternalInterrupts connects the machine- and supervisor-level
// external interrupt inputs.
func WithExternalInterrupts(machine, supervisor intc.Source) Option {
	return func(c *Core) {
		c.external = machine
		c.supervisor = supervisor
	}
}

// WithTimerInterrupt connects the machine timer input.
func WithTimerInterrupt(src intc.Source) Option {
	return func(c *Core) {
		c.timer = src
	}
}

// WithSoftwareInterrupt connects the machine software interrupt input.
func WithSoftwareInterrupt(src intc.Source) Option {
	return func(c *Core) {
		c.software = src
	}
}

// WithTime sets the source of the time CSR.
func WithTime(fn func() uint64) Option {
	return func(c *Core) {
		c.timeSource = fn
	}
}

// WithTLB sets the TLB geometry.
func WithTLB(sets, ways int) Option {
	return func(c *Core) {
		c.tlbSets = sets
		c.tlbWays = ways
	}
}

// NewCore creates a hart with a reset pending.
func NewCore(b *bus.Bus, opts ...Option) *Core {
	c := &Core{
		bus:        b,
		external:   intc.NullSource{},
		supervisor: intc.NullSource{},
		timer:      intc.NullSource{},
		software:   intc.NullSource{},
		tlbSets:    16,
		tlbWays:    4,
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mmu = newMMU(&c.csr, b, c.tlbSets, c.tlbWays)
	c.Reset()
	return c
}

// RegFile returns the integer registers.
func (c *Core) RegFile() *RegFile {
	return &c.rf
}

// CSR returns the control and status registers.
func (c *Core) CSR() *CSRFile {
	return &c.csr
}

// Priv returns the current privilege level.
func (c *Core) Priv() Priv {
	return c.priv
}

// MMU returns the address translation unit.
func (c *Core) MMU() *MMU {
	return c.mmu
}

// Exceptions returns the pending exception unit.
func (c *Core) Exceptions() *exc.Unit {
	return &c.exc
}

// Stats returns the execution counters.
func (c *Core) Stats() cpu.Stats {
	return c.stats
}

// Idle reports whether the hart is stalled in WFI.
func (c *Core) Idle() bool {
	return c.waiting
}

// Reset returns the hart to its power-on state with a reset pending.
func (c *Core) Reset() {
	c.exc.Clear()
	c.exc.Raise(exc.Record{Kind: exc.Reset})
}

func (c *Core) time() uint64 {
	if c.timeSource != nil {
		return c.timeSource()
	}
	return c.csr.Cycle
}

// Tick services at most one pending trap, takes an enabled interrupt if
// one is pending, then fetches and executes one instruction.
func (c *Core) Tick() {
	c.stats.Ticks++
	c.csr.Cycle++

	if r, ok := c.exc.Take(); ok {
		c.trap(r)
	}

	if code, ok := c.pendingInterrupt(); ok {
		c.waiting = false
		c.stats.Interrupts++
		c.exc.Raise(exc.Record{Kind: exc.NormalInterrupt, Cause: code, PC: c.rf.pc})
		return
	}

	if c.waiting {
		if c.pendingBits()&c.csr.Mie != 0 {
			c.waiting = false
		} else {
			c.stats.IdleTicks++
			return
		}
	}

	c.step()
}

func (c *Core) step() {
	pc := c.rf.pc

	word, ok := c.fetch(pc)
	if !ok {
		return
	}

	c.next = pc + 4
	c.stats.Instructions++
	w := insts.RVWord(word)
	op := insts.DecodeRV(word).Op

	if c.trace {
		c.traceInstruction(pc, word, c.disassemble(w, op))
	}

	handlers[op](c, w, nil)

	if c.exc.Pending() {
		return
	}
	c.csr.Instret++
	c.rf.pc = c.next
}

func (c *Core) traceInstruction(pc uint64, word uint32, asm string) {
	c.logger.WithFields(logrus.Fields{
		"pc":   sprintf("%016x", pc),
		"word": sprintf("%08x", word),
		"priv": c.priv.String(),
		"asm":  asm,
	}).Trace("exec")
}

// Disassemble renders word without executing it.
func (c *Core) Disassemble(word uint32) string {
	return c.disassemble(insts.RVWord(word), insts.DecodeRV(word).Op)
}

func (c *Core) disassemble(w insts.RVWord, op insts.Op) string {
	var dis insts.Disasm
	handlers[op](c, w, &dis)
	return dis.String()
}

// pendingBits returns mip with the hardware interrupt lines folded in.
func (c *Core) pendingBits() uint64 {
	mip := c.csr.Mip
	if c.external.IsAsserted() {
		mip |= 1 << IntMExternal
	}
	if c.supervisor.IsAsserted() {
		mip |= 1 << IntSExternal
	}
	if c.timer.IsAsserted() {
		mip |= 1 << IntMTimer
	}
	if c.software.IsAsserted() {
		mip |= 1 << IntMSoft
	}
	return mip
}

// pendingInterrupt picks the highest priority interrupt that is pending,
// enabled and not masked at the current privilege.
func (c *Core) pendingInterrupt() (uint64, bool) {
	pending := c.pendingBits() & c.csr.Mie
	if pending == 0 {
		return 0, false
	}

	mEnabled := c.priv < PrivMachine || c.csr.has(StatusMIE)
	sEnabled := c.priv < PrivSupervisor || c.priv == PrivSupervisor && c.csr.has(StatusSIE)

	machine := pending &^ c.csr.Mideleg
	if !mEnabled {
		machine = 0
	}
	super := pending & c.csr.Mideleg
	if !sEnabled {
		super = 0
	}

	for _, code := range interruptOrder {
		if machine>>code&1 != 0 {
			return code, true
		}
	}
	for _, code := range interruptOrder {
		if super>>code&1 != 0 {
			return code, true
		}
	}
	return 0, false
}

// Package arm implements an ARMv5TE processor core with ARM and Thumb
// states, mode-banked registers, the CP15 system coprocessor and an MMU.
package arm

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sysim/bus"
	"github.com/sarchlab/sysim/cpu"
	"github.com/sarchlab/sysim/exc"
	"github.com/sarchlab/sysim/insts"
	"github.com/sarchlab/sysim/intc"
)

// Core is one ARM processor attached to a bus.
type Core struct {
	rf   *RegFile
	bus  *bus.Bus
	cp15 CP15
	mmu  *MMU
	exc  exc.Unit

	irq intc.Source
	fiq intc.Source

	highVectors bool
	tlbSets     int
	tlbWays     int

	waiting bool
	trace   bool
	logger  logrus.FieldLogger
	stats   cpu.Stats
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

// WithHighVectors places the vector table at 0xFFFF0000 after reset.
func WithHighVectors(on bool) Option {
	return func(c *Core) {
		c.highVectors = on
	}
}

// WithIRQ connects the normal interrupt request input.
func WithIRQ(src intc.Source) Option {
	return func(c *Core) {
		c.irq = src
	}
}

// WithFIQ connects the fast interrupt request input.
func WithFIQ(src intc.Source) Option {
	return func(c *Core) {
		c.fiq = src
	}
}

// WithTLB sets the translation cache geometry.
func WithTLB(sets, ways int) Option {
	return func(c *Core) {
		c.tlbSets = sets
		c.tlbWays = ways
	}
}

// NewCore creates a core on b and holds it in reset: the first Tick
// services the reset exception.
func NewCore(b *bus.Bus, opts ...Option) *Core {
	c := &Core{
		rf:      NewRegFile(),
		bus:     b,
		irq:     intc.NullSource{},
		fiq:     intc.NullSource{},
		tlbSets: 16,
		tlbWays: 4,
		logger:  logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.mmu = newMMU(&c.cp15, b, c.tlbSets, c.tlbWays)
	c.Reset()

	return c
}

// RegFile returns the register file.
func (c *Core) RegFile() *RegFile {
	return c.rf
}

// CP15 returns the system control coprocessor state.
func (c *Core) CP15() *CP15 {
	return &c.cp15
}

// MMU returns the memory management unit.
func (c *Core) MMU() *MMU {
	return c.mmu
}

// Exceptions returns the pending-exception unit.
func (c *Core) Exceptions() *exc.Unit {
	return &c.exc
}

// Stats implements cpu.Core.
func (c *Core) Stats() cpu.Stats {
	return c.stats
}

// Idle reports whether the core is waiting for an interrupt.
func (c *Core) Idle() bool {
	return c.waiting
}

// Reset returns the core to its power-on state with a reset exception
// pending.
func (c *Core) Reset() {
	c.rf.Reset()
	c.cp15.reset(c.highVectors)
	c.mmu.Flush()
	c.exc.Clear()
	c.waiting = false
	c.exc.Raise(exc.Record{Kind: exc.Reset})
}

// Tick services at most one pending exception, samples the interrupt
// inputs, then fetches and executes one instruction. Raising an interrupt
// or an exception from the instruction ends the tick.
func (c *Core) Tick() {
	c.stats.Ticks++

	if r, ok := c.exc.Take(); ok {
		c.enter(r)
	}

	cpsr := c.rf.CPSR()
	switch {
	case !cpsr.F() && c.fiq.IsAsserted():
		c.raiseInterrupt(exc.FastInterrupt)
		return
	case !cpsr.I() && c.irq.IsAsserted():
		c.raiseInterrupt(exc.NormalInterrupt)
		return
	}

	if c.waiting {
		// A masked request still ends the wait; execution resumes after
		// the wait instruction without taking the interrupt.
		if !c.irq.IsAsserted() && !c.fiq.IsAsserted() {
			c.stats.IdleTicks++
			return
		}
		c.waiting = false
	}

	c.step()
}

func (c *Core) raiseInterrupt(k exc.Kind) {
	c.waiting = false
	c.stats.Interrupts++
	c.exc.Raise(exc.Record{Kind: k, PC: uint64(c.rf.PC())})
}

func (c *Core) step() {
	pc := c.rf.PC()
	c.rf.ClearBranched()

	if c.rf.Thumb() {
		half, ok := c.fetch16(pc)
		if !ok {
			return
		}
		c.stats.Instructions++
		c.execThumb(insts.ThumbWord(half), pc)
		c.advance(pc, 2)
		return
	}

	word, ok := c.fetch32(pc)
	if !ok {
		return
	}
	c.stats.Instructions++
	c.execARM(insts.ARMWord(word), pc)
	c.advance(pc, 4)
}

func (c *Core) advance(pc, size uint32) {
	if c.exc.Pending() || c.rf.Branched() {
		return
	}
	c.rf.SetPC(pc + size)
}

func (c *Core) execARM(w insts.ARMWord, pc uint32) {
	op := insts.DecodeARM(uint32(w)).Op

	if c.trace {
		c.traceInstruction(pc, uint32(w), c.disassembleARM(w, op))
	}

	if w.Cond() != insts.CondNV && !c.conditionPassed(w.Cond()) {
		return
	}

	armHandlers[op](c, w, nil)
}

func (c *Core) execThumb(w insts.ThumbWord, pc uint32) {
	op := insts.DecodeThumb(uint16(w)).Op

	if c.trace {
		c.traceInstruction(pc, uint32(w), c.disassembleThumb(w, op))
	}

	thumbHandlers[op](c, w, nil)
}

func (c *Core) conditionPassed(cond insts.Cond) bool {
	p := c.rf.CPSR()
	return cond.Holds(p.N(), p.Z(), p.C(), p.V())
}

func (c *Core) traceInstruction(pc, word uint32, asm string) {
	c.logger.WithFields(logrus.Fields{
		"pc":   sprintf("%08x", pc),
		"word": sprintf("%08x", word),
		"mode": c.rf.Mode().String(),
		"asm":  asm,
	}).Trace("exec")
}

// Disassemble renders word in the given state without executing it.
func (c *Core) Disassemble(word uint32, thumb bool) string {
	if thumb {
		w := insts.ThumbWord(word)
		return c.disassembleThumb(w, insts.DecodeThumb(uint16(w)).Op)
	}
	w := insts.ARMWord(word)
	return c.disassembleARM(w, insts.DecodeARM(word).Op)
}

func (c *Core) disassembleARM(w insts.ARMWord, op insts.Op) string {
	var dis insts.Disasm
	armHandlers[op](c, w, &dis)
	return dis.String()
}

func (c *Core) disassembleThumb(w insts.ThumbWord, op insts.Op) string {
	var dis insts.Disasm
	thumbHandlers[op](c, w, &dis)
	return dis.String()
}

// condSuffix renders the condition of a conditional ARM instruction.
func condSuffix(w insts.ARMWord) string {
	if w.Cond() == insts.CondNV {
		return ""
	}
	return w.Cond().String()
}

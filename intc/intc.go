package intc

import (
	"math/bits"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sysim/bus"
	"github.com/sarchlab/sysim/translate"
)

var f = translate.From

// MaxLines is the widest controller supported.
const MaxLines = 32

// InvalidLineError reports a line index outside the controller.
type InvalidLineError struct {
	Controller string
	Line       int
	Lines      int
}

func (e *InvalidLineError) Error() string {
	return f("%v: line %d outside [0, %d)", e.Controller, e.Line, e.Lines)
}

// CycleError reports a connection that would make a controller observe its
// own output.
type CycleError struct {
	Controller string
	Source     string
}

func (e *CycleError) Error() string {
	return f("%v: connecting %v forms an interrupt cycle", e.Controller, e.Source)
}

// Controller aggregates up to 32 request lines.
//
// A line's status bit is set when its source asserts (or its soft bit is
// set) and its enable bit is set. The select mask routes each enabled line
// to the FIQ output instead of the IRQ output. The controller is itself a
// Source asserting whenever any status bit is set, so controllers cascade.
type Controller struct {
	name  string
	lines int

	mu      sync.Mutex
	sources []Source
	enable  uint32
	selectF uint32
	soft    uint32

	regs   *bus.RegisterTable
	logger logrus.FieldLogger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates a controller with the given number of lines. All lines start
// bound to NullSource and disabled. A line count outside [1, 32] is a
// wiring mistake and panics.
func New(name string, lines int, opts ...Option) *Controller {
	if lines <= 0 || lines > MaxLines {
		panic(&InvalidLineError{Controller: name, Line: lines, Lines: MaxLines})
	}

	c := &Controller{
		name:    name,
		lines:   lines,
		sources: make([]Source, lines),
		logger:  logrus.StandardLogger(),
	}
	for i := range c.sources {
		c.sources[i] = NullSource{}
	}

	for _, opt := range opts {
		opt(c)
	}

	c.regs = c.registerTable()

	return c
}

// Lines returns the number of lines.
func (c *Controller) Lines() int {
	return c.lines
}

func (c *Controller) lineMask() uint32 {
	if c.lines == 32 {
		return ^uint32(0)
	}
	return uint32(1)<<uint(c.lines) - 1
}

func (c *Controller) check(line int) error {
	if line < 0 || line >= c.lines {
		return &InvalidLineError{Controller: c.name, Line: line, Lines: c.lines}
	}
	return nil
}

// Connect binds src to line, replacing what was there.
func (c *Controller) Connect(line int, src Source) error {
	if err := c.check(line); err != nil {
		return err
	}
	if src == nil {
		src = NullSource{}
	}
	if feedsFrom(src, c) {
		return &CycleError{Controller: c.name, Source: src.Describe()}
	}

	c.mu.Lock()
	c.sources[line] = src
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"intc":   c.name,
		"line":   line,
		"source": src.Describe(),
	}).Debug("interrupt line connected")

	return nil
}

// Disconnect rebinds line to NullSource.
func (c *Controller) Disconnect(line int) error {
	if err := c.check(line); err != nil {
		return err
	}

	c.mu.Lock()
	c.sources[line] = NullSource{}
	c.mu.Unlock()

	return nil
}

// Enable sets or clears the enable bits in mask.
func (c *Controller) Enable(mask uint32, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if on {
		c.enable |= mask & c.lineMask()
	} else {
		c.enable &^= mask
	}
}

// Select routes the lines in mask to FIQ (on) or IRQ (off).
func (c *Controller) Select(mask uint32, fiq bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fiq {
		c.selectF |= mask & c.lineMask()
	} else {
		c.selectF &^= mask
	}
}

// SetSoft raises or clears the software-triggered bits in mask.
func (c *Controller) SetSoft(mask uint32, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if on {
		c.soft |= mask & c.lineMask()
	} else {
		c.soft &^= mask
	}
}

func (c *Controller) rawLocked() uint32 {
	raw := c.soft
	for i, s := range c.sources {
		if s.IsAsserted() {
			raw |= 1 << uint(i)
		}
	}
	return raw
}

// RawStatus returns the unmasked line levels ORed with the soft bits.
func (c *Controller) RawStatus() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rawLocked()
}

// Status returns the asserted and enabled lines.
func (c *Controller) Status() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rawLocked() & c.enable
}

// IRQStatus returns the active lines routed to IRQ.
func (c *Controller) IRQStatus() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rawLocked() & c.enable &^ c.selectF
}

// FIQStatus returns the active lines routed to FIQ.
func (c *Controller) FIQStatus() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rawLocked() & c.enable & c.selectF
}

// Highest returns the lowest-numbered active IRQ line, or -1.
func (c *Controller) Highest() int {
	s := c.IRQStatus()
	if s == 0 {
		return -1
	}
	return bits.TrailingZeros32(s)
}

// output is the IRQ or FIQ output of a controller.
type output struct {
	c   *Controller
	fiq bool
}

func (o output) IsAsserted() bool {
	if o.fiq {
		return o.c.FIQStatus() != 0
	}
	return o.c.IRQStatus() != 0
}

func (o output) Describe() string {
	if o.fiq {
		return o.c.name + ".fiq"
	}
	return o.c.name + ".irq"
}

// IRQ returns the controller's IRQ output as a Source.
func (c *Controller) IRQ() Source {
	return output{c: c}
}

// FIQ returns the controller's FIQ output as a Source.
func (c *Controller) FIQ() Source {
	return output{c: c, fiq: true}
}

// upstream returns the controller driving src, if any.
func upstream(src Source) *Controller {
	switch s := src.(type) {
	case *Controller:
		return s
	case output:
		return s.c
	}
	return nil
}

// feedsFrom reports whether src is driven, directly or through a cascade,
// by c. Existing wiring is acyclic, so the walk terminates.
func feedsFrom(src Source, c *Controller) bool {
	up := upstream(src)
	if up == nil {
		return false
	}
	if up == c {
		return true
	}

	up.mu.Lock()
	sources := append([]Source(nil), up.sources...)
	up.mu.Unlock()

	for _, s := range sources {
		if feedsFrom(s, c) {
			return true
		}
	}
	return false
}

// IsAsserted implements Source.
func (c *Controller) IsAsserted() bool {
	return c.Status() != 0
}

// Describe implements Source.
func (c *Controller) Describe() string {
	return c.name
}

// Package board assembles a machine from a JSON configuration and a
// Starlark memory map: it instantiates memories, devices and interrupt
// controllers, maps them on the bus, wires their interrupt lines and
// attaches a core of the configured architecture.
package board

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sysim/arm"
	"github.com/sarchlab/sysim/bus"
	"github.com/sarchlab/sysim/cpu"
	"github.com/sarchlab/sysim/device"
	"github.com/sarchlab/sysim/intc"
	"github.com/sarchlab/sysim/loader"
	"github.com/sarchlab/sysim/riscv"
)

// armBootStub is "ldr pc, [pc, #-4]", which jumps through the word that
// follows it.
const armBootStub = 0xE51FF004

// highVectorBase is the ARM vector base when CP15 c1 V is set.
const highVectorBase = 0xFFFF0000

type options struct {
	logger logrus.FieldLogger
	input  io.Reader
	output io.Writer
	image  *loader.Image
}

// Option configures Build.
type Option func(*options)

// WithLogger sets the logger handed to every component.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithConsole attaches in and out to the first UART of the layout.
func WithConsole(in io.Reader, out io.Writer) Option {
	return func(o *options) {
		o.input = in
		o.output = out
	}
}

// WithImage loads img before the core comes out of reset.
func WithImage(img *loader.Image) Option {
	return func(o *options) {
		o.image = img
	}
}

// Board is an assembled machine.
type Board struct {
	Config  *Config
	Layout  *Layout
	Arch    loader.Arch
	Bus     *bus.Bus
	Machine *cpu.Machine
	Core    cpu.Core
	Runner  *cpu.Runner

	Memories    map[string]*bus.Memory
	Controllers map[string]*intc.Controller
	UARTs       map[string]*device.UART
	Timers      map[string]*device.Timer
	CLINTs      map[string]*device.CLINT

	opts    options
	sources map[string]intc.Source
	root    *intc.Controller
	clint   *device.CLINT
}

// Build creates the machine described by cfg and layout.
func Build(cfg *Config, layout *Layout, opts ...Option) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board config: %w", err)
	}

	o := options{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	archName := cfg.Arch
	if layout.Arch != "" {
		archName = layout.Arch
	}
	arch, err := loader.ParseArch(archName)
	if err != nil {
		return nil, err
	}

	b := &Board{
		Config:      cfg,
		Layout:      layout,
		Arch:        arch,
		Bus:         bus.New(bus.WithLogger(o.logger)),
		Machine:     cpu.NewMachine(),
		Memories:    make(map[string]*bus.Memory),
		Controllers: make(map[string]*intc.Controller),
		UARTs:       make(map[string]*device.UART),
		Timers:      make(map[string]*device.Timer),
		CLINTs:      make(map[string]*device.CLINT),
		opts:        o,
		sources:     make(map[string]intc.Source),
	}

	steps := []func() error{
		b.buildComponents,
		b.wireInterrupts,
		b.loadImage,
		b.attachCore,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (b *Board) deviceOptions() []device.Option {
	return []device.Option{
		device.WithLogger(b.opts.logger),
		device.WithQuantum(b.Config.Quantum()),
		device.WithTicksPerQuantum(b.Config.DeviceTicks),
	}
}

// buildComponents instantiates every region and maps it on the bus.
func (b *Board) buildComponents() error {
	console := true

	for _, r := range b.Layout.Regions {
		var dev bus.Device

		switch r.Kind {
		case KindRAM:
			m := bus.NewRAM(r.Size)
			b.Memories[r.Name] = m
			dev = m
		case KindROM:
			m := bus.NewROM(r.Size, nil)
			b.Memories[r.Name] = m
			dev = m
		case KindINTC:
			if r.Lines <= 0 || r.Lines > intc.MaxLines {
				return fmt.Errorf("%v: %d lines outside [1, %d]", r.Name, r.Lines, intc.MaxLines)
			}
			c := intc.New(r.Name, r.Lines, intc.WithLogger(b.opts.logger))
			b.Controllers[r.Name] = c
			b.sources[r.Name] = c
			dev = c.Registers()
		case KindUART:
			opts := b.deviceOptions()
			if console {
				opts = append(opts, device.WithInput(b.opts.input))
				if b.opts.output != nil {
					opts = append(opts, device.WithOutput(b.opts.output))
				}
				console = false
			}
			u := device.NewUART(r.Name, opts...)
			b.UARTs[r.Name] = u
			b.sources[r.Name] = u
			b.Machine.AddUnit(u)
			dev = u.Registers()
		case KindTimer:
			t := device.NewTimer(r.Name, b.deviceOptions()...)
			b.Timers[r.Name] = t
			b.sources[r.Name] = t
			b.Machine.AddUnit(t)
			dev = t.Registers()
		case KindCLINT:
			if r.Harts <= 0 || r.Harts > device.MaxHarts {
				return fmt.Errorf("%v: %d harts outside [1, %d]", r.Name, r.Harts, device.MaxHarts)
			}
			c := device.NewCLINT(r.Name, r.Harts, b.deviceOptions()...)
			b.CLINTs[r.Name] = c
			b.Machine.AddUnit(c)
			if b.clint == nil {
				b.clint = c
			}
			dev = c
		default:
			return fmt.Errorf("%v: unknown component kind %q", r.Name, r.Kind)
		}

		if err := b.Bus.RegisterNamed(r.Name, dev, r.Base, r.End()); err != nil {
			return fmt.Errorf("mapping %v: %w", r.Name, err)
		}
	}

	return nil
}

// wireInterrupts connects every interrupt output to its controller line
// and picks the controller without a parent as the one driving the core.
func (b *Board) wireInterrupts() error {
	for _, r := range b.Layout.Regions {
		if r.Kind == KindINTC && r.Intc == "" {
			if b.root != nil {
				return fmt.Errorf("%v: %v already drives the core", r.Name, b.root.Describe())
			}
			b.root = b.Controllers[r.Name]
			continue
		}
		if r.Intc == "" || r.Line < 0 {
			continue
		}

		parent, ok := b.Controllers[r.Intc]
		if !ok {
			return fmt.Errorf("%v: no interrupt controller %q", r.Name, r.Intc)
		}
		src, ok := b.sources[r.Name]
		if !ok {
			return fmt.Errorf("%v: %v has no interrupt output", r.Name, r.Kind)
		}
		if err := parent.Connect(r.Line, src); err != nil {
			return fmt.Errorf("wiring %v: %w", r.Name, err)
		}
	}

	return nil
}

func (b *Board) vectorBase() uint64 {
	if b.Config.HighVectors {
		return highVectorBase
	}
	return 0
}

// loadImage writes the image and, on ARM, a boot stub at the reset vector
// when the image does not provide one.
func (b *Board) loadImage() error {
	img := b.opts.image
	if img == nil {
		return nil
	}
	if img.Arch != loader.ArchUnknown && img.Arch != b.Arch {
		return fmt.Errorf("image is %v, board is %v", img.Arch, b.Arch)
	}

	if err := img.WriteTo(b.Bus); err != nil {
		return fmt.Errorf("loading image: %w", err)
	}

	if b.Arch != loader.ArchARM {
		return nil
	}

	vector := b.vectorBase()
	if img.Entry == vector || covers(img, vector) {
		return nil
	}

	stub := make([]byte, 8)
	binary.LittleEndian.PutUint32(stub, armBootStub)
	binary.LittleEndian.PutUint32(stub[4:], uint32(img.Entry))
	if err := b.Bus.WriteBytes(vector, stub); err != nil {
		return fmt.Errorf("installing boot stub: %w", err)
	}
	return nil
}

func covers(img *loader.Image, addr uint64) bool {
	for _, s := range img.Segments {
		if addr >= s.PhysAddr && addr < s.PhysAddr+s.MemSize {
			return true
		}
	}
	return false
}

func (b *Board) attachCore() error {
	var irq, fiq intc.Source = intc.NullSource{}, intc.NullSource{}
	if b.root != nil {
		irq, fiq = b.root.IRQ(), b.root.FIQ()
	}

	switch b.Arch {
	case loader.ArchARM:
		b.Core = arm.NewCore(b.Bus,
			arm.WithLogger(b.opts.logger),
			arm.WithTrace(b.Config.Trace),
			arm.WithHighVectors(b.Config.HighVectors),
			arm.WithTLB(b.Config.TLBSets, b.Config.TLBWays),
			arm.WithIRQ(irq),
			arm.WithFIQ(fiq),
		)
	case loader.ArchRISCV:
		if b.clint != nil && b.Config.HartID >= uint64(b.clint.Harts()) {
			return fmt.Errorf("hart %d is not served by the CLINT (%d harts)", b.Config.HartID, b.clint.Harts())
		}
		b.Core = riscv.NewCore(b.Bus, b.riscvOptions(irq, fiq)...)
	default:
		return fmt.Errorf("no core for architecture %v", b.Arch)
	}

	b.Runner = b.Machine.AddCore(b.Core,
		cpu.WithName("cpu0"),
		cpu.WithLogger(b.opts.logger),
		cpu.WithMaxTicks(b.Config.MaxTicks),
		cpu.WithQuantum(b.Config.Quantum()),
	)
	return nil
}

// riscvOptions routes the root controller's IRQ output to the machine
// external interrupt and its FIQ output to the supervisor one.
func (b *Board) riscvOptions(irq, fiq intc.Source) []riscv.Option {
	resetPC := b.Config.ResetPC
	if b.opts.image != nil {
		resetPC = b.opts.image.Entry
	}

	opts := []riscv.Option{
		riscv.WithLogger(b.opts.logger),
		riscv.WithTrace(b.Config.Trace),
		riscv.WithResetPC(resetPC),
		riscv.WithHartID(b.Config.HartID),
		riscv.WithTLB(b.Config.TLBSets, b.Config.TLBWays),
		riscv.WithExternalInterrupts(irq, fiq),
	}

	if b.clint != nil {
		hart := int(b.Config.HartID)
		opts = append(opts,
			riscv.WithTimerInterrupt(b.clint.Timer(hart)),
			riscv.WithSoftwareInterrupt(b.clint.Software(hart)),
			riscv.WithTime(b.clint.Time),
		)
	}
	return opts
}

// Start launches the core and every device loop.
func (b *Board) Start() {
	b.Machine.Start()
}

// Halt asks the machine to stop.
func (b *Board) Halt() {
	b.Machine.Halt()
}

// Wait blocks until the core stops and returns why it stopped.
func (b *Board) Wait() error {
	return b.Machine.Wait()
}

// Run starts the machine and waits for it.
func (b *Board) Run() error {
	b.Start()
	return b.Wait()
}

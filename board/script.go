package board

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/sarchlab/sysim/device"
)

// Kind names the component a region instantiates.
type Kind string

// Region kinds, one per script builtin.
const (
	KindRAM   Kind = "ram"
	KindROM   Kind = "rom"
	KindUART  Kind = "uart"
	KindTimer Kind = "timer"
	KindCLINT Kind = "clint"
	KindINTC  Kind = "intc"
)

// Register window sizes of the devices.
const (
	uartSize  = 0x1000
	timerSize = 0x1000
	intcSize  = 0x1000
)

// Region is one component placed in the address map.
type Region struct {
	Kind Kind
	Name string
	Base uint64
	Size uint64

	// Intc and Line wire the component's interrupt output. Line is -1 when
	// the output is left unconnected. For a controller they name its
	// parent; a controller without a parent drives the core.
	Intc string
	Line int

	// Lines is the width of a controller.
	Lines int
	// Harts is the number of harts a CLINT serves.
	Harts int
}

// End returns the last address of the region.
func (r Region) End() uint64 {
	return r.Base + r.Size - 1
}

// Layout is the memory map described by a board script.
type Layout struct {
	// Arch, when set by the script, overrides the configured architecture.
	Arch    string
	Regions []Region
}

// Find returns the region called name.
func (l *Layout) Find(name string) (Region, bool) {
	for _, r := range l.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

func (l *Layout) add(r Region) error {
	if _, dup := l.Find(r.Name); dup {
		return fmt.Errorf("duplicate component name %q", r.Name)
	}
	if r.Size == 0 || r.Base+r.Size-1 < r.Base {
		return fmt.Errorf("%v: invalid size %#x at %#x", r.Name, r.Size, r.Base)
	}
	l.Regions = append(l.Regions, r)
	return nil
}

// LoadScript runs the Starlark board script at path.
func LoadScript(path string, opts ...Option) (*Layout, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board script: %w", err)
	}
	return ParseScript(path, src, opts...)
}

// ParseScript runs a Starlark board script. The script describes the board
// by calling the builtins
//
//	arch(name)
//	ram(name, base, size)
//	rom(name, base, size)
//	intc(name, base, lines=32, intc="", line=-1)
//	uart(name, base, intc="", line=-1)
//	timer(name, base, intc="", line=-1)
//	clint(name, base, harts=1)
//
// in any order; print() output goes to the debug log of the WithLogger
// logger.
func ParseScript(filename string, src []byte, opts ...Option) (*Layout, error) {
	o := options{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.WithField("script", filename)

	l := &Layout{}

	thread := &starlark.Thread{
		Name: "board",
		Print: func(_ *starlark.Thread, msg string) {
			log.Debug(msg)
		},
	}
	fileOpts := syntax.FileOptions{TopLevelControl: true, While: true}
	pred := starlark.StringDict{
		"arch":  starlark.NewBuiltin("arch", l.archBuiltin),
		"ram":   starlark.NewBuiltin("ram", l.memoryBuiltin(KindRAM)),
		"rom":   starlark.NewBuiltin("rom", l.memoryBuiltin(KindROM)),
		"intc":  starlark.NewBuiltin("intc", l.intcBuiltin),
		"uart":  starlark.NewBuiltin("uart", l.deviceBuiltin(KindUART, uartSize)),
		"timer": starlark.NewBuiltin("timer", l.deviceBuiltin(KindTimer, timerSize)),
		"clint": starlark.NewBuiltin("clint", l.clintBuiltin),
	}

	if _, err := starlark.ExecFileOptions(&fileOpts, thread, filename, src, pred); err != nil {
		return nil, fmt.Errorf("board script: %w", err)
	}
	return l, nil
}

func toAddr(name string, v starlark.Int) (uint64, error) {
	u, ok := v.Uint64()
	if !ok {
		return 0, fmt.Errorf("%v: %v is not a valid address", name, v)
	}
	return u, nil
}

func (l *Layout) archBuiltin(_ *starlark.Thread, b *starlark.Builtin,
	args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	l.Arch = name
	return starlark.None, nil
}

type builtinFunc func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

func (l *Layout) memoryBuiltin(kind Kind) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin,
		args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			name       string
			base, size starlark.Int
		)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"name", &name, "base", &base, "size", &size); err != nil {
			return nil, err
		}

		r := Region{Kind: kind, Name: name, Line: -1}
		var err error
		if r.Base, err = toAddr(name, base); err != nil {
			return nil, err
		}
		if r.Size, err = toAddr(name, size); err != nil {
			return nil, err
		}
		return starlark.None, l.add(r)
	}
}

func (l *Layout) deviceBuiltin(kind Kind, size uint64) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin,
		args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			name, parent string
			base         starlark.Int
		)
		line := -1
		if err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"name", &name, "base", &base, "intc?", &parent, "line?", &line); err != nil {
			return nil, err
		}

		addr, err := toAddr(name, base)
		if err != nil {
			return nil, err
		}
		return starlark.None, l.add(Region{
			Kind: kind, Name: name, Base: addr, Size: size, Intc: parent, Line: line,
		})
	}
}

func (l *Layout) intcBuiltin(_ *starlark.Thread, b *starlark.Builtin,
	args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name, parent string
		base         starlark.Int
	)
	lines, line := 32, -1
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name, "base", &base, "lines?", &lines, "intc?", &parent, "line?", &line); err != nil {
		return nil, err
	}

	addr, err := toAddr(name, base)
	if err != nil {
		return nil, err
	}
	return starlark.None, l.add(Region{
		Kind: KindINTC, Name: name, Base: addr, Size: intcSize,
		Intc: parent, Line: line, Lines: lines,
	})
}

func (l *Layout) clintBuiltin(_ *starlark.Thread, b *starlark.Builtin,
	args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name string
		base starlark.Int
	)
	harts := 1
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name, "base", &base, "harts?", &harts); err != nil {
		return nil, err
	}

	addr, err := toAddr(name, base)
	if err != nil {
		return nil, err
	}
	return starlark.None, l.add(Region{
		Kind: KindCLINT, Name: name, Base: addr, Size: device.CLINTSize,
		Line: -1, Harts: harts,
	})
}

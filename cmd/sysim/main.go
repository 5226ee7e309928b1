// Package main provides the entry point for sysim, a system emulator for
// ARMv5TE and RV64 boards described by a Starlark script.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sysim/board"
	"github.com/sarchlab/sysim/cpu"
	"github.com/sarchlab/sysim/loader"
)

var (
	boardPath  = flag.String("board", "", "Path to the Starlark board script")
	configPath = flag.String("config", "", "Path to board configuration JSON file")
	imagePath  = flag.String("image", "", "ELF or raw image to load")
	verbose    = flag.Bool("v", false, "Verbose output")
	trace      = flag.Bool("trace", false, "Log every executed instruction")
	maxTicks   = flag.Uint64("max-ticks", 0, "Stop after this many core ticks (0 = no limit)")
	profileDir = flag.String("profile", "", "Write a CPU profile to this directory")
)

func main() {
	flag.Parse()

	if *boardPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: sysim -board <board.star> [options]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	switch {
	case *trace:
		log.SetLevel(logrus.TraceLevel)
	case *verbose:
		log.SetLevel(logrus.DebugLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}

	err := profiled(*profileDir, func() error { return run(log) })
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// profiled runs fn under a CPU profile written to dir, or unprofiled when
// dir is empty. The profile is flushed before returning, whatever fn returns.
func profiled(dir string, fn func() error) error {
	if dir == "" {
		return fn()
	}

	p := profile.Start(profile.CPUProfile, profile.ProfilePath(dir),
		profile.Quiet, profile.NoShutdownHook)
	defer p.Stop()

	return fn()
}

func run(log *logrus.Logger) error {
	cfg := board.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = board.LoadConfig(*configPath)
		if err != nil {
			return err
		}
	}
	if *trace {
		cfg.Trace = true
	}
	if *maxTicks != 0 {
		cfg.MaxTicks = *maxTicks
	}

	layout, err := board.LoadScript(*boardPath, board.WithLogger(log))
	if err != nil {
		return err
	}

	opts := []board.Option{
		board.WithLogger(log),
		board.WithConsole(os.Stdin, os.Stdout),
	}

	if *imagePath != "" {
		archName := cfg.Arch
		if layout.Arch != "" {
			archName = layout.Arch
		}
		arch, err := loader.ParseArch(archName)
		if err != nil {
			return err
		}

		img, err := loader.Load(*imagePath, cfg.ImageBase, arch)
		if err != nil {
			return fmt.Errorf("loading %v: %w", *imagePath, err)
		}
		log.WithFields(logrus.Fields{
			"image":    *imagePath,
			"entry":    fmt.Sprintf("%#x", img.Entry),
			"segments": len(img.Segments),
		}).Info("image loaded")
		opts = append(opts, board.WithImage(img))
	}

	b, err := board.Build(cfg, layout, opts...)
	if err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		b.Halt()
	}()

	err = b.Run()

	if *verbose {
		st := b.Core.Stats()
		fmt.Fprintf(os.Stderr, "\nTicks: %d\n", st.Ticks)
		fmt.Fprintf(os.Stderr, "Instructions executed: %d\n", st.Instructions)
		fmt.Fprintf(os.Stderr, "Exceptions: %d\n", st.Exceptions)
		fmt.Fprintf(os.Stderr, "Interrupts: %d\n", st.Interrupts)
		fmt.Fprintf(os.Stderr, "Idle ticks: %d\n", st.IdleTicks)
	}

	if errors.Is(err, cpu.ErrTickLimit) {
		return nil
	}
	return err
}

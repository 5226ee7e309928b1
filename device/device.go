// Package device provides reference peripherals that exercise the bus and
// interrupt contracts: an SP804-style countdown timer, a PL011-style UART
// and a RISC-V core-local interruptor. Each one is passive on the bus and
// runs its autonomous behaviour as a cpu.Unit loop.
package device

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sysim/translate"
)

var f = translate.From

type config struct {
	logger  logrus.FieldLogger
	quantum time.Duration
	ticks   uint64
	input   io.Reader
	output  io.Writer
}

// Option configures a device.
type Option func(*config)

// WithLogger sets the device's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithQuantum sets how often the device loop wakes up.
func WithQuantum(d time.Duration) Option {
	return func(c *config) {
		c.quantum = d
	}
}

// WithTicksPerQuantum sets how many counter ticks elapse per wake-up.
func WithTicksPerQuantum(n uint64) Option {
	return func(c *config) {
		c.ticks = n
	}
}

// WithInput attaches a byte stream to a character device's receiver.
func WithInput(r io.Reader) Option {
	return func(c *config) {
		c.input = r
	}
}

// WithOutput attaches a byte stream to a character device's transmitter.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

func newConfig(opts []Option) config {
	c := config{
		logger:  logrus.StandardLogger(),
		quantum: time.Millisecond,
		ticks:   1000,
		output:  io.Discard,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// runEvery calls step once per quantum until halt is set.
func runEvery(halt *atomic.Bool, quantum time.Duration, step func()) {
	ticker := time.NewTicker(quantum)
	defer ticker.Stop()

	for !halt.Load() {
		<-ticker.C
		step()
	}
}

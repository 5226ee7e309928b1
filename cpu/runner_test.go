package cpu_test

import (
	"errors"
	"io"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sysim/cpu"
	"github.com/sarchlab/sysim/exc"
)

type countingCore struct {
	ticks   atomic.Uint64
	haltAt  uint64
	halt    *atomic.Bool
	panicAt uint64
	idle    bool
}

func (c *countingCore) Tick() {
	n := c.ticks.Add(1)
	if c.panicAt != 0 && n == c.panicAt {
		panic(&exc.ContractViolation{Msg: "double raise"})
	}
	if c.haltAt != 0 && n == c.haltAt {
		c.halt.Store(true)
	}
}

func (c *countingCore) Reset() { c.ticks.Store(0) }

func (c *countingCore) Stats() cpu.Stats {
	return cpu.Stats{Ticks: c.ticks.Load()}
}

func (c *countingCore) Idle() bool { return c.idle }

type loopUnit struct {
	stopped atomic.Bool
}

func (u *loopUnit) Run(halt *atomic.Bool) {
	for !halt.Load() {
		time.Sleep(100 * time.Microsecond)
	}
	u.stopped.Store(true)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var _ = Describe("Runner", func() {
	var halt *atomic.Bool

	BeforeEach(func() {
		halt = &atomic.Bool{}
	})

	It("should stop at the tick limit", func() {
		core := &countingCore{}
		r := cpu.NewRunner(core, halt, cpu.WithMaxTicks(100), cpu.WithLogger(quietLogger()))

		Expect(r.Run()).To(MatchError(cpu.ErrTickLimit))
		Expect(core.ticks.Load()).To(Equal(uint64(100)))
		Expect(halt.Load()).To(BeTrue())
	})

	It("should stop when the halt flag is set", func() {
		core := &countingCore{haltAt: 7, halt: halt}
		r := cpu.NewRunner(core, halt, cpu.WithLogger(quietLogger()))

		Expect(r.Run()).To(Succeed())
		Expect(core.ticks.Load()).To(Equal(uint64(7)))
	})

	It("should turn a contract violation into an error", func() {
		core := &countingCore{panicAt: 3}
		r := cpu.NewRunner(core, halt, cpu.WithLogger(quietLogger()))

		r.Start()
		err := r.Wait()

		var cv *exc.ContractViolation
		Expect(errors.As(err, &cv)).To(BeTrue())
		Expect(halt.Load()).To(BeTrue())
	})

	It("should keep ticking while idle", func() {
		core := &countingCore{idle: true}
		r := cpu.NewRunner(core, halt,
			cpu.WithMaxTicks(3),
			cpu.WithQuantum(time.Microsecond),
			cpu.WithLogger(quietLogger()))

		Expect(r.Run()).To(MatchError(cpu.ErrTickLimit))
		Expect(core.ticks.Load()).To(Equal(uint64(3)))
	})
})

var _ = Describe("Machine", func() {
	It("should stop device loops once the cores finish", func() {
		m := cpu.NewMachine()
		core := &countingCore{}
		unit := &loopUnit{}

		m.AddCore(core, cpu.WithMaxTicks(1000), cpu.WithLogger(quietLogger()))
		m.AddUnit(unit)
		m.Start()

		err := m.Wait()
		Expect(err).To(MatchError(cpu.ErrTickLimit))
		Expect(unit.stopped.Load()).To(BeTrue())
	})

	It("should stop everything on Halt", func() {
		m := cpu.NewMachine()
		core := &countingCore{}
		unit := &loopUnit{}

		m.AddCore(core, cpu.WithLogger(quietLogger()))
		m.AddUnit(unit)
		m.Start()

		Eventually(func() uint64 { return core.ticks.Load() }).Should(BeNumerically(">", 10))
		m.Halt()

		Expect(m.Wait()).To(Succeed())
		Expect(unit.stopped.Load()).To(BeTrue())
	})
})

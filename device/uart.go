package device

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sarchlab/sysim/bus"
)

// UART register offsets.
const (
	UARTData      = 0x00
	UARTFlag      = 0x18
	UARTControl   = 0x30
	UARTIntMask   = 0x38
	UARTRawInt    = 0x3C
	UARTMaskedInt = 0x40
	UARTIntClear  = 0x44
)

// FR bits.
const (
	FlagRXFE uint32 = 1 << 4
	FlagTXFF uint32 = 1 << 5
	FlagRXFF uint32 = 1 << 6
	FlagTXFE uint32 = 1 << 7
)

// Interrupt bits shared by IMSC, RIS, MIS and ICR.
const (
	IntRX uint32 = 1 << 4
	IntTX uint32 = 1 << 5

	uartInts = IntRX | IntTX
)

// FIFODepth is the receive FIFO size.
const FIFODepth = 16

// UART is a PL011-style character device. Transmission completes
// immediately into the output stream; received bytes come from Input or
// from the input stream pumped by Run.
//
// The receive interrupt is level-triggered on a non-empty FIFO. The
// transmit interrupt latches on every write to DR until cleared through
// ICR.
type UART struct {
	name string
	cfg  config
	regs *bus.RegisterTable

	out   sync.Mutex
	mu    sync.Mutex
	rx    []byte
	txRaw bool
	mask  uint32
}

// NewUART creates a UART with an empty receive FIFO.
func NewUART(name string, opts ...Option) *UART {
	u := &UART{name: name, cfg: newConfig(opts)}

	u.regs = bus.NewRegisterTable(name, u.cfg.logger,
		bus.Register{Name: "DR", Offset: UARTData, Volatile: true,
			OnRead: u.receive, OnWrite: u.transmit},
		bus.Register{Name: "FR", Offset: UARTFlag, Access: bus.ReadOnly,
			OnRead: u.flags},
		bus.Register{Name: "CR", Offset: UARTControl, Reset: 0x300},
		bus.Register{Name: "IMSC", Offset: UARTIntMask,
			OnRead: func() uint32 {
				u.mu.Lock()
				defer u.mu.Unlock()
				return u.mask
			},
			OnWrite: func(v uint32) {
				u.mu.Lock()
				u.mask = v & uartInts
				u.mu.Unlock()
			}},
		bus.Register{Name: "RIS", Offset: UARTRawInt, Access: bus.ReadOnly,
			OnRead: u.RawStatus},
		bus.Register{Name: "MIS", Offset: UARTMaskedInt, Access: bus.ReadOnly,
			OnRead: u.Status},
		bus.Register{Name: "ICR", Offset: UARTIntClear, Access: bus.WriteOnly,
			OnWrite: func(v uint32) {
				u.mu.Lock()
				if v&IntTX != 0 {
					u.txRaw = false
				}
				u.mu.Unlock()
			}},
	)

	return u
}

// Registers returns the UART's memory-mapped interface.
func (u *UART) Registers() *bus.RegisterTable {
	return u.regs
}

func (u *UART) receive() uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(u.rx) == 0 {
		return 0
	}
	b := u.rx[0]
	u.rx = u.rx[1:]
	return uint32(b)
}

// transmit writes outside mu so a slow output never stalls a core that is
// polling FR or RIS.
func (u *UART) transmit(v uint32) {
	u.out.Lock()
	_, err := u.cfg.output.Write([]byte{byte(v)})
	u.out.Unlock()
	if err != nil {
		u.cfg.logger.WithError(err).WithField("device", u.name).Warn("uart output failed")
	}

	u.mu.Lock()
	u.txRaw = true
	u.mu.Unlock()
}

func (u *UART) flags() uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()

	fr := FlagTXFE
	switch len(u.rx) {
	case 0:
		fr |= FlagRXFE
	case FIFODepth:
		fr |= FlagRXFF
	}
	return fr
}

func (u *UART) rawLocked() uint32 {
	var ris uint32
	if len(u.rx) > 0 {
		ris |= IntRX
	}
	if u.txRaw {
		ris |= IntTX
	}
	return ris
}

// RawStatus returns the unmasked interrupt status.
func (u *UART) RawStatus() uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rawLocked()
}

// Status returns the masked interrupt status.
func (u *UART) Status() uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rawLocked() & u.mask
}

// IsAsserted implements intc.Source.
func (u *UART) IsAsserted() bool {
	return u.Status() != 0
}

// Describe implements intc.Source.
func (u *UART) Describe() string {
	return u.name
}

// Input queues b in the receive FIFO. It reports false when the FIFO is
// full.
func (u *UART) Input(b byte) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(u.rx) >= FIFODepth {
		return false
	}
	u.rx = append(u.rx, b)
	return true
}

// Run pumps the input stream into the receive FIFO until halt is set. A
// byte that does not fit is held back until the FIFO drains.
func (u *UART) Run(halt *atomic.Bool) {
	ticker := time.NewTicker(u.cfg.quantum)
	defer ticker.Stop()

	done := make(chan struct{})
	defer close(done)

	var bytes chan byte
	if u.cfg.input != nil {
		bytes = make(chan byte)
		go u.pump(bytes, done)
	}

	var (
		pending byte
		held    bool
	)
	for !halt.Load() {
		if held && u.Input(pending) {
			held = false
		}

		src := bytes
		if held {
			src = nil
		}

		select {
		case b, ok := <-src:
			if !ok {
				bytes = nil
				continue
			}
			if !u.Input(b) {
				pending, held = b, true
			}
		case <-ticker.C:
		}
	}
}

// pump copies the input stream onto bytes. It stops on end of input or
// once done is closed; a Read that never returns keeps it parked.
func (u *UART) pump(bytes chan<- byte, done <-chan struct{}) {
	defer close(bytes)

	buf := make([]byte, 64)
	for {
		n, err := u.cfg.input.Read(buf)
		for _, b := range buf[:n] {
			select {
			case bytes <- b:
			case <-done:
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				u.cfg.logger.WithError(err).WithField("device", u.name).Warn("uart input failed")
			}
			return
		}
	}
}

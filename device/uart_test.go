package device_test

import (
	"bytes"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sysim/bus"
	"github.com/sarchlab/sysim/device"
)

var _ = Describe("UART", func() {
	var (
		out  *bytes.Buffer
		u    *device.UART
		regs *bus.RegisterTable
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		u = device.NewUART("uart0", device.WithOutput(out))
		regs = u.Registers()
	})

	It("should write transmitted bytes to the output", func() {
		for _, c := range []byte("ok\n") {
			regs.Write32(device.UARTData, uint32(c))
		}

		Expect(out.String()).To(Equal("ok\n"))
		Expect(regs.Read32(device.UARTFlag) & device.FlagTXFE).NotTo(BeZero())
	})

	It("should latch the transmit interrupt until cleared", func() {
		regs.Write32(device.UARTIntMask, device.IntTX)
		Expect(u.IsAsserted()).To(BeFalse())

		regs.Write32(device.UARTData, 'x')
		Expect(regs.Read32(device.UARTMaskedInt)).To(Equal(device.IntTX))
		Expect(u.IsAsserted()).To(BeTrue())

		regs.Write32(device.UARTIntClear, device.IntTX)
		Expect(u.IsAsserted()).To(BeFalse())
	})

	It("should assert the receive interrupt while data is queued", func() {
		regs.Write32(device.UARTIntMask, device.IntRX)
		Expect(regs.Read32(device.UARTFlag) & device.FlagRXFE).NotTo(BeZero())

		Expect(u.Input('a')).To(BeTrue())
		Expect(u.IsAsserted()).To(BeTrue())
		Expect(regs.Read32(device.UARTFlag) & device.FlagRXFE).To(BeZero())

		regs.Write32(device.UARTIntClear, device.IntRX)
		Expect(u.IsAsserted()).To(BeTrue())

		Expect(regs.Read32(device.UARTData)).To(Equal(uint32('a')))
		Expect(u.IsAsserted()).To(BeFalse())
		Expect(regs.Read32(device.UARTData)).To(BeZero())
	})

	It("should refuse input when the FIFO is full", func() {
		for i := 0; i < device.FIFODepth; i++ {
			Expect(u.Input(byte(i))).To(BeTrue())
		}

		Expect(u.Input(0xFF)).To(BeFalse())
		Expect(regs.Read32(device.UARTFlag) & device.FlagRXFF).NotTo(BeZero())
	})

	It("should pump the input stream and hold back overflow", func() {
		input := strings.Repeat("x", device.FIFODepth) + "tail"
		u = device.NewUART("uart1",
			device.WithInput(strings.NewReader(input)),
			device.WithQuantum(100*time.Microsecond))
		regs = u.Registers()

		var halt atomic.Bool
		done := make(chan struct{})
		go func() {
			defer close(done)
			u.Run(&halt)
		}()

		flags := func() uint32 { return regs.Read32(device.UARTFlag) }
		Eventually(flags).Should(Equal(device.FlagTXFE | device.FlagRXFF))

		for i := 0; i < device.FIFODepth; i++ {
			Expect(regs.Read32(device.UARTData)).To(Equal(uint32('x')))
		}

		var got []byte
		Eventually(func() string {
			if flags()&device.FlagRXFE == 0 {
				got = append(got, byte(regs.Read32(device.UARTData)))
			}
			return string(got)
		}).Should(Equal("tail"))

		halt.Store(true)
		Eventually(done).Should(BeClosed())
	})
})

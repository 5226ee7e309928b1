package intc

import "github.com/sarchlab/sysim/bus"

// Register offsets of the memory-mapped interface.
const (
	RegIRQStatus    = 0x00
	RegFIQStatus    = 0x04
	RegRawIntr      = 0x08
	RegIntSelect    = 0x0C
	RegIntEnable    = 0x10
	RegIntEnClear   = 0x14
	RegSoftInt      = 0x18
	RegSoftIntClear = 0x1C
	RegIRQNumber    = 0x20
)

func (c *Controller) registerTable() *bus.RegisterTable {
	return bus.NewRegisterTable(c.name, c.logger,
		bus.Register{Name: "IRQSTATUS", Offset: RegIRQStatus, Access: bus.ReadOnly,
			OnRead: c.IRQStatus},
		bus.Register{Name: "FIQSTATUS", Offset: RegFIQStatus, Access: bus.ReadOnly,
			OnRead: c.FIQStatus},
		bus.Register{Name: "RAWINTR", Offset: RegRawIntr, Access: bus.ReadOnly,
			OnRead: c.RawStatus},
		bus.Register{Name: "INTSELECT", Offset: RegIntSelect,
			OnRead: func() uint32 {
				c.mu.Lock()
				defer c.mu.Unlock()
				return c.selectF
			},
			OnWrite: func(v uint32) {
				c.mu.Lock()
				c.selectF = v & c.lineMask()
				c.mu.Unlock()
			}},
		bus.Register{Name: "INTENABLE", Offset: RegIntEnable,
			OnRead: func() uint32 {
				c.mu.Lock()
				defer c.mu.Unlock()
				return c.enable
			},
			OnWrite: func(v uint32) { c.Enable(v, true) }},
		bus.Register{Name: "INTENCLEAR", Offset: RegIntEnClear, Access: bus.WriteOnly,
			OnWrite: func(v uint32) { c.Enable(v, false) }},
		bus.Register{Name: "SOFTINT", Offset: RegSoftInt,
			OnRead: func() uint32 {
				c.mu.Lock()
				defer c.mu.Unlock()
				return c.soft
			},
			OnWrite: func(v uint32) { c.SetSoft(v, true) }},
		bus.Register{Name: "SOFTINTCLEAR", Offset: RegSoftIntClear, Access: bus.WriteOnly,
			OnWrite: func(v uint32) { c.SetSoft(v, false) }},
		bus.Register{Name: "IRQNUMBER", Offset: RegIRQNumber, Access: bus.ReadOnly,
			OnRead: func() uint32 { return uint32(int32(c.Highest())) }},
	)
}

// Registers returns the controller's memory-mapped register interface.
func (c *Controller) Registers() *bus.RegisterTable {
	return c.regs
}

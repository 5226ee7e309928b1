package exc

// Unit holds at most one pending exception record.
//
// The state machine is NoneRaised -> OneKindRaised -> (serviced) ->
// NoneRaised. Raising while a record is pending means a single instruction
// produced two exceptions, which is a ContractViolation.
type Unit struct {
	pending bool
	record  Record
}

// Raise makes r the pending exception. It panics with *ContractViolation if
// another exception is already pending.
func (u *Unit) Raise(r Record) {
	if u.pending {
		panic(&ContractViolation{
			Msg: f("%v raised while %v is pending", r.Kind, u.record.Kind),
		})
	}
	u.pending = true
	u.record = r
}

// Pending reports whether an exception is waiting to be serviced.
func (u *Unit) Pending() bool {
	return u.pending
}

// Peek returns the pending record without servicing it.
func (u *Unit) Peek() (Record, bool) {
	return u.record, u.pending
}

// Take removes and returns the pending record.
func (u *Unit) Take() (Record, bool) {
	if !u.pending {
		return Record{}, false
	}
	u.pending = false
	return u.record, true
}

// Clear drops any pending record.
func (u *Unit) Clear() {
	u.pending = false
	u.record = Record{}
}

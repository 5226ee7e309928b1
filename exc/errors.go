package exc

import "errors"

// ContractViolation reports a wiring or programming mistake: overlapping bus
// regions, bad interrupt lines, or two exceptions from one instruction. It is
// raised with panic and is never routed to guest software.
type ContractViolation struct {
	Msg string
	Err error
}

func (cv *ContractViolation) Error() string {
	if cv.Err != nil {
		return f("contract violation: %v: %v", cv.Msg, cv.Err)
	}
	return f("contract violation: %v", cv.Msg)
}

func (cv *ContractViolation) Unwrap() error {
	return cv.Err
}

// ArchitecturalFault is a recoverable fault produced by guest execution. The
// core converts it into an exception Record for the guest to observe.
type ArchitecturalFault struct {
	Record
	Access Access
	Err    error
}

func (af *ArchitecturalFault) Error() string {
	if af.Err != nil {
		return f("%v on %v at %#x: %v", af.Kind, af.Access, af.Addr, af.Err)
	}
	return f("%v on %v at %#x", af.Kind, af.Access, af.Addr)
}

func (af *ArchitecturalFault) Unwrap() error {
	return af.Err
}

// AsContractViolation recovers a *ContractViolation from a panic value.
// Any other value is re-panicked.
func AsContractViolation(v any) error {
	if v == nil {
		return nil
	}
	if err, ok := v.(error); ok {
		var cv *ContractViolation
		if errors.As(err, &cv) {
			return cv
		}
	}
	panic(v)
}

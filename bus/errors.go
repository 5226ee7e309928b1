package bus

import (
	"errors"

	"github.com/sarchlab/sysim/translate"
)

var f = translate.From

var (
	// ErrInvalidRange is returned when a region's start lies above its end.
	ErrInvalidRange = errors.New(f("region start above end"))
	// ErrInvalidSize is returned for access sizes other than 1, 2, 4 or 8.
	ErrInvalidSize = errors.New(f("invalid access size"))
)

// OverlapError reports an attempt to register a region that intersects an
// existing one.
type OverlapError struct {
	Name     string
	Start    uint64
	End      uint64
	Existing string
}

func (e *OverlapError) Error() string {
	return f("region %q [%#x, %#x] overlaps %q", e.Name, e.Start, e.End, e.Existing)
}

// UnmappedAddressError reports an access that no single region covers.
type UnmappedAddressError struct {
	Addr uint64
	Size int
}

func (e *UnmappedAddressError) Error() string {
	return f("no region maps %d byte(s) at %#x", e.Size, e.Addr)
}

// AccessError reports a device that refused an access inside its region.
type AccessError struct {
	Region string
	Addr   uint64
	Size   int
	Write  bool
}

func (e *AccessError) Error() string {
	op := "read"
	if e.Write {
		op = "write"
	}
	return f("%v refused %d byte %v at %#x", e.Region, e.Size, op, e.Addr)
}

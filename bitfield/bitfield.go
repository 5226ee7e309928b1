// Package bitfield extracts and sign-extends fields of fixed-width words.
//
// The helpers are generic over the unsigned word width so that the same
// field accessors serve 16-bit Thumb, 32-bit ARM/RISC-V instruction words and
// 64-bit register values.
package bitfield

import "golang.org/x/exp/constraints"

// Mask returns a value with the low width bits set.
func Mask[T constraints.Unsigned](width uint) T {
	return T(1)<<width - 1
}

// Extract returns bits [hi:lo] of v, shifted down to bit 0.
func Extract[T constraints.Unsigned](v T, hi, lo uint) T {
	return (v >> lo) & Mask[T](hi-lo+1)
}

// Bit reports whether bit n of v is set.
func Bit[T constraints.Unsigned](v T, n uint) bool {
	return (v>>n)&1 == 1
}

// SignExtend sign-extends the low width bits of v to the full width of T.
func SignExtend[T constraints.Unsigned](v T, width uint) T {
	v &= Mask[T](width)
	m := T(1) << (width - 1)
	return (v ^ m) - m
}

// SignExtend64 sign-extends the low width bits of v and returns it as int64.
func SignExtend64(v uint64, width uint) int64 {
	return int64(SignExtend(v, width))
}

// Package alu implements width-generic integer arithmetic with the
// carry, borrow and signed-overflow results that condition flags need.
package alu

import "golang.org/x/exp/constraints"

func signBit[T constraints.Unsigned]() T {
	return ^(^T(0) >> 1)
}

// Negative reports whether the top bit of v is set.
func Negative[T constraints.Unsigned](v T) bool {
	return v&signBit[T]() != 0
}

// Add returns a + b + carryIn truncated to the width of T.
//
// carry is set iff the widened unsigned sum exceeds the range of T. overflow
// is set iff a and b share a sign and the result's sign differs from it.
func Add[T constraints.Unsigned](a, b T, carryIn bool) (result T, carry, overflow bool) {
	if carryIn {
		result = a + b + 1
		carry = result <= a
	} else {
		result = a + b
		carry = result < a
	}
	overflow = Negative(a) == Negative(b) && Negative(result) != Negative(a)
	return
}

// Sub returns a - b - borrowIn truncated to the width of T.
//
// borrow is set iff the widened unsigned minuend is less than the subtrahend
// (plus borrowIn). overflow is set iff a and b differ in sign and the result's
// sign differs from the minuend's.
func Sub[T constraints.Unsigned](a, b T, borrowIn bool) (result T, borrow, overflow bool) {
	if borrowIn {
		result = a - b - 1
		borrow = a <= b
	} else {
		result = a - b
		borrow = a < b
	}
	overflow = Negative(a) != Negative(b) && Negative(result) != Negative(a)
	return
}

// Carry reports the carry out of a + b.
func Carry[T constraints.Unsigned](a, b T) bool {
	_, c, _ := Add(a, b, false)
	return c
}

// Borrow reports the borrow out of a - b.
func Borrow[T constraints.Unsigned](a, b T) bool {
	_, br, _ := Sub(a, b, false)
	return br
}

// AddOverflow reports signed overflow of a + b.
func AddOverflow[T constraints.Unsigned](a, b T) bool {
	_, _, v := Add(a, b, false)
	return v
}

// SubOverflow reports signed overflow of a - b.
func SubOverflow[T constraints.Unsigned](a, b T) bool {
	_, _, v := Sub(a, b, false)
	return v
}

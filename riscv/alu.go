package riscv

import (
	"math"
	"math/bits"
)

func add(a, b uint64) uint64 { return a + b }
func sub(a, b uint64) uint64 { return a - b }
func xor(a, b uint64) uint64 { return a ^ b }
func or(a, b uint64) uint64  { return a | b }
func and(a, b uint64) uint64 { return a & b }
func sll(a, b uint64) uint64 { return a << (b & 63) }
func srl(a, b uint64) uint64 { return a >> (b & 63) }
func sra(a, b uint64) uint64 { return uint64(int64(a) >> (b & 63)) }

func slt(a, b uint64) uint64 {
	if int64(a) < int64(b) {
		return 1
	}
	return 0
}

func sltu(a, b uint64) uint64 {
	if a < b {
		return 1
	}
	return 0
}

func addw(a, b uint64) uint64 { return sext32(uint32(a) + uint32(b)) }
func subw(a, b uint64) uint64 { return sext32(uint32(a) - uint32(b)) }
func sllw(a, b uint64) uint64 { return sext32(uint32(a) << (b & 31)) }
func srlw(a, b uint64) uint64 { return sext32(uint32(a) >> (b & 31)) }
func sraw(a, b uint64) uint64 { return sext32(uint32(int32(a) >> (b & 31))) }

func mul(a, b uint64) uint64 { return a * b }

func mulhu(a, b uint64) uint64 {
	hi, _ := bits.Mul64(a, b)
	return hi
}

// mulh corrects the unsigned high product for negative operands.
func mulh(a, b uint64) uint64 {
	hi, _ := bits.Mul64(a, b)
	if int64(a) < 0 {
		hi -= b
	}
	if int64(b) < 0 {
		hi -= a
	}
	return hi
}

func mulhsu(a, b uint64) uint64 {
	hi, _ := bits.Mul64(a, b)
	if int64(a) < 0 {
		hi -= b
	}
	return hi
}

// Division by zero and signed overflow do not trap: the quotient is all
// ones or the dividend, and the remainder is the dividend or zero.
func div(a, b uint64) uint64 {
	x, y := int64(a), int64(b)
	switch {
	case y == 0:
		return math.MaxUint64
	case x == math.MinInt64 && y == -1:
		return a
	}
	return uint64(x / y)
}

func divu(a, b uint64) uint64 {
	if b == 0 {
		return math.MaxUint64
	}
	return a / b
}

func rem(a, b uint64) uint64 {
	x, y := int64(a), int64(b)
	switch {
	case y == 0:
		return a
	case x == math.MinInt64 && y == -1:
		return 0
	}
	return uint64(x % y)
}

func remu(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return a % b
}

func mulw(a, b uint64) uint64 { return sext32(uint32(a) * uint32(b)) }

func divw(a, b uint64) uint64 {
	x, y := int32(a), int32(b)
	switch {
	case y == 0:
		return math.MaxUint64
	case x == math.MinInt32 && y == -1:
		return sext32(uint32(x))
	}
	return sext32(uint32(x / y))
}

func divuw(a, b uint64) uint64 {
	x, y := uint32(a), uint32(b)
	if y == 0 {
		return math.MaxUint64
	}
	return sext32(x / y)
}

func remw(a, b uint64) uint64 {
	x, y := int32(a), int32(b)
	switch {
	case y == 0:
		return sext32(uint32(x))
	case x == math.MinInt32 && y == -1:
		return 0
	}
	return sext32(uint32(x % y))
}

func remuw(a, b uint64) uint64 {
	x, y := uint32(a), uint32(b)
	if y == 0 {
		return sext32(x)
	}
	return sext32(x % y)
}

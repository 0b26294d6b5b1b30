package pi

// Modular arithmetic primitives used by the digit extractor.

import (
	"math/bits"
)

// Returns (a*b) mod m, taking the product through a 128-bit intermediate so
// the reduction is exact even when a*b overflows 64 bits. Preconditions:
// m > 0, a and b are non-negative, and at least one of a, b is less than m.
func mulMod(a, b, m int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	_, r := bits.Div64(hi, lo, uint64(m))
	return int64(r)
}

// Returns the inverse of x mod y, computed with the iterative extended
// Euclidean algorithm and normalized into [0, y). x and y must be coprime;
// the result is meaningless otherwise.
func invMod(x, y int64) int64 {
	var u, v, c, a int64 = x, y, 1, 0
	for {
		q := v / u
		t := c
		c = a - q*c
		a = t
		t = u
		u = v - q*u
		v = t
		if u == 0 {
			break
		}
	}
	a = a % y
	if a < 0 {
		a = y + a
	}
	return a
}

// Returns (a^b) mod m via binary exponentiation. b must be non-negative.
func powMod(a, b, m int64) int64 {
	var r int64 = 1
	a %= m
	for {
		if b&1 > 0 {
			r = mulMod(r, a, m)
		}
		b >>= 1
		if b == 0 {
			break
		}
		a = mulMod(a, a, m)
	}
	return r
}

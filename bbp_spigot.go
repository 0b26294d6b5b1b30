package pi

// Implements a Bailey-Borwein-Plouffe style digit extraction based on source
// code published by Fabrice Bellard at https://bellard.org/pi/pi.c

import (
	"fmt"
	"math"
)

// Returns the nine-digit block of the decimal expansion of pi starting at the
// one-based fractional position n, as an integer in [0, 1e9). The result
// depends only on n, so blocks can be calculated in any order, or
// concurrently, and reassembled by position.
//
// The per-prime contributions are accumulated in a float64, exactly as in
// Bellard's published program. The rounding behavior of that accumulation is
// part of the output contract for very large n and must not be replaced with
// higher precision arithmetic.
func DigitBlock(n uint64) uint32 {
	l := logger.V(1).WithValues("n", n)
	l.Info("DigitBlock: enter")
	N := int64(float64(n+20) * math.Log(10) / math.Log(2))
	var sum float64
	var t int64
	for a := int64(3); a <= 2*N; a = int64(nextPrime(uint64(a))) {
		vmax := int64(math.Log(float64(2*N)) / math.Log(float64(a)))
		av := int64(1)
		for i := int64(0); i < vmax; i++ {
			av = av * a
		}
		var s, num, den, v, kq, kq2 int64 = 0, 1, 1, 0, 1, 1

		for k := int64(1); k <= N; k++ {
			t = k
			if kq >= a {
				for {
					t = t / a
					v--
					if t%a != 0 {
						break
					}
				}
				kq = 0
			}
			kq++
			num = mulMod(num, t, av)

			t = 2*k - 1
			if kq2 >= a {
				if kq2 == a {
					for {
						t = t / a
						v++
						if t%a != 0 {
							break
						}
					}
				}
				kq2 -= a
			}
			den = mulMod(den, t, av)
			kq2 += 2

			if v > 0 {
				t = invMod(den, av)
				t = mulMod(t, num, av)
				t = mulMod(t, k, av)
				for i := v; i < vmax; i++ {
					t = mulMod(t, a, av)
				}
				s += t
				if s >= av {
					s -= av
				}
			}
		}

		t = powMod(10, int64(n-1), av)
		s = mulMod(s, t, av)
		sum = math.Mod(sum+float64(s)/float64(av), 1.0)
	}
	block := uint32(sum * 1e9)
	l.Info("DigitBlock: exit", "block", block)
	return block
}

// Returns a 9 character string containing the decimal digits of pi starting
// at the specified zero-based fractional index. E.g. BBPDigits(0) returns
// "141592653", BBPDigits(1) returns "415926535", etc.
func BBPDigits(index uint64) string {
	return fmt.Sprintf("%09d", DigitBlock(index+1))
}

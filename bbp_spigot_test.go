package pi

import (
	"fmt"
	"testing"
)

const (
	// First 99 fractional digits of pi.
	PI_DIGITS = "141592653589793238462643383279502884197169399375105820974944592307816406286208998628034825342117067"
)

// Verify nine-digit blocks at each block-aligned position covered by the
// reference digits.
func TestDigitBlock(t *testing.T) {
	t.Parallel()
	for n := uint64(1); n+8 <= uint64(len(PI_DIGITS)); n += 9 {
		expected := PI_DIGITS[n-1 : n+8]
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			t.Parallel()
			if actual := fmt.Sprintf("%09d", DigitBlock(n)); actual != expected {
				t.Errorf("Checking position: %d: expected %s got %s", n, expected, actual)
			}
		})
	}
}

// Blocks can start at any index, not just multiples of nine.
func TestBBPDigits_UnalignedOffsets(t *testing.T) {
	t.Parallel()
	for _, index := range []uint64{0, 1, 4, 8, 9, 17, 42, 88, 90} {
		expected := PI_DIGITS[index : index+9]
		if actual := BBPDigits(index); actual != expected {
			t.Errorf("Checking index: %d: expected %s got %s", index, expected, actual)
		}
	}
}

// A block depends only on its position; recalculating must give an identical
// result.
func TestDigitBlock_Repeatable(t *testing.T) {
	t.Parallel()
	for _, n := range []uint64{1, 10, 50, 91} {
		first := DigitBlock(n)
		if second := DigitBlock(n); second != first {
			t.Errorf("Checking position: %d: first call %d second call %d", n, first, second)
		}
	}
}

// The extractor must produce the same digits regardless of the next prime
// implementation in use.
func TestBBPDigits_WithBigNextPrime(t *testing.T) {
	SetNextPrimeFunction(BigNextPrime)
	defer SetNextPrimeFunction(BruteNextPrime)
	for _, index := range []uint64{0, 9, 45, 90} {
		expected := PI_DIGITS[index : index+9]
		if actual := BBPDigits(index); actual != expected {
			t.Errorf("Checking index: %d: expected %s got %s", index, expected, actual)
		}
	}
}

// Benchmark digit block extraction at increasing positions.
func BenchmarkDigitBlock(b *testing.B) {
	for _, n := range []uint64{1, 1000, 100000} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = DigitBlock(n)
			}
		})
	}
}

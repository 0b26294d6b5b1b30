package pi

import (
	"fmt"
	"math"
	"sort"
	"testing"
)

const (
	// Spot check the next-prime functions against every starting point below
	// this limit.
	primeVerifyLimit = 250
	// Benchmark the next-prime functions with starting points up to 10^this.
	benchmarkPrimeExponentLimit = 6
)

// Every prime in [2, 311]; the largest entry must exceed primeVerifyLimit so
// that sort.Search always lands on a table entry.
var verificationPrimes = []uint64{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67,
	71, 73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127, 131, 137, 139, 149,
	151, 157, 163, 167, 173, 179, 181, 191, 193, 197, 199, 211, 223, 227, 229,
	233, 239, 241, 251, 257, 263, 269, 271, 277, 281, 283, 293, 307, 311,
}

func nextVerificationPrime(n uint64) uint64 {
	return verificationPrimes[sort.Search(len(verificationPrimes), func(idx int) bool { return verificationPrimes[idx] > n })]
}

// Verify that the brute force solver gives the correct next greater prime
// number for the set of integers [0, primeVerifyLimit).
func TestBruteNextPrime(t *testing.T) {
	t.Parallel()
	for i := uint64(0); i < primeVerifyLimit; i++ {
		expected := nextVerificationPrime(i)
		t.Run(fmt.Sprintf("start=%d", i), func(t *testing.T) {
			t.Parallel()
			if actual := BruteNextPrime(i); actual != expected {
				t.Errorf("Checking start: %d: expected %d got %d", i, expected, actual)
			}
		})
	}
}

// Verify that the probabilistic solver gives the correct next greater prime
// number for the set of integers [0, primeVerifyLimit).
func TestBigNextPrime(t *testing.T) {
	t.Parallel()
	for i := uint64(0); i < primeVerifyLimit; i++ {
		expected := nextVerificationPrime(i)
		t.Run(fmt.Sprintf("start=%d", i), func(t *testing.T) {
			t.Parallel()
			if actual := BigNextPrime(i); actual != expected {
				t.Errorf("Checking start: %d: expected %d got %d", i, expected, actual)
			}
		})
	}
}

// Benchmark the brute force prime solver with starting points as a power of
// 10.
func BenchmarkBruteNextPrime(b *testing.B) {
	for exp := 0; exp < benchmarkPrimeExponentLimit; exp++ {
		start := uint64(math.Pow10(exp))
		b.Run(fmt.Sprintf("start=%d", start), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = BruteNextPrime(start)
			}
		})
	}
}

// Benchmark the probabilistic prime solver with starting points as a power of
// 10.
func BenchmarkBigNextPrime(b *testing.B) {
	for exp := 0; exp < benchmarkPrimeExponentLimit; exp++ {
		start := uint64(math.Pow10(exp))
		b.Run(fmt.Sprintf("start=%d", start), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = BigNextPrime(start)
			}
		})
	}
}

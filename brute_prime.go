package pi

import (
	"math"
)

// Returns true when n has a divisor other than one and itself, determined by
// trial division of the odd integers in [3, sqrt(n)]. Only meaningful for odd
// candidates of three or more, which is the only way the prime walk calls it.
func isComposite(n uint64) bool {
	if n%2 == 0 {
		return true
	}
	r := uint64(math.Sqrt(float64(n)))
	for i := uint64(3); i <= r; i += 2 {
		if n%i == 0 {
			return true
		}
	}
	return false
}

// Determine the next prime number greater than n by testing the odd integers
// that follow it with brute-force trial division.
func BruteNextPrime(n uint64) uint64 {
	if n < 2 {
		return 2
	}
	next := n + 2
	if n%2 == 0 {
		next = n + 1
	}
	for ; isComposite(next); next += 2 {
	}
	return next
}

package pi

import (
	"math/big"
)

// The number of Miller-Rabin rounds to use when determining if a candidate is
// probably a prime. A value of zero applies a Baillie-PSW only test.
const millerRabinRounds = 0

var two = big.NewInt(2)

// Determine the next prime number greater than n by testing the odd integers
// that follow it with a probabilistic primality test. Considerably faster
// than BruteNextPrime once the candidates get large.
func BigNextPrime(n uint64) uint64 {
	l := logger.V(1).WithValues("n", n)
	l.Info("BigNextPrime: enter")
	if n < 2 {
		return 2
	}
	offset := uint64(2)
	if n%2 == 0 {
		offset = 1
	}
	next := new(big.Int).SetUint64(n + offset)
	for ; !next.ProbablyPrime(millerRabinRounds); next = next.Add(next, two) {
	}
	result := next.Uint64()
	l.Info("BigNextPrime: exit", "result", result)
	return result
}

// Package pi calculates fractional decimal digits of pi through a
// digit-extraction algorithm that needs very little memory, based on source
// published by Fabrice Bellard at https://bellard.org/pi/pi.c
package pi

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-logr/logr"
	cachepkg "github.com/ninedigits/pi/pkg/cache"
)

// Defines the signature of a function that will return the next largest prime
// number that is greater than the supplied value.
type NextPrimeFunc func(uint64) uint64

var (
	// Logger to use in this package; default is a no-op logger.
	logger = logr.Discard()
	// Cache implementation to use; default is a no-op cache.
	cache cachepkg.Cache = cachepkg.NewNoopCache()
	// The next prime function used by the digit extractor; default is the
	// brute-force trial division calculator.
	nextPrime NextPrimeFunc = BruteNextPrime
)

// Change the logger instance used by this package.
func SetLogger(l logr.Logger) {
	logger = l
}

// Change the Cache implementation used by FractionalDigit.
func SetCache(c cachepkg.Cache) {
	if c != nil {
		cache = c
	}
}

// Change the next prime calculation function used by this package.
func SetNextPrimeFunction(f NextPrimeFunc) {
	if f != nil {
		nextPrime = f
	}
}

// Returns the single fractional decimal digit of pi at the zero-based index,
// using the package Cache to avoid recalculating a block of digits that has
// been calculated before.
func FractionalDigit(ctx context.Context, index uint64) (uint32, error) {
	l := logger.V(1).WithValues("index", index)
	l.Info("FractionalDigit: enter")
	blockIndex := (index / 9) * 9
	key := strconv.FormatUint(blockIndex, 16)
	digits, err := cache.GetValue(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("cache %T GetValue method returned an error: %w", cache, err)
	}
	if digits == "" {
		digits = BBPDigits(blockIndex)
		if err := cache.SetValue(ctx, key, digits); err != nil {
			return 0, fmt.Errorf("cache %T SetValue method returned an error: %w", cache, err)
		}
	}
	offset := index % 9
	digit, err := strconv.ParseUint(digits[offset:offset+1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse digit as uint: %w", err)
	}
	l.Info("FractionalDigit: exit", "digit", digit)
	return uint32(digit), nil
}

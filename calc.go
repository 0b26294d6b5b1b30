package pi

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCanceled is returned by CalcPi when the calculation was abandoned before
// completion, either by the progress callback or by context cancellation. A
// canceled calculation never returns a partial result.
var ErrCanceled = errors.New("pi calculation canceled")

// ProgressFunc is invoked by CalcPi after each block of digits has been
// appended to the result, with the cumulative count of fractional digits
// calculated so far. Return false to cancel the calculation before the next
// block is started.
type ProgressFunc func(digitsSoFar uint64) bool

// Calculates the decimal expansion of pi to the requested number of
// fractional digits, returning a string of the form "3.14159...".
//
// The expansion is assembled nine digits at a time; after each block the
// progress callback, when not nil, receives the cumulative digit count.
// Cancellation is cooperative with block granularity: a block that has been
// started always runs to completion, and a false return from the callback or
// an expired context stops the calculation at the next block boundary with
// ErrCanceled. Requesting zero digits returns "3." without invoking the
// callback.
func CalcPi(ctx context.Context, digits uint64, progress ProgressFunc) (string, error) {
	l := logger.V(1).WithValues("digits", digits)
	l.Info("CalcPi: enter")
	var pi strings.Builder
	pi.Grow(int(digits) + 2)
	pi.WriteString("3.")
	for offset := uint64(0); offset < digits; offset += 9 {
		if err := ctx.Err(); err != nil {
			l.Info("CalcPi: context is done, abandoning calculation", "offset", offset)
			return "", ErrCanceled
		}
		count := min(digits-offset, 9)
		block := fmt.Sprintf("%09d", DigitBlock(offset+1))
		pi.WriteString(block[:count])
		if progress != nil && !progress(offset+count) {
			l.Info("CalcPi: canceled by progress callback", "offset", offset)
			return "", ErrCanceled
		}
	}
	l.Info("CalcPi: exit")
	return pi.String(), nil
}

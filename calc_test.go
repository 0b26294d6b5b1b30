package pi

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// First 50 digits of pi, as printed by the chunked calculator.
const CALC_PI_50 = "3.14159265358979323846264338327950288419716939937510"

func TestCalcPi(t *testing.T) {
	t.Parallel()
	actual, err := CalcPi(context.Background(), 50, nil)
	if err != nil {
		t.Errorf("Error calling CalcPi: %v", err)
	}
	if actual != CALC_PI_50 {
		t.Errorf("Expected %s got %s", CALC_PI_50, actual)
	}
}

// The result length must match the request exactly, including requests that
// are not a multiple of the block size.
func TestCalcPi_Lengths(t *testing.T) {
	t.Parallel()
	for _, digits := range []uint64{1, 5, 9, 10, 26, 99} {
		t.Run(fmt.Sprintf("digits=%d", digits), func(t *testing.T) {
			t.Parallel()
			actual, err := CalcPi(context.Background(), digits, nil)
			if err != nil {
				t.Errorf("Error calling CalcPi: %v", err)
			}
			if expected := int(digits) + 2; len(actual) != expected {
				t.Errorf("Checking digits: %d: expected length %d got %d (%s)", digits, expected, len(actual), actual)
			}
			if expected := "3." + PI_DIGITS[:digits]; actual != expected {
				t.Errorf("Checking digits: %d: expected %s got %s", digits, expected, actual)
			}
		})
	}
}

// Zero digits is a valid request; the callback must not be invoked.
func TestCalcPi_ZeroDigits(t *testing.T) {
	t.Parallel()
	actual, err := CalcPi(context.Background(), 0, func(uint64) bool {
		t.Error("Progress callback invoked for a zero digit request")
		return true
	})
	if err != nil {
		t.Errorf("Error calling CalcPi: %v", err)
	}
	if actual != "3." {
		t.Errorf("Expected 3. got %s", actual)
	}
}

// The progress callback sees a strictly increasing digit count, advancing by
// at most one block per call and finishing at the requested count.
func TestCalcPi_Progress(t *testing.T) {
	t.Parallel()
	const digits = 26
	var reports []uint64
	_, err := CalcPi(context.Background(), digits, func(digitsSoFar uint64) bool {
		reports = append(reports, digitsSoFar)
		return true
	})
	if err != nil {
		t.Errorf("Error calling CalcPi: %v", err)
	}
	if len(reports) == 0 {
		t.Fatal("Progress callback was never invoked")
	}
	var last uint64
	for _, report := range reports {
		if report <= last {
			t.Errorf("Progress report %d is not greater than previous report %d", report, last)
		}
		if report-last > 9 {
			t.Errorf("Progress advanced from %d to %d, more than one block", last, report)
		}
		last = report
	}
	if last != digits {
		t.Errorf("Final progress report: expected %d got %d", digits, last)
	}
}

// A false return from the callback must stop the calculation at the next
// block boundary without a partial result.
func TestCalcPi_CanceledByCallback(t *testing.T) {
	t.Parallel()
	calls := 0
	actual, err := CalcPi(context.Background(), 90, func(uint64) bool {
		calls++
		return false
	})
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("Expected ErrCanceled, got %v", err)
	}
	if actual != "" {
		t.Errorf("Expected empty result for canceled calculation, got %s", actual)
	}
	if calls != 1 {
		t.Errorf("Expected calculation to stop after first callback, got %d calls", calls)
	}
}

// A context that is already done must cancel before any block is calculated.
func TestCalcPi_CanceledByContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	actual, err := CalcPi(ctx, 90, func(uint64) bool {
		t.Error("Progress callback invoked for a canceled context")
		return true
	})
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("Expected ErrCanceled, got %v", err)
	}
	if actual != "" {
		t.Errorf("Expected empty result for canceled calculation, got %s", actual)
	}
}

package pi

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis"
	cachepkg "github.com/ninedigits/pi/pkg/cache"
)

func testFractionalDigits(ctx context.Context, t *testing.T) {
	t.Helper()
	for i := uint64(0); i < uint64(len(PI_DIGITS)); i++ {
		expected, err := strconv.ParseUint(PI_DIGITS[i:i+1], 10, 32)
		if err != nil {
			t.Errorf("Error parsing Uint: %v", err)
		}
		actual, err := FractionalDigit(ctx, i)
		if err != nil {
			t.Errorf("Error calling FractionalDigit: %v", err)
		}
		if actual != uint32(expected) {
			t.Errorf("Checking offset: %d: expected %d got %d", i, expected, actual)
		}
	}
}

func TestFractionalDigit_WithNoopCache(t *testing.T) {
	ctx := context.Background()
	testCache := cachepkg.NewNoopCache()
	if testCache == nil {
		t.Error("Noop cache is nil")
	}
	SetCache(testCache)
	defer SetCache(cachepkg.NewNoopCache())
	testFractionalDigits(ctx, t)
}

func TestFractionalDigit_WithRedisCache(t *testing.T) {
	ctx := context.Background()
	mock, err := miniredis.Run()
	if err != nil {
		t.Errorf("Error running miniredis: %v", err)
	}
	defer mock.Close()
	testCache := cachepkg.NewRedisCache(ctx, mock.Addr())
	if testCache == nil {
		t.Error("Redis cache is nil")
	}
	SetCache(testCache)
	defer SetCache(cachepkg.NewNoopCache())
	// Two passes so the second is served from the cache.
	testFractionalDigits(ctx, t)
	testFractionalDigits(ctx, t)
}

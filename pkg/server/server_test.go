package server_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis"
	"github.com/ninedigits/pi/pkg/api"
	"github.com/ninedigits/pi/pkg/cache"
	"github.com/ninedigits/pi/pkg/server"
)

const (
	// First 99 fractional digits of pi.
	PiDigits = "141592653589793238462643383279502884197169399375105820974944592307816406286208998628034825342117067"
)

func testGetDigit(ctx context.Context, t *testing.T, endpoint string, index uint64) {
	t.Helper()
	expected, err := strconv.ParseUint(PiDigits[index:index+1], 10, 32)
	if err != nil {
		t.Errorf("Error parsing Uint: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/v2/digit/%d", endpoint, index), http.NoBody)
	if err != nil {
		t.Fatalf("Error building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Error calling digit endpoint: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Checking index: %d: unexpected status %s", index, resp.Status)
	}
	var actual api.DigitResponse
	if err := api.ReadResponse(resp, &actual); err != nil {
		t.Fatalf("Error decoding response: %v", err)
	}
	if actual.Index != index {
		t.Errorf("Checking index: %d: response index is %d", index, actual.Index)
	}
	if actual.Digit != uint32(expected) {
		t.Errorf("Checking index: %d: expected %d got %d", index, expected, actual.Digit)
	}
	if actual.Metadata == nil || actual.Metadata.Identity == "" {
		t.Errorf("Checking index: %d: response metadata is missing an identity", index)
	}
}

func TestGetDigit_WithNoopCache(t *testing.T) {
	ctx := context.Background()
	testCache := cache.NewNoopCache()
	if testCache == nil {
		t.Error("Noop cache is nil")
	}
	piServer, err := server.NewPiServer(server.WithCache(testCache))
	if err != nil {
		t.Fatalf("Error calling NewPiServer: %v", err)
	}
	testServer := httptest.NewServer(piServer.NewHandler())
	defer testServer.Close()
	for index := 0; index < len(PiDigits); index++ {
		t.Run(fmt.Sprintf("index=%d", index), func(t *testing.T) {
			testGetDigit(ctx, t, testServer.URL, uint64(index))
		})
	}
}

func TestGetDigit_WithRedisCache(t *testing.T) {
	ctx := context.Background()
	mock, err := miniredis.Run()
	if err != nil {
		t.Errorf("Error running miniredis: %v", err)
	}
	defer mock.Close()
	testCache := cache.NewRedisCache(ctx, mock.Addr())
	if testCache == nil {
		t.Error("Redis cache is nil")
	}
	piServer, err := server.NewPiServer(server.WithCache(testCache))
	if err != nil {
		t.Fatalf("Error calling NewPiServer: %v", err)
	}
	testServer := httptest.NewServer(piServer.NewHandler())
	defer testServer.Close()
	for index := 0; index < len(PiDigits); index++ {
		t.Run(fmt.Sprintf("index=%d", index), func(t *testing.T) {
			testGetDigit(ctx, t, testServer.URL, uint64(index))
		})
	}
}

func TestGetBlock(t *testing.T) {
	piServer, err := server.NewPiServer(server.WithTags([]string{"test"}))
	if err != nil {
		t.Fatalf("Error calling NewPiServer: %v", err)
	}
	testServer := httptest.NewServer(piServer.NewHandler())
	defer testServer.Close()
	for _, index := range []uint64{0, 3, 9, 42, 90} {
		blockIndex := (index / 9) * 9
		expected := PiDigits[blockIndex : blockIndex+9]
		resp, err := http.Get(fmt.Sprintf("%s/api/v2/block/%d", testServer.URL, index))
		if err != nil {
			t.Fatalf("Error calling block endpoint: %v", err)
		}
		var actual api.BlockResponse
		err = api.ReadResponse(resp, &actual)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("Error decoding response: %v", err)
		}
		if actual.Index != blockIndex {
			t.Errorf("Checking index: %d: expected block index %d got %d", index, blockIndex, actual.Index)
		}
		if actual.Digits != expected {
			t.Errorf("Checking index: %d: expected %s got %s", index, expected, actual.Digits)
		}
	}
}

func TestGetDigit_BadIndex(t *testing.T) {
	piServer, err := server.NewPiServer()
	if err != nil {
		t.Fatalf("Error calling NewPiServer: %v", err)
	}
	testServer := httptest.NewServer(piServer.NewHandler())
	defer testServer.Close()
	for _, index := range []string{"not-a-number", "-1", "1.5"} {
		resp, err := http.Get(fmt.Sprintf("%s/api/v2/digit/%s", testServer.URL, index))
		if err != nil {
			t.Fatalf("Error calling digit endpoint: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Checking index: %s: expected status %d got %d", index, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

func TestHealthz(t *testing.T) {
	piServer, err := server.NewPiServer()
	if err != nil {
		t.Fatalf("Error calling NewPiServer: %v", err)
	}
	testServer := httptest.NewServer(piServer.NewHandler())
	defer testServer.Close()
	resp, err := http.Get(testServer.URL + "/healthz")
	if err != nil {
		t.Fatalf("Error calling healthz endpoint: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d got %d", http.StatusOK, resp.StatusCode)
	}
}

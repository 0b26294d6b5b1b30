// Package server implements an HTTP JSON service that returns fractional
// digits of pi, with optional OpenTelemetry metrics and traces.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	pi "github.com/ninedigits/pi"
	"github.com/ninedigits/pi/pkg/api"
	cachepkg "github.com/ninedigits/pi/pkg/cache"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// The default name to use when registering OpenTelemetry components.
const OpenTelemetryPackageIdentifier = "pkg.server"

type PiServer struct {
	// The logr.Logger implementation to use
	logger logr.Logger
	// An optional cache implementation
	cache cachepkg.Cache
	// Holds the instance specific metadata that will be returned in responses
	metadata *api.Metadata
	// A histogram of digit block calculation durations
	calculationMs metric.Int64Histogram
	// A counter for the number of errors returned by cache
	cacheErrors metric.Int64Counter
	// A counter for cache hits
	cacheHits metric.Int64Counter
	// A counter for cache misses
	cacheMisses metric.Int64Counter
}

// Defines the function signature for PiServer options.
type PiServerOption func(*PiServer)

// Create a new PiServer and apply any options.
func NewPiServer(options ...PiServerOption) (*PiServer, error) {
	hostname := "unknown"
	if host, err := os.Hostname(); err == nil {
		hostname = host
	}
	server := &PiServer{
		logger: logr.Discard(),
		cache:  cachepkg.NewNoopCache(),
		metadata: &api.Metadata{
			Identity:    hostname,
			Tags:        []string{},
			Annotations: map[string]string{},
		},
	}
	for _, option := range options {
		option(server)
	}
	meter := otel.Meter(OpenTelemetryPackageIdentifier)
	var err error
	server.calculationMs, err = meter.Int64Histogram(
		OpenTelemetryPackageIdentifier+".calc_duration_ms",
		metric.WithUnit("ms"),
		metric.WithDescription("The duration (ms) of digit block calculations"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating calculationMs Histogram: %w", err)
	}
	server.cacheErrors, err = meter.Int64Counter(
		OpenTelemetryPackageIdentifier+".cache_errors",
		metric.WithDescription("The count of error responses from digit cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating cacheErrors Counter: %w", err)
	}
	server.cacheHits, err = meter.Int64Counter(
		OpenTelemetryPackageIdentifier+".cache_hits",
		metric.WithDescription("The count of cache hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating cacheHits Counter: %w", err)
	}
	server.cacheMisses, err = meter.Int64Counter(
		OpenTelemetryPackageIdentifier+".cache_misses",
		metric.WithDescription("The count of cache misses"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating cacheMisses Counter: %w", err)
	}
	return server, nil
}

// Use the supplied logger for the server and pi packages.
func WithLogger(logger logr.Logger) PiServerOption {
	return func(s *PiServer) {
		s.logger = logger
		pi.SetLogger(logger)
	}
}

// Use the Cache implementation to store calculated digit blocks to avoid
// recalculation of a block that has already been calculated.
func WithCache(cache cachepkg.Cache) PiServerOption {
	return func(s *PiServer) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// Add the string tags to the server's response metadata.
func WithTags(tags []string) PiServerOption {
	return func(s *PiServer) {
		if tags != nil {
			s.metadata.Tags = append(s.metadata.Tags, tags...)
		}
	}
}

// Add the key-value annotations to the server's response metadata.
func WithAnnotations(annotations map[string]string) PiServerOption {
	return func(s *PiServer) {
		for k, v := range annotations {
			s.metadata.Annotations[k] = v
		}
	}
}

// Returns the nine-digit block that starts at the zero-based fractional
// blockIndex, from cache when possible, calculating and caching it otherwise.
// blockIndex must be a multiple of nine.
func (s *PiServer) digitBlock(ctx context.Context, blockIndex uint64) (string, error) {
	key := strconv.FormatUint(blockIndex, 16)
	attributes := []attribute.KeyValue{
		attribute.Int64(OpenTelemetryPackageIdentifier+".blockIndex", int64(blockIndex)), //nolint:gosec // blockIndex is bounded by request validation
		attribute.String(OpenTelemetryPackageIdentifier+".cacheKey", key),
	}
	ctx, span := otel.Tracer(OpenTelemetryPackageIdentifier).Start(ctx, OpenTelemetryPackageIdentifier+"/digitBlock")
	defer span.End()
	span.SetAttributes(attributes...)
	span.AddEvent("Checking cache")
	digits, err := s.cache.GetValue(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.cacheErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
		return "", fmt.Errorf("cache %T GetValue method returned an error: %w", s.cache, err)
	}
	if digits != "" {
		attributes := append(attributes, attribute.Bool(OpenTelemetryPackageIdentifier+".cache_hit", true))
		span.SetAttributes(attributes...)
		s.cacheHits.Add(ctx, 1, metric.WithAttributes(attributes...))
		return digits, nil
	}
	attributes = append(attributes, attribute.Bool(OpenTelemetryPackageIdentifier+".cache_hit", false))
	span.SetAttributes(attributes...)
	span.AddEvent("Calculating fractional digits")
	s.cacheMisses.Add(ctx, 1, metric.WithAttributes(attributes...))
	ts := time.Now()
	digits = pi.BBPDigits(blockIndex)
	s.calculationMs.Record(ctx, time.Since(ts).Milliseconds(), metric.WithAttributes(attributes...))
	if err := s.cache.SetValue(ctx, key, digits); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.cacheErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
		return "", fmt.Errorf("cache %T SetValue method returned an error: %w", s.cache, err)
	}
	return digits, nil
}

// Handles a request for the single fractional digit of pi at the zero-based
// index embedded in the request path.
func (s *PiServer) getDigit(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		s.logger.Error(err, "Failed to parse index from request path")
		api.WriteError(w, http.StatusBadRequest)
		return
	}
	logger := s.logger.WithValues("index", index)
	logger.Info("getDigit: enter")
	digits, err := s.digitBlock(r.Context(), (index/9)*9)
	if err != nil {
		logger.Error(err, "Failed to retrieve digit block")
		api.WriteError(w, http.StatusInternalServerError)
		return
	}
	offset := index % 9
	digit, err := strconv.ParseUint(digits[offset:offset+1], 10, 32)
	if err != nil {
		logger.Error(err, "Failed to parse digit as uint")
		api.WriteError(w, http.StatusInternalServerError)
		return
	}
	logger.Info("getDigit: exit", "digit", digit)
	if err := api.WriteResponse(w, &api.DigitResponse{
		Index:    index,
		Digit:    uint32(digit), //nolint:gosec // digit will always be between 0 and 9 inclusive, no risk of overflow
		Metadata: s.metadata,
	}); err != nil {
		logger.Error(err, "Writing response raised an error; continuing")
	}
}

// Handles a request for the nine-digit block containing the zero-based index
// embedded in the request path. The response index is normalized to the start
// of the block.
func (s *PiServer) getBlock(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		s.logger.Error(err, "Failed to parse index from request path")
		api.WriteError(w, http.StatusBadRequest)
		return
	}
	blockIndex := (index / 9) * 9
	logger := s.logger.WithValues("index", index, "blockIndex", blockIndex)
	logger.Info("getBlock: enter")
	digits, err := s.digitBlock(r.Context(), blockIndex)
	if err != nil {
		logger.Error(err, "Failed to retrieve digit block")
		api.WriteError(w, http.StatusInternalServerError)
		return
	}
	logger.Info("getBlock: exit", "digits", digits)
	if err := api.WriteResponse(w, &api.BlockResponse{
		Index:    blockIndex,
		Digits:   digits,
		Metadata: s.metadata,
	}); err != nil {
		logger.Error(err, "Writing response raised an error; continuing")
	}
}

// Reports liveness to load-balancer and orchestration health probes.
func (s *PiServer) healthz(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "OK")
}

// Create a new http.Handler exposing the pi service endpoints, wrapped with
// OpenTelemetry instrumentation.
func (s *PiServer) NewHandler() http.Handler {
	s.logger.V(1).Info("Building HTTP request mux")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/digit/{index}", s.getDigit)
	mux.HandleFunc("GET /api/v2/block/{index}", s.getBlock)
	mux.HandleFunc("GET /healthz", s.healthz)
	return otelhttp.NewHandler(mux,
		OpenTelemetryPackageIdentifier+"/Handler",
		otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
	)
}

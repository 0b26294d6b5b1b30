// Package client implements an HTTP client for the pi service, with optional
// OpenTelemetry metrics and traces.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/ninedigits/pi/pkg/api"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// The default maximum timeout that will be applied to requests.
	DefaultMaxTimeout = 10 * time.Second
	// The default name to use when registering OpenTelemetry components.
	OpenTelemetryPackageIdentifier = "pkg.client"
)

// The pi service responded with a status other than 200.
var ErrUnexpectedStatus = errors.New("pi service returned an unexpected status")

// PiClient requests fractional digits of pi from a remote pi service.
type PiClient struct {
	// The logr.Logger instance to use.
	logger logr.Logger
	// The HTTP client used for requests to a pi service.
	client *http.Client
	// The maximum timeout/deadline to use when making requests.
	maxTimeout time.Duration
	// A counter for the number of connection errors.
	connectionErrors metric.Int64Counter
	// A counter for the number of error responses received.
	responseErrors metric.Int64Counter
	// A histogram of request durations.
	durationMs metric.Int64Histogram
}

// Defines a function signature for PiClient options.
type PiClientOption func(*PiClient)

// Create a new PiClient with optional settings.
func NewPiClient(options ...PiClientOption) (*PiClient, error) {
	client := &PiClient{
		logger: logr.Discard(),
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxTimeout: DefaultMaxTimeout,
	}
	for _, option := range options {
		option(client)
	}
	meter := otel.Meter(OpenTelemetryPackageIdentifier)
	var err error
	client.connectionErrors, err = meter.Int64Counter(
		OpenTelemetryPackageIdentifier+".connection_errors",
		metric.WithDescription("The count of connection errors seen by client"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating connectionErrors Counter: %w", err)
	}
	client.responseErrors, err = meter.Int64Counter(
		OpenTelemetryPackageIdentifier+".response_errors",
		metric.WithDescription("The count of error responses received by client"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating responseErrors Counter: %w", err)
	}
	client.durationMs, err = meter.Int64Histogram(
		OpenTelemetryPackageIdentifier+".request_duration_ms",
		metric.WithUnit("ms"),
		metric.WithDescription("The duration (ms) of requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating durationMs Histogram: %w", err)
	}
	return client, nil
}

// Use the supplied logr.Logger.
func WithLogger(logger logr.Logger) PiClientOption {
	return func(c *PiClient) {
		c.logger = logger
	}
}

// Set the maximum timeout for client requests to a pi service.
func WithMaxTimeout(maxTimeout time.Duration) PiClientOption {
	return func(c *PiClient) {
		c.maxTimeout = maxTimeout
	}
}

// Use the supplied TLS configuration for requests to a pi service.
func WithTLSConfig(tlsConf *tls.Config) PiClientOption {
	return func(c *PiClient) {
		if tlsConf == nil {
			return
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = tlsConf
		c.client.Transport = otelhttp.NewTransport(transport)
	}
}

// Perform a GET request against url, decoding a successful JSON response
// into out, and recording request metrics under the supplied attributes.
func (c *PiClient) get(ctx context.Context, url string, out any, attributes []attribute.KeyValue) error {
	ctx, cancel := context.WithTimeout(ctx, c.maxTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	span := trace.SpanFromContext(ctx)
	ts := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(ts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		c.connectionErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
		return fmt.Errorf("failure calling pi service: %w", err)
	}
	defer resp.Body.Close()
	attributes = append(attributes, attribute.Bool(OpenTelemetryPackageIdentifier+".success", resp.StatusCode == http.StatusOK))
	c.durationMs.Record(ctx, duration.Milliseconds(), metric.WithAttributes(attributes...))
	if resp.StatusCode != http.StatusOK {
		span.SetStatus(otelcodes.Error, resp.Status)
		c.responseErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	if err := api.ReadResponse(resp, out); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		c.responseErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
		return err
	}
	return nil
}

// Request the single fractional decimal digit of pi at the zero-based index
// from the pi service at endpoint.
func (c *PiClient) FetchDigit(ctx context.Context, endpoint string, index uint64) (uint32, error) {
	logger := c.logger.V(1).WithValues("endpoint", endpoint, "index", index)
	logger.Info("FetchDigit: enter")
	attributes := []attribute.KeyValue{
		attribute.Int64(OpenTelemetryPackageIdentifier+".index", int64(index)), //nolint:gosec // index is bounded by the requested digit count
	}
	ctx, span := otel.Tracer(OpenTelemetryPackageIdentifier).Start(ctx, OpenTelemetryPackageIdentifier+"/FetchDigit")
	defer span.End()
	span.SetAttributes(attributes...)
	url := fmt.Sprintf("%s/api/v2/digit/%d", strings.TrimSuffix(endpoint, "/"), index)
	var response api.DigitResponse
	if err := c.get(ctx, url, &response, attributes); err != nil {
		return 0, err
	}
	logger.Info("FetchDigit: exit", "digit", response.Digit, "metadata", response.Metadata)
	return response.Digit, nil
}

// Request the nine-digit block of pi containing the zero-based index from
// the pi service at endpoint.
func (c *PiClient) FetchBlock(ctx context.Context, endpoint string, index uint64) (string, error) {
	logger := c.logger.V(1).WithValues("endpoint", endpoint, "index", index)
	logger.Info("FetchBlock: enter")
	attributes := []attribute.KeyValue{
		attribute.Int64(OpenTelemetryPackageIdentifier+".index", int64(index)), //nolint:gosec // index is bounded by the requested digit count
	}
	ctx, span := otel.Tracer(OpenTelemetryPackageIdentifier).Start(ctx, OpenTelemetryPackageIdentifier+"/FetchBlock")
	defer span.End()
	span.SetAttributes(attributes...)
	url := fmt.Sprintf("%s/api/v2/block/%d", strings.TrimSuffix(endpoint, "/"), index)
	var response api.BlockResponse
	if err := c.get(ctx, url, &response, attributes); err != nil {
		return "", err
	}
	logger.Info("FetchBlock: exit", "digits", response.Digits, "metadata", response.Metadata)
	return response.Digits, nil
}

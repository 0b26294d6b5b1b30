package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ninedigits/pi/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

const (
	CollateServiceName  = "collate"
	CountFlagName       = "count"
	MaxTimeoutFlagName  = "max-timeout"
	InsecureFlagName    = "insecure"
	WorkerCountFlagName = "workers"
	DefaultWorkerCount  = 8
)

// Implements the collate sub-command which gathers digits of pi from one or
// more pi service endpoints.
func NewCollateCmd() (*cobra.Command, error) {
	collateCmd := &cobra.Command{
		Use:   CollateServiceName + " endpoint [endpoint...]",
		Short: "Collate fractional digits of pi from one or more pi services",
		Long: `Requests individual fractional digits of pi from the pi service endpoint(s) provided, in a random order, and prints the collated result.

Digits are requested concurrently, spread across every endpoint given on the command line. Metrics and traces will be sent to an OpenTelemetry collection endpoint, if specified.`,
		Args: cobra.MinimumNArgs(1),
		RunE: collateMain,
	}
	collateCmd.PersistentFlags().Uint64P(CountFlagName, "c", DefaultDigitCount, "The number of decimal digits of pi to request")
	collateCmd.PersistentFlags().Duration(MaxTimeoutFlagName, client.DefaultMaxTimeout, "The maximum timeout for a pi service request")
	collateCmd.PersistentFlags().Bool(InsecureFlagName, false, "Disable TLS verification of pi service endpoints")
	collateCmd.PersistentFlags().Int(WorkerCountFlagName, DefaultWorkerCount, "The number of concurrent requests to make")
	for _, name := range []string{
		CountFlagName,
		MaxTimeoutFlagName,
		InsecureFlagName,
		WorkerCountFlagName,
	} {
		if err := viper.BindPFlag(name, collateCmd.PersistentFlags().Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind %s pflag: %w", name, err)
		}
	}
	return collateCmd, nil
}

// Collate sub-command entrypoint. Digit indices are shuffled and fanned out
// over a bounded worker group so that load is spread across the endpoints; a
// worker failure leaves a placeholder in the output rather than aborting the
// whole collation.
func collateMain(cmd *cobra.Command, endpoints []string) error {
	count := viper.GetUint64(CountFlagName)
	logger := logger.V(1).WithValues(CountFlagName, count, "endpoints", endpoints)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)
	go func() {
		<-interrupt
		cancel()
	}()

	logger.V(0).Info("Preparing telemetry")
	telemetryShutdown, err := initTelemetry(ctx, CollateServiceName,
		sdktrace.ParentBased(sdktrace.TraceIDRatioBased(viper.GetFloat64(OpenTelemetrySamplingRatioFlagName))),
	)
	if err != nil {
		return err
	}
	defer telemetryShutdown(context.Background())

	logger.V(0).Info("Preparing pi client")
	tlsConf, err := newClientTLSConfig()
	if err != nil {
		return err
	}
	piClient, err := client.NewPiClient(
		client.WithLogger(logger),
		client.WithMaxTimeout(viper.GetDuration(MaxTimeoutFlagName)),
		client.WithTLSConfig(tlsConf),
	)
	if err != nil {
		return fmt.Errorf("failed to create pi client: %w", err)
	}

	digits := make([]byte, count)
	for i := range digits {
		digits[i] = '-'
	}
	indices := rand.Perm(int(count)) //nolint:gosec // Shuffling work order does not need a CSPRNG
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(viper.GetInt(WorkerCountFlagName))
	ts := time.Now()
	for _, index := range indices {
		index := uint64(index)
		endpoint := endpoints[index%uint64(len(endpoints))]
		g.Go(func() error {
			digit, err := piClient.FetchDigit(ctx, endpoint, index)
			if err != nil {
				logger.Error(err, "Failed to fetch digit; leaving placeholder", "index", index, "endpoint", endpoint)
				return nil
			}
			digits[index] = '0' + byte(digit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failure collating digits of pi: %w", err)
	}
	logger.V(0).Info("Collation complete", "duration", time.Since(ts))
	fmt.Printf("Result is: 3.%s\n", digits)
	return nil
}

// Creates the TLS configuration for requests to pi service endpoints, or nil
// when every endpoint is plain HTTP and no TLS material was provided.
func newClientTLSConfig() (*tls.Config, error) {
	certFile := viper.GetString(TLSCertFlagName)
	keyFile := viper.GetString(TLSKeyFlagName)
	cacerts := viper.GetStringSlice(CACertFlagName)
	insecure := viper.GetBool(InsecureFlagName)
	if certFile == "" && keyFile == "" && len(cacerts) == 0 && !insecure {
		return nil, nil
	}
	certPool, err := newCACertPool(cacerts)
	if err != nil {
		return nil, err
	}
	tlsConf, err := newTLSConfig(certFile, keyFile, nil, certPool)
	if err != nil {
		return nil, err
	}
	tlsConf.InsecureSkipVerify = insecure
	return tlsConf, nil
}

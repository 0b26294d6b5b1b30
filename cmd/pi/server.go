package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ninedigits/pi/pkg/cache"
	"github.com/ninedigits/pi/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

const (
	ServerServiceName     = "server"
	DefaultListenAddress  = ":8080"
	AddressFlagName       = "address"
	RedisTargetFlagName   = "redis-target"
	LabelFlagName         = "label"
	TagFlagName           = "tag"
	TLSClientAuthFlagName = "tls-client-auth"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 60 * time.Second
)

// Implements the server sub-command.
func NewServerCmd() (*cobra.Command, error) {
	serverCmd := &cobra.Command{
		Use:   ServerServiceName,
		Short: "Run an HTTP service to return fractional digits of pi",
		Long: `Launches an HTTP server that returns fractional decimal digits of pi as JSON.

A single digit, or a nine-digit block, is returned per request. An optional Redis DB can be used to cache the calculated blocks. Metrics and traces will be sent to an OpenTelemetry collection endpoint, if specified.`,
		RunE: serverMain,
	}
	serverCmd.PersistentFlags().StringP(AddressFlagName, "a", DefaultListenAddress, "Address to listen for pi service requests")
	serverCmd.PersistentFlags().String(RedisTargetFlagName, "", "An optional Redis endpoint to use as a digit block cache")
	serverCmd.PersistentFlags().StringToStringP(LabelFlagName, "l", nil, "An optional label key=value to add to response metadata; can be repeated")
	serverCmd.PersistentFlags().StringArrayP(TagFlagName, "t", nil, "An optional tag to add to response metadata; can be repeated")
	serverCmd.PersistentFlags().Bool(TLSClientAuthFlagName, false, "Require clients to provide a valid TLS client certificate")
	for _, name := range []string{
		AddressFlagName,
		RedisTargetFlagName,
		LabelFlagName,
		TagFlagName,
		TLSClientAuthFlagName,
	} {
		if err := viper.BindPFlag(name, serverCmd.PersistentFlags().Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind %s pflag: %w", name, err)
		}
	}
	return serverCmd, nil
}

// Server sub-command entrypoint. This function launches the pi service
// listener and blocks until interrupted.
func serverMain(_ *cobra.Command, _ []string) error {
	address := viper.GetString(AddressFlagName)
	redisTarget := viper.GetString(RedisTargetFlagName)
	logger := logger.V(1).WithValues(AddressFlagName, address, RedisTargetFlagName, redisTarget)
	ctx := context.Background()
	logger.V(0).Info("Preparing telemetry")
	telemetryShutdown, err := initTelemetry(ctx, ServerServiceName, sdktrace.AlwaysSample())
	if err != nil {
		return err
	}

	logger.V(0).Info("Preparing services")
	options := []server.PiServerOption{
		server.WithLogger(logger),
		server.WithTags(viper.GetStringSlice(TagFlagName)),
		server.WithAnnotations(viper.GetStringMapString(LabelFlagName)),
	}
	if redisTarget != "" {
		options = append(options, server.WithCache(cache.NewRedisCache(ctx, redisTarget)))
	}
	piServer, err := server.NewPiServer(options...)
	if err != nil {
		return fmt.Errorf("failed to create new pi server: %w", err)
	}
	tlsConf, err := newServerTLSConfig()
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              address,
		Handler:           piServer.NewHandler(),
		ReadHeaderTimeout: readHeaderTimeout,
		TLSConfig:         tlsConf,
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.V(0).Info("Starting pi service")
		var err error
		if tlsConf != nil {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("pi service listener returned an error: %w", err)
		}
		return nil
	})

	select {
	case <-interrupt:
	case <-ctx.Done():
	}
	logger.V(0).Info("Shutting down on signal")
	cancel()
	shutdownCtx, shutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Failed to shutdown HTTP server cleanly")
	}
	telemetryShutdown(shutdownCtx)
	return g.Wait() //nolint:wrapcheck // Errors from the listener goroutine are already wrapped
}

// Creates the TLS configuration for the pi service listener from the various
// configuration options provided, or nil when TLS is not configured.
func newServerTLSConfig() (*tls.Config, error) {
	certFile := viper.GetString(TLSCertFlagName)
	keyFile := viper.GetString(TLSKeyFlagName)
	cacerts := viper.GetStringSlice(CACertFlagName)
	tlsClientAuth := viper.GetBool(TLSClientAuthFlagName)
	logger := logger.V(1).WithValues(TLSCertFlagName, certFile, TLSKeyFlagName, keyFile, CACertFlagName, cacerts, TLSClientAuthFlagName, tlsClientAuth)
	if certFile == "" || keyFile == "" {
		logger.V(0).Info("No certificate and key provided; pi service will not use TLS")
		return nil, nil
	}
	logger.V(0).Info("Preparing server TLS configuration")
	certPool, err := newCACertPool(cacerts)
	if err != nil {
		return nil, err
	}
	tlsConf, err := newTLSConfig(certFile, keyFile, certPool, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case tlsClientAuth:
		tlsConf.ClientAuth = tls.RequireAndVerifyClientCert
	case certPool != nil:
		tlsConf.ClientAuth = tls.VerifyClientCertIfGiven
	default:
		tlsConf.ClientAuth = tls.NoClientCert
	}
	return tlsConf, nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/zerologr"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	AppName     = "pi"
	PackageName = "github.com/ninedigits/pi/cmd/pi"

	VerboseFlagName                    = "verbose"
	PrettyFlagName                     = "pretty"
	OpenTelemetryTargetFlagName        = "otlp-target"
	OpenTelemetryInsecureFlagName      = "otlp-insecure"
	OpenTelemetrySamplingRatioFlagName = "otlp-sampling-ratio"
	CACertFlagName                     = "cacert"
	TLSCertFlagName                    = "cert"
	TLSKeyFlagName                     = "key"

	DefaultOTLPTraceSamplingRatio = 0.5
)

// Version is updated from git tags during build.
var version = "unspecified"

func NewRootCmd() (*cobra.Command, error) {
	cobra.OnInitialize(initConfig)
	rootCmd := &cobra.Command{
		Use:     AppName,
		Version: version,
		Short:   "Calculate or serve fractional digits of pi",
		Long:    `Calculates the decimal digits of pi using a constant-space digit extraction algorithm, either locally or through an HTTP client/server pair.`,
	}
	rootCmd.PersistentFlags().CountP(VerboseFlagName, "v", "Enable verbose logging; can be repeated to increase verbosity")
	rootCmd.PersistentFlags().BoolP(PrettyFlagName, "p", false, "Disables structured JSON logging to stdout, making it easier to read")
	rootCmd.PersistentFlags().String(OpenTelemetryTargetFlagName, "", "An optional OpenTelemetry collection target that will receive metrics and traces")
	rootCmd.PersistentFlags().Bool(OpenTelemetryInsecureFlagName, false, "Disable remote TLS verification for OpenTelemetry target")
	rootCmd.PersistentFlags().Float64(OpenTelemetrySamplingRatioFlagName, DefaultOTLPTraceSamplingRatio, "Set the OpenTelemetry trace sampling ratio")
	rootCmd.PersistentFlags().StringArray(CACertFlagName, nil, "An optional CA certificate to use for remote TLS verification; can be repeated")
	rootCmd.PersistentFlags().String(TLSCertFlagName, "", "An optional TLS certificate to use")
	rootCmd.PersistentFlags().String(TLSKeyFlagName, "", "An optional TLS private key to use")
	for _, name := range []string{
		VerboseFlagName,
		PrettyFlagName,
		OpenTelemetryTargetFlagName,
		OpenTelemetryInsecureFlagName,
		OpenTelemetrySamplingRatioFlagName,
		CACertFlagName,
		TLSCertFlagName,
		TLSKeyFlagName,
	} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind %s pflag: %w", name, err)
		}
	}
	calcCmd, err := NewCalcCmd()
	if err != nil {
		return nil, err
	}
	serverCmd, err := NewServerCmd()
	if err != nil {
		return nil, err
	}
	collateCmd, err := NewCollateCmd()
	if err != nil {
		return nil, err
	}
	rootCmd.AddCommand(calcCmd, serverCmd, collateCmd)
	return rootCmd, nil
}

// Determine the outcome of command line flags, environment variables, and an
// optional configuration file to perform initialization of the application.
// An appropriate zerolog will be assigned as the default logr sink.
func initConfig() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zl := zerolog.New(os.Stderr).With().Caller().Timestamp().Logger()
	viper.AddConfigPath(".")
	if home, err := homedir.Dir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigName("." + AppName)
	viper.SetEnvPrefix(AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	verbosity := viper.GetInt(VerboseFlagName)
	switch {
	case verbosity > 2:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case verbosity == 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case verbosity == 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
	if viper.GetBool(PrettyFlagName) {
		zl = zl.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	logger = zerologr.New(&zl)
	if err == nil {
		return
	}
	var cfgNotFound viper.ConfigFileNotFoundError
	if !errors.As(err, &cfgNotFound) {
		logger.Error(err, "Error reading configuration file")
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	pi "github.com/ninedigits/pi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	CalcServiceName    = "calc"
	DigitCountFlagName = "digits"
	QuietFlagName      = "quiet"
	DefaultDigitCount  = 100
)

// Implements the calc sub-command which calculates the digits of pi locally,
// reporting progress as blocks complete.
func NewCalcCmd() (*cobra.Command, error) {
	calcCmd := &cobra.Command{
		Use:   CalcServiceName,
		Short: "Calculate the decimal digits of pi locally",
		Long: `Calculates the requested number of decimal digits of pi on this machine, nine digits at a time, and prints the result.

Progress is reported as each block of digits completes. An interrupt (Ctrl-C) cancels the calculation at the next block boundary; a canceled calculation prints nothing.`,
		Args: cobra.NoArgs,
		RunE: calcMain,
	}
	calcCmd.PersistentFlags().Uint64P(DigitCountFlagName, "d", DefaultDigitCount, "The number of decimal digits of pi to calculate")
	calcCmd.PersistentFlags().BoolP(QuietFlagName, "q", false, "Suppress the progress report while calculating")
	if err := viper.BindPFlag(DigitCountFlagName, calcCmd.PersistentFlags().Lookup(DigitCountFlagName)); err != nil {
		return nil, fmt.Errorf("failed to bind %s pflag: %w", DigitCountFlagName, err)
	}
	if err := viper.BindPFlag(QuietFlagName, calcCmd.PersistentFlags().Lookup(QuietFlagName)); err != nil {
		return nil, fmt.Errorf("failed to bind %s pflag: %w", QuietFlagName, err)
	}
	return calcCmd, nil
}

// Calc sub-command entrypoint. Runs the chunked calculation on the command's
// context, with an interrupt watcher feeding the cancellation flag polled by
// the progress callback.
func calcMain(cmd *cobra.Command, _ []string) error {
	digits := viper.GetUint64(DigitCountFlagName)
	quiet := viper.GetBool(QuietFlagName)
	logger := logger.V(1).WithValues(DigitCountFlagName, digits)
	pi.SetLogger(logger)
	pi.SetNextPrimeFunction(pi.BigNextPrime)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)
	var canceled atomic.Bool
	go func() {
		<-interrupt
		canceled.Store(true)
	}()

	logger.V(0).Info("Starting calculation")
	ts := time.Now()
	result, err := pi.CalcPi(cmd.Context(), digits, func(digitsSoFar uint64) bool {
		if !quiet {
			fmt.Fprintf(os.Stderr, "\rCalculated %d of %d digits", digitsSoFar, digits)
		}
		return !canceled.Load()
	})
	if !quiet {
		fmt.Fprintln(os.Stderr)
	}
	if errors.Is(err, pi.ErrCanceled) {
		logger.V(0).Info("Calculation canceled before completion", "duration", time.Since(ts))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failure calculating digits of pi: %w", err)
	}
	logger.V(0).Info("Calculation complete", "duration", time.Since(ts))
	fmt.Println(result)
	return nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "flatprof",
	Short: "Streaming profiler for large delimited text files",
	Long: `flatprof profiles delimited text files of arbitrary size in bounded
memory: it sniffs the encoding and delimiter, classifies every column as
numeric or categorical from the first batch, and streams the whole file
through constant-size per-column accumulators.`,
}

// Execute runs the root command and exits non-zero on error. Interrupts
// cancel the run's context; a canceled run discards its partial state.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"run profile JSON file (flags override its values)")
}

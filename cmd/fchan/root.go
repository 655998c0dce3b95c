package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Giulio2002/filechan"
)

// GlobalFlags holds flags shared by every subcommand.
type GlobalFlags struct {
	Verbose bool
}

var (
	globalFlags GlobalFlags
	logger      = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "fchan",
	Short: "Inspect files through read-only channels",
	Long: `fchan opens files read-only and reads, maps, locks or describes them.

No subcommand can modify the file it opens.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !globalFlags.Verbose {
			return nil
		}
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "log channel activity to stderr")

	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(versionCmd)
}

func openReadOnly(path string) (*filechan.ReadOnlyChannel, error) {
	return filechan.OpenReadOnly(path, filechan.WithLogger(logger))
}

// resolveLength returns length, or the bytes from offset to the end of the
// channel when length is negative.
func resolveLength(ch filechan.Channel, offset, length int64) (int64, error) {
	if length >= 0 {
		return length, nil
	}
	size, err := ch.Size()
	if err != nil {
		return 0, err
	}
	if offset >= size {
		return 0, nil
	}
	return size - offset, nil
}

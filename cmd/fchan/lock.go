package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	lockOffset  int64
	lockLength  int64
	lockTimeout time.Duration
)

var lockCmd = &cobra.Command{
	Use:   "lock <path>",
	Short: "Hold a shared lock on a byte range until interrupted",
	Long: `Acquire a shared lock on a byte range and hold it until SIGINT or SIGTERM.

A length of 0 locks from the offset to any future end of the file.
Acquisition waits for conflicting holders, up to --timeout when set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := openReadOnly(args[0])
		if err != nil {
			return err
		}
		defer ch.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		acquireCtx := ctx
		if lockTimeout > 0 {
			var cancel context.CancelFunc
			acquireCtx, cancel = context.WithTimeout(ctx, lockTimeout)
			defer cancel()
		}

		l, err := ch.Lock(acquireCtx, lockOffset, lockLength, true)
		if err != nil {
			return err
		}
		logger.Info("lock held",
			zap.String("path", args[0]),
			zap.Int64("offset", lockOffset),
			zap.Int64("length", lockLength))
		fmt.Fprintf(cmd.OutOrStdout(), "holding shared lock on %s [%d, +%d)\n", args[0], lockOffset, lockLength)

		<-ctx.Done()
		return l.Release()
	},
}

func init() {
	lockCmd.Flags().Int64Var(&lockOffset, "offset", 0, "first byte to lock")
	lockCmd.Flags().Int64Var(&lockLength, "length", 0, "number of bytes to lock (0: to end of file)")
	lockCmd.Flags().DurationVar(&lockTimeout, "timeout", 0, "give up waiting after this long (0: wait forever)")
}

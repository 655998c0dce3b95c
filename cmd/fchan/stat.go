package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show the size and capabilities of a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := openReadOnly(args[0])
		if err != nil {
			return err
		}
		defer ch.Close()

		size, err := ch.Size()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "path:     %s\n", args[0])
		fmt.Fprintf(out, "size:     %d\n", size)
		fmt.Fprintf(out, "readable: %t\n", ch.Readable())
		fmt.Fprintf(out, "writable: %t\n", ch.Writable())
		return nil
	},
}

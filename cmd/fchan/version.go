package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Giulio2002/filechan"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the filechan version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), filechan.Version())
	},
}

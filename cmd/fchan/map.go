package main

import (
	"encoding/hex"

	"github.com/spf13/cobra"

	"github.com/Giulio2002/filechan"
)

var (
	mapOffset int64
	mapLength int64
	mapRaw    bool
)

var mapCmd = &cobra.Command{
	Use:   "map <path>",
	Short: "Map a byte range read-only and dump it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := openReadOnly(args[0])
		if err != nil {
			return err
		}
		defer ch.Close()

		length, err := resolveLength(ch, mapOffset, mapLength)
		if err != nil {
			return err
		}
		region, err := ch.Map(filechan.MapReadOnly, mapOffset, length)
		if err != nil {
			return err
		}
		defer region.Unmap()

		out := cmd.OutOrStdout()
		if mapRaw {
			_, err = out.Write(region.Bytes())
			return err
		}
		d := hex.Dumper(out)
		if _, err := d.Write(region.Bytes()); err != nil {
			return err
		}
		return d.Close()
	},
}

func init() {
	mapCmd.Flags().Int64Var(&mapOffset, "offset", 0, "first byte to map")
	mapCmd.Flags().Int64Var(&mapLength, "length", -1, "number of bytes to map (default: to end of file)")
	mapCmd.Flags().BoolVar(&mapRaw, "raw", false, "write the mapped bytes instead of a hex dump")
}

package main

import (
	"io"

	"github.com/spf13/cobra"
)

var (
	catOffset int64
	catLength int64
)

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Copy a byte range of a file to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := openReadOnly(args[0])
		if err != nil {
			return err
		}
		defer ch.Close()

		length, err := resolveLength(ch, catOffset, catLength)
		if err != nil {
			return err
		}

		buf := make([]byte, 64*1024)
		out := cmd.OutOrStdout()
		for pos, end := catOffset, catOffset+length; pos < end; {
			n, err := ch.ReadAt(buf[:min(int64(len(buf)), end-pos)], pos)
			if n > 0 {
				if _, werr := out.Write(buf[:n]); werr != nil {
					return werr
				}
				pos += int64(n)
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	catCmd.Flags().Int64Var(&catOffset, "offset", 0, "first byte to copy")
	catCmd.Flags().Int64Var(&catLength, "length", -1, "number of bytes to copy (default: to end of file)")
}

package main

import (
	"os"

	"github.com/cartridgeio/cartridge/pkg/cartridge"
	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <container> <path>",
	Short: "Print a file's contents to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cartridge.Open(args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		data, err := c.Read(args[1])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

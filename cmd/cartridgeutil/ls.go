package main

import (
	"fmt"

	"github.com/cartridgeio/cartridge/pkg/cartridge"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls <container> [prefix]",
	Short: "List entries under a prefix, directories first",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cartridge.Open(args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		prefix := ""
		if len(args) == 2 {
			prefix = args[1]
		}

		dirColor := color.New(color.FgBlue, color.Bold).SprintFunc()
		for _, e := range c.ListEntries(prefix) {
			if e.IsDir {
				fmt.Println(dirColor(e.Path + "/"))
				continue
			}
			size := int64(0)
			if e.Size != nil {
				size = *e.Size
			}
			fmt.Printf("%s\t%d\n", e.Path, size)
		}
		return nil
	},
}

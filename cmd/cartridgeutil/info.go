package main

import (
	"fmt"

	"github.com/cartridgeio/cartridge/pkg/cartridge"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <container>",
	Short: "Print a container's header summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cartridge.Open(args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		label := color.New(color.Bold).SprintFunc()
		fmt.Printf("%s %s\n", label("slug:"), c.Slug())
		fmt.Printf("%s %s\n", label("title:"), c.Title())
		fmt.Printf("%s %d\n", label("total blocks:"), c.TotalBlocks())
		fmt.Printf("%s %d\n", label("free blocks:"), c.FreeBlocks())
		fmt.Printf("%s %d\n", label("growth count:"), c.GrowthCount())
		return nil
	},
}

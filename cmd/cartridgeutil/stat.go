package main

import (
	"fmt"

	"github.com/cartridgeio/cartridge/pkg/cartridge"
	"github.com/cartridgeio/cartridge/pkg/page"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <container> <path>",
	Short: "Print a file's catalog metadata",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cartridge.Open(args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		meta, err := c.Metadata(args[1])
		if err != nil {
			return err
		}

		label := color.New(color.Bold).SprintFunc()
		fmt.Printf("%s %d\n", label("size:"), meta.Size)
		fmt.Printf("%s %s\n", label("checksum:"), meta.Checksum)
		fmt.Printf("%s %s\n", label("codec:"), codecName(page.Codec(meta.StoredCodec)))
		fmt.Printf("%s %t\n", label("encrypted:"), meta.Encrypted)
		fmt.Printf("%s %s\n", label("created:"), meta.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		fmt.Printf("%s %s\n", label("modified:"), meta.ModifiedAt.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	},
}

func codecName(c page.Codec) string {
	switch c {
	case page.CodecLZ4:
		return "lz4"
	case page.CodecZstd:
		return "zstd"
	default:
		return "none"
	}
}

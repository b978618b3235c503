package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/strata"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the artifact formats in the order they are tried",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range strata.Formats() {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

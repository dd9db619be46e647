package main

import (
	"fmt"

	approx "github.com/milosgajdos/go-approx"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of approx",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "approx version %s\n", approx.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

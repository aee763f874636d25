package main

import (
	"fmt"

	"github.com/aretw0/compass"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of compass",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "compass version %s\n", compass.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

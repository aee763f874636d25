package main

import (
	"fmt"

	"github.com/aretw0/compass/internal/cli"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the workflow graph",
	Long:  `Outputs a Mermaid diagram (graph TD) of the travel-planning workflow.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd, cli.BuildOptions{SkipPlans: true}, withoutLLM, inMemory)
		if err != nil {
			return err
		}
		defer app.Close()
		fmt.Fprint(cmd.OutOrStdout(), app.Graph(nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

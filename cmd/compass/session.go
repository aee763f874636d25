package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/compass/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage checkpointed conversations",
	Long:  `List, inspect, and remove conversations held by the configured checkpoint store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd, cli.BuildOptions{SkipPlans: true}, withoutLLM)
		if err != nil {
			return err
		}
		defer app.Close()

		sessions, err := app.Assistant.Sessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		fmt.Fprintln(out, "Sessions:")
		for _, s := range sessions {
			fmt.Fprintln(out, "- "+s)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print the checkpointed state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd, cli.BuildOptions{SkipPlans: true}, withoutLLM)
		if err != nil {
			return err
		}
		defer app.Close()

		state, err := app.Assistant.State(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", args[0], err)
		}
		if graph, _ := cmd.Flags().GetBool("graph"); graph {
			fmt.Fprint(cmd.OutOrStdout(), app.Graph(state.Visited))
			return nil
		}

		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling state: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return fmt.Errorf("requires at least one session id or --all")
		}
		app, err := buildApp(cmd, cli.BuildOptions{SkipPlans: true}, withoutLLM)
		if err != nil {
			return err
		}
		defer app.Close()

		ids := args
		if all {
			if ids, err = app.Assistant.Sessions(cmd.Context()); err != nil {
				return fmt.Errorf("error listing sessions: %w", err)
			}
		}

		failed := 0
		for _, id := range ids {
			if err := app.Assistant.Reset(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d session(s) could not be removed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionInspectCmd.Flags().Bool("graph", false, "Print the workflow graph with the nodes of the last turn highlighted")
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored session")
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aretw0/compass/internal/cli"
	"github.com/aretw0/compass/internal/presentation/tui"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage saved plans",
	Long:  `List, show, save, import, and remove plans held by the plan store (plans.dsn).`,
}

var planLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd, cli.BuildOptions{}, withoutLLM, inMemory)
		if err != nil {
			return err
		}
		defer app.Close()

		plans, err := app.Plans.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing plans: %w", err)
		}
		if len(plans) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No plans found.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tDESTINATION\tSTART\tDAYS")
		for _, p := range plans {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.Status, p.Destination, p.StartDate, len(p.Days))
		}
		return tw.Flush()
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Print a saved plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd, cli.BuildOptions{}, withoutLLM, inMemory)
		if err != nil {
			return err
		}
		defer app.Close()

		plan, err := app.Plans.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			data, err := json.MarshalIndent(plan, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		md := tui.ItineraryMarkdown(&plan.Itinerary)
		if render, err := tui.NewRenderer(0); err == nil {
			if styled, err := render(md); err == nil {
				md = styled
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	},
}

var planSaveCmd = &cobra.Command{
	Use:   "save <session-id>",
	Short: "Save the current itinerary of a conversation as a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd, cli.BuildOptions{}, withoutLLM)
		if err != nil {
			return err
		}
		defer app.Close()

		state, err := app.Assistant.State(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", args[0], err)
		}
		it := state.CurrentItinerary()
		if it == nil {
			return fmt.Errorf("session '%s' has no itinerary yet", args[0])
		}
		return createPlan(cmd, app, *it)
	},
}

var planImportCmd = &cobra.Command{
	Use:   "import <itinerary.json>",
	Short: "Save an itinerary from a JSON file as a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var it domain.Itinerary
		if err := json.Unmarshal(data, &it); err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}

		app, err := buildApp(cmd, cli.BuildOptions{}, withoutLLM, inMemory)
		if err != nil {
			return err
		}
		defer app.Close()
		return createPlan(cmd, app, it)
	},
}

var planRmCmd = &cobra.Command{
	Use:   "rm <plan-id>...",
	Short: "Remove one or more plans",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd, cli.BuildOptions{}, withoutLLM, inMemory)
		if err != nil {
			return err
		}
		defer app.Close()

		failed := 0
		for _, id := range args {
			if err := app.Plans.Delete(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed plan '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d plan(s) could not be removed", failed)
		}
		return nil
	},
}

func createPlan(cmd *cobra.Command, app *cli.App, it domain.Itinerary) error {
	if err := it.Validate(); err != nil {
		return err
	}
	plan, err := app.Plans.Create(cmd.Context(), it)
	if err != nil {
		return fmt.Errorf("error saving plan: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved plan '%s' (%d days)\n", plan.ID, len(plan.Days))
	return nil
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planLsCmd)
	planCmd.AddCommand(planShowCmd)
	planCmd.AddCommand(planSaveCmd)
	planCmd.AddCommand(planImportCmd)
	planCmd.AddCommand(planRmCmd)

	planShowCmd.Flags().Bool("json", false, "Print the plan as JSON")
}

package main

import (
	"os"

	"github.com/aretw0/compass/internal/cli"
	"github.com/aretw0/compass/internal/config"
	"github.com/aretw0/compass/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Long: `Starts an interactive conversation. Replies stream as they are generated
and the itinerary is rendered whenever it changes.

The conversation is checkpointed under <user>@<plan>, so running chat again
with the same --user and --plan resumes it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		planID, _ := cmd.Flags().GetString("plan")
		interactive := term.IsTerminal(int(os.Stdin.Fd()))

		app, err := buildApp(cmd, cli.BuildOptions{SkipPlans: true}, func(c *config.Config) {
			// Keep node logs out of the conversation unless asked for.
			if interactive && !cmd.Flags().Changed("log-level") && os.Getenv("COMPASS_LOG_LEVEL") == "" {
				c.Log.Level = "warn"
			}
		})
		if err != nil {
			return err
		}
		defer app.Close()

		opts := cli.ChatOptions{
			UserID:      userID,
			PlanID:      planID,
			In:          os.Stdin,
			Out:         cmd.OutOrStdout(),
			MaxInput:    app.Config.Server.MaxInputBytes,
			Interactive: interactive,
		}
		if interactive {
			width := 0
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				width = w
			}
			if render, err := tui.NewRenderer(width); err == nil {
				opts.Render = render
			}
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.RunChat(ctx, app.Assistant, opts)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("user", "u", defaultUser(), "User identifier")
	chatCmd.Flags().String("plan", "default", "Plan identifier")
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

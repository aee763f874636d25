package main

import (
	"fmt"

	"github.com/aretw0/compass"
	"github.com/aretw0/compass/internal/cli"
	"github.com/aretw0/compass/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the assistant as an MCP server with the plan_chat and
get_itinerary tools and the compass://graph resource.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Logs always go to stderr so they never corrupt JSON-RPC on stdout.
		app, err := buildApp(cmd, cli.BuildOptions{SkipPlans: true})
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Assistant, func() string { return app.Graph(nil) }, compass.Version(),
			mcp.WithLogger(app.Logger),
			mcp.WithMaxInputSize(app.Config.Server.MaxInputBytes),
		)

		switch transport {
		case "stdio":
			app.Logger.Info("starting compass MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()
			if err := srv.ServeSSE(ctx, port); err != nil {
				return err
			}
			app.Logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}

package main

import (
	"fmt"
	"os"

	"github.com/aretw0/compass/internal/cli"
	"github.com/aretw0/compass/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "compass",
	Short: "Compass is a conversational travel-planning assistant",
	Long: `Compass collects travel preferences over a conversation, drafts and merges
itineraries with an LLM, and revises them on request.

Settings come from compass.yaml (or --config) overlaid with COMPASS_* variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config (default compass.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error, off)")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

// buildApp loads the configuration, applies the command's adjustments and
// wires the assistant.
func buildApp(cmd *cobra.Command, opts cli.BuildOptions, adjust ...func(*config.Config)) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	for _, fn := range adjust {
		fn(&cfg)
	}
	logger, err := cli.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	return cli.Build(cmd.Context(), cfg, logger, opts)
}

// withoutLLM is for commands that only read stored state.
func withoutLLM(c *config.Config) {
	c.LLM.Provider = "scripted"
}

func inMemory(c *config.Config) {
	c.Checkpoint.Backend = "memory"
}

// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naka-gawa/ctrl/internal/config"
	"github.com/naka-gawa/ctrl/internal/gateway"
	"github.com/naka-gawa/ctrl/internal/usecase"
)

var rootCmd = &cobra.Command{
	Use:   "ctrl",
	Short: "A Slack and GitHub bot that routes pull request reviews to project owners.",
	Long: `ctrl keeps a registry of projects, each tied to a Slack channel, a GitHub
repository and a set of owners. Slack slash commands manage the registry;
GitHub webhooks request reviews from owners and merge approved pull requests.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("registry", "", "Path to the registry file (overrides CTRL_REGISTRY_PATH)")
}

// newLogger builds a production logger writing to stderr, at debug level when verbose.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// loadConfig reads the environment and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) config.Config {
	cfg := config.Load()
	if path, _ := cmd.Flags().GetString("registry"); path != "" {
		cfg.Registry.Path = path
	}
	return cfg
}

// openStore opens the registry for local CLI use. Changes are committed to
// git only when the serve command runs, so the CLI never pushes.
func openStore(cfg config.Config, logger *zap.Logger) *usecase.Store {
	return usecase.NewStore(gateway.NewFileRepository(cfg.Registry.Path, nil, logger))
}


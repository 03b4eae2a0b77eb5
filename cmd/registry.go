package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspects the project registry",
}

var registryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints the normalized registry as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		r, err := openStore(loadConfig(cmd), logger).Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode registry: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryShowCmd)
}

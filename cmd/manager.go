package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/ctrl/internal/usecase"
)

var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "Manages the global project managers",
	Long: `Project managers are GitHub usernames asked to review every tracked pull
request in addition to the project owners. They have no slash command.`,
}

var managerListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the project managers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		managers, err := managersFor(cmd)
		if err != nil {
			return err
		}
		list, err := managers.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, m := range list {
			fmt.Fprintln(cmd.OutOrStdout(), m)
		}
		return nil
	},
}

var managerAddCmd = &cobra.Command{
	Use:   "add <github_username>",
	Short: "Adds a project manager",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		managers, err := managersFor(cmd)
		if err != nil {
			return err
		}
		return managers.Add(cmd.Context(), args[0])
	},
}

var managerRemoveCmd = &cobra.Command{
	Use:   "remove <github_username>",
	Short: "Removes a project manager",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		managers, err := managersFor(cmd)
		if err != nil {
			return err
		}
		return managers.Remove(cmd.Context(), args[0])
	},
}

func managersFor(cmd *cobra.Command) (*usecase.Managers, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	return usecase.NewManagers(openStore(loadConfig(cmd), logger)), nil
}

func init() {
	rootCmd.AddCommand(managerCmd)
	managerCmd.AddCommand(managerListCmd, managerAddCmd, managerRemoveCmd)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/ctrl/internal/usecase"
)

var execCmd = &cobra.Command{
	Use:   "exec <command text...>",
	Short: "Runs one slash command against the registry and outputs the result as JSON",
	Long: `Runs a single command, exactly as typed after /ctrl in Slack, on behalf of
a user in a channel and prints the result in JSON format. Example:

  ctrl exec --channel C0123 --user U0456 create website`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		channel, _ := cmd.Flags().GetString("channel")
		user, _ := cmd.Flags().GetString("user")

		store := openStore(loadConfig(cmd), logger)
		service := usecase.NewCommandService(usecase.NewExecutor(store, logger), nil, logger)
		result := service.Handle(cmd.Context(), usecase.Invocation{UserID: user, ChannelID: channel}, strings.Join(args, " "))

		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result to JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringP("channel", "c", "", "Slack channel id the command runs in")
	execCmd.Flags().StringP("user", "u", "", "Slack user id running the command")
}

// Package cli wires the service together behind a cobra command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/fieldsync/fieldsync/pkg/logger"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fieldsync",
		Short: "Synchronizes records between property management and field service platforms",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level, _ := cmd.Flags().GetString("log-level")
			logJSON, _ := cmd.Flags().GetBool("log-json")
			logger.Init(&logger.Config{
				Level: logger.LogLevel(level),
				JSON:  logJSON,
			})
		},
	}
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "emit JSON logs")

	root.AddCommand(
		ServeCmd(),
		ValidateCmd(),
	)
	return root
}

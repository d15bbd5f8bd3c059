package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldsync/fieldsync/pkg/logger"
)

func ValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate workflow definition files without running them",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			defs, err := LoadDefinitions(args[0])
			if err != nil {
				return err
			}
			for i := range defs {
				// Structural validation only; action names are checked
				// against the registry at registration time.
				if err := defs[i].Validate(nil); err != nil {
					return fmt.Errorf("invalid definition: %w", err)
				}
			}
			logger.Default().Info("definitions valid", "count", len(defs))
			return nil
		},
	}
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pendergraft/deployconf/internal/validation"
)

func createCompilerCmd() *cobra.Command {
	var require string

	cmd := &cobra.Command{
		Use:   "compiler",
		Short: "Print the pinned compiler version",
		Long: `Print the compiler version pinned by the config.

With --require, fail unless the pinned version is at least the given one.

EXAMPLES:
  deployconf compiler
  deployconf compiler --require 0.8.0
  deployconf compiler --remote http://deployconf.internal:8080
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openSource(newLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			version, err := src.CompilerVersion(context.Background())
			if err != nil {
				return err
			}

			if require != "" {
				if err := validation.ValidateVersion(require); err != nil {
					return fmt.Errorf("--require: %w", err)
				}
				if validation.CompareVersions(version, require) < 0 {
					return fmt.Errorf("compiler %s is older than required %s", version, require)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}

	cmd.Flags().StringVar(&require, "require", "", "minimum compiler version")

	return cmd
}

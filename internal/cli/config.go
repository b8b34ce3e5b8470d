package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pendergraft/deployconf/internal/netconfig"
)

// starterTOML is written by 'config init'. Accounts are env: references so
// no secret ever lands in the file.
const starterTOML = `# deployconf deployment configuration
#
# Account entries are references, never raw keys:
#   env:NAME      read from an environment variable
#   file:PATH     read from a file with 0600 permissions
#   prompt:LABEL  ask on the terminal

compiler_version = "0.8.19"

[networks.espaceTestnet]
url = "https://evm.confluxrpc.com"
accounts = ["env:DEPLOYER_PRIVATE_KEY"]
chain_id = 71

# [networks.localhost]
# url = "http://127.0.0.1:8545"
# accounts = ["env:LOCAL_DEPLOYER_KEY"]
`

const starterYAML = `# deployconf deployment configuration
#
# Account entries are references, never raw keys:
#   env:NAME      read from an environment variable
#   file:PATH     read from a file with 0600 permissions
#   prompt:LABEL  ask on the terminal

compiler_version: "0.8.19"

networks:
  espaceTestnet:
    url: https://evm.confluxrpc.com
    accounts: ["env:DEPLOYER_PRIVATE_KEY"]
    chain_id: 71
`

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigValidateCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var output string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter config file",
		Long: `Create a starter deployconf config in the current directory.

The format follows the file extension (.toml, .yaml or .yml).

EXAMPLES:
  # Create deployconf.toml
  deployconf config init

  # Create a YAML config
  deployconf config init --output deployconf.yaml

  # Overwrite existing config
  deployconf config init --force
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, output, force)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", netconfig.DefaultFiles[0], "file to write")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func runConfigInit(cmd *cobra.Command, output string, force bool) error {
	format, err := netconfig.FormatFromPath(output)
	if err != nil {
		return err
	}

	if _, err := os.Stat(output); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", output)
	}

	content := starterTOML
	if format == netconfig.FormatYAML {
		content = starterYAML
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}
	if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", output)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Edit %s to add your networks\n", output)
	fmt.Fprintln(out, "  2. export DEPLOYER_PRIVATE_KEY=...")
	fmt.Fprintln(out, "  3. deployconf resolve --network espaceTestnet --check-credentials")

	return nil
}

func createConfigValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the config and validate every network profile",
		Long: `Load the config and validate every network profile, reporting all
invalid profiles rather than stopping at the first.

EXAMPLES:
  deployconf config validate
  deployconf config validate --config ./deploy/networks.yaml
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, path, err := loadLocal()
			if err != nil {
				return err
			}
			return validateAll(cmd, store, path)
		},
	}

	return cmd
}

func validateAll(cmd *cobra.Command, store *netconfig.Store, path string) error {
	out := cmd.OutOrStdout()
	failures := store.ValidateAll()

	fmt.Fprintf(out, "%s: compiler %s, %d networks\n", path, store.CompilerVersion(), store.Len())
	for _, name := range store.Names() {
		if err, ok := failures[name]; ok {
			fmt.Fprintf(out, "  %s %s: %v\n", color.RedString("✗"), name, err)
			continue
		}
		fmt.Fprintf(out, "  %s %s\n", color.GreenString("✓"), name)
	}

	if len(failures) == 0 {
		return nil
	}

	invalid := make([]string, 0, len(failures))
	for name := range failures {
		invalid = append(invalid, name)
	}
	sort.Strings(invalid)

	errs := make([]error, 0, len(invalid))
	for _, name := range invalid {
		errs = append(errs, failures[name])
	}
	return fmt.Errorf("%d of %d network profiles invalid: %w", len(failures), store.Len(), errors.Join(errs...))
}

// Package cli implements the deployconf command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pendergraft/deployconf/internal/netconfig"
)

var (
	cfgFile string
	remote  string
	verbose bool
)

// Execute runs the CLI
func Execute(version string) error {
	rootCmd := newRootCmd(version)
	err := rootCmd.Execute()
	reportUnknownNetwork(rootCmd.ErrOrStderr(), err)
	return err
}

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deployconf",
		Short: "Deployment network configuration resolver",
		Long: `deployconf reads a declarative deployment config (compiler version and
named network profiles) and resolves networks by exact name.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: deployconf.toml, deployconf.yaml or deployconf.yml)")
	rootCmd.PersistentFlags().StringVar(&remote, "remote", "", "read from a deployconf-server at this URL instead of a local file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(createCompilerCmd())
	rootCmd.AddCommand(createNetworksCmd())
	rootCmd.AddCommand(createResolveCmd())
	rootCmd.AddCommand(createConfigCmd())

	return rootCmd
}

// ExitCode maps an error returned by Execute to a process exit code.
// Unknown networks exit 2 so scripts can tell a typo from a broken config.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, netconfig.ErrUnknownNetwork):
		return 2
	default:
		return 1
	}
}

// reportUnknownNetwork lists the configured names after an unknown network error
func reportUnknownNetwork(w io.Writer, err error) {
	var unknown *netconfig.UnknownNetworkError
	if !errors.As(err, &unknown) {
		return
	}
	if len(unknown.Available) == 0 {
		fmt.Fprintln(w, "No networks are configured.")
		return
	}
	fmt.Fprintf(w, "Available networks: %s\n", strings.Join(unknown.Available, ", "))
}

// getConfigPath returns the config file from flag, env, or the working directory
func getConfigPath() (string, error) {
	// 1. Command line flag
	if cfgFile != "" {
		return cfgFile, nil
	}

	// 2. Environment variable
	if env := os.Getenv("DEPLOYCONF_CONFIG"); env != "" {
		return env, nil
	}

	// 3. Default files in the working directory
	path, err := netconfig.FindFile(".")
	if err != nil {
		return "", fmt.Errorf("no config file found (looked for %s); run 'deployconf config init' to create one: %w",
			strings.Join(netconfig.DefaultFiles, ", "), err)
	}
	return path, nil
}

// getRemote returns the server URL from flag or env; empty means local
func getRemote() string {
	if remote != "" {
		return remote
	}
	return os.Getenv("DEPLOYCONF_REMOTE")
}

// newLogger returns the CLI's stderr logger. It is quiet unless --verbose.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func createNetworksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "networks",
		Aliases: []string{"network"},
		Short:   "Inspect configured networks",
	}

	cmd.AddCommand(createNetworksListCmd())
	cmd.AddCommand(createNetworksShowCmd())

	return cmd
}

func createNetworksListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List networks and whether each profile is valid",
		Long: `List every configured network. Profiles are validated here, so a
listing shows which networks would fail to resolve and why.

EXAMPLES:
  deployconf networks list
  deployconf networks list --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openSource(newLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			return listNetworks(cmd.OutOrStdout(), src, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func listNetworks(w io.Writer, src source, jsonOutput bool) error {
	ctx := context.Background()

	version, err := src.CompilerVersion(ctx)
	if err != nil {
		return err
	}
	networks, err := src.Networks(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(w, map[string]any{
			"compilerVersion": version,
			"networks":        networks,
			"count":           len(networks),
		})
	}

	fmt.Fprintf(w, "Compiler: %s\n\n", version)
	if len(networks) == 0 {
		fmt.Fprintln(w, "No networks configured")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tREASON")
	for _, n := range networks {
		status := color.GreenString("valid")
		if !n.Valid {
			status = color.RedString("invalid")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.Name, status, n.Reason)
	}
	return tw.Flush()
}

func createNetworksShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Resolve and show one network",
		Long: `Resolve a network by exact, case-sensitive name and show its profile.
Account references are masked.

EXAMPLES:
  deployconf networks show espaceTestnet
  deployconf networks show espaceTestnet --json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openSource(newLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			view, err := src.Network(context.Background(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			printNetwork(cmd.OutOrStdout(), view)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func printNetwork(w io.Writer, view *networkView) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, view.Name)
	fmt.Fprintf(w, "  Compiler: %s\n", view.CompilerVersion)
	fmt.Fprintf(w, "  URL:      %s\n", view.URL)
	if view.ChainID != 0 {
		fmt.Fprintf(w, "  Chain ID: %d\n", view.ChainID)
	}
	fmt.Fprintln(w, "  Accounts:")
	for _, a := range view.Accounts {
		fmt.Fprintf(w, "    - %s\n", a)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

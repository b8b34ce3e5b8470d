package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pendergraft/deployconf/internal/credentials"
)

// credentialCheck is the outcome of dereferencing one account reference
type credentialCheck struct {
	Reference string `json:"reference"`
	Resolved  bool   `json:"resolved"`
	Secret    string `json:"secret,omitempty"`
	Error     string `json:"error,omitempty"`
}

func createResolveCmd() *cobra.Command {
	var network string
	var checkCredentials bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a deployment target",
		Long: `Resolve the compiler version and a validated network profile for a
deployment. Fails if the network is unknown or its profile is invalid.

With --check-credentials every account reference is dereferenced (env:,
file: or prompt:) and only a masked form of the secret is printed. This
needs the local config file.

EXAMPLES:
  deployconf resolve --network espaceTestnet
  deployconf resolve --network espaceTestnet --check-credentials
  deployconf resolve --network espaceTestnet --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr())

			var view *networkView
			var checks []credentialCheck
			if checkCredentials {
				if getRemote() != "" {
					return errors.New("--check-credentials cannot be used with --remote: the server only returns masked references")
				}
				store, path, err := loadLocal()
				if err != nil {
					return err
				}
				logger.Debug("loaded config", "path", path)

				profile, err := store.ResolveNetwork(network)
				if err != nil {
					return err
				}
				view = &networkView{
					CompilerVersion: store.CompilerVersion(),
					Name:            profile.Name,
					URL:             profile.URL,
					Accounts:        maskAll(profile.Accounts),
					ChainID:         profile.ChainID,
				}
				checks = checkAccounts(credentials.NewResolver(), profile.Accounts)
			} else {
				src, err := openSource(logger)
				if err != nil {
					return err
				}
				view, err = src.Network(context.Background(), network)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				resp := map[string]any{
					"compilerVersion": view.CompilerVersion,
					"network":         view,
				}
				if checkCredentials {
					resp["credentials"] = checks
				}
				if err := writeJSON(out, resp); err != nil {
					return err
				}
			} else {
				printNetwork(out, view)
				if checkCredentials {
					printChecks(out, checks)
				}
			}

			if failed := countFailed(checks); failed > 0 {
				return fmt.Errorf("%d of %d account references could not be resolved", failed, len(checks))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&network, "network", "n", "", "network name (required)")
	cmd.Flags().BoolVar(&checkCredentials, "check-credentials", false, "dereference account references and report masked secrets")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("network")

	return cmd
}

// checkAccounts resolves every reference without stopping at the first failure
func checkAccounts(r *credentials.Resolver, refs []string) []credentialCheck {
	checks := make([]credentialCheck, 0, len(refs))
	for _, ref := range refs {
		check := credentialCheck{Reference: credentials.MaskReference(ref)}
		secret, err := r.Resolve(ref)
		if err != nil {
			check.Error = err.Error()
		} else {
			check.Resolved = true
			check.Secret = credentials.Mask(secret)
		}
		checks = append(checks, check)
	}
	return checks
}

func printChecks(w io.Writer, checks []credentialCheck) {
	fmt.Fprintln(w, "  Credentials:")
	for _, c := range checks {
		if c.Resolved {
			fmt.Fprintf(w, "    %s %s -> %s\n", color.GreenString("✓"), c.Reference, c.Secret)
		} else {
			fmt.Fprintf(w, "    %s %s: %s\n", color.RedString("✗"), c.Reference, c.Error)
		}
	}
}

func countFailed(checks []credentialCheck) int {
	n := 0
	for _, c := range checks {
		if !c.Resolved {
			n++
		}
	}
	return n
}

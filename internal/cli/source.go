package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pendergraft/deployconf/internal/credentials"
	"github.com/pendergraft/deployconf/internal/netconfig"
	"github.com/pendergraft/deployconf/pkg/client"
)

// networkStatus is one line of a network listing
type networkStatus struct {
	Name   string `json:"name"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// networkView is a resolved profile as shown to the user, accounts masked
type networkView struct {
	CompilerVersion string   `json:"compilerVersion"`
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Accounts        []string `json:"accounts"`
	ChainID         int      `json:"chainId,omitempty"`
}

// source is where read-only commands get their config from
type source interface {
	CompilerVersion(ctx context.Context) (string, error)
	Networks(ctx context.Context) ([]networkStatus, error)
	Network(ctx context.Context, name string) (*networkView, error)
}

// openSource returns the remote server when one is configured, otherwise
// the local config file.
func openSource(logger *slog.Logger) (source, error) {
	if url := getRemote(); url != "" {
		logger.Debug("using remote config", "server", url)
		return &remoteSource{c: client.New(url)}, nil
	}
	store, path, err := loadLocal()
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded config", "path", path, "networks", store.Len())
	return &localSource{store: store}, nil
}

// loadLocal loads the local config file
func loadLocal() (*netconfig.Store, string, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, "", err
	}
	store, err := netconfig.LoadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading %s: %w", path, err)
	}
	return store, path, nil
}

type localSource struct {
	store *netconfig.Store
}

func (s *localSource) CompilerVersion(ctx context.Context) (string, error) {
	return s.store.CompilerVersion(), nil
}

func (s *localSource) Networks(ctx context.Context) ([]networkStatus, error) {
	failures := s.store.ValidateAll()
	names := s.store.Names()
	statuses := make([]networkStatus, 0, len(names))
	for _, name := range names {
		st := networkStatus{Name: name, Valid: true}
		if err, ok := failures[name]; ok {
			st.Valid = false
			var pe *netconfig.ProfileError
			if errors.As(err, &pe) {
				st.Reason = pe.Reason
			} else {
				st.Reason = err.Error()
			}
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func (s *localSource) Network(ctx context.Context, name string) (*networkView, error) {
	p, err := s.store.ResolveNetwork(name)
	if err != nil {
		return nil, err
	}
	return &networkView{
		CompilerVersion: s.store.CompilerVersion(),
		Name:            p.Name,
		URL:             p.URL,
		Accounts:        maskAll(p.Accounts),
		ChainID:         p.ChainID,
	}, nil
}

type remoteSource struct {
	c *client.Client
}

func (s *remoteSource) CompilerVersion(ctx context.Context) (string, error) {
	v, err := s.c.GetCompiler(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching compiler version: %w", err)
	}
	return v, nil
}

func (s *remoteSource) Networks(ctx context.Context) ([]networkStatus, error) {
	list, err := s.c.ListNetworks(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing networks: %w", err)
	}
	statuses := make([]networkStatus, 0, len(list.Networks))
	for _, n := range list.Networks {
		statuses = append(statuses, networkStatus{Name: n.Name, Valid: n.Valid, Reason: n.Reason})
	}
	return statuses, nil
}

// Network maps server errors onto the local error kinds so exit codes and
// hints match local mode.
func (s *remoteSource) Network(ctx context.Context, name string) (*networkView, error) {
	n, err := s.c.GetNetwork(ctx, name)
	switch {
	case client.IsUnknownNetwork(err):
		unknown := &netconfig.UnknownNetworkError{Name: name}
		if list, lerr := s.c.ListNetworks(ctx); lerr == nil {
			for _, entry := range list.Networks {
				unknown.Available = append(unknown.Available, entry.Name)
			}
		}
		return nil, unknown
	case client.IsInvalidProfile(err):
		return nil, fmt.Errorf("%w: %w", netconfig.ErrInvalidProfile, err)
	case err != nil:
		return nil, fmt.Errorf("resolving network: %w", err)
	}
	return &networkView{
		CompilerVersion: n.CompilerVersion,
		Name:            n.Name,
		URL:             n.URL,
		Accounts:        n.Accounts,
		ChainID:         n.ChainID,
	}, nil
}

func maskAll(refs []string) []string {
	masked := make([]string, len(refs))
	for i, ref := range refs {
		masked[i] = credentials.MaskReference(ref)
	}
	return masked
}

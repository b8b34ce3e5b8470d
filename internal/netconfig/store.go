// Package netconfig resolves symbolic network names into validated deployment
// profiles and pins the compiler version for a smart-contract toolchain.
//
// A Store is built once by Load and never mutated afterwards, so a single
// instance may be shared by any number of goroutines without locking.
package netconfig

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/pendergraft/deployconf/internal/validation"
)

// Profile holds the connection and signing parameters for one network.
// Accounts are opaque credential references; this package never resolves them.
type Profile struct {
	Name     string
	URL      string
	Accounts []string
	ChainID  int // 0 when not declared
}

// Document is the format-neutral form of a declarative source.
// Networks keeps declaration order so duplicates remain visible.
type Document struct {
	CompilerVersion string
	Networks        []NetworkEntry
}

// NetworkEntry is one declared network.
type NetworkEntry struct {
	Name     string
	URL      string
	Accounts []string
	ChainID  int
}

// Store is the loaded, read-only configuration.
type Store struct {
	compilerVersion string
	networks        map[string]Profile
	names           []string
}

// Load builds a Store from a decoded document. Profiles are not validated
// here; that happens per profile in ResolveNetwork. On error no Store is
// returned.
func Load(doc Document) (*Store, error) {
	if doc.CompilerVersion == "" {
		return nil, fmt.Errorf("%w: compiler version is not set", ErrMalformedVersion)
	}
	if err := validation.ValidateVersion(doc.CompilerVersion); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedVersion, doc.CompilerVersion, err)
	}

	networks := make(map[string]Profile, len(doc.Networks))
	names := make([]string, 0, len(doc.Networks))
	for _, n := range doc.Networks {
		if err := validation.ValidateNetworkName(n.Name); err != nil {
			return nil, fmt.Errorf("%w: network %q: %v", ErrMalformedSource, n.Name, err)
		}
		if _, exists := networks[n.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNetwork, n.Name)
		}
		networks[n.Name] = Profile{
			Name:     n.Name,
			URL:      n.URL,
			Accounts: slices.Clone(n.Accounts),
			ChainID:  n.ChainID,
		}
		names = append(names, n.Name)
	}
	sort.Strings(names)

	return &Store{
		compilerVersion: doc.CompilerVersion,
		networks:        networks,
		names:           names,
	}, nil
}

// CompilerVersion returns the pinned compiler version exactly as declared.
func (s *Store) CompilerVersion() string {
	return s.compilerVersion
}

// Names returns the configured network names in sorted order.
func (s *Store) Names() []string {
	return slices.Clone(s.names)
}

// Len returns the number of configured networks.
func (s *Store) Len() int {
	return len(s.names)
}

// ResolveNetwork looks up a network by exact, case-sensitive name and
// validates it before returning. A returned profile never needs re-validation.
func (s *Store) ResolveNetwork(name string) (Profile, error) {
	p, ok := s.networks[name]
	if !ok {
		return Profile{}, &UnknownNetworkError{Name: name, Available: s.Names()}
	}
	if err := ValidateProfile(p); err != nil {
		return Profile{}, err
	}
	// Callers get their own accounts slice.
	p.Accounts = slices.Clone(p.Accounts)
	return p, nil
}

// ValidateProfile checks that url is an absolute URI and that at least one
// non-empty account reference is present. Failures are *ProfileError.
func ValidateProfile(p Profile) error {
	if err := validation.ValidateEndpoint(p.URL); err != nil {
		reason := ReasonMalformedURL
		switch {
		case errors.Is(err, validation.ErrEmptyEndpoint):
			reason = ReasonEmptyURL
		case errors.Is(err, validation.ErrRelativeEndpoint):
			reason = ReasonRelativeURL
		}
		return &ProfileError{Network: p.Name, Reason: reason, Err: err}
	}

	if len(p.Accounts) == 0 {
		return &ProfileError{Network: p.Name, Reason: ReasonNoAccounts}
	}
	for i, ref := range p.Accounts {
		if ref == "" {
			return &ProfileError{
				Network: p.Name,
				Reason:  ReasonEmptyAccount,
				Err:     fmt.Errorf("accounts[%d]", i),
			}
		}
	}

	if p.ChainID != 0 {
		if err := validation.ValidateChainID(p.ChainID); err != nil {
			return &ProfileError{Network: p.Name, Reason: ReasonInvalidChainID, Err: err}
		}
	}
	return nil
}

// ValidateAll validates every profile and returns the failures keyed by
// network name. It never stops at the first error.
func (s *Store) ValidateAll() map[string]error {
	failures := make(map[string]error)
	for _, name := range s.names {
		if err := ValidateProfile(s.networks[name]); err != nil {
			failures[name] = err
		}
	}
	return failures
}

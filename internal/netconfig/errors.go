package netconfig

import (
	"errors"
	"fmt"
)

// Configuration errors. Callers discriminate with errors.Is.
var (
	ErrMalformedVersion = errors.New("malformed compiler version")
	ErrDuplicateNetwork = errors.New("duplicate network")
	ErrUnknownNetwork   = errors.New("unknown network")
	ErrInvalidProfile   = errors.New("invalid network profile")
	ErrMalformedSource  = errors.New("malformed config source")
)

// Reasons reported by ProfileError.
const (
	ReasonEmptyURL       = "empty url"
	ReasonMalformedURL   = "malformed url"
	ReasonRelativeURL    = "url not absolute"
	ReasonNoAccounts     = "no accounts"
	ReasonEmptyAccount   = "empty account reference"
	ReasonInvalidChainID = "invalid chain id"
)

// ProfileError describes why a network profile failed validation.
type ProfileError struct {
	Network string
	Reason  string
	Err     error // underlying parse error, if any
}

func (e *ProfileError) Error() string {
	msg := fmt.Sprintf("%s %q: %s", ErrInvalidProfile, e.Network, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports ErrInvalidProfile so callers need not know the concrete type.
func (e *ProfileError) Is(target error) bool {
	return target == ErrInvalidProfile
}

func (e *ProfileError) Unwrap() error {
	return e.Err
}

// UnknownNetworkError carries the names that were available, so a CLI can
// offer them instead of failing bare.
type UnknownNetworkError struct {
	Name      string
	Available []string
}

func (e *UnknownNetworkError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownNetwork, e.Name)
}

func (e *UnknownNetworkError) Is(target error) bool {
	return target == ErrUnknownNetwork
}

// Package validation provides input validation for deployconf.
package validation

import (
	"errors"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/mod/semver"
)

// Endpoint validation errors
var (
	ErrEmptyEndpoint     = errors.New("endpoint is empty")
	ErrMalformedEndpoint = errors.New("endpoint is not a valid URI")
	ErrRelativeEndpoint  = errors.New("endpoint is not an absolute URI")
)

// ValidateVersion validates a semantic version string
func ValidateVersion(v string) error {
	// Normalize: strip leading 'v' if present, then add it back for semver library
	normalized := strings.TrimPrefix(v, "v")
	if normalized == "" {
		return errors.New("version cannot be empty")
	}

	// semver library expects version to start with 'v'
	if !semver.IsValid("v" + normalized) {
		return errors.New("invalid semver version: must be in format X.Y.Z or X.Y.Z-prerelease")
	}

	// semver.IsValid accepts "v1" and "v1.2"; require major.minor.patch
	mainPart := strings.SplitN(normalized, "-", 2)[0]
	mainPart = strings.SplitN(mainPart, "+", 2)[0]
	if strings.Count(mainPart, ".") < 2 {
		return errors.New("invalid semver version: must be in format X.Y.Z (major.minor.patch)")
	}

	return nil
}

// CompareVersions compares two versions
// Returns -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	return semver.Compare("v"+strings.TrimPrefix(v1, "v"), "v"+strings.TrimPrefix(v2, "v"))
}

// ValidateChainID validates a chain ID
func ValidateChainID(chainID int) error {
	if chainID <= 0 {
		return errors.New("chain ID must be positive")
	}
	return nil
}

// ValidateNetworkName validates a network name. Names are matched exactly,
// so only characters that would break lookups or URL paths are rejected.
func ValidateNetworkName(name string) error {
	if name == "" {
		return errors.New("network name cannot be empty")
	}
	if len(name) > 128 {
		return errors.New("network name too long (max 128 chars)")
	}
	for _, c := range name {
		if unicode.IsSpace(c) || unicode.IsControl(c) {
			return errors.New("network name cannot contain whitespace or control characters")
		}
		if c == '/' || c == '?' || c == '#' {
			return errors.New("network name cannot contain '/', '?' or '#'")
		}
	}
	return nil
}

// ValidateEndpoint checks that raw is a syntactically valid absolute URI.
func ValidateEndpoint(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyEndpoint
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Join(ErrMalformedEndpoint, err)
	}
	if !u.IsAbs() {
		return ErrRelativeEndpoint
	}
	// "https:" alone parses as absolute but names nothing
	if u.Host == "" && u.Opaque == "" && u.Path == "" {
		return ErrMalformedEndpoint
	}
	return nil
}

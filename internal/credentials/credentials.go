// Package credentials turns account references from a network profile into
// signer material. It sits on the signing side of the boundary: the config
// store hands out references, and only this package ever dereferences them.
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/term"
)

// Reference schemes
const (
	SchemeEnv    = "env"
	SchemeFile   = "file"
	SchemePrompt = "prompt"
)

// Common credential errors
var (
	ErrRawSecret         = errors.New("account entry looks like a raw private key; use env:, file: or prompt: instead")
	ErrUnsupportedScheme = errors.New("unsupported credential reference scheme")
	ErrEmptySecret       = errors.New("credential reference resolved to an empty value")
	ErrInsecureFile      = errors.New("credential file is readable by group or others")
)

var rawKeyRegex = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}$`)

// Reference is a parsed account reference.
type Reference struct {
	Scheme string
	Target string
}

func (r Reference) String() string {
	return r.Scheme + ":" + r.Target
}

// Parse splits a reference into scheme and target.
func Parse(ref string) (Reference, error) {
	if rawKeyRegex.MatchString(ref) {
		return Reference{}, ErrRawSecret
	}
	scheme, target, ok := strings.Cut(ref, ":")
	if !ok || target == "" {
		return Reference{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, Mask(ref))
	}
	switch scheme {
	case SchemeEnv, SchemeFile, SchemePrompt:
		return Reference{Scheme: scheme, Target: target}, nil
	default:
		return Reference{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

// Resolver dereferences account references.
type Resolver struct {
	lookupEnv func(string) (string, bool)
	readFile  func(string) ([]byte, error)
	statFile  func(string) (os.FileInfo, error)
	stdin     *os.File
	prompt    io.Writer
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLookupEnv replaces os.LookupEnv
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Resolver) {
		r.lookupEnv = fn
	}
}

// WithPromptIO sets the terminal used for prompt: references
func WithPromptIO(in *os.File, out io.Writer) Option {
	return func(r *Resolver) {
		r.stdin = in
		r.prompt = out
	}
}

// NewResolver creates a resolver backed by the process environment,
// filesystem and terminal.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		lookupEnv: os.LookupEnv,
		readFile:  os.ReadFile,
		statFile:  os.Stat,
		stdin:     os.Stdin,
		prompt:    os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the secret behind ref. The secret must never be logged.
func (r *Resolver) Resolve(ref string) (string, error) {
	parsed, err := Parse(ref)
	if err != nil {
		return "", err
	}

	var secret string
	switch parsed.Scheme {
	case SchemeEnv:
		value, ok := r.lookupEnv(parsed.Target)
		if !ok {
			return "", fmt.Errorf("environment variable %s is not set", parsed.Target)
		}
		secret = value
	case SchemeFile:
		secret, err = r.resolveFile(parsed.Target)
	case SchemePrompt:
		secret, err = r.resolvePrompt(parsed.Target)
	}
	if err != nil {
		return "", err
	}

	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, parsed)
	}
	return secret, nil
}

// ResolveAll resolves every reference, stopping at the first failure.
func (r *Resolver) ResolveAll(refs []string) ([]string, error) {
	secrets := make([]string, 0, len(refs))
	for i, ref := range refs {
		s, err := r.Resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("accounts[%d]: %w", i, err)
		}
		secrets = append(secrets, s)
	}
	return secrets, nil
}

func (r *Resolver) resolveFile(path string) (string, error) {
	info, err := r.statFile(path)
	if err != nil {
		return "", fmt.Errorf("reading credential file: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return "", fmt.Errorf("%w: %s (mode %04o)", ErrInsecureFile, path, info.Mode().Perm())
	}
	data, err := r.readFile(path)
	if err != nil {
		return "", fmt.Errorf("reading credential file: %w", err)
	}
	return string(data), nil
}

func (r *Resolver) resolvePrompt(label string) (string, error) {
	fmt.Fprintf(r.prompt, "Enter key for %s: ", label)

	// Try to read without echo
	fd := int(r.stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(r.prompt)
		if err != nil {
			return "", fmt.Errorf("reading key for %s: %w", label, err)
		}
		return string(b), nil
	}

	// Non-terminal, read a line from stdin
	line, err := bufio.NewReader(r.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading key for %s: %w", label, err)
	}
	return line, nil
}

// Mask redacts a secret or reference for display. Private keys are never
// partially shown.
func Mask(s string) string {
	if len(s) <= 8 || rawKeyRegex.MatchString(s) {
		return "****"
	}
	return s[:8] + "..." + s[len(s)-4:]
}

// MaskReference keeps the scheme visible and redacts most of the target.
func MaskReference(ref string) string {
	scheme, target, ok := strings.Cut(ref, ":")
	if !ok || rawKeyRegex.MatchString(ref) {
		return Mask(ref)
	}
	if len(target) <= 4 {
		return scheme + ":****"
	}
	return scheme + ":" + target[:2] + "..." + target[len(target)-2:]
}

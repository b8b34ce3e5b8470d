package netconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format identifies the serialization of a declarative source.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// DefaultFiles is the search order used when no config path is given.
var DefaultFiles = []string{"deployconf.toml", "deployconf.yaml", "deployconf.yml"}

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported config file extension: %q", filepath.Ext(path))
	}
}

// LoadFile reads, decodes and loads a config file.
func LoadFile(path string) (*Store, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return LoadBytes(data, format)
}

// LoadReader decodes and loads a config from r.
func LoadReader(r io.Reader, format Format) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return LoadBytes(data, format)
}

// LoadBytes decodes and loads a config held in memory.
func LoadBytes(data []byte, format Format) (*Store, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return Load(doc)
}

// FindFile returns the first default config file present in dir.
func FindFile(dir string) (string, error) {
	for _, name := range DefaultFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", os.ErrNotExist
}

// Decode parses data into a Document without applying any validation.
func Decode(data []byte, format Format) (Document, error) {
	switch format {
	case FormatTOML:
		return decodeTOML(data)
	case FormatYAML:
		return decodeYAML(data)
	default:
		return Document{}, fmt.Errorf("unsupported config format: %q", format)
	}
}

type tomlDocument struct {
	CompilerVersion any                    `toml:"compiler_version"`
	Networks        map[string]tomlNetwork `toml:"networks"`
	Network         []tomlNamedNetwork     `toml:"network"`
}

type tomlNetwork struct {
	URL      string   `toml:"url"`
	Accounts []string `toml:"accounts"`
	ChainID  int      `toml:"chain_id"`
}

type tomlNamedNetwork struct {
	Name     string   `toml:"name"`
	URL      string   `toml:"url"`
	Accounts []string `toml:"accounts"`
	ChainID  int      `toml:"chain_id"`
}

func decodeTOML(data []byte) (Document, error) {
	var raw tomlDocument
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		if name, ok := redefinedNetwork(err); ok {
			return Document{}, fmt.Errorf("%w: %q", ErrDuplicateNetwork, name)
		}
		return Document{}, fmt.Errorf("%w: parsing TOML: %v", ErrMalformedSource, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Document{}, fmt.Errorf("%w: unknown keys: %s", ErrMalformedSource, strings.Join(keys, ", "))
	}

	var doc Document
	switch v := raw.CompilerVersion.(type) {
	case nil:
	case string:
		doc.CompilerVersion = v
	default:
		return Document{}, fmt.Errorf("%w: compiler_version must be a string, got %v", ErrMalformedVersion, v)
	}

	// Map keys have no declaration order; sort so output is stable.
	names := make([]string, 0, len(raw.Networks))
	for name := range raw.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n := raw.Networks[name]
		doc.Networks = append(doc.Networks, NetworkEntry{
			Name:     name,
			URL:      n.URL,
			Accounts: n.Accounts,
			ChainID:  n.ChainID,
		})
	}
	for _, n := range raw.Network {
		doc.Networks = append(doc.Networks, NetworkEntry(n))
	}
	return doc, nil
}

var redefinedKeyRegex = regexp.MustCompile(`^Key '(.+)' has already been defined`)

// redefinedNetwork reports the network name when err is the TOML parser
// rejecting a second [networks.<name>] table.
func redefinedNetwork(err error) (string, bool) {
	var pe toml.ParseError
	if !errors.As(err, &pe) {
		return "", false
	}
	m := redefinedKeyRegex.FindStringSubmatch(pe.Message)
	if m == nil {
		return "", false
	}
	rest, ok := strings.CutPrefix(m[1], "networks.")
	if !ok || rest == "" {
		return "", false
	}
	if strings.HasPrefix(rest, `"`) {
		name, err := strconv.Unquote(rest)
		return name, err == nil
	}
	// networks.<name>.url and friends are repeated fields, not networks
	if strings.Contains(rest, ".") {
		return "", false
	}
	return rest, true
}

type yamlNetwork struct {
	URL      string   `yaml:"url"`
	Accounts []string `yaml:"accounts"`
	ChainID  int      `yaml:"chain_id"`
}

// decodeYAML walks the node tree by hand: decoding straight into a map would
// either fail with a generic parser error or drop repeated network keys.
func decodeYAML(data []byte) (Document, error) {
	var root yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, nil
		}
		return Document{}, fmt.Errorf("%w: parsing YAML: %v", ErrMalformedSource, err)
	}
	if len(root.Content) == 0 {
		return Document{}, nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return Document{}, fmt.Errorf("%w: top level must be a mapping", ErrMalformedSource)
	}

	var doc Document
	seenVersion := false
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i], top.Content[i+1]
		switch key.Value {
		case "compiler_version":
			if seenVersion {
				return Document{}, fmt.Errorf("%w: compiler_version declared twice (line %d)", ErrMalformedSource, key.Line)
			}
			seenVersion = true
			if val.Kind != yaml.ScalarNode {
				return Document{}, fmt.Errorf("%w: compiler_version must be a string", ErrMalformedVersion)
			}
			doc.CompilerVersion = val.Value
		case "networks":
			entries, err := decodeYAMLNetworks(val)
			if err != nil {
				return Document{}, err
			}
			// A repeated networks block is merged so Load sees every name.
			doc.Networks = append(doc.Networks, entries...)
		default:
			return Document{}, fmt.Errorf("%w: unknown key %q (line %d)", ErrMalformedSource, key.Value, key.Line)
		}
	}
	return doc, nil
}

func decodeYAMLNetworks(node *yaml.Node) ([]NetworkEntry, error) {
	// "networks:" with nothing under it
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: networks must be a mapping (line %d)", ErrMalformedSource, node.Line)
	}

	entries := make([]NetworkEntry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if err := checkYAMLNetworkKeys(key.Value, val); err != nil {
			return nil, err
		}
		var n yamlNetwork
		if err := val.Decode(&n); err != nil {
			return nil, fmt.Errorf("%w: network %q (line %d): %v", ErrMalformedSource, key.Value, key.Line, err)
		}
		entries = append(entries, NetworkEntry{
			Name:     key.Value,
			URL:      n.URL,
			Accounts: n.Accounts,
			ChainID:  n.ChainID,
		})
	}
	return entries, nil
}

var yamlNetworkKeys = map[string]bool{"url": true, "accounts": true, "chain_id": true}

func checkYAMLNetworkKeys(name string, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if k := node.Content[i]; !yamlNetworkKeys[k.Value] {
			return fmt.Errorf("%w: network %q: unknown key %q (line %d)", ErrMalformedSource, name, k.Value, k.Line)
		}
	}
	return nil
}

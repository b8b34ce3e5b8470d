package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// generateID generates a new UUID
func generateID() string {
	return uuid.New().String()
}

// ContentHash computes the SHA256 hash of a config source
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

func encodeNetworks(networks []string) (string, error) {
	if networks == nil {
		networks = []string{}
	}
	b, err := json.Marshal(networks)
	if err != nil {
		return "", fmt.Errorf("encoding networks: %w", err)
	}
	return string(b), nil
}

func decodeNetworks(raw []byte) ([]string, error) {
	var networks []string
	if len(raw) == 0 {
		return networks, nil
	}
	if err := json.Unmarshal(raw, &networks); err != nil {
		return nil, fmt.Errorf("decoding networks: %w", err)
	}
	return networks, nil
}

// clampLimit applies the default and maximum page size
func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}

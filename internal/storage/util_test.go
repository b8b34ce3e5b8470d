package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	id := generateID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, generateID())
}

func TestContentHash(t *testing.T) {
	// sha256("")
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHash(nil))
	assert.Equal(t, ContentHash([]byte("a")), ContentHash([]byte("a")))
	assert.NotEqual(t, ContentHash([]byte("a")), ContentHash([]byte("b")))
}

func TestNetworksEncoding(t *testing.T) {
	raw, err := encodeNetworks(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	raw, err = encodeNetworks([]string{"testnet", "mainnet"})
	require.NoError(t, err)

	got, err := decodeNetworks([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"testnet", "mainnet"}, got)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, clampLimit(0))
	assert.Equal(t, 50, clampLimit(-3))
	assert.Equal(t, 10, clampLimit(10))
	assert.Equal(t, 500, clampLimit(10000))
}

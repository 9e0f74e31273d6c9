package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/forgaile/internal/crypto"
)

func TestGenerateRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cookie.key")
	require.NoError(t, generate(path))

	key, err := crypto.LoadKeyFile(path)
	require.NoError(t, err)
	assert.Len(t, key, crypto.KeySize)

	err = generate(path)
	assert.ErrorContains(t, err, "Refusing to overwrite")
}

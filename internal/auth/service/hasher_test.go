package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher()

	hash, err := h.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	assert.True(t, h.Compare("password123", hash))
	assert.False(t, h.Compare("wrong-password", hash))
	assert.False(t, h.Compare("password123", "not-a-bcrypt-hash"))
}

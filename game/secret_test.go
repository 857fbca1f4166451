package game

import (
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretVerifierPlain(t *testing.T) {
	v := NewSecretVerifier("hunter2")

	assert.True(t, v.Verify("hunter2"))
	assert.False(t, v.Verify("hunter3"))
	assert.False(t, v.Verify(""))
}

func TestSecretVerifierHashed(t *testing.T) {
	hash, err := argon2id.CreateHash("hunter2", argon2id.DefaultParams)
	require.NoError(t, err)

	v := NewSecretVerifier(hash)

	assert.True(t, v.Verify("hunter2"))
	assert.False(t, v.Verify("hunter3"))

	// A candidate is never compared against the hash as literal text.
	assert.False(t, v.Verify(hash))
}

func TestSecretVerifierMalformedHash(t *testing.T) {
	v := NewSecretVerifier("$argon2id$not-a-real-hash")

	assert.False(t, v.Verify("anything"))
}

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("Secret123!")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotContains(t, hash, "Secret123!")

	assert.True(t, h.Verify(hash, "Secret123!"))
	assert.False(t, h.Verify(hash, "secret123!"))
	assert.False(t, h.Verify(hash, ""))
}

func TestPasswordHashIsSalted(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	h1, err := h.Hash("Secret123!")
	require.NoError(t, err)
	h2, err := h.Hash("Secret123!")
	require.NoError(t, err)

	// Per-call random salt: same input, different output, both verify.
	assert.NotEqual(t, h1, h2)
	assert.True(t, h.Verify(h1, "Secret123!"))
	assert.True(t, h.Verify(h2, "Secret123!"))
}

func TestVerifyMalformedHashIsNonMatch(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	assert.False(t, h.Verify("", "Secret123!"))
	assert.False(t, h.Verify("not-a-bcrypt-hash", "Secret123!"))
	assert.False(t, h.Verify("$2a$zz$broken", "Secret123!"))
}

func TestHasherCostFallback(t *testing.T) {
	// Out-of-range costs must not panic bcrypt; they fall back to default.
	h := NewPasswordHasher(99)
	hash, err := h.Hash("Secret123!")
	require.NoError(t, err)
	assert.True(t, h.Verify(hash, "Secret123!"))
}

func TestConcurrentHashing(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	done := make(chan string, 16)
	for i := 0; i < 16; i++ {
		go func() {
			hash, err := h.Hash("Secret123!")
			assert.NoError(t, err)
			done <- hash
		}()
	}
	for i := 0; i < 16; i++ {
		hash := <-done
		assert.True(t, h.Verify(hash, "Secret123!"))
	}
}

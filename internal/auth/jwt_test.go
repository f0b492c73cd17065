package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-do-not-use"

func TestIssueAndParseAccess(t *testing.T) {
	iss := NewTokenIssuer(testSecret, 15, 7)

	tok, err := iss.IssueAccess(42, "customer")
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)
	require.NotEmpty(t, tok.JTI)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), tok.Exp, 5*time.Second)

	claims, err := iss.ParseAccess(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "customer", claims.Role)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, tok.JTI, claims.JTI)
	assert.WithinDuration(t, tok.Exp, claims.ExpiresAt, time.Second)
}

func TestParseAccessWrongSecret(t *testing.T) {
	iss := NewTokenIssuer(testSecret, 15, 7)
	other := NewTokenIssuer("a-different-secret", 15, 7)

	tok, err := iss.IssueAccess(1, "customer")
	require.NoError(t, err)

	_, err = other.ParseAccess(tok.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseAccessExpired(t *testing.T) {
	// TTL well in the past, beyond the 30s leeway.
	iss := NewTokenIssuer(testSecret, -5, 7)

	tok, err := iss.IssueAccess(1, "customer")
	require.NoError(t, err)

	_, err = iss.ParseAccess(tok.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseAccessWithinLeeway(t *testing.T) {
	// A token that expired 10 seconds ago must still validate: the allowed
	// clock skew is 30s.
	iss := NewTokenIssuer(testSecret, 15, 7)
	now := time.Now().UTC()
	raw := signTestToken(t, jwt.MapClaims{
		"sub":  float64(7),
		"role": "customer",
		"typ":  "access",
		"jti":  "leeway-test",
		"exp":  now.Add(-10 * time.Second).Unix(),
		"iat":  now.Add(-time.Minute).Unix(),
	})

	claims, err := iss.ParseAccess(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)
}

func TestParseAccessRejectsWrongType(t *testing.T) {
	iss := NewTokenIssuer(testSecret, 15, 7)
	now := time.Now().UTC()
	raw := signTestToken(t, jwt.MapClaims{
		"sub":  float64(7),
		"role": "customer",
		"typ":  "refresh",
		"jti":  "typ-test",
		"exp":  now.Add(time.Hour).Unix(),
		"iat":  now.Unix(),
	})

	_, err := iss.ParseAccess(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseAccessRejectsGarbage(t *testing.T) {
	iss := NewTokenIssuer(testSecret, 15, 7)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := iss.ParseAccess(raw)
		assert.ErrorIs(t, err, ErrTokenInvalid, "input %q", raw)
	}
}

func TestIssueRefresh(t *testing.T) {
	iss := NewTokenIssuer(testSecret, 15, 7)

	r1, err := iss.IssueRefresh()
	require.NoError(t, err)
	r2, err := iss.IssueRefresh()
	require.NoError(t, err)

	assert.Len(t, r1.Raw, 96) // 48 random bytes, hex encoded
	assert.NotEqual(t, r1.Raw, r2.Raw)
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), r1.Exp, 5*time.Second)
}

func TestHashRefreshRaw(t *testing.T) {
	h1 := HashRefreshRaw("some-token")
	h2 := HashRefreshRaw("some-token")
	h3 := HashRefreshRaw("other-token")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64) // sha256 hex
	assert.NotContains(t, h1, "some-token")
}

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

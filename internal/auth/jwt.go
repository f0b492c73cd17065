package auth

import (
	"crypto/rand"   // secure random data for refresh tokens
	"crypto/sha256" // SHA-256 hashing for refresh tokens
	"encoding/hex"  // hex encoding of random bytes and digests
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
	"github.com/google/uuid"       // jti claim values
)

// Leeway is the clock skew tolerated when validating token expiry.  Issuing
// and validating hosts are not guaranteed to share a perfectly synced clock.
const Leeway = 30 * time.Second

// typAccess is the token-type claim value for access tokens.  Refresh tokens
// are opaque random strings and never parse as JWTs, but the claim still
// guards against any signed token from another context being replayed here.
const typAccess = "access"

// AccessToken is a signed HS256 JWT access token along with its identifier
// and expiry.  Access tokens are short-lived and sent in the Authorization
// header when calling protected endpoints.  The JTI identifies the token in
// the revocation set after logout.
type AccessToken struct {
	Token string    // the serialized JWT string
	JTI   string    // unique token identifier (uuid)
	Exp   time.Time // the UTC expiration time
}

// RefreshToken is a long-lived opaque token used to mint new access tokens.
// Raw is returned to the client exactly once; the database only ever stores
// its SHA-256 hash so a leaked table cannot be replayed.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// Claims is the validated content of an access token.
type Claims struct {
	UserID    uint64
	Role      string
	TokenType string
	JTI       string
	ExpiresAt time.Time
}

// TokenIssuer mints and validates tokens.  It depends only on the signing
// secret and the configured lifetimes, never on the credential store, so
// access-token validity is checkable without a database round-trip.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer builds an issuer from the configured secret and lifetimes
// (access in minutes, refresh in days).
func NewTokenIssuer(secret string, accessTTLMin, refreshTTLDays int) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  time.Duration(accessTTLMin) * time.Minute,
		refreshTTL: time.Duration(refreshTTLDays) * 24 * time.Hour,
	}
}

// IssueAccess builds and signs an HS256 JWT for a user.  The claims carry
// the subject (sub), role, token type (typ), token id (jti), expiry (exp)
// and issued-at (iat).
func (i *TokenIssuer) IssueAccess(userID uint64, role string) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(i.accessTTL)
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"typ":  typAccess,
		"jti":  jti,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, JTI: jti, Exp: exp}, nil
}

// IssueRefresh returns a cryptographically random opaque token (48 bytes,
// hex encoded) and its expiration time.
func (i *TokenIssuer) IssueRefresh() (RefreshToken, error) {
	raw, err := randomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(i.refreshTTL),
	}, nil
}

// ParseAccess validates a signed access token and returns its claims.
// Failures map onto the package sentinels: ErrTokenExpired when only the
// expiry (beyond Leeway) is wrong, ErrTokenInvalid for everything else
// (bad signature, wrong algorithm, wrong typ, malformed claims).
func (i *TokenIssuer) ParseAccess(raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return i.secret, nil
	}, jwt.WithLeeway(Leeway))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenInvalid
	}
	sub, ok := mc["sub"].(float64) // JSON numbers decode as float64
	if !ok || sub <= 0 {
		return Claims{}, ErrTokenInvalid
	}
	role, _ := mc["role"].(string)
	typ, _ := mc["typ"].(string)
	jti, _ := mc["jti"].(string)
	if typ != typAccess || jti == "" {
		return Claims{}, ErrTokenInvalid
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, ErrTokenInvalid
	}

	return Claims{
		UserID:    uint64(sub),
		Role:      role,
		TokenType: typ,
		JTI:       jti,
		ExpiresAt: exp.Time,
	}, nil
}

// HashRefreshRaw returns the SHA-256 hash of a raw refresh token as a hex
// string.  Only this digest is ever persisted.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

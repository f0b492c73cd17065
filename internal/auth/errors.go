// Package auth implements the session core of the backend: password
// hashing, token issuance and validation, the access-token revocation set
// and the service that orchestrates register/login/refresh/logout and
// password changes on top of the credential store.
package auth

import (
	"errors"
	"sort"
	"strings"
)

// Sentinel errors returned by the Service.  Handlers translate these into
// HTTP status codes; everything not listed here is treated as an internal
// error and surfaced to the client as an opaque 500.
var (
	// ErrInvalidCredentials covers unknown user, wrong password and
	// deactivated accounts alike.  The response never reveals which of the
	// three happened, to prevent account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrWeakPassword is returned when a new password fails the strength
	// policy during a password change.
	ErrWeakPassword = errors.New("weak password")

	// ErrTokenExpired means the token's expiry (with allowed skew) has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid means the token is malformed, wrongly signed or unknown.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenRevoked means the token was explicitly invalidated before its
	// natural expiry (logout, rotation replay or password change).
	ErrTokenRevoked = errors.New("token revoked")

	// ErrReauthRequired means the refresh-token chain has reached its
	// configured rotation budget and the client must log in again.
	ErrReauthRequired = errors.New("re-authentication required")
)

// FieldErrors is a field name to message mapping collected during request
// validation.  It implements error so the service can return it through the
// normal error path while handlers render it as a structured 400 body.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

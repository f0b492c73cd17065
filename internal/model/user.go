package model

import "time"

// Role names stored in the users.role column.  Registration defaults to
// RoleCustomer; staff and admin accounts are provisioned separately.
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// ValidRole reports whether s is one of the known role names.
func ValidRole(s string) bool {
	return s == RoleCustomer || s == RoleStaff || s == RoleAdmin
}

// User represents an application user record as stored in the `users` table.
// Usernames and emails are persisted lower-cased so the unique indexes give
// case-insensitive uniqueness.  Accounts are never physically deleted; the
// IsActive flag soft-deactivates them instead.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name (lower-cased).
//	Email        – unique email address (lower-cased).
//	PasswordHash – bcrypt hashed password; the plaintext is never stored.
//	Role         – role name (customer, staff or admin).
//	FirstName    – optional given name.
//	LastName     – optional family name.
//	Phone        – optional contact number.
//	IsActive     – whether the account is active.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	Phone        string    // users.phone
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each refresh
// token belongs to a user and carries metadata for expiry, revocation and
// rotation accounting.  The plain token is not stored; only its SHA-256 hash.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the token.
//	TokenHash – SHA-256 hex digest of the token value.
//	ChainLen  – how many rotations preceded this token since the last login.
//	ExpiresAt – expiration timestamp of the token.
//	RevokedAt – when the token was revoked (null if still active).
//	CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ChainLen  int        // refresh_tokens.chain_len
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

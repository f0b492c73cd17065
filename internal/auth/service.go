package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rentiva/car-rental-backend/internal/model"
	"github.com/rentiva/car-rental-backend/internal/queue"
	"github.com/rentiva/car-rental-backend/internal/repository"
)

// UserStore is the credential store contract the service depends on.  The
// MySQL implementation lives in internal/repository; tests substitute an
// in-memory fake.  Create must enforce uniqueness atomically and return
// repository.ErrDuplicateUser on collision; lookups return
// repository.ErrNotFound when no row matches.
type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePasswordHash(ctx context.Context, id uint64, hash string) error
	UpdateProfile(ctx context.Context, id uint64, firstName, lastName, phone string) error
	UpdateRole(ctx context.Context, id uint64, role string) error
}

// TokenStore persists refresh tokens by hash.  Find returns
// repository.ErrNotFound for unknown hashes; expiry and revocation state are
// judged by the service from the returned row.  Claim must revoke atomically:
// of concurrent claims on the same active hash exactly one succeeds and the
// rest return repository.ErrNotFound.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time, chainLen int) error
	Find(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	Claim(ctx context.Context, tokenHash string) error
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// EventPublisher pushes account events to the broker.  Publishing is
// best-effort: a broker outage must never fail the request that triggered
// the event.
type EventPublisher interface {
	PublishUserEvent(ctx context.Context, ev queue.UserEvent) error
}

// Credentials is the result of any operation that authenticates a session:
// the user plus a fresh access/refresh pair.
type Credentials struct {
	User    model.User
	Access  AccessToken
	Refresh RefreshToken
}

// Service orchestrates the session state machine (anonymous -> authenticated
// -> expired/logged-out) over the store, hasher, issuer and revocation set.
// It is safe for concurrent use; all mutable state lives in its
// collaborators.
type Service struct {
	users    UserStore
	tokens   TokenStore
	hasher   *PasswordHasher
	issuer   *TokenIssuer
	revoker  Revoker
	events   EventPublisher
	log      zerolog.Logger
	chainMax int
}

// NewService wires the auth service.  events may be nil when no broker is
// configured.  chainMax bounds how many rotations a refresh chain survives
// before the client must log in again; values below 1 fall back to 1.
func NewService(users UserStore, tokens TokenStore, hasher *PasswordHasher, issuer *TokenIssuer,
	revoker Revoker, events EventPublisher, log zerolog.Logger, chainMax int) *Service {
	if chainMax < 1 {
		chainMax = 1
	}
	return &Service{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		issuer:   issuer,
		revoker:  revoker,
		events:   events,
		log:      log,
		chainMax: chainMax,
	}
}

// Register validates the input, hashes the password and creates the account.
// Registration auto-authenticates: the new user gets a token pair
// immediately.  Validation failures come back as FieldErrors; a username or
// email collision surfaces repository.ErrDuplicateUser.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Credentials, error) {
	in.Normalize()
	if fe := ValidateRegistration(in); fe != nil {
		return Credentials{}, fe
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Credentials{}, err
	}

	id, err := s.users.Create(ctx, model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
	})
	if err != nil {
		return Credentials{}, err
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return Credentials{}, err
	}

	creds, err := s.issuePair(ctx, u, 0)
	if err != nil {
		return Credentials{}, err
	}
	s.publish(ctx, queue.EventUserRegistered, u)
	return creds, nil
}

// Login verifies the credentials and issues a fresh pair.  Unknown username,
// wrong password and deactivated account all collapse into
// ErrInvalidCredentials so responses cannot be used to enumerate accounts.
func (s *Service) Login(ctx context.Context, username, password string) (Credentials, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return Credentials{}, ErrInvalidCredentials
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a verify against a throwaway hash so the miss costs the
			// same as a wrong password would.
			s.hasher.Verify(timingDummyHash, password)
			return Credentials{}, ErrInvalidCredentials
		}
		return Credentials{}, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) || !u.IsActive {
		return Credentials{}, ErrInvalidCredentials
	}

	return s.issuePair(ctx, u, 0)
}

// Refresh rotates a refresh token: the presented token is validated by its
// hash, revoked, and replaced together with a new access token.  Replaying a
// rotated token fails with ErrTokenRevoked.  Once the chain has been rotated
// chainMax times the service demands a fresh login instead.
func (s *Service) Refresh(ctx context.Context, raw string) (Credentials, error) {
	if raw == "" {
		return Credentials{}, ErrTokenInvalid
	}
	hash := HashRefreshRaw(raw)

	row, err := s.tokens.Find(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Credentials{}, ErrTokenInvalid
		}
		return Credentials{}, err
	}
	switch {
	case row.RevokedAt != nil:
		return Credentials{}, ErrTokenRevoked
	case time.Now().UTC().After(row.ExpiresAt):
		return Credentials{}, ErrTokenExpired
	case row.ChainLen+1 >= s.chainMax:
		// Rotation budget spent.  Kill the chain so the token cannot be
		// retried against a relaxed config later.
		_ = s.tokens.RevokeByHash(ctx, hash)
		return Credentials{}, ErrReauthRequired
	}

	// The claim is the linearization point of the rotation: two concurrent
	// refreshes of the same token can both pass the Find checks above, but
	// only the claim winner mints a new pair.  The loser is a replay.
	if err := s.tokens.Claim(ctx, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Credentials{}, ErrTokenRevoked
		}
		return Credentials{}, err
	}

	u, err := s.users.GetByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Credentials{}, ErrTokenInvalid
		}
		return Credentials{}, err
	}
	if !u.IsActive {
		return Credentials{}, ErrTokenRevoked
	}

	return s.issuePair(ctx, u, row.ChainLen+1)
}

// Logout genuinely revokes the session rather than acknowledging a no-op:
// the presented refresh token is revoked in the store (or every token for
// the user when none is given), and the access token's jti is deny-listed
// for its remaining lifetime so the middleware rejects it immediately.
func (s *Service) Logout(ctx context.Context, userID uint64, jti string, accessExp time.Time, refreshRaw string) error {
	if refreshRaw != "" {
		if err := s.tokens.RevokeByHash(ctx, HashRefreshRaw(refreshRaw)); err != nil {
			return err
		}
	} else {
		if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
			return err
		}
	}

	if jti != "" {
		if err := s.revoker.Revoke(ctx, jti, time.Until(accessExp)); err != nil {
			// The refresh side is already dead; an unreachable revocation set
			// only shortens the damage window to the access TTL.
			s.log.Warn().Err(err).Uint64("user_id", userID).Msg("access token revocation failed")
		}
	}

	if u, err := s.users.GetByID(ctx, userID); err == nil {
		s.publish(ctx, queue.EventUserLoggedOut, u)
	}
	return nil
}

// ChangePassword verifies the old password, applies the strength policy to
// the new one and swaps the hash.  Every outstanding refresh token for the
// user is revoked afterwards: a password change forces re-login everywhere
// else.
func (s *Service) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if !s.hasher.Verify(u.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	if msg := CheckPasswordStrength(newPassword); msg != "" {
		return ErrWeakPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}

	s.publish(ctx, queue.EventPasswordChanged, u)
	return nil
}

// Profile returns the user behind an authenticated request.
func (s *Service) Profile(ctx context.Context, userID uint64) (model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile changes the non-credential fields of a user and returns the
// updated record.  Username, email, role and password are not updatable
// here.
func (s *Service) UpdateProfile(ctx context.Context, userID uint64, firstName, lastName, phone string) (model.User, error) {
	fe := FieldErrors{}
	if len(firstName) > 100 {
		fe["first_name"] = "must be at most 100 characters"
	}
	if len(lastName) > 100 {
		fe["last_name"] = "must be at most 100 characters"
	}
	if len(phone) > 32 {
		fe["phone"] = "must be at most 32 characters"
	}
	if len(fe) > 0 {
		return model.User{}, fe
	}
	if err := s.users.UpdateProfile(ctx, userID, firstName, lastName, phone); err != nil {
		return model.User{}, err
	}
	return s.users.GetByID(ctx, userID)
}

// SetRole changes a user's role (admin operation; registration only ever
// grants customer).  Outstanding refresh tokens are revoked so the next
// rotation already carries the new role claim instead of the old one riding
// out its refresh TTL.
func (s *Service) SetRole(ctx context.Context, userID uint64, role string) (model.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !model.ValidRole(role) {
		return model.User{}, FieldErrors{"role": "role must be one of customer, staff, admin"}
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return model.User{}, err
	}
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return model.User{}, err
	}
	return s.users.GetByID(ctx, userID)
}

// issuePair mints an access/refresh pair for u and persists the refresh
// hash with the given chain length.
func (s *Service) issuePair(ctx context.Context, u model.User, chainLen int) (Credentials, error) {
	access, err := s.issuer.IssueAccess(u.ID, u.Role)
	if err != nil {
		return Credentials{}, err
	}
	refresh, err := s.issuer.IssueRefresh()
	if err != nil {
		return Credentials{}, err
	}
	if err := s.tokens.Store(ctx, u.ID, HashRefreshRaw(refresh.Raw), refresh.Exp, chainLen); err != nil {
		return Credentials{}, err
	}
	return Credentials{User: u, Access: access, Refresh: refresh}, nil
}

// publish sends an account event, swallowing broker failures.
func (s *Service) publish(ctx context.Context, eventType string, u model.User) {
	if s.events == nil {
		return
	}
	ev := queue.UserEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		UserID:     u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishUserEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("type", eventType).Uint64("user_id", u.ID).Msg("event publish failed")
	}
}

// timingDummyHash is a bcrypt hash of random data, used to equalize the cost
// of login attempts against unknown usernames.
const timingDummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

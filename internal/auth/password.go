package auth

import (
	"runtime"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher wraps bcrypt with a fixed cost and a bounded semaphore.
// bcrypt is deliberately CPU-expensive, so a burst of registrations or
// logins could otherwise saturate every core; the semaphore queues hash
// and verify work beyond 2x GOMAXPROCS concurrent operations.  No lock or
// database connection is ever held while a hash computes.
type PasswordHasher struct {
	cost int
	sem  chan struct{}
}

// NewPasswordHasher returns a hasher with the given bcrypt cost.  Costs
// outside bcrypt's supported range fall back to the library default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	slots := 2 * runtime.GOMAXPROCS(0)
	if slots < 4 {
		slots = 4
	}
	return &PasswordHasher{cost: cost, sem: make(chan struct{}, slots)}
}

// Hash returns the bcrypt hash of plain.  The per-call random salt is
// embedded in the returned string by bcrypt itself.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	h.sem <- struct{}{}
	defer func() { <-h.sem }()

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares a bcrypt hash and a plain password in constant time.
// It returns false for any malformed hash instead of an error, so a broken
// stored hash behaves like a non-match.
func (h *PasswordHasher) Verify(hash, plain string) bool {
	h.sem <- struct{}{}
	defer func() { <-h.sem }()

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

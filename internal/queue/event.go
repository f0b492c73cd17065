// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair for the auth.events queue.
package queue

// Event types published to the auth.events queue.
const (
	EventUserRegistered  = "user.registered"
	EventPasswordChanged = "user.password_changed"
	EventUserLoggedOut   = "user.logged_out"
)

// UserEvent is published whenever an account-level action completes.  It
// carries enough information for downstream consumers to audit, notify or
// trigger analytics without querying the primary database.  It never carries
// passwords or tokens.
type UserEvent struct {
	EventID    string `json:"event_id"`
	Type       string `json:"type"`
	UserID     uint64 `json:"user_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	OccurredAt string `json:"occurred_at"`
}

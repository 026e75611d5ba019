package models

import "time"

// AccessCredential is the short-lived signed-URL fragment ("hash") granting
// temporary read access to the owner's blob prefix.
type AccessCredential struct {
	// Value is the opaque signed-URL string.
	Value string
	// OwnerID is the session this credential is bound to.
	OwnerID string
	// IssuedAt and TTL determine expiry.
	IssuedAt time.Time
	TTL      time.Duration
}

// Expired reports whether the credential may no longer be handed out.
// A credential is unusable from the instant IssuedAt+TTL has elapsed.
func (c AccessCredential) Expired(now time.Time) bool {
	return !now.Before(c.IssuedAt.Add(c.TTL))
}

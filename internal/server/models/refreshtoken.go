// Package models defines server-side data models persisted in the database.
package models

import "time"

// RefreshToken is one entry of an account's refresh-token collection.
// Token is the opaque bearer credential and the record's identifier;
// it is generated once and never reused. ReplacedBy, once set, points
// forward to the token that superseded this one and is never changed.
//
// The JSON tags define the storage layout of the jsonb token collection.
type RefreshToken struct {
	Token         string     `json:"token"`
	Expires       time.Time  `json:"expires"`
	Created       time.Time  `json:"created"`
	CreatedFromIP string     `json:"createdFromIp"`
	Revoked       *time.Time `json:"revoked,omitempty"`
	RevokedFromIP string     `json:"revokedFromIp,omitempty"`
	ReplacedBy    string     `json:"replacedBy,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// IsRevoked reports whether the token has been explicitly revoked.
func (t *RefreshToken) IsRevoked() bool { return t.Revoked != nil }

// IsExpired reports whether the token's validity window has passed at now.
func (t *RefreshToken) IsExpired(now time.Time) bool { return now.After(t.Expires) }

// IsActive reports whether the token is neither revoked nor expired at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

// Revoke marks the token revoked at now from the given IP. replacedBy names
// the successor token when the revocation is part of a rotation; it is empty
// for plain revocations.
func (t *RefreshToken) Revoke(now time.Time, ip, reason, replacedBy string) {
	revoked := now
	t.Revoked = &revoked
	t.RevokedFromIP = ip
	t.Reason = reason
	t.ReplacedBy = replacedBy
}

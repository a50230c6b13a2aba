package models

import (
	"testing"
	"time"
)

func TestRefreshToken_States(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tok := RefreshToken{
		Token:   "t1",
		Created: now.Add(-time.Hour),
		Expires: now.Add(time.Hour),
	}

	if !tok.IsActive(now) {
		t.Fatalf("token within validity window should be active")
	}
	if tok.IsExpired(now) || tok.IsRevoked() {
		t.Fatalf("unexpected state: expired=%v revoked=%v", tok.IsExpired(now), tok.IsRevoked())
	}

	// Time passes: Active -> Expired, no action needed.
	later := tok.Expires.Add(time.Second)
	if !tok.IsExpired(later) || tok.IsActive(later) {
		t.Fatalf("token past expiry should be expired and not active")
	}
}

func TestRefreshToken_Revoke(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tok := RefreshToken{
		Token:   "t1",
		Created: now.Add(-time.Minute),
		Expires: now.Add(time.Hour),
	}

	tok.Revoke(now, "10.0.0.1", "replaced by new", "t2")

	if !tok.IsRevoked() {
		t.Fatalf("token should be revoked")
	}
	if tok.IsActive(now) {
		t.Fatalf("revoked token must not be active even inside the validity window")
	}
	if tok.Revoked == nil || !tok.Revoked.Equal(now) {
		t.Fatalf("revoked timestamp mismatch: %v", tok.Revoked)
	}
	if tok.RevokedFromIP != "10.0.0.1" || tok.Reason != "replaced by new" || tok.ReplacedBy != "t2" {
		t.Fatalf("revocation metadata mismatch: %+v", tok)
	}
}

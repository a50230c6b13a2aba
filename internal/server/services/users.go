// Package services contains server-side business logic. This file implements
// UserService: account lookups, password checks, and the refresh-token
// ledger (issue, rotate with reuse detection, revoke, lazy pruning).
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PhoenixRFA/backlogapp/internal/clock"
	"github.com/PhoenixRFA/backlogapp/internal/common"
	"github.com/PhoenixRFA/backlogapp/internal/server/config"
	"github.com/PhoenixRFA/backlogapp/internal/server/hashing"
	"github.com/PhoenixRFA/backlogapp/internal/server/models"
	"github.com/PhoenixRFA/backlogapp/internal/server/passgen"
	"github.com/PhoenixRFA/backlogapp/internal/server/repositories/users"
)

// Revocation reasons recorded on refresh tokens.
const (
	reasonReplacedByNew    = "replaced by new"
	reasonRevokedNoReplace = "revoke without replacement"
	reasonPasswordChange   = "revoke by password change"
	reasonReuseDetected    = "reuse of revoked ancestor detected"
)

// tokenSeedSize mirrors the reserved seed region of generated refresh
// tokens. Account ids are longer than the region, so the seed is the
// compact id prefix that fits; it serves provenance only, never security.
const tokenSeedSize = 24

// RotateResult bundles the freshly minted refresh token with the account
// that owns it.
type RotateResult struct {
	Token *models.RefreshToken
	User  *models.User
}

// UserService provides account and session operations:
//   - lookups by id, email, and refresh token
//   - registration and password verification
//   - the refresh-token ledger: issue, rotate, revoke, prune
//   - password change/restore with full session revocation
//
// It is request-scoped and stateless between calls; every mutation reads the
// account's full token collection, mutates it in memory, and writes it back
// (last writer wins, see the repository contract).
type UserService struct {
	repo      users.Repository
	hasher    *hashing.Hasher
	generator *passgen.Generator
	opts      config.RefreshTokenOptions
	clock     clock.Clock
}

// NewUserService constructs a UserService.
func NewUserService(repo users.Repository, hasher *hashing.Hasher, generator *passgen.Generator, opts config.RefreshTokenOptions, clk clock.Clock) *UserService {
	return &UserService{
		repo:      repo,
		hasher:    hasher,
		generator: generator,
		opts:      opts,
		clock:     clk,
	}
}

// GetByID returns the account with the given id.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail normalizes email and returns the matching account.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

// GetByRefreshToken returns the account owning the given refresh token,
// active or not.
func (s *UserService) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return s.repo.GetByRefreshToken(ctx, token)
}

// CheckPassword verifies password against the account's stored hash.
// A decode fault in the stored envelope propagates as an error.
func (s *UserService) CheckPassword(user *models.User, password string) (bool, error) {
	if user == nil || password == "" {
		return false, nil
	}
	if user.PasswordHash == "" {
		return false, nil
	}
	return s.hasher.VerifyPassword(password, user.PasswordHash)
}

// Register creates an account. When password is empty a random one is
// generated; when provided it must satisfy the configured password policy.
// A taken email yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	normalized := normalizeEmail(email)

	if _, err := s.repo.GetByEmail(ctx, normalized); err == nil {
		return nil, common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if password == "" {
		generated, err := s.generator.GeneratePassword()
		if err != nil {
			return nil, err
		}
		password = generated
	} else if !s.generator.ValidatePassword(password) {
		return nil, common.ErrorValidation
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:              uuid.NewString(),
		Name:            name,
		Email:           email,
		EmailNormalized: normalized,
		PasswordHash:    hash,
	}
	return s.repo.Create(ctx, user)
}

// IsEmailExists reports whether an account already uses the email.
func (s *UserService) IsEmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return false, err
}

// AddRefreshToken mints a refresh token for the account, prunes stale
// tokens, appends the new one, and persists the whole collection. It is the
// issue step of a login.
func (s *UserService) AddRefreshToken(ctx context.Context, userID, ip string) (*models.RefreshToken, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user.RefreshTokens = s.removeOldRefreshTokens(user.RefreshTokens, now)

	newToken, err := s.generateRefreshToken(user.ID, ip, now)
	if err != nil {
		return nil, err
	}
	user.RefreshTokens = append(user.RefreshTokens, *newToken)

	if err := s.repo.UpdateRefreshTokens(ctx, user.ID, user.RefreshTokens); err != nil {
		return nil, err
	}
	return newToken, nil
}

// RotateRefreshToken exchanges an active refresh token for a fresh one.
//
// Presenting an already-revoked token is a reuse event: the token's
// replacedBy chain is walked and the first still-active descendant is
// revoked, killing the whole remaining session line, and the call fails.
// Presenting an expired (but never revoked) token fails without mutation.
// Every failure surfaces as common.ErrInvalidToken so a caller cannot tell
// an attack apart from ordinary expiry.
func (s *UserService) RotateRefreshToken(ctx context.Context, token, ip string) (*RotateResult, error) {
	user, err := s.repo.GetByRefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}

	idx := findToken(user.RefreshTokens, token)
	if idx < 0 {
		return nil, common.ErrInvalidToken
	}
	now := s.clock.Now()

	if user.RefreshTokens[idx].IsRevoked() {
		s.revokeDescendantTokens(user.RefreshTokens, idx, ip, reasonReuseDetected, now)
		if err := s.repo.UpdateRefreshTokens(ctx, user.ID, user.RefreshTokens); err != nil {
			return nil, err
		}
		return nil, common.ErrInvalidToken
	}

	if !user.RefreshTokens[idx].IsActive(now) {
		// Expired but never revoked: fail without touching the collection.
		return nil, common.ErrInvalidToken
	}

	user.RefreshTokens = s.removeOldRefreshTokens(user.RefreshTokens, now)

	// The presented token is active, so pruning kept it; refind its slot.
	idx = findToken(user.RefreshTokens, token)
	if idx < 0 {
		return nil, common.ErrInvalidToken
	}

	newToken, err := s.generateRefreshToken(user.ID, ip, now)
	if err != nil {
		return nil, err
	}
	user.RefreshTokens[idx].Revoke(now, ip, reasonReplacedByNew, newToken.Token)
	user.RefreshTokens = append(user.RefreshTokens, *newToken)

	if err := s.repo.UpdateRefreshTokens(ctx, user.ID, user.RefreshTokens); err != nil {
		return nil, err
	}

	return &RotateResult{Token: newToken, User: user}, nil
}

// RevokeToken marks the token revoked without replacement (logout). Unknown
// tokens are a no-op.
func (s *UserService) RevokeToken(ctx context.Context, token, ip string) error {
	user, err := s.repo.GetByRefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}

	now := s.clock.Now()
	user.RefreshTokens = s.removeOldRefreshTokens(user.RefreshTokens, now)

	idx := findToken(user.RefreshTokens, token)
	if idx < 0 {
		// The token was just pruned; nothing left to revoke.
		return nil
	}
	user.RefreshTokens[idx].Revoke(now, ip, reasonRevokedNoReplace, "")

	return s.repo.UpdateRefreshTokens(ctx, user.ID, user.RefreshTokens)
}

// ChangePassword verifies the old password, revokes every active refresh
// token, mints one continuity token for the current session, and persists
// the new hash together with the token collection as one update. The new
// refresh token is returned so the caller can re-issue the cookie.
func (s *UserService) ChangePassword(ctx context.Context, id, oldPassword, newPassword, ip string) (*models.RefreshToken, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if oldPassword == newPassword || user.PasswordHash == "" {
		return nil, common.ErrorValidation
	}
	if !s.generator.ValidatePassword(newPassword) {
		return nil, common.ErrorValidation
	}

	ok, err := s.hasher.VerifyPassword(oldPassword, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	newToken, err := s.replaceSessions(&user.RefreshTokens, user.ID, ip)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash, user.RefreshTokens); err != nil {
		return nil, err
	}

	return newToken, nil
}

// RestorePassword resets the account's password to a freshly generated one
// and revokes every active session. Unknown emails are a silent no-op so the
// endpoint cannot be used to probe for accounts.
func (s *UserService) RestorePassword(ctx context.Context, email, ip string) error {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}

	if _, err := s.replaceSessions(&user.RefreshTokens, user.ID, ip); err != nil {
		return err
	}

	password, err := s.generator.GeneratePassword()
	if err != nil {
		return err
	}
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hash, user.RefreshTokens); err != nil {
		return err
	}

	// TODO: hand the generated password to the mail collaborator once the
	// email service is wired up.
	return nil
}

// ChangeName updates the display name when it actually changed.
func (s *UserService) ChangeName(ctx context.Context, id, newName string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Name == newName {
		return nil
	}
	return s.repo.UpdateName(ctx, id, newName)
}

// ChangeEmail updates the email and its normalized form when changed.
func (s *UserService) ChangeEmail(ctx context.Context, id, newEmail string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Email == newEmail {
		return nil
	}
	return s.repo.UpdateEmail(ctx, id, newEmail, normalizeEmail(newEmail))
}

// --- helpers below ---

// replaceSessions prunes stale tokens, revokes every active one with the
// password-change reason, and appends one continuity token. The collection
// is mutated in place; persisting it is the caller's job so the write can be
// combined with the password-hash update.
func (s *UserService) replaceSessions(tokens *[]models.RefreshToken, userID, ip string) (*models.RefreshToken, error) {
	now := s.clock.Now()
	*tokens = s.removeOldRefreshTokens(*tokens, now)

	for i := range *tokens {
		if (*tokens)[i].IsActive(now) {
			(*tokens)[i].Revoke(now, ip, reasonPasswordChange, "")
		}
	}

	newToken, err := s.generateRefreshToken(userID, ip, now)
	if err != nil {
		return nil, err
	}
	*tokens = append(*tokens, *newToken)

	return newToken, nil
}

// generateRefreshToken mints a new token valid for the configured number of
// days, seeded with the account id for provenance.
func (s *UserService) generateRefreshToken(userID, ip string, now time.Time) (*models.RefreshToken, error) {
	token, err := s.generator.GenerateRefreshToken(tokenSeed(userID))
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}
	return &models.RefreshToken{
		Token:         token,
		Created:       now,
		CreatedFromIP: ip,
		Expires:       now.AddDate(0, 0, s.opts.LifetimeDays),
	}, nil
}

// removeOldRefreshTokens drops tokens that are inactive and strictly older
// than the retention window. Active tokens are never pruned regardless of
// age.
func (s *UserService) removeOldRefreshTokens(tokens []models.RefreshToken, now time.Time) []models.RefreshToken {
	cutoff := now.AddDate(0, 0, -s.opts.DeleteTokensOlderThanDays)

	kept := make([]models.RefreshToken, 0, len(tokens))
	for _, t := range tokens {
		if t.IsActive(now) || !t.Created.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// revokeDescendantTokens walks the replacedBy chain starting at tokens[idx]
// and revokes the first still-active descendant. The walk is iterative with
// a visited set so a corrupt cycle in replacedBy pointers cannot hang the
// request.
func (s *UserService) revokeDescendantTokens(tokens []models.RefreshToken, idx int, ip, reason string, now time.Time) {
	visited := map[string]struct{}{tokens[idx].Token: {}}

	next := tokens[idx].ReplacedBy
	for next != "" {
		if _, seen := visited[next]; seen {
			return
		}
		visited[next] = struct{}{}

		childIdx := findToken(tokens, next)
		if childIdx < 0 {
			return
		}
		child := &tokens[childIdx]
		if child.IsActive(now) {
			child.Revoke(now, ip, reason, "")
			return
		}
		next = child.ReplacedBy
	}
}

func findToken(tokens []models.RefreshToken, token string) int {
	for i := range tokens {
		if tokens[i].Token == token {
			return i
		}
	}
	return -1
}

func normalizeEmail(email string) string {
	return strings.ToLower(email)
}

// tokenSeed shortens an account id to the generator's reserved seed region.
// UUID ids are longer than the region, so the compact prefix is embedded.
func tokenSeed(userID string) string {
	seed := strings.ReplaceAll(userID, "-", "")
	if len(seed) > tokenSeedSize {
		seed = seed[:tokenSeedSize]
	}
	return seed
}

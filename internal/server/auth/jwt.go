// Package auth builds and verifies the short-lived signed bearer tokens
// returned to authenticated clients. Bearer tokens are stateless: nothing
// is persisted, only refresh tokens are revocable.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/PhoenixRFA/backlogapp/internal/clock"
	"github.com/PhoenixRFA/backlogapp/internal/common"
	"github.com/PhoenixRFA/backlogapp/internal/server/config"
)

// Claims includes the registered claims plus the account's display name.
// The account id travels in the standard subject claim.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

// TokenFactory mints HS256-signed bearer tokens carrying the account id and
// display name, bound to the configured issuer/audience pair.
type TokenFactory struct {
	key      []byte
	issuer   string
	audience string
	lifetime time.Duration
	clock    clock.Clock
}

// NewTokenFactory builds a TokenFactory. An empty signing key is a fatal
// configuration error raised here, never at request time.
func NewTokenFactory(opts config.JWTOptions, clk clock.Clock) (*TokenFactory, error) {
	if opts.Key == "" {
		return nil, errors.New("auth: JWT signing key is empty")
	}
	if opts.Lifetime <= 0 {
		return nil, fmt.Errorf("auth: JWT lifetime must be positive, got %v", opts.Lifetime)
	}
	return &TokenFactory{
		key:      []byte(opts.Key),
		issuer:   opts.Issuer,
		audience: opts.Audience,
		lifetime: opts.Lifetime,
		clock:    clk,
	}, nil
}

// BuildToken returns a signed bearer token for the account and its
// expiration time (now + configured lifetime).
func (f *TokenFactory) BuildToken(accountID, displayName string) (string, time.Time, error) {
	now := f.clock.Now()
	expires := now.Add(f.lifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    f.issuer,
			Audience:  jwt.ClaimStrings{f.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Name: displayName,
	})

	signed, err := token.SignedString(f.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, expires, nil
}

// ParseToken verifies a bearer token's signature, issuer, audience, and
// expiry, then returns the embedded account id and display name. Expired
// tokens yield common.ErrTokenExpired, every other failure
// common.ErrInvalidToken.
func (f *TokenFactory) ParseToken(tokenString string) (accountID, displayName string, err error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return f.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(f.issuer),
		jwt.WithAudience(f.audience),
		jwt.WithTimeFunc(f.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", common.ErrTokenExpired
		}
		return "", "", common.ErrInvalidToken
	}
	if !token.Valid {
		return "", "", common.ErrInvalidToken
	}

	return claims.Subject, claims.Name, nil
}

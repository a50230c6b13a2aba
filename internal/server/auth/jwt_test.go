package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/PhoenixRFA/backlogapp/internal/clock"
	"github.com/PhoenixRFA/backlogapp/internal/common"
	"github.com/PhoenixRFA/backlogapp/internal/server/config"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func testJWTOptions() config.JWTOptions {
	return config.JWTOptions{
		Key:      "super-secret",
		Issuer:   "JwtAuthServer",
		Audience: "JwtAuthClient",
		Lifetime: 5 * time.Minute,
	}
}

func TestBuildAndParse_Success(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	f, err := NewTokenFactory(testJWTOptions(), clk)
	if err != nil {
		t.Fatalf("NewTokenFactory error: %v", err)
	}

	tok, expires, err := f.BuildToken("user-123", "Alice")
	if err != nil {
		t.Fatalf("BuildToken error: %v", err)
	}
	if want := clk.now.Add(5 * time.Minute); !expires.Equal(want) {
		t.Fatalf("expires = %v, want %v", expires, want)
	}

	id, name, err := f.ParseToken(tok)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if id != "user-123" || name != "Alice" {
		t.Fatalf("claims mismatch: id=%q name=%q", id, name)
	}
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	f, err := NewTokenFactory(testJWTOptions(), clk)
	if err != nil {
		t.Fatalf("NewTokenFactory error: %v", err)
	}

	tok, _, err := f.BuildToken("u1", "n")
	if err != nil {
		t.Fatalf("BuildToken error: %v", err)
	}

	clk.now = clk.now.Add(6 * time.Minute)
	if _, _, err := f.ParseToken(tok); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongKey(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Now()}
	f1, _ := NewTokenFactory(testJWTOptions(), clk)

	opts := testJWTOptions()
	opts.Key = "another-secret"
	f2, _ := NewTokenFactory(opts, clk)

	tok, _, err := f1.BuildToken("u1", "n")
	if err != nil {
		t.Fatalf("BuildToken error: %v", err)
	}
	if _, _, err := f2.ParseToken(tok); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for wrong key, got %v", err)
	}
}

func TestParseToken_WrongAudience(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Now()}
	f1, _ := NewTokenFactory(testJWTOptions(), clk)

	opts := testJWTOptions()
	opts.Audience = "SomeOtherClient"
	f2, _ := NewTokenFactory(opts, clk)

	tok, _, err := f1.BuildToken("u1", "n")
	if err != nil {
		t.Fatalf("BuildToken error: %v", err)
	}
	if _, _, err := f2.ParseToken(tok); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for wrong audience, got %v", err)
	}
}

func TestParseToken_Malformed(t *testing.T) {
	t.Parallel()

	f, _ := NewTokenFactory(testJWTOptions(), clock.System{})
	if _, _, err := f.ParseToken("not.a.jwt"); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for malformed token, got %v", err)
	}
}

func TestNewTokenFactory_EmptyKey(t *testing.T) {
	t.Parallel()

	opts := testJWTOptions()
	opts.Key = ""
	if _, err := NewTokenFactory(opts, clock.System{}); err == nil {
		t.Fatalf("empty signing key accepted")
	}
}

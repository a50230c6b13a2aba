package hashing

import (
	"encoding/base64"
	"testing"

	"github.com/PhoenixRFA/backlogapp/internal/server/config"
)

func testOptions() config.PasswordHashOptions {
	return config.PasswordHashOptions{
		PRF:            PRFHMACSHA1,
		IterationCount: 1000,
		SaltSize:       16,
		SubkeySize:     32,
	}
}

func newHasher(t *testing.T, opts config.PasswordHashOptions) *Hasher {
	t.Helper()
	h, err := New(opts)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return h
}

func TestHashAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()
	h := newHasher(t, testOptions())

	envelope, err := h.HashPassword("S3cret!pass")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	ok, err := h.VerifyPassword("S3cret!pass", envelope)
	if err != nil {
		t.Fatalf("VerifyPassword error: %v", err)
	}
	if !ok {
		t.Fatalf("correct password did not verify")
	}

	ok, err = h.VerifyPassword("S3cret!pass2", envelope)
	if err != nil {
		t.Fatalf("VerifyPassword error: %v", err)
	}
	if ok {
		t.Fatalf("wrong password verified")
	}
}

func TestHashPassword_FreshSaltEachCall(t *testing.T) {
	t.Parallel()
	h := newHasher(t, testOptions())

	a, err := h.HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	b, err := h.HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password are identical; salt is not random")
	}
}

func TestHashPassword_EnvelopeLayout(t *testing.T) {
	t.Parallel()
	opts := testOptions()
	h := newHasher(t, opts)

	envelope, err := h.HashPassword("p")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		t.Fatalf("envelope is not valid base64: %v", err)
	}
	if want := 13 + opts.SaltSize + opts.SubkeySize; len(raw) != want {
		t.Fatalf("envelope length %d, want %d", len(raw), want)
	}
	if raw[0] != 0x01 {
		t.Fatalf("version byte %#x, want 0x01", raw[0])
	}
}

func TestVerifyPassword_ParameterMismatchIsFalseNotError(t *testing.T) {
	t.Parallel()

	base := newHasher(t, testOptions())
	envelope, err := base.HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	cases := []struct {
		name string
		opts config.PasswordHashOptions
	}{
		{"prf mismatch", config.PasswordHashOptions{PRF: PRFHMACSHA256, IterationCount: 1000, SaltSize: 16, SubkeySize: 32}},
		{"iteration mismatch", config.PasswordHashOptions{PRF: PRFHMACSHA1, IterationCount: 2000, SaltSize: 16, SubkeySize: 32}},
		{"salt size mismatch", config.PasswordHashOptions{PRF: PRFHMACSHA1, IterationCount: 1000, SaltSize: 32, SubkeySize: 32}},
		{"subkey longer than stored", config.PasswordHashOptions{PRF: PRFHMACSHA1, IterationCount: 1000, SaltSize: 16, SubkeySize: 64}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHasher(t, tc.opts)
			ok, err := h.VerifyPassword("pw", envelope)
			if err != nil {
				t.Fatalf("parameter mismatch must not error, got %v", err)
			}
			if ok {
				t.Fatalf("parameter mismatch verified as true")
			}
		})
	}
}

func TestVerifyPassword_UnsupportedVersion(t *testing.T) {
	t.Parallel()
	h := newHasher(t, testOptions())

	envelope, err := h.HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(envelope)
	raw[0] = 0x02

	ok, err := h.VerifyPassword("pw", base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("unsupported version must not error, got %v", err)
	}
	if ok {
		t.Fatalf("unsupported version verified as true")
	}
}

func TestVerifyPassword_DecodeFaults(t *testing.T) {
	t.Parallel()
	h := newHasher(t, testOptions())

	if _, err := h.VerifyPassword("pw", "%%% not base64 %%%"); err == nil {
		t.Fatalf("malformed base64 must surface as an error")
	}

	short := base64.StdEncoding.EncodeToString([]byte{0x01, 0x00})
	if _, err := h.VerifyPassword("pw", short); err == nil {
		t.Fatalf("truncated envelope must surface as an error")
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	t.Parallel()

	if _, err := New(config.PasswordHashOptions{PRF: 42, IterationCount: 1000, SaltSize: 16, SubkeySize: 32}); err == nil {
		t.Fatalf("unknown PRF id accepted")
	}
	if _, err := New(config.PasswordHashOptions{PRF: PRFHMACSHA1, IterationCount: 0, SaltSize: 16, SubkeySize: 32}); err == nil {
		t.Fatalf("zero iteration count accepted")
	}
	if _, err := New(config.PasswordHashOptions{PRF: PRFHMACSHA1, IterationCount: 1000, SaltSize: 0, SubkeySize: 32}); err == nil {
		t.Fatalf("zero salt size accepted")
	}
}

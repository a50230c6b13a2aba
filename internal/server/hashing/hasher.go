// Package hashing implements salted, iterated password hashing with a
// self-describing envelope format.
//
// The envelope is a base64-encoded blob laid out as:
//
//	[0]     version byte (0x01)
//	[1:5]   PRF id, big-endian uint32
//	[5:9]   iteration count, big-endian uint32
//	[9:13]  salt length, big-endian uint32
//	[13:13+saltLen]  salt
//	[13+saltLen:]    derived subkey
//
// The envelope is opaque to callers; only this package parses it.
package hashing

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"

	"github.com/PhoenixRFA/backlogapp/internal/server/config"
)

// PRF identifiers accepted in the envelope header.
const (
	PRFHMACSHA1 = iota
	PRFHMACSHA256
	PRFHMACSHA512
)

const (
	formatVersion = 0x01
	headerSize    = 13
)

// Hasher derives and verifies password hashes using PBKDF2 with the
// configured PRF, iteration count, salt size, and subkey size. Verification
// accepts only envelopes produced under the currently configured parameters;
// rotating them invalidates existing hashes.
type Hasher struct {
	opts config.PasswordHashOptions
}

// New builds a Hasher from the given options. It fails when the PRF id is
// unknown or any size/count is not positive, so misconfiguration surfaces
// at startup rather than on the first login.
func New(opts config.PasswordHashOptions) (*Hasher, error) {
	if _, err := prfFunc(opts.PRF); err != nil {
		return nil, err
	}
	if opts.IterationCount < 1 {
		return nil, fmt.Errorf("hashing: iteration count must be positive, got %d", opts.IterationCount)
	}
	if opts.SaltSize < 1 || opts.SubkeySize < 1 {
		return nil, fmt.Errorf("hashing: salt and subkey sizes must be positive, got %d/%d", opts.SaltSize, opts.SubkeySize)
	}
	return &Hasher{opts: opts}, nil
}

// HashPassword derives a subkey from password with a fresh random salt and
// returns the serialized envelope. Two calls with the same password produce
// different envelopes.
func (h *Hasher) HashPassword(password string) (string, error) {
	salt := make([]byte, h.opts.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("hashing: salt generation: %w", err)
	}

	prf, err := prfFunc(h.opts.PRF)
	if err != nil {
		return "", err
	}
	subkey := pbkdf2.Key([]byte(password), salt, h.opts.IterationCount, h.opts.SubkeySize, prf)

	out := make([]byte, headerSize+len(salt)+len(subkey))
	out[0] = formatVersion
	binary.BigEndian.PutUint32(out[1:5], uint32(h.opts.PRF))
	binary.BigEndian.PutUint32(out[5:9], uint32(h.opts.IterationCount))
	binary.BigEndian.PutUint32(out[9:13], uint32(h.opts.SaltSize))
	copy(out[headerSize:], salt)
	copy(out[headerSize+len(salt):], subkey)

	return base64.StdEncoding.EncodeToString(out), nil
}

// VerifyPassword re-derives a subkey from password using the parameters
// embedded in the envelope and compares it against the stored subkey.
//
// It returns (false, nil) when the envelope was produced under parameters
// other than the configured ones: unsupported version, PRF mismatch,
// iteration-count mismatch, salt-length mismatch, or a stored subkey shorter
// than the configured size. A corrupt envelope (bad base64 or a blob too
// short to hold its own header and salt) is a decode fault and returns an
// error; stored hashes are trusted data and corruption should not be
// silently read as "wrong password".
func (h *Hasher) VerifyPassword(password, hashEnvelope string) (bool, error) {
	raw, err := base64.StdEncoding.DecodeString(hashEnvelope)
	if err != nil {
		return false, fmt.Errorf("hashing: malformed envelope: %w", err)
	}
	if len(raw) < headerSize {
		return false, fmt.Errorf("hashing: envelope too short: %d bytes", len(raw))
	}

	if raw[0] != formatVersion {
		return false, nil
	}
	if int(binary.BigEndian.Uint32(raw[1:5])) != h.opts.PRF {
		return false, nil
	}
	if int(binary.BigEndian.Uint32(raw[5:9])) != h.opts.IterationCount {
		return false, nil
	}

	saltLen := int(binary.BigEndian.Uint32(raw[9:13]))
	if saltLen != h.opts.SaltSize {
		return false, nil
	}
	if len(raw) < headerSize+saltLen {
		return false, fmt.Errorf("hashing: envelope shorter than declared salt")
	}
	salt := raw[headerSize : headerSize+saltLen]

	stored := raw[headerSize+saltLen:]
	if len(stored) < h.opts.SubkeySize {
		return false, nil
	}

	prf, err := prfFunc(h.opts.PRF)
	if err != nil {
		return false, err
	}
	derived := pbkdf2.Key([]byte(password), salt, h.opts.IterationCount, h.opts.SubkeySize, prf)

	// ConstantTimeCompare is 0 for unequal lengths, so an oversized stored
	// subkey can never verify.
	return subtle.ConstantTimeCompare(stored, derived) == 1, nil
}

func prfFunc(id int) (func() hash.Hash, error) {
	switch id {
	case PRFHMACSHA1:
		return sha1.New, nil
	case PRFHMACSHA256:
		return sha256.New, nil
	case PRFHMACSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("hashing: unknown PRF id %d", id)
	}
}

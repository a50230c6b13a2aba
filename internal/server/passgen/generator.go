// Package passgen generates passwords and refresh tokens from a
// cryptographically secure randomness source, and validates user-supplied
// passwords against the same configuration.
package passgen

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"unicode"

	"github.com/PhoenixRFA/backlogapp/internal/server/config"
)

// Character classes. Uppercase I and lowercase l are excluded so generated
// passwords stay unambiguous in print.
const (
	uppercaseChars = "ABCDEFGHJKLMNOPQRSTUVWXYZ"
	lowercaseChars = "abcdefghijkmnopqrstuvwxyz"
	digitChars     = "0123456789"
	specialChars   = "!@$?_-"

	allChars = uppercaseChars + lowercaseChars + digitChars + specialChars
)

const (
	// refreshTokenSize is the total token length in bytes before base64.
	refreshTokenSize = 64
	// refreshTokenSeedSize is the reserved region holding the right-aligned
	// seed bytes at the start of the token.
	refreshTokenSeedSize = 24
)

// Generator produces random passwords and refresh tokens. All randomness
// comes from crypto/rand; the zero value is not usable, construct via New.
type Generator struct {
	opts config.PasswordGeneratorOptions
}

// New builds a Generator. RequiredLength below 4 is a configuration error:
// a four-class requirement cannot fit a shorter password.
func New(opts config.PasswordGeneratorOptions) (*Generator, error) {
	if opts.RequiredLength < 4 {
		return nil, fmt.Errorf("passgen: minimum allowed password length is 4, got %d", opts.RequiredLength)
	}
	return &Generator{opts: opts}, nil
}

// GeneratePassword returns a random password of the configured length.
// Every required character class is represented at least once, remaining
// positions are drawn uniformly from the union of the class alphabets, and
// the result is shuffled so required-class characters are not front-loaded.
func (g *Generator) GeneratePassword() (string, error) {
	chars := make([]byte, g.opts.RequiredLength)

	i := 0
	classes := []struct {
		required bool
		alphabet string
	}{
		{g.opts.RequireUppercase, uppercaseChars},
		{g.opts.RequireLowercase, lowercaseChars},
		{g.opts.RequireDigit, digitChars},
		{g.opts.RequireNonAlphanumeric, specialChars},
	}
	for _, class := range classes {
		if !class.required {
			continue
		}
		c, err := nextChar(class.alphabet)
		if err != nil {
			return "", err
		}
		chars[i] = c
		i++
	}

	for ; i < len(chars); i++ {
		c, err := nextChar(allChars)
		if err != nil {
			return "", err
		}
		chars[i] = c
	}

	if err := shuffle(chars); err != nil {
		return "", err
	}

	return string(chars), nil
}

// ValidatePassword structurally checks a user-supplied password against the
// configured requirements: minimum length, presence of each required
// character class, and a minimum number of distinct characters.
func (g *Generator) ValidatePassword(password string) bool {
	runes := []rune(password)
	if len(runes) < g.opts.RequiredLength {
		return false
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	distinct := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		distinct[r] = struct{}{}
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if g.opts.RequireUppercase && !hasUpper {
		return false
	}
	if g.opts.RequireLowercase && !hasLower {
		return false
	}
	if g.opts.RequireDigit && !hasDigit {
		return false
	}
	if g.opts.RequireNonAlphanumeric && !hasSpecial {
		return false
	}
	return len(distinct) >= g.opts.RequiredUniqueChars
}

// GenerateRefreshToken returns a base64-encoded 64-byte token. The first 24
// bytes are a reserved region carrying the right-aligned UTF-8 bytes of
// seed; the remaining 40 bytes are random. The seed is embedded for
// traceability only and is not a secret: unguessability rests entirely on
// the random suffix. An empty seed is legal; a seed longer than the
// reserved region is an error.
func (g *Generator) GenerateRefreshToken(seed string) (string, error) {
	seedBytes := []byte(seed)
	if len(seedBytes) > refreshTokenSeedSize {
		return "", fmt.Errorf("passgen: seed length %d exceeds reserved region of %d bytes", len(seedBytes), refreshTokenSeedSize)
	}

	result := make([]byte, refreshTokenSize)
	copy(result[refreshTokenSeedSize-len(seedBytes):refreshTokenSeedSize], seedBytes)
	if _, err := rand.Read(result[refreshTokenSeedSize:]); err != nil {
		return "", fmt.Errorf("passgen: token generation: %w", err)
	}

	return base64.StdEncoding.EncodeToString(result), nil
}

// nextInt returns a uniform random int in [0, max) from crypto/rand.
func nextInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("passgen: rng failure: %w", err)
	}
	return int(n.Int64()), nil
}

func nextChar(alphabet string) (byte, error) {
	i, err := nextInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

// shuffle performs a Fisher–Yates shuffle driven by crypto/rand.
func shuffle(chars []byte) error {
	for i := len(chars) - 1; i > 0; i-- {
		j, err := nextInt(i + 1)
		if err != nil {
			return err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}
	return nil
}

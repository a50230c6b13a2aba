package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/PhoenixRFA/backlogapp/internal/flagx"
	"github.com/PhoenixRFA/backlogapp/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "5m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. Before unmarshalling it is seeded from the current
// Config values, so a partial file overrides only the keys it contains.
type JsonConfig struct {
	EndpointAddrHTTP string `json:"endpoint_addr_http"`
	DatabaseDSN      string `json:"database_dsn"`

	PasswordHash struct {
		PRF            int `json:"prf"`
		IterationCount int `json:"iteration_count"`
		SaltSize       int `json:"salt_size"`
		SubkeySize     int `json:"subkey_size"`
	} `json:"password_hash"`

	PasswordGenerator struct {
		RequiredLength         int  `json:"required_length"`
		RequireNonAlphanumeric bool `json:"require_non_alphanumeric"`
		RequireDigit           bool `json:"require_digit"`
		RequireLowercase       bool `json:"require_lowercase"`
		RequireUppercase       bool `json:"require_uppercase"`
		RequiredUniqueChars    int  `json:"required_unique_chars"`
	} `json:"password_generator"`

	RefreshToken struct {
		LifetimeDays              int    `json:"lifetime_days"`
		DeleteTokensOlderThanDays int    `json:"delete_tokens_older_than_days"`
		CookieName                string `json:"cookie_name"`
		SessionLifetimeCookieName string `json:"session_lifetime_cookie_name"`
	} `json:"refresh_token"`

	JWT struct {
		Key      string         `json:"key"`
		Issuer   string         `json:"issuer"`
		Audience string         `json:"audience"`
		Lifetime timex.Duration `json:"lifetime"`
	} `json:"jwt"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics: a broken config file
// is a fatal startup error, not something to limp past.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}
	seedFromConfig(c, config)

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	applyToConfig(c, config)
}

func seedFromConfig(c *JsonConfig, config *Config) {
	c.EndpointAddrHTTP = config.EndpointAddrHTTP
	c.DatabaseDSN = config.DatabaseDSN

	c.PasswordHash.PRF = config.PasswordHash.PRF
	c.PasswordHash.IterationCount = config.PasswordHash.IterationCount
	c.PasswordHash.SaltSize = config.PasswordHash.SaltSize
	c.PasswordHash.SubkeySize = config.PasswordHash.SubkeySize

	c.PasswordGenerator.RequiredLength = config.PasswordGenerator.RequiredLength
	c.PasswordGenerator.RequireNonAlphanumeric = config.PasswordGenerator.RequireNonAlphanumeric
	c.PasswordGenerator.RequireDigit = config.PasswordGenerator.RequireDigit
	c.PasswordGenerator.RequireLowercase = config.PasswordGenerator.RequireLowercase
	c.PasswordGenerator.RequireUppercase = config.PasswordGenerator.RequireUppercase
	c.PasswordGenerator.RequiredUniqueChars = config.PasswordGenerator.RequiredUniqueChars

	c.RefreshToken.LifetimeDays = config.RefreshToken.LifetimeDays
	c.RefreshToken.DeleteTokensOlderThanDays = config.RefreshToken.DeleteTokensOlderThanDays
	c.RefreshToken.CookieName = config.RefreshToken.CookieName
	c.RefreshToken.SessionLifetimeCookieName = config.RefreshToken.SessionLifetimeCookieName

	c.JWT.Key = config.JWT.Key
	c.JWT.Issuer = config.JWT.Issuer
	c.JWT.Audience = config.JWT.Audience
	c.JWT.Lifetime = timex.Duration{Duration: config.JWT.Lifetime}
}

func applyToConfig(c *JsonConfig, config *Config) {
	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN

	config.PasswordHash.PRF = c.PasswordHash.PRF
	config.PasswordHash.IterationCount = c.PasswordHash.IterationCount
	config.PasswordHash.SaltSize = c.PasswordHash.SaltSize
	config.PasswordHash.SubkeySize = c.PasswordHash.SubkeySize

	config.PasswordGenerator.RequiredLength = c.PasswordGenerator.RequiredLength
	config.PasswordGenerator.RequireNonAlphanumeric = c.PasswordGenerator.RequireNonAlphanumeric
	config.PasswordGenerator.RequireDigit = c.PasswordGenerator.RequireDigit
	config.PasswordGenerator.RequireLowercase = c.PasswordGenerator.RequireLowercase
	config.PasswordGenerator.RequireUppercase = c.PasswordGenerator.RequireUppercase
	config.PasswordGenerator.RequiredUniqueChars = c.PasswordGenerator.RequiredUniqueChars

	config.RefreshToken.LifetimeDays = c.RefreshToken.LifetimeDays
	config.RefreshToken.DeleteTokensOlderThanDays = c.RefreshToken.DeleteTokensOlderThanDays
	config.RefreshToken.CookieName = c.RefreshToken.CookieName
	config.RefreshToken.SessionLifetimeCookieName = c.RefreshToken.SessionLifetimeCookieName

	config.JWT.Key = c.JWT.Key
	config.JWT.Issuer = c.JWT.Issuer
	config.JWT.Audience = c.JWT.Audience
	config.JWT.Lifetime = time.Duration(c.JWT.Lifetime.Duration)
}

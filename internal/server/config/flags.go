package config

import (
	"flag"
	"os"
	"time"

	"github.com/PhoenixRFA/backlogapp/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC signing key
//	-t int      bearer-token lifetime, minutes
//	-r int      refresh-token lifetime, days
//	-o int      stale-token retention window, days
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - Cryptographic parameters (PRF, iterations, salt/subkey sizes, password
//     class requirements) are deliberately not flag-settable; they come from
//     defaults or the JSON file.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.JWT.Key, "s", config.JWT.Key, "JWT signing key")

	jwtLifetime := fs.Int("t", int(config.JWT.Lifetime.Minutes()), "bearer token lifetime (in minutes)")

	fs.IntVar(&config.RefreshToken.LifetimeDays, "r", config.RefreshToken.LifetimeDays, "refresh token lifetime (in days)")
	fs.IntVar(&config.RefreshToken.DeleteTokensOlderThanDays, "o", config.RefreshToken.DeleteTokensOlderThanDays, "stale token retention (in days)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.JWT.Lifetime = time.Duration(*jwtLifetime) * time.Minute
}

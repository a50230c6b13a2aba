// Command backlogctl performs administrative tasks against the Backlog
// database. The only subcommand so far is adduser, which creates an account
// out of band, reading the password from the terminal without echo.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/PhoenixRFA/backlogapp/internal/buildinfo"
	"github.com/PhoenixRFA/backlogapp/internal/clock"
	"github.com/PhoenixRFA/backlogapp/internal/server/config"
	"github.com/PhoenixRFA/backlogapp/internal/server/hashing"
	"github.com/PhoenixRFA/backlogapp/internal/server/passgen"
	"github.com/PhoenixRFA/backlogapp/internal/server/repositories/repomanager"
	"github.com/PhoenixRFA/backlogapp/internal/server/services"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "adduser":
		if err := addUser(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "adduser: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: backlogctl adduser -email <email> [-name <name>] [-d <dsn>]")
}

func addUser(args []string) error {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	fs := flag.NewFlagSet("adduser", flag.ExitOnError)
	email := fs.String("email", "", "account email (required)")
	name := fs.String("name", "", "display name")
	dsn := fs.String("d", cfg.DatabaseDSN, "database DSN")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("-email is required")
	}

	generator, err := passgen.New(cfg.PasswordGenerator)
	if err != nil {
		return err
	}

	password, generated, err := promptPassword(generator)
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	hasher, err := hashing.New(cfg.PasswordHash)
	if err != nil {
		return err
	}

	svc := services.NewUserService(rm.Users(db), hasher, generator, cfg.RefreshToken, clock.System{})

	user, err := svc.Register(ctx, *name, *email, password)
	if err != nil {
		return err
	}

	fmt.Printf("created account %s (%s)\n", user.ID, user.Email)
	if generated {
		fmt.Printf("generated password: %s\n", password)
	}
	return nil
}

// promptPassword reads a password from the terminal without echo. An empty
// entry means "generate one for me"; the generated password is reported so
// the operator can hand it over.
func promptPassword(generator *passgen.Generator) (password string, generated bool, err error) {
	fmt.Print("Enter password (empty to generate): ")
	raw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", false, fmt.Errorf("reading password: %w", err)
	}

	if len(raw) == 0 {
		p, err := generator.GeneratePassword()
		if err != nil {
			return "", false, err
		}
		return p, true, nil
	}

	if !generator.ValidatePassword(string(raw)) {
		return "", false, fmt.Errorf("password does not meet requirements")
	}
	return string(raw), false, nil
}

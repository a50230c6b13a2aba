package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PhoenixRFA/backlogapp/internal/common"
	"github.com/PhoenixRFA/backlogapp/internal/dbx"
	"github.com/PhoenixRFA/backlogapp/internal/server/models"
)

// PostgresRepository stores accounts in a users table with the refresh-token
// collection serialized into a single jsonb column. Reading and writing the
// collection as one document mirrors the whole-collection-replace model the
// session manager relies on.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, email, email_normalized, password_hash, refresh_tokens`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, normalizedEmail string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email_normalized = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, normalizedEmail))
}

// GetByRefreshToken matches via jsonb containment, so revoked and expired
// tokens are found the same way as active ones.
func (r *PostgresRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE refresh_tokens @> jsonb_build_array(jsonb_build_object('token', $1::text))
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	tokens, err := marshalTokens(user.RefreshTokens)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (id, name, email, email_normalized, password_hash, refresh_tokens)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.EmailNormalized, user.PasswordHash, tokens); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) UpdateRefreshTokens(ctx context.Context, id string, tokens []models.RefreshToken) error {
	raw, err := marshalTokens(tokens)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET refresh_tokens = $2
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, raw); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, tokens []models.RefreshToken) error {
	raw, err := marshalTokens(tokens)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET password_hash = $2, refresh_tokens = $3
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, raw); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateName(ctx context.Context, id string, name string) error {
	query := `
		UPDATE users
		SET name = $2
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, name); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateEmail(ctx context.Context, id string, email, normalizedEmail string) error {
	query := `
		UPDATE users
		SET email = $2, email_normalized = $3
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, email, normalizedEmail); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var rawTokens []byte

	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.EmailNormalized, &user.PasswordHash, &rawTokens); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(rawTokens, &user.RefreshTokens); err != nil {
		return nil, fmt.Errorf("decoding refresh tokens: %w", err)
	}

	return user, nil
}

// marshalTokens serializes a token collection for the jsonb column. A nil
// slice becomes an empty json array rather than null.
func marshalTokens(tokens []models.RefreshToken) ([]byte, error) {
	if tokens == nil {
		tokens = []models.RefreshToken{}
	}
	raw, err := json.Marshal(tokens)
	if err != nil {
		return nil, fmt.Errorf("encoding refresh tokens: %w", err)
	}
	return raw, nil
}

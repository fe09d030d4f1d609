package repo

import (
	"context"
	"errors"
	"fmt"

	dom "todoweb/internal/domain"
	"todoweb/internal/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PGUserRepo implements UserRepo with Postgres.
type PGUserRepo struct {
	db Querier
}

// NewPGUserRepo returns a new PGUserRepo.
func NewPGUserRepo(db Querier) *PGUserRepo {
	return &PGUserRepo{db: db}
}

// GetByUsername returns the user by username.
func (r *PGUserRepo) GetByUsername(ctx context.Context, username string) (dom.User, error) {
	var u dom.User
	err := r.db.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, dom.ErrNotFound
		}
		return dom.User{}, fmt.Errorf("pg user repo: get by username: %w", err)
	}
	return u, nil
}

// Create inserts a new user and returns it.
func (r *PGUserRepo) Create(ctx context.Context, username, passwordHash string) (dom.User, error) {
	query := `
		INSERT INTO users (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, created_at`
	var u dom.User
	err := r.db.QueryRow(ctx, query, uuid.NewString(), username, passwordHash).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return dom.User{}, dom.ErrDuplicate
		}
		return dom.User{}, fmt.Errorf("pg user repo: create: %w", err)
	}
	return u, nil
}

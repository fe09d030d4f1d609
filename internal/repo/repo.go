package repo

import (
	"context"

	dom "todoweb/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// UserRepo provides user persistence.
// GetByUsername returns dom.ErrNotFound for unknown usernames;
// Create returns dom.ErrDuplicate when the username is taken.
type UserRepo interface {
	GetByUsername(ctx context.Context, username string) (dom.User, error)
	Create(ctx context.Context, username, passwordHash string) (dom.User, error)
}

// TodoRepo provides todo persistence scoped by owner.
// Toggle and Delete return dom.ErrNotFound when no todo with that id
// belongs to owner.
type TodoRepo interface {
	Create(ctx context.Context, t dom.Todo) (dom.Todo, error)
	ListByOwner(ctx context.Context, owner string) ([]dom.Todo, error)
	Toggle(ctx context.Context, owner, id string) (dom.Todo, error)
	Delete(ctx context.Context, owner, id string) error
}

// Querier is the subset of *pgxpool.Pool used by the Postgres repos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

package repo

import (
	"context"
	"errors"
	"fmt"

	dom "todoweb/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const todoColumns = `id, description, completed, owner_id, created_at, updated_at`

type PGTodoRepo struct {
	db Querier
}

func NewPGTodoRepo(db Querier) *PGTodoRepo {
	return &PGTodoRepo{db: db}
}

func (r *PGTodoRepo) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	query := `
		INSERT INTO todos (id, description, owner_id)
		VALUES ($1, $2, $3)
		RETURNING ` + todoColumns
	out, err := scanTodo(r.db.QueryRow(ctx, query, uuid.NewString(), t.Description, t.Owner))
	if err != nil {
		return dom.Todo{}, fmt.Errorf("pg todo repo: create: %w", err)
	}
	return out, nil
}

func (r *PGTodoRepo) ListByOwner(ctx context.Context, owner string) ([]dom.Todo, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM todos WHERE owner_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("pg todo repo: list: %w", err)
	}
	defer rows.Close()
	list := make([]dom.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("pg todo repo: list scan: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg todo repo: list: %w", err)
	}
	return list, nil
}

// Toggle flips completed in a single statement so concurrent toggles never lose an update.
func (r *PGTodoRepo) Toggle(ctx context.Context, owner, id string) (dom.Todo, error) {
	query := `
		UPDATE todos SET completed = NOT completed, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + todoColumns
	t, err := scanTodo(r.db.QueryRow(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, dom.ErrNotFound
		}
		return dom.Todo{}, fmt.Errorf("pg todo repo: toggle: %w", err)
	}
	return t, nil
}

func (r *PGTodoRepo) Delete(ctx context.Context, owner, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("pg todo repo: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dom.ErrNotFound
	}
	return nil
}

func scanTodo(row pgx.Row) (dom.Todo, error) {
	var t dom.Todo
	err := row.Scan(&t.ID, &t.Description, &t.Completed, &t.Owner, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

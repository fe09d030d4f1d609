package domain

import "time"

// Domain entity: a todo item owned by exactly one user.
// Owner is set on creation and never rewritten.
// Independent of Gin, Postgres, Mongo and Redis.
type Todo struct {
	ID          string
	Description string
	Completed   bool
	Owner       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

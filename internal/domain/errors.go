package domain

import "errors"

// Storage-neutral errors returned by every repository backend.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

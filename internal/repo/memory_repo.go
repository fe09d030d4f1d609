package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	dom "todoweb/internal/domain"

	"github.com/google/uuid"
)

// MemoryUserRepo is a process-local UserRepo for STORE_DRIVER=memory and tests.
type MemoryUserRepo struct {
	mu         sync.RWMutex
	byUsername map[string]dom.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{byUsername: make(map[string]dom.User)}
}

func (r *MemoryUserRepo) GetByUsername(_ context.Context, username string) (dom.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byUsername[username]
	if !ok {
		return dom.User{}, dom.ErrNotFound
	}
	return u, nil
}

func (r *MemoryUserRepo) Create(_ context.Context, username, passwordHash string) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUsername[username]; ok {
		return dom.User{}, dom.ErrDuplicate
	}
	u := dom.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.byUsername[username] = u
	return u, nil
}

// Count returns the number of stored users.
func (r *MemoryUserRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUsername)
}

type memoryTodo struct {
	todo dom.Todo
	seq  uint64
}

// MemoryTodoRepo is a process-local TodoRepo. Listing order is insertion order.
type MemoryTodoRepo struct {
	mu    sync.RWMutex
	seq   uint64
	todos map[string]memoryTodo
}

func NewMemoryTodoRepo() *MemoryTodoRepo {
	return &MemoryTodoRepo{todos: make(map[string]memoryTodo)}
}

func (r *MemoryTodoRepo) Create(_ context.Context, t dom.Todo) (dom.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	r.seq++
	out := dom.Todo{
		ID:          uuid.NewString(),
		Description: t.Description,
		Owner:       t.Owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.todos[out.ID] = memoryTodo{todo: out, seq: r.seq}
	return out, nil
}

func (r *MemoryTodoRepo) ListByOwner(_ context.Context, owner string) ([]dom.Todo, error) {
	r.mu.RLock()
	owned := make([]memoryTodo, 0)
	for _, mt := range r.todos {
		if mt.todo.Owner == owner {
			owned = append(owned, mt)
		}
	}
	r.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool { return owned[i].seq < owned[j].seq })
	list := make([]dom.Todo, len(owned))
	for i := range owned {
		list[i] = owned[i].todo
	}
	return list, nil
}

func (r *MemoryTodoRepo) Toggle(_ context.Context, owner, id string) (dom.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mt, ok := r.todos[id]
	if !ok || mt.todo.Owner != owner {
		return dom.Todo{}, dom.ErrNotFound
	}
	mt.todo.Completed = !mt.todo.Completed
	mt.todo.UpdatedAt = time.Now().UTC()
	r.todos[id] = mt
	return mt.todo, nil
}

func (r *MemoryTodoRepo) Delete(_ context.Context, owner, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	mt, ok := r.todos[id]
	if !ok || mt.todo.Owner != owner {
		return dom.ErrNotFound
	}
	delete(r.todos, id)
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"todoweb/internal/cache"
	dom "todoweb/internal/domain"
	"todoweb/internal/logger"
	"todoweb/internal/repo"

	"golang.org/x/sync/singleflight"
)

var ErrNotFound = errors.New("todo not found")

type TodoService struct {
	repo  repo.TodoRepo
	cache *cache.TodoCache
	sf    singleflight.Group
}

// NewTodoService creates a TodoService. If c is nil, caching is disabled.
func NewTodoService(r repo.TodoRepo, c *cache.TodoCache) *TodoService {
	return &TodoService{repo: r, cache: c}
}

func (s *TodoService) Create(ctx context.Context, owner, description string) (dom.Todo, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return dom.Todo{}, fmt.Errorf("%w: description is required", ErrValidation)
	}
	t, err := s.repo.Create(ctx, dom.Todo{Description: description, Owner: owner})
	if err != nil {
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, owner)
	return t, nil
}

// List returns owner's todos; never nil.
// The cache generation is read before the store so that a list filled
// concurrently with a write is never served after it.
func (s *TodoService) List(ctx context.Context, owner string) ([]dom.Todo, error) {
	if s.cache == nil {
		return s.repo.ListByOwner(ctx, owner)
	}
	gen, err := s.cache.Generation(ctx, owner)
	if err != nil {
		logger.Warnf(ctx, "todo cache generation %s: %v", owner, err)
		return s.repo.ListByOwner(ctx, owner)
	}
	v, err, _ := s.sf.Do(fmt.Sprintf("list:%s:%d", owner, gen), func() (interface{}, error) {
		// shared by every waiter on this key; one caller going away must not fail the rest
		ctx := context.WithoutCancel(ctx)
		list, ok, err := s.cache.GetList(ctx, owner, gen)
		if err != nil {
			logger.Warnf(ctx, "todo cache get %s: %v", owner, err)
		}
		if ok {
			return list, nil
		}
		list, err = s.repo.ListByOwner(ctx, owner)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetList(ctx, owner, gen, list); err != nil {
			logger.Warnf(ctx, "todo cache set %s: %v", owner, err)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.Todo), nil
}

func (s *TodoService) Toggle(ctx context.Context, owner, id string) (dom.Todo, error) {
	t, err := s.repo.Toggle(ctx, owner, id)
	if err != nil {
		if errors.Is(err, dom.ErrNotFound) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, owner)
	return t, nil
}

func (s *TodoService) Delete(ctx context.Context, owner, id string) error {
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		if errors.Is(err, dom.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.invalidateCache(ctx, owner)
	return nil
}

func (s *TodoService) invalidateCache(ctx context.Context, owner string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, owner); err != nil {
		logger.Warnf(ctx, "todo cache invalidate %s: %v", owner, err)
	}
}

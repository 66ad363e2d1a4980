/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package docstore

import (
	"context"
	"sync"

	"github.com/tomoncle/docstore/database"
	"github.com/tomoncle/docstore/repository"
	"github.com/tomoncle/docstore/types"
)

type Service[T types.Entity] interface {
	// Get returns a single entity by its identifier, or the zero T.
	Get(ctx context.Context, id string) (T, error)

	// All returns all entities.
	All(ctx context.Context) ([]T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter types.Filter) ([]T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Update replaces an existing entity and reports whether it changed.
	Update(ctx context.Context, model T) (bool, error)

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id string) (bool, error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...T) error

	// Count returns the number of entities matching filter.
	Count(ctx context.Context, filter types.Filter) (int64, error)

	// Repository returns the repository bound to the global database.
	Repository() (repository.Repository[T], error)
}

type baseServiceImpl[T types.Entity] struct {
	collection string
	opts       []repository.Option[T]

	mu   sync.Mutex
	repo repository.Repository[T]
}

// NewService returns a default Service implementation over the named
// collection of the global database (see database.InitDB). The repository is
// bound on first use.
func NewService[T types.Entity](collection string, opts ...repository.Option[T]) Service[T] {
	return newBaseServiceImpl[T](collection, opts...)
}

func newBaseServiceImpl[T types.Entity](collection string, opts ...repository.Option[T]) *baseServiceImpl[T] {
	return &baseServiceImpl[T]{collection: collection, opts: opts}
}

func (s *baseServiceImpl[T]) baseRepo() (repository.Repository[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo != nil {
		return s.repo, nil
	}
	db := database.GetDatabase()
	if db == nil {
		return nil, database.ErrNotInitialized
	}
	s.repo = repository.GetRepository[T](db, s.collection, s.opts...)
	return s.repo, nil
}

func (s *baseServiceImpl[T]) Repository() (repository.Repository[T], error) {
	return s.baseRepo()
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	for _, m := range model {
		if err := repo.Insert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id string) (T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		var zero T
		return zero, err
	}
	return repo.GetByID(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter types.Filter) ([]T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetListBy(ctx, filter)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model T) (bool, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return false, err
	}
	return repo.Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id string) (bool, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return false, err
	}
	return repo.DeleteByID(ctx, id)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, filter types.Filter) (int64, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return 0, err
	}
	return repo.CountBy(ctx, filter)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, page)
}

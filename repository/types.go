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

package repository

import (
	"context"

	"github.com/tomoncle/docstore/database"
	"github.com/tomoncle/docstore/types"
)

// CrudRepository defines insert, read, update and delete operations for an
// entity type. Reads that find nothing return an empty value, not an error.
type CrudRepository[T types.Entity] interface {
	// Insert assigns a new identifier when the entity has none.
	Insert(ctx context.Context, entity T) error

	GetAll(ctx context.Context) ([]T, error)

	// GetByID returns the zero T when no document has the identifier.
	GetByID(ctx context.Context, id string) (T, error)

	GetByField(ctx context.Context, field string, value any) ([]T, error)

	GetListBy(ctx context.Context, filter types.Filter) ([]T, error)

	// First returns the zero T when nothing matches.
	First(ctx context.Context, filter types.Filter) (T, error)

	// FindBy returns nil when nothing matches.
	FindBy(ctx context.Context, filter types.Filter) (*Query[T], error)

	// Get skips startingFrom documents in natural order and returns up to count.
	Get(ctx context.Context, startingFrom, count int) ([]T, error)

	Update(ctx context.Context, entity T) (bool, error)

	UpdateField(ctx context.Context, id string, field string, value any) (bool, error)

	DeleteByID(ctx context.Context, id string) (bool, error)

	DeleteBy(ctx context.Context, filter types.Filter) (bool, error)

	DeleteAll(ctx context.Context) (int64, error)
}

// QueryRepository defines counting, grouping and projection helpers.
type QueryRepository[T types.Entity] interface {
	CountBy(ctx context.Context, filter types.Filter) (int64, error)

	Any(ctx context.Context, filter types.Filter) (bool, error)

	// SumBy returns the number of distinct groups, not a numeric sum.
	SumBy(ctx context.Context, grouping types.Grouping) (int, error)

	// GetAllValuesByPropertyName reads name from every element of list, or
	// of a fresh GetAll when list is nil, through the configured accessors.
	GetAllValuesByPropertyName(ctx context.Context, name string, list []T) ([]string, error)
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T types.Entity] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// IndexRepository creates ascending indexes.
type IndexRepository interface {
	CreateIndex(ctx context.Context, field string) (string, error)
	CreateIndexOnCollection(ctx context.Context, collection database.Collection, field string) (string, error)
}

// AsyncRepository runs repository operations in the background.
type AsyncRepository[T types.Entity] interface {
	InsertAsync(ctx context.Context, entity T) *Future[T]
	GetAllAsync(ctx context.Context) *Future[[]T]
	GetByIDAsync(ctx context.Context, id string) *Future[T]
	GetByFieldAsync(ctx context.Context, field string, value any) *Future[[]T]
	FirstAsync(ctx context.Context, filter types.Filter) *Future[T]
	GetAsync(ctx context.Context, startingFrom, count int) *Future[[]T]
	UpdateAsync(ctx context.Context, entity T) *Future[bool]
	UpdateFieldAsync(ctx context.Context, id string, field string, value any) *Future[bool]
	DeleteByIDAsync(ctx context.Context, id string) *Future[bool]
	DeleteByAsync(ctx context.Context, filter types.Filter) *Future[bool]
	DeleteAllAsync(ctx context.Context) *Future[int64]
	CountByAsync(ctx context.Context, filter types.Filter) *Future[int64]
}

// Repository combines every operation over one collection and exposes the
// collection for advanced use cases.
type Repository[T types.Entity] interface {
	CrudRepository[T]
	QueryRepository[T]
	PageQueryRepository[T]
	IndexRepository
	AsyncRepository[T]
	Collection() database.Collection
}

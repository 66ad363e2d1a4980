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

// Query is a lazy cursor over the documents matching a filter. Nothing is
// read from the store until All, First or Count is called. The chaining
// methods return a new Query and leave the receiver unchanged.
type Query[T types.Entity] struct {
	coll   database.Collection
	filter types.Filter
	sorts  []types.SortField
	skip   int64
	limit  int64
}

func newQuery[T types.Entity](coll database.Collection, filter types.Filter) *Query[T] {
	return &Query[T]{coll: coll, filter: filter}
}

func (q *Query[T]) clone() *Query[T] {
	c := *q
	c.sorts = append([]types.SortField(nil), q.sorts...)
	return &c
}

// Filter returns the filter the query was built with.
func (q *Query[T]) Filter() types.Filter {
	return q.filter
}

// Sort appends ordering fields.
func (q *Query[T]) Sort(sorts ...types.SortField) *Query[T] {
	c := q.clone()
	c.sorts = append(c.sorts, sorts...)
	return c
}

// Skip sets how many matches to skip. Negative values are treated as zero.
func (q *Query[T]) Skip(n int64) *Query[T] {
	c := q.clone()
	c.skip = max(n, 0)
	return c
}

// Limit caps the number of results; zero or less means no limit.
func (q *Query[T]) Limit(n int64) *Query[T] {
	c := q.clone()
	c.limit = max(n, 0)
	return c
}

func (q *Query[T]) options() *database.FindOptions {
	return database.NewFindOptions().
		SetSort(q.sorts...).
		SetSkip(q.skip).
		SetLimit(q.limit)
}

// All reads every document in the window.
func (q *Query[T]) All(ctx context.Context) ([]T, error) {
	entities := make([]T, 0)
	if err := q.coll.Find(ctx, q.filter, q.options(), &entities); err != nil {
		return nil, err
	}
	if entities == nil {
		entities = make([]T, 0)
	}
	return entities, nil
}

// First reads the first document in the window. It returns
// database.ErrNoDocuments when the window is empty.
func (q *Query[T]) First(ctx context.Context) (T, error) {
	var zero T
	entities, err := q.Limit(1).All(ctx)
	if err != nil {
		return zero, err
	}
	if len(entities) == 0 {
		return zero, database.ErrNoDocuments
	}
	return entities[0], nil
}

// Count returns the number of documents in the window.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	total, err := q.coll.CountDocuments(ctx, q.filter)
	if err != nil {
		return 0, err
	}
	total = max(total-q.skip, 0)
	if q.limit > 0 {
		total = min(total, q.limit)
	}
	return total, nil
}

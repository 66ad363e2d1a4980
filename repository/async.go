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

	"github.com/tomoncle/docstore/types"
)

// Future is the pending result of an asynchronous repository operation.
type Future[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Go runs fn in a new goroutine and returns its future result.
func Go[V any](ctx context.Context, fn func(ctx context.Context) (V, error)) *Future[V] {
	f := &Future[V]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Done is closed when the operation has finished.
func (f *Future[V]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the operation finishes or ctx is done. Cancelling ctx
// stops the wait only; the operation keeps the context it was started with.
func (f *Future[V]) Await(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func (r *baseRepositoryImpl[T]) InsertAsync(ctx context.Context, entity T) *Future[T] {
	return Go(ctx, func(ctx context.Context) (T, error) {
		return entity, r.Insert(ctx, entity)
	})
}

func (r *baseRepositoryImpl[T]) GetAllAsync(ctx context.Context) *Future[[]T] {
	return Go(ctx, r.GetAll)
}

func (r *baseRepositoryImpl[T]) GetByIDAsync(ctx context.Context, id string) *Future[T] {
	return Go(ctx, func(ctx context.Context) (T, error) {
		return r.GetByID(ctx, id)
	})
}

func (r *baseRepositoryImpl[T]) GetByFieldAsync(ctx context.Context, field string, value any) *Future[[]T] {
	return Go(ctx, func(ctx context.Context) ([]T, error) {
		return r.GetByField(ctx, field, value)
	})
}

func (r *baseRepositoryImpl[T]) FirstAsync(ctx context.Context, filter types.Filter) *Future[T] {
	return Go(ctx, func(ctx context.Context) (T, error) {
		return r.First(ctx, filter)
	})
}

func (r *baseRepositoryImpl[T]) GetAsync(ctx context.Context, startingFrom, count int) *Future[[]T] {
	return Go(ctx, func(ctx context.Context) ([]T, error) {
		return r.Get(ctx, startingFrom, count)
	})
}

func (r *baseRepositoryImpl[T]) UpdateAsync(ctx context.Context, entity T) *Future[bool] {
	return Go(ctx, func(ctx context.Context) (bool, error) {
		return r.Update(ctx, entity)
	})
}

func (r *baseRepositoryImpl[T]) UpdateFieldAsync(ctx context.Context, id string, field string, value any) *Future[bool] {
	return Go(ctx, func(ctx context.Context) (bool, error) {
		return r.UpdateField(ctx, id, field, value)
	})
}

func (r *baseRepositoryImpl[T]) DeleteByIDAsync(ctx context.Context, id string) *Future[bool] {
	return Go(ctx, func(ctx context.Context) (bool, error) {
		return r.DeleteByID(ctx, id)
	})
}

func (r *baseRepositoryImpl[T]) DeleteByAsync(ctx context.Context, filter types.Filter) *Future[bool] {
	return Go(ctx, func(ctx context.Context) (bool, error) {
		return r.DeleteBy(ctx, filter)
	})
}

func (r *baseRepositoryImpl[T]) DeleteAllAsync(ctx context.Context) *Future[int64] {
	return Go(ctx, r.DeleteAll)
}

func (r *baseRepositoryImpl[T]) CountByAsync(ctx context.Context, filter types.Filter) *Future[int64] {
	return Go(ctx, func(ctx context.Context) (int64, error) {
		return r.CountBy(ctx, filter)
	})
}

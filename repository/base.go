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
	"fmt"
	"reflect"

	"github.com/tomoncle/docstore/database"
	"github.com/tomoncle/docstore/types"
)

type baseRepositoryImpl[T types.Entity] struct {
	coll      database.Collection
	accessors types.Accessors[T]
}

// Option configures a repository.
type Option[T types.Entity] func(*baseRepositoryImpl[T])

// WithAccessors registers the named field readers used by
// GetAllValuesByPropertyName.
func WithAccessors[T types.Entity](accessors types.Accessors[T]) Option[T] {
	return func(r *baseRepositoryImpl[T]) {
		r.accessors = accessors
	}
}

// NewRepository returns a generic repository bound to coll.
func NewRepository[T types.Entity](coll database.Collection, opts ...Option[T]) Repository[T] {
	r := &baseRepositoryImpl[T]{coll: coll}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *baseRepositoryImpl[T]) Collection() database.Collection { return r.coll }

// find decodes every match into a non-nil slice.
func (r *baseRepositoryImpl[T]) find(ctx context.Context, filter types.Filter, opts *database.FindOptions) ([]T, error) {
	entities := make([]T, 0)
	if err := r.coll.Find(ctx, filter, opts, &entities); err != nil {
		return nil, err
	}
	if entities == nil {
		entities = make([]T, 0)
	}
	return entities, nil
}

// findFirst returns the first match in natural order, or the zero T.
func (r *baseRepositoryImpl[T]) findFirst(ctx context.Context, filter types.Filter) (T, error) {
	var zero T
	entities, err := r.find(ctx, filter, database.NewFindOptions().SetLimit(1))
	if err != nil || len(entities) == 0 {
		return zero, err
	}
	return entities[0], nil
}

func (r *baseRepositoryImpl[T]) Insert(ctx context.Context, entity T) error {
	if entity.GetID() == "" {
		entity.SetID(types.NewID())
	}
	return r.coll.InsertOne(ctx, entity)
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]T, error) {
	return r.find(ctx, types.All(), nil)
}

func (r *baseRepositoryImpl[T]) GetByID(ctx context.Context, id string) (T, error) {
	return r.First(ctx, types.ID(id))
}

func (r *baseRepositoryImpl[T]) GetByField(ctx context.Context, field string, value any) ([]T, error) {
	return r.GetListBy(ctx, types.Eq(field, value))
}

func (r *baseRepositoryImpl[T]) GetListBy(ctx context.Context, filter types.Filter) ([]T, error) {
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return make([]T, 0), nil
	}
	return r.find(ctx, filter, nil)
}

func (r *baseRepositoryImpl[T]) First(ctx context.Context, filter types.Filter) (T, error) {
	var zero T
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil || total == 0 {
		return zero, err
	}
	return r.findFirst(ctx, filter)
}

func (r *baseRepositoryImpl[T]) FindBy(ctx context.Context, filter types.Filter) (*Query[T], error) {
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil || total == 0 {
		return nil, err
	}
	return newQuery[T](r.coll, filter), nil
}

func (r *baseRepositoryImpl[T]) Get(ctx context.Context, startingFrom, count int) ([]T, error) {
	if count <= 0 {
		return make([]T, 0), nil
	}
	if startingFrom < 0 {
		startingFrom = 0
	}
	opts := database.NewFindOptions().
		SetSkip(int64(startingFrom)).
		SetLimit(int64(count))
	return r.find(ctx, types.All(), opts)
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(1, 10)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := r.coll.CountDocuments(ctx, pageRequest.GetFilter())
	if err != nil || total == 0 {
		return pagination, err
	}
	opts := database.NewFindOptions().
		SetSort(pageRequest.GetSorts()...).
		SetSkip(int64(pageRequest.GetOffset())).
		SetLimit(int64(pageRequest.GetPageSize()))
	entities, err := r.find(ctx, pageRequest.GetFilter(), opts)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity T) (bool, error) {
	result, err := r.coll.ReplaceOne(ctx, types.ID(entity.GetID()), entity)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (r *baseRepositoryImpl[T]) UpdateField(ctx context.Context, id string, field string, value any) (bool, error) {
	result, err := r.coll.UpdateOne(ctx, types.ID(id), map[string]any{field: value})
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id string) (bool, error) {
	return r.DeleteBy(ctx, types.ID(id))
}

func (r *baseRepositoryImpl[T]) DeleteBy(ctx context.Context, filter types.Filter) (bool, error) {
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil || total == 0 {
		return false, err
	}
	deleted, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

func (r *baseRepositoryImpl[T]) DeleteAll(ctx context.Context) (int64, error) {
	return r.coll.DeleteMany(ctx, types.All())
}

func (r *baseRepositoryImpl[T]) CountBy(ctx context.Context, filter types.Filter) (int64, error) {
	return r.coll.CountDocuments(ctx, filter)
}

func (r *baseRepositoryImpl[T]) Any(ctx context.Context, filter types.Filter) (bool, error) {
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

func (r *baseRepositoryImpl[T]) SumBy(ctx context.Context, grouping types.Grouping) (int, error) {
	groups, err := r.coll.CountGroups(ctx, grouping)
	if err != nil {
		return 0, err
	}
	return int(groups), nil
}

func (r *baseRepositoryImpl[T]) GetAllValuesByPropertyName(ctx context.Context, name string, list []T) ([]string, error) {
	values := make([]string, 0)
	accessor, ok := r.accessors[name]
	if !ok {
		return values, nil
	}
	if list == nil {
		all, err := r.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		list = all
	}
	for _, entity := range list {
		if v := accessor(entity); !isNil(v) {
			values = append(values, fmt.Sprint(v))
		}
	}
	return values, nil
}

func (r *baseRepositoryImpl[T]) CreateIndex(ctx context.Context, field string) (string, error) {
	return r.coll.CreateIndex(ctx, field)
}

func (r *baseRepositoryImpl[T]) CreateIndexOnCollection(ctx context.Context, collection database.Collection, field string) (string, error) {
	return collection.CreateIndex(ctx, field)
}

// isNil reports whether v carries no value, including typed nils such
// as a nil *string boxed in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

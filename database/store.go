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

package database

import (
	"context"
	"errors"

	"github.com/tomoncle/docstore/types"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrEmptyDatabaseName = errors.New("connection string does not name a database")
	ErrUnsupportedScheme = errors.New("unsupported connection string scheme")
	ErrUnsupportedFilter = errors.New("filter is not supported by this backend")
	ErrNotInitialized    = errors.New("database not initialized")
	ErrImmutableID       = errors.New("the _id field of a document cannot be changed")
	ErrPathConflict      = errors.New("update path crosses a field that is not a document")

	// ErrNoDocuments is returned when a single-document read finds nothing.
	ErrNoDocuments = mongo.ErrNoDocuments
)

// Database is a named database handle produced by Create. It is safe for
// concurrent use and shared by every repository built on it.
type Database interface {
	Name() string
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Collection is the store boundary consumed by repositories. Errors from the
// underlying driver are returned unchanged.
type Collection interface {
	Name() string

	CountDocuments(ctx context.Context, filter types.Filter) (int64, error)

	// Find decodes every match into results, which must be a pointer to a slice.
	Find(ctx context.Context, filter types.Filter, opts *FindOptions, results any) error

	InsertOne(ctx context.Context, doc any) error

	// UpdateOne sets the given fields on the first match.
	UpdateOne(ctx context.Context, filter types.Filter, set map[string]any) (*UpdateResult, error)

	ReplaceOne(ctx context.Context, filter types.Filter, replacement any) (*UpdateResult, error)

	DeleteOne(ctx context.Context, filter types.Filter) (int64, error)
	DeleteMany(ctx context.Context, filter types.Filter) (int64, error)

	// CountGroups returns the number of distinct groups produced by grouping.
	CountGroups(ctx context.Context, grouping types.Grouping) (int64, error)

	// CreateIndex creates an ascending index on field and returns its name.
	CreateIndex(ctx context.Context, field string) (string, error)
}

// FindOptions controls ordering and windowing of Find. Zero Limit means no limit.
type FindOptions struct {
	Sort  []types.SortField
	Skip  int64
	Limit int64
}

// NewFindOptions returns empty find options.
func NewFindOptions() *FindOptions {
	return &FindOptions{}
}

func (o *FindOptions) SetSort(sorts ...types.SortField) *FindOptions {
	o.Sort = append(o.Sort, sorts...)
	return o
}

func (o *FindOptions) SetSkip(skip int64) *FindOptions {
	o.Skip = skip
	return o
}

func (o *FindOptions) SetLimit(limit int64) *FindOptions {
	o.Limit = limit
	return o
}

// UpdateResult reports how many documents matched and how many changed.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

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
	"fmt"
	"sort"
	"strings"

	"github.com/tomoncle/docstore/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoDatabase struct {
	db      *mongo.Database
	closeFn func(ctx context.Context) error
}

var _ Database = (*mongoDatabase)(nil)

func newMongoDatabase(db *mongo.Database, closeFn func(ctx context.Context) error) *mongoDatabase {
	return &mongoDatabase{db: db, closeFn: closeFn}
}

func (d *mongoDatabase) Name() string { return d.db.Name() }

func (d *mongoDatabase) Collection(name string) Collection {
	return &mongoCollection{coll: d.db.Collection(name)}
}

func (d *mongoDatabase) Ping(ctx context.Context) error {
	return d.db.Client().Ping(ctx, readpref.Primary())
}

func (d *mongoDatabase) Close(ctx context.Context) error {
	if d.closeFn == nil {
		return d.db.Client().Disconnect(ctx)
	}
	return d.closeFn(ctx)
}

// mongoCollection maps the store boundary directly onto mongo.Collection.
type mongoCollection struct {
	coll *mongo.Collection
}

var _ Collection = (*mongoCollection)(nil)

func (c *mongoCollection) Name() string { return c.coll.Name() }

func (c *mongoCollection) CountDocuments(ctx context.Context, filter types.Filter) (int64, error) {
	f, err := MongoFilter(filter)
	if err != nil {
		return 0, err
	}
	return c.coll.CountDocuments(ctx, f)
}

func (c *mongoCollection) Find(ctx context.Context, filter types.Filter, opts *FindOptions, results any) error {
	f, err := MongoFilter(filter)
	if err != nil {
		return err
	}
	cur, err := c.coll.Find(ctx, f, mongoFindOptions(opts))
	if err != nil {
		return err
	}
	return cur.All(ctx, results)
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return err
}

func (c *mongoCollection) UpdateOne(ctx context.Context, filter types.Filter, set map[string]any) (*UpdateResult, error) {
	f, err := MongoFilter(filter)
	if err != nil {
		return nil, err
	}
	r, err := c.coll.UpdateOne(ctx, f, MongoSet(set))
	if err != nil {
		return nil, err
	}
	return &UpdateResult{MatchedCount: r.MatchedCount, ModifiedCount: r.ModifiedCount}, nil
}

func (c *mongoCollection) ReplaceOne(ctx context.Context, filter types.Filter, replacement any) (*UpdateResult, error) {
	f, err := MongoFilter(filter)
	if err != nil {
		return nil, err
	}
	r, err := c.coll.ReplaceOne(ctx, f, replacement)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{MatchedCount: r.MatchedCount, ModifiedCount: r.ModifiedCount}, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter types.Filter) (int64, error) {
	f, err := MongoFilter(filter)
	if err != nil {
		return 0, err
	}
	r, err := c.coll.DeleteOne(ctx, f)
	if err != nil {
		return 0, err
	}
	return r.DeletedCount, nil
}

func (c *mongoCollection) DeleteMany(ctx context.Context, filter types.Filter) (int64, error) {
	f, err := MongoFilter(filter)
	if err != nil {
		return 0, err
	}
	r, err := c.coll.DeleteMany(ctx, f)
	if err != nil {
		return 0, err
	}
	return r.DeletedCount, nil
}

func (c *mongoCollection) CountGroups(ctx context.Context, grouping types.Grouping) (int64, error) {
	cur, err := c.coll.Aggregate(ctx, MongoGroupCountPipeline(grouping))
	if err != nil {
		return 0, err
	}
	var rows []struct {
		Count int64 `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Count, nil
}

func (c *mongoCollection) CreateIndex(ctx context.Context, field string) (string, error) {
	return c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}})
}

// MongoFilter translates a filter specification into a MongoDB query document.
func MongoFilter(f types.Filter) (interface{}, error) {
	switch f.Op {
	case types.OpAll:
		return bson.D{}, nil
	case types.OpEq:
		return bson.D{{Key: f.Field, Value: f.Value}}, nil
	case types.OpNe:
		return mongoCompare(f, "$ne"), nil
	case types.OpGt:
		return mongoCompare(f, "$gt"), nil
	case types.OpGte:
		return mongoCompare(f, "$gte"), nil
	case types.OpLt:
		return mongoCompare(f, "$lt"), nil
	case types.OpLte:
		return mongoCompare(f, "$lte"), nil
	case types.OpIn:
		values := bson.A{}
		values = append(values, f.Values...)
		return bson.D{{Key: f.Field, Value: bson.D{{Key: "$in", Value: values}}}}, nil
	case types.OpAnd, types.OpOr:
		if len(f.Children) == 0 {
			if f.Op == types.OpAnd {
				return bson.D{}, nil
			}
			// $or rejects an empty array.
			return bson.D{{Key: types.IDField, Value: bson.D{{Key: "$in", Value: bson.A{}}}}}, nil
		}
		children := make(bson.A, 0, len(f.Children))
		for _, child := range f.Children {
			q, err := MongoFilter(child)
			if err != nil {
				return nil, err
			}
			children = append(children, q)
		}
		op := "$and"
		if f.Op == types.OpOr {
			op = "$or"
		}
		return bson.D{{Key: op, Value: children}}, nil
	case types.OpRaw:
		if f.Raw == nil {
			return bson.D{}, nil
		}
		return f.Raw, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, f)
	}
}

func mongoCompare(f types.Filter, op string) bson.D {
	return bson.D{{Key: f.Field, Value: bson.D{{Key: op, Value: f.Value}}}}
}

// MongoSet builds a $set update with keys in sorted order.
func MongoSet(set map[string]any) bson.D {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make(bson.D, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, bson.E{Key: k, Value: set[k]})
	}
	return bson.D{{Key: "$set", Value: fields}}
}

// MongoSort converts sort fields into a sort document.
func MongoSort(sorts []types.SortField) bson.D {
	d := make(bson.D, 0, len(sorts))
	for _, s := range sorts {
		dir := s.Direction
		if !dir.IsValid() {
			dir = types.Asc
		}
		d = append(d, bson.E{Key: s.Field, Value: dir.Number()})
	}
	return d
}

// MongoGroupCountPipeline groups the collection and counts the groups.
func MongoGroupCountPipeline(g types.Grouping) mongo.Pipeline {
	var group interface{}
	if g.Raw != nil {
		group = g.Raw
	} else {
		key := bson.D{}
		for _, field := range g.Fields {
			key = append(key, bson.E{Key: strings.ReplaceAll(field, ".", "_"), Value: "$" + field})
		}
		group = bson.D{{Key: "_id", Value: key}}
	}
	return mongo.Pipeline{
		{{Key: "$group", Value: group}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

func mongoFindOptions(opts *FindOptions) *options.FindOptions {
	fo := options.Find()
	if opts == nil {
		return fo
	}
	if len(opts.Sort) > 0 {
		fo.SetSort(MongoSort(opts.Sort))
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	return fo
}

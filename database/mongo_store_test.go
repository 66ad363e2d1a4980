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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/docstore/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMongoFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter types.Filter
		want   interface{}
	}{
		{"zero", types.Filter{}, bson.D{}},
		{"all", types.All(), bson.D{}},
		{"eq", types.Eq("name", "ann"), bson.D{{Key: "name", Value: "ann"}}},
		{"id", types.ID("abc"), bson.D{{Key: "_id", Value: "abc"}}},
		{"ne", types.Ne("age", 3), bson.D{{Key: "age", Value: bson.D{{Key: "$ne", Value: 3}}}}},
		{"gt", types.Gt("age", 3), bson.D{{Key: "age", Value: bson.D{{Key: "$gt", Value: 3}}}}},
		{"lte", types.Lte("age", 3), bson.D{{Key: "age", Value: bson.D{{Key: "$lte", Value: 3}}}}},
		{"in", types.In("tag", "a", "b"), bson.D{{Key: "tag", Value: bson.D{{Key: "$in", Value: bson.A{"a", "b"}}}}}},
		{"in empty", types.In("tag"), bson.D{{Key: "tag", Value: bson.D{{Key: "$in", Value: bson.A{}}}}}},
		{"and empty", types.And(), bson.D{}},
		{"or empty", types.Or(), bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: bson.A{}}}}}},
		{
			"between",
			types.Between("age", 1, 9),
			bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "age", Value: bson.D{{Key: "$gte", Value: 1}}}},
				bson.D{{Key: "age", Value: bson.D{{Key: "$lte", Value: 9}}}},
			}}},
		},
		{
			"or",
			types.Or(types.Eq("a", 1), types.Eq("b", 2)),
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "a", Value: 1}},
				bson.D{{Key: "b", Value: 2}},
			}}},
		},
		{"raw", types.Raw(bson.M{"x": 1}), bson.M{"x": 1}},
		{"raw nil", types.Raw(nil), bson.D{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MongoFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMongoFilterRejectsSQL(t *testing.T) {
	_, err := MongoFilter(types.Where("id = ?", 1))
	assert.ErrorIs(t, err, ErrUnsupportedFilter)

	_, err = MongoFilter(types.And(types.Eq("a", 1), types.Where("id = ?", 1)))
	assert.ErrorIs(t, err, ErrUnsupportedFilter)
}

func TestMongoSet(t *testing.T) {
	got := MongoSet(map[string]any{"b": 2, "a.c": 1})
	assert.Equal(t, bson.D{{Key: "$set", Value: bson.D{
		{Key: "a.c", Value: 1},
		{Key: "b", Value: 2},
	}}}, got)
}

func TestMongoSort(t *testing.T) {
	got := MongoSort([]types.SortField{
		types.SortBy("age", types.Desc),
		{Field: "name"},
	})
	assert.Equal(t, bson.D{{Key: "age", Value: -1}, {Key: "name", Value: 1}}, got)
}

func TestMongoGroupCountPipeline(t *testing.T) {
	got := MongoGroupCountPipeline(types.GroupBy("city", "meta.team"))
	want := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: bson.D{
			{Key: "city", Value: "$city"},
			{Key: "meta_team", Value: "$meta.team"},
		}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	assert.Equal(t, want, got)

	raw := bson.D{{Key: "_id", Value: "$city"}}
	got = MongoGroupCountPipeline(types.RawGroup(raw))
	assert.Equal(t, raw, got[0][0].Value)
}

func TestMongoFindOptions(t *testing.T) {
	fo := mongoFindOptions(NewFindOptions().SetSkip(5).SetLimit(10).SetSort(types.SortBy("n", types.Asc)))
	require.NotNil(t, fo.Skip)
	require.NotNil(t, fo.Limit)
	assert.EqualValues(t, 5, *fo.Skip)
	assert.EqualValues(t, 10, *fo.Limit)
	assert.Equal(t, bson.D{{Key: "n", Value: 1}}, fo.Sort)

	fo = mongoFindOptions(nil)
	assert.Nil(t, fo.Skip)
	assert.Nil(t, fo.Limit)
}

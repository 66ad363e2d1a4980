//go:build integration
// +build integration

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
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/tomoncle/docstore/types"
	"go.mongodb.org/mongo-driver/bson"
)

// startMongo runs a MongoDB container and returns a connection string
// naming the given database.
func startMongo(t *testing.T, ctx context.Context, dbName string) string {
	t.Helper()
	ctr, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	cs, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	u, err := url.Parse(cs)
	require.NoError(t, err)
	u.Path = "/" + dbName
	u.RawQuery = ""
	return u.String() + "?"
}

func TestMongoCollection(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	db, err := Create(ctx, startMongo(t, ctx, "itest"))
	require.NoError(t, err)
	defer func() { _ = db.Close(ctx) }()

	assert.Equal(t, "itest", db.Name())
	require.NoError(t, db.Ping(ctx))

	coll := db.Collection("people")
	seedPeople(t, coll)

	t.Run("Find", func(t *testing.T) {
		var got []*person
		require.NoError(t, coll.Find(ctx, types.Gt("age", 30), NewFindOptions().SetSort(types.SortBy("age", types.Desc)), &got))
		assert.Equal(t, []string{"p4", "p3"}, ids(got))

		got = nil
		require.NoError(t, coll.Find(ctx, types.Eq("meta.team", "core"), nil, &got))
		assert.Equal(t, []string{"p4"}, ids(got))

		got = nil
		require.NoError(t, coll.Find(ctx, types.Raw(bson.D{{Key: "city", Value: "rome"}}), nil, &got))
		assert.Equal(t, []string{"p2"}, ids(got))
	})

	t.Run("Count", func(t *testing.T) {
		n, err := coll.CountDocuments(ctx, types.In("name", "ann", "bob"))
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		n, err = coll.CountDocuments(ctx, types.Or())
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = coll.CountDocuments(ctx, types.Where("id = ?", "p1"))
		assert.ErrorIs(t, err, ErrUnsupportedFilter)
	})

	t.Run("CountGroups", func(t *testing.T) {
		n, err := coll.CountGroups(ctx, types.GroupBy("age"))
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		n, err = coll.CountGroups(ctx, types.RawGroup(bson.D{{Key: "_id", Value: "$city"}}))
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	t.Run("Update", func(t *testing.T) {
		res, err := coll.UpdateOne(ctx, types.ID("p1"), map[string]any{"age": 30})
		require.NoError(t, err)
		assert.EqualValues(t, 1, res.MatchedCount)
		assert.EqualValues(t, 0, res.ModifiedCount)

		res, err = coll.ReplaceOne(ctx, types.ID("p1"), &person{ID: "p1", Name: "ann", Age: 33})
		require.NoError(t, err)
		assert.EqualValues(t, 1, res.ModifiedCount)
	})

	t.Run("Index", func(t *testing.T) {
		name, err := coll.CreateIndex(ctx, "age")
		require.NoError(t, err)
		assert.Equal(t, "age_1", name)
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		err := coll.InsertOne(ctx, &person{ID: "p1"})
		is, kind := ClassifyError(err)
		assert.True(t, is)
		assert.Equal(t, DuplicateKeyErr, kind)
	})

	t.Run("Delete", func(t *testing.T) {
		n, err := coll.DeleteOne(ctx, types.ID("missing"))
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = coll.DeleteMany(ctx, types.All())
		require.NoError(t, err)
		assert.EqualValues(t, 4, n)
	})
}

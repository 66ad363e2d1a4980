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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/docstore/database"
	"github.com/tomoncle/docstore/types"
)

func openDatabase(t *testing.T) database.Database {
	t.Helper()
	ctx := context.Background()
	db, err := database.Create(ctx, "sqlite://r"+types.NewID()+"?mode=memory")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(ctx) })
	return db
}

func TestRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := GetRepository[*user](openDatabase(t), "users")

	u := &user{Name: "a"}
	require.NoError(t, repo.Insert(ctx, u))
	assert.Len(t, u.ID, 24)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Name)

	ok, err := repo.DeleteByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DeleteByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositoryQueries(t *testing.T) {
	ctx := context.Background()
	repo := GetRepository[*user](openDatabase(t), "users")
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, repo.Insert(ctx, &user{ID: name, Name: name, Age: 20 + i%3}))
	}

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	window, err := repo.Get(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "b", window[0].ID)
	assert.Equal(t, "c", window[1].ID)

	beyond, err := repo.Get(ctx, 10, 2)
	require.NoError(t, err)
	assert.NotNil(t, beyond)
	assert.Empty(t, beyond)

	tail, err := repo.Get(ctx, 3, 10)
	require.NoError(t, err)
	assert.Len(t, tail, 2)

	byAge, err := repo.GetByField(ctx, "age", 21)
	require.NoError(t, err)
	assert.Len(t, byAge, 2)

	none, err := repo.GetByField(ctx, "age", 99)
	require.NoError(t, err)
	assert.Empty(t, none)

	first, err := repo.First(ctx, types.Gte("age", 22))
	require.NoError(t, err)
	assert.Equal(t, "c", first.ID)

	q, err := repo.FindBy(ctx, types.Lt("age", 22))
	require.NoError(t, err)
	require.NotNil(t, q)
	sorted, err := q.Sort(types.SortBy("age", types.Desc), types.SortBy("_id", types.Asc)).All(ctx)
	require.NoError(t, err)
	ids := make([]string, len(sorted))
	for i, s := range sorted {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"b", "e", "a", "d"}, ids)
	n, err := q.Skip(1).Limit(2).Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	groups, err := repo.SumBy(ctx, types.GroupBy("age"))
	require.NoError(t, err)
	assert.Equal(t, 3, groups)

	total, err := repo.CountBy(ctx, types.In("name", "a", "b", "z"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	page, err := repo.Page(ctx, types.NewPageRequestWithSorts(2, 2, types.SortBy("_id", types.Desc)))
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "c", page.Items[0].ID)
}

func TestRepositoryUpdates(t *testing.T) {
	ctx := context.Background()
	repo := GetRepository[*user](openDatabase(t), "users")
	require.NoError(t, repo.Insert(ctx, &user{ID: "u1", Name: "a", Age: 1}))

	changed, err := repo.UpdateField(ctx, "u1", "age", 2)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateField(ctx, "u1", "age", 2)
	require.NoError(t, err)
	assert.False(t, changed, "same value leaves the document unmodified")

	changed, err = repo.UpdateField(ctx, "missing", "age", 2)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.Update(ctx, &user{ID: "u1", Name: "b", Age: 2, Email: "b@x"})
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &user{ID: "u1", Name: "b", Age: 2, Email: "b@x"}, got)

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	exists, err := repo.Any(ctx, types.All())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepositoryDocuments(t *testing.T) {
	ctx := context.Background()
	db := openDatabase(t)
	repo := GetRepository[types.Document](db, "events")

	require.NoError(t, repo.Insert(ctx, types.Document{"kind": "click", "meta": map[string]any{"page": "home"}}))
	require.NoError(t, repo.Insert(ctx, types.Document{"kind": "view"}))

	docs, err := repo.GetListBy(ctx, types.Eq("meta.page", "home"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "click", docs[0]["kind"])
	assert.Len(t, docs[0].GetID(), 24)

	name, err := repo.CreateIndex(ctx, "kind")
	require.NoError(t, err)
	assert.Equal(t, "events_kind_1", name)

	name, err = repo.CreateIndexOnCollection(ctx, db.Collection("audit"), "at")
	require.NoError(t, err)
	assert.Equal(t, "audit_at_1", name)
}

func TestRepositoryAsyncAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	repo := GetRepository[*user](openDatabase(t), "users")

	futures := make([]*Future[*user], 5)
	for i := range futures {
		futures[i] = repo.InsertAsync(ctx, &user{Name: "n", Age: i})
	}
	for _, f := range futures {
		_, err := f.Await(ctx)
		require.NoError(t, err)
	}

	n, err := repo.CountByAsync(ctx, types.Eq("name", "n")).Await(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

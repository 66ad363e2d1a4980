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
	"github.com/tomoncle/docstore/types"
)

func TestInsertAssignsID(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	repo := NewRepository[*user](stub)

	fresh := &user{Name: "a"}
	require.NoError(t, repo.Insert(ctx, fresh))
	assert.Len(t, fresh.ID, 24)

	other := &user{Name: "b"}
	require.NoError(t, repo.Insert(ctx, other))
	assert.NotEqual(t, fresh.ID, other.ID)

	preset := &user{ID: "mine", Name: "c"}
	require.NoError(t, repo.Insert(ctx, preset))
	assert.Equal(t, "mine", preset.ID)

	assert.Equal(t, 3, stub.called("insert"))
	assert.Same(t, fresh, stub.inserted[0])
}

func TestInsertDocument(t *testing.T) {
	stub := newStub()
	repo := NewRepository[types.Document](stub)

	doc := types.Document{"name": "a"}
	require.NoError(t, repo.Insert(context.Background(), doc))
	assert.Len(t, doc.GetID(), 24)
}

func TestDeleteSkipsStoreWhenNothingMatches(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	repo := NewRepository[*user](stub)

	ok, err := repo.DeleteByID(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, stub.called("deleteOne"))
	assert.Equal(t, types.ID("missing"), stub.lastFilter)

	ok, err = repo.DeleteBy(ctx, types.Eq("name", "x"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, stub.called("deleteOne"))
	assert.Equal(t, 2, stub.called("count"))
}

func TestDeleteByIDWhenMatched(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	stub.count = 2
	stub.deleted = 1
	repo := NewRepository[*user](stub)

	ok, err := repo.DeleteByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, stub.called("deleteOne"))
	assert.Equal(t, types.ID("u1"), stub.lastFilter)

	stub.deleted = 0
	ok, err = repo.DeleteBy(ctx, types.Gt("age", 1))
	require.NoError(t, err)
	assert.False(t, ok, "raced delete reports false")
}

func TestNoMatchSentinels(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	repo := NewRepository[*user](stub)

	byField, err := repo.GetByField(ctx, "name", "a")
	require.NoError(t, err)
	assert.NotNil(t, byField)
	assert.Empty(t, byField)

	first, err := repo.First(ctx, types.Eq("name", "a"))
	require.NoError(t, err)
	assert.Nil(t, first)

	byID, err := repo.GetByID(ctx, "x")
	require.NoError(t, err)
	assert.Nil(t, byID)

	list, err := repo.GetListBy(ctx, types.All())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	query, err := repo.FindBy(ctx, types.All())
	require.NoError(t, err)
	assert.Nil(t, query)

	assert.Equal(t, 5, stub.called("count"))
	assert.Equal(t, 0, stub.called("find"), "no fetch after a zero pre-count")
}

func TestReadsFetchAfterPositiveCount(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	stub.count = 2
	stub.found = []*user{{ID: "u1", Name: "a"}, {ID: "u2", Name: "a"}}
	repo := NewRepository[*user](stub)

	byField, err := repo.GetByField(ctx, "name", "a")
	require.NoError(t, err)
	assert.Len(t, byField, 2)
	assert.Equal(t, types.Eq("name", "a"), stub.lastFilter)

	first, err := repo.First(ctx, types.Eq("name", "a"))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "u1", first.ID)
	assert.EqualValues(t, 1, stub.lastOpts.Limit)

	byID, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", byID.ID)
	assert.Equal(t, types.ID("u1"), stub.lastFilter)

	query, err := repo.FindBy(ctx, types.Eq("name", "a"))
	require.NoError(t, err)
	require.NotNil(t, query)
	assert.Equal(t, types.Eq("name", "a"), query.Filter())
	assert.Equal(t, 3, stub.called("find"), "FindBy does not fetch")
}

func TestErrorsPropagateUnchanged(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	stub.countErr = errBoom
	repo := NewRepository[*user](stub)

	_, err := repo.GetByID(ctx, "x")
	assert.Same(t, errBoom, err)
	_, err = repo.DeleteByID(ctx, "x")
	assert.Same(t, errBoom, err)
	_, err = repo.Any(ctx, types.All())
	assert.Same(t, errBoom, err)

	stub.countErr = nil
	stub.count = 1
	stub.findErr = errBoom
	_, err = repo.GetListBy(ctx, types.All())
	assert.Same(t, errBoom, err)
	_, err = repo.GetAll(ctx)
	assert.Same(t, errBoom, err)
}

func TestGetWindow(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	repo := NewRepository[*user](stub)

	for _, count := range []int{0, -3} {
		got, err := repo.Get(ctx, 5, count)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Equal(t, 0, stub.called("find"))

	_, err := repo.Get(ctx, -4, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stub.lastOpts.Skip)
	assert.EqualValues(t, 10, stub.lastOpts.Limit)
	assert.True(t, stub.lastFilter.IsAll())

	_, err = repo.Get(ctx, 20, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 20, stub.lastOpts.Skip)
	assert.EqualValues(t, 5, stub.lastOpts.Limit)
	assert.Equal(t, 0, stub.called("count"), "paged get does not pre-count")
}

func TestUpdates(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	repo := NewRepository[*user](stub)

	changed, err := repo.UpdateField(ctx, "u1", "name", "b")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, map[string]any{"name": "b"}, stub.lastSet)
	assert.Equal(t, types.ID("u1"), stub.lastFilter)

	stub.modified = 1
	changed, err = repo.UpdateField(ctx, "u1", "name", "c")
	require.NoError(t, err)
	assert.True(t, changed)

	entity := &user{ID: "u2", Name: "d"}
	changed, err = repo.Update(ctx, entity)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Same(t, entity, stub.replaced)
	assert.Equal(t, types.ID("u2"), stub.lastFilter)
}

func TestDeleteAllCountAnySumBy(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	stub.deleted = 7
	stub.count = 4
	stub.groups = 3
	repo := NewRepository[*user](stub)

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.True(t, stub.lastFilter.IsAll())

	total, err := repo.CountBy(ctx, types.Gt("age", 1))
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)

	exists, err := repo.Any(ctx, types.All())
	require.NoError(t, err)
	assert.True(t, exists)

	groups, err := repo.SumBy(ctx, types.GroupBy("age", "name"))
	require.NoError(t, err)
	assert.Equal(t, 3, groups)
	assert.Equal(t, []string{"age", "name"}, stub.grouping.Fields)
}

func TestGetAllValuesByPropertyName(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	stub.found = []*user{{ID: "u1", Name: "a", Age: 1}, {ID: "u2", Name: "b", Age: 2, Email: "b@x"}}
	repo := NewRepository[*user](stub, WithAccessors(types.Accessors[*user]{
		"name": func(u *user) any { return u.Name },
		"age":  func(u *user) any { return u.Age },
		"email": func(u *user) any {
			if u.Email == "" {
				return nil
			}
			return u.Email
		},
	}))

	list := []*user{{Name: "x", Age: 9}, {Name: "y", Age: 8}}
	values, err := repo.GetAllValuesByPropertyName(ctx, "age", list)
	require.NoError(t, err)
	assert.Equal(t, []string{"9", "8"}, values)
	assert.Equal(t, 0, stub.called("find"))

	values, err = repo.GetAllValuesByPropertyName(ctx, "name", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, values)
	assert.Equal(t, 1, stub.called("find"))

	values, err = repo.GetAllValuesByPropertyName(ctx, "email", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@x"}, values)

	values, err = repo.GetAllValuesByPropertyName(ctx, "missing", nil)
	require.NoError(t, err)
	assert.NotNil(t, values)
	assert.Empty(t, values)
}

type member struct {
	ID   string   `bson:"_id"`
	Nick *string  `bson:"nick,omitempty"`
	Tags []string `bson:"tags,omitempty"`
}

func (m *member) GetID() string   { return m.ID }
func (m *member) SetID(id string) { m.ID = id }

func TestGetAllValuesByPropertyNameSkipsTypedNils(t *testing.T) {
	ctx := context.Background()
	nick := "neo"
	repo := NewRepository[*member](newStub(), WithAccessors(types.Accessors[*member]{
		"nick": func(m *member) any { return m.Nick },
		"tags": func(m *member) any { return m.Tags },
	}))

	values, err := repo.GetAllValuesByPropertyName(ctx, "nick", []*member{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{}, values)

	values, err = repo.GetAllValuesByPropertyName(ctx, "nick", []*member{{ID: "a"}, {ID: "b", Nick: &nick}})
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.NotEqual(t, "<nil>", values[0])

	values, err = repo.GetAllValuesByPropertyName(ctx, "tags", []*member{{ID: "a"}, {ID: "b", Tags: []string{"x"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"[x]"}, values)
}

func TestPage(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	repo := NewRepository[*user](stub)

	page, err := repo.Page(ctx, types.NewDefaultPageRequest(2, 5))
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, stub.called("find"))

	stub.count = 12
	stub.found = []*user{{ID: "u6"}}
	req := types.NewPageRequest(2, 5, types.Gt("age", 3), []types.SortField{types.SortBy("age", types.Desc)})
	page, err = repo.Page(ctx, req)
	require.NoError(t, err)
	assert.EqualValues(t, 12, page.Total)
	assert.Equal(t, 3, page.TotalPages())
	assert.Len(t, page.Items, 1)
	assert.EqualValues(t, 5, stub.lastOpts.Skip)
	assert.EqualValues(t, 5, stub.lastOpts.Limit)
	assert.Equal(t, []types.SortField{types.SortBy("age", types.Desc)}, stub.lastOpts.Sort)
	assert.Equal(t, types.Gt("age", 3), stub.lastFilter)

	page, err = repo.Page(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)
	assert.EqualValues(t, 0, stub.lastOpts.Skip)
	assert.EqualValues(t, 10, stub.lastOpts.Limit)
}

func TestCreateIndex(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	other := newStub()
	repo := NewRepository[*user](stub)

	name, err := repo.CreateIndex(ctx, "age")
	require.NoError(t, err)
	assert.Equal(t, "age_1", name)

	_, err = repo.CreateIndexOnCollection(ctx, other, "email")
	require.NoError(t, err)
	assert.Equal(t, []string{"age"}, stub.indexed)
	assert.Equal(t, []string{"email"}, other.indexed)
}

func TestGetRepository(t *testing.T) {
	db := &stubDatabase{}
	repo := GetRepository[*user](db, "accounts")
	assert.Equal(t, "accounts", repo.Collection().Name())

	again := GetRepository[*user](db, "accounts")
	assert.NotSame(t, repo, again, "repositories are not cached")
	assert.Same(t, repo.Collection(), again.Collection())
}

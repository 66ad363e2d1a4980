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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/docstore/types"
)

func TestFutureAwait(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (int, error) {
		return 42, nil
	})
	<-f.Done()
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	failed := Go(context.Background(), func(context.Context) (string, error) {
		return "", errBoom
	})
	_, err = failed.Await(context.Background())
	assert.Same(t, errBoom, err)
}

func TestFutureAwaitCancelled(t *testing.T) {
	release := make(chan struct{})
	f := Go(context.Background(), func(context.Context) (int, error) {
		<-release
		return 7, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v, "the operation outlives a cancelled wait")
}

func TestAsyncOperations(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	stub.count = 1
	stub.deleted = 1
	stub.modified = 1
	stub.found = []*user{{ID: "u1", Name: "a"}}
	repo := NewRepository[*user](stub)

	inserted, err := repo.InsertAsync(ctx, &user{Name: "a"}).Await(ctx)
	require.NoError(t, err)
	assert.Len(t, inserted.ID, 24)

	all, err := repo.GetAllAsync(ctx).Await(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	byID, err := repo.GetByIDAsync(ctx, "u1").Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", byID.ID)

	byField, err := repo.GetByFieldAsync(ctx, "name", "a").Await(ctx)
	require.NoError(t, err)
	assert.Len(t, byField, 1)

	first, err := repo.FirstAsync(ctx, types.Eq("name", "a")).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", first.Name)

	window, err := repo.GetAsync(ctx, 0, 0).Await(ctx)
	require.NoError(t, err)
	assert.Empty(t, window)

	changed, err := repo.UpdateAsync(ctx, &user{ID: "u1"}).Await(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateFieldAsync(ctx, "u1", "age", 3).Await(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	deleted, err := repo.DeleteByIDAsync(ctx, "u1").Await(ctx)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteByAsync(ctx, types.Eq("name", "a")).Await(ctx)
	require.NoError(t, err)
	assert.True(t, deleted)

	n, err := repo.DeleteAllAsync(ctx).Await(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.CountByAsync(ctx, types.All()).Await(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAsyncInsertsRunConcurrently(t *testing.T) {
	ctx := context.Background()
	stub := newStub()
	repo := NewRepository[*user](stub)

	futures := make([]*Future[*user], 20)
	for i := range futures {
		futures[i] = repo.InsertAsync(ctx, &user{Age: i})
	}

	var mu sync.Mutex
	seen := make(map[string]bool)
	for _, f := range futures {
		u, err := f.Await(ctx)
		require.NoError(t, err)
		mu.Lock()
		seen[u.ID] = true
		mu.Unlock()
	}
	assert.Len(t, seen, 20)
	assert.Equal(t, 20, stub.called("insert"))
}

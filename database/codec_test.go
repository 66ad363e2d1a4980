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
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWithID(t *testing.T) {
	d, id := withID(bson.D{{Key: "name", Value: "a"}, {Key: "_id", Value: ""}})
	assert.Len(t, id, 24)
	require.Len(t, d, 2)
	assert.Equal(t, bson.E{Key: "_id", Value: id}, d[0])
	assert.Equal(t, "name", d[1].Key)

	d, id = withID(bson.D{{Key: "_id", Value: "fixed"}})
	assert.Equal(t, "fixed", id)
	assert.Len(t, d, 1)

	oid := primitive.NewObjectID()
	_, id = withID(bson.D{{Key: "_id", Value: oid}})
	assert.Equal(t, oid.Hex(), id)
}

func TestSetPath(t *testing.T) {
	d := bson.D{{Key: "a", Value: 1}, {Key: "m", Value: bson.D{{Key: "x", Value: 1}}}}

	got, err := setPath(d, []string{"a"}, 2)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "a", Value: 2}, {Key: "m", Value: bson.D{{Key: "x", Value: 1}}}}, got)
	assert.Equal(t, 1, d[0].Value, "input is not modified")

	got, err = setPath(d, []string{"m", "y"}, 3)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "x", Value: 1}, {Key: "y", Value: 3}}, got[1].Value)

	got, err = setPath(d, []string{"n", "z"}, true)
	require.NoError(t, err)
	assert.Equal(t, bson.E{Key: "n", Value: bson.D{{Key: "z", Value: true}}}, got[2])

	_, err = setPath(d, []string{"a", "inner"}, 1)
	assert.ErrorIs(t, err, ErrPathConflict)

	_, err = setPath(bson.D{{Key: "m", Value: nil}}, []string{"m", "x", "y"}, 1)
	assert.ErrorIs(t, err, ErrPathConflict)
	assert.Equal(t, 1, d[0].Value, "input is not modified")
}

func TestSameDocument(t *testing.T) {
	a := bson.D{{Key: "a", Value: int32(1)}, {Key: "m", Value: bson.D{{Key: "x", Value: "1"}, {Key: "y", Value: "2"}}}}
	b := bson.D{{Key: "m", Value: bson.D{{Key: "y", Value: "2"}, {Key: "x", Value: "1"}}}, {Key: "a", Value: 1}}
	assert.True(t, sameDocument(a, b))

	c := bson.D{{Key: "a", Value: 2}, {Key: "m", Value: bson.D{{Key: "x", Value: "1"}, {Key: "y", Value: "2"}}}}
	assert.False(t, sameDocument(a, c))

	assert.False(t, sameDocument(bson.D{{Key: "l", Value: bson.A{1, 2}}}, bson.D{{Key: "l", Value: bson.A{2, 1}}}))
}

func TestBodyRoundTripKeepsTypes(t *testing.T) {
	oid := primitive.NewObjectID()
	d := bson.D{{Key: "_id", Value: "x"}, {Key: "ref", Value: oid}, {Key: "n", Value: int64(7)}}
	body, err := encodeBody(d)
	require.NoError(t, err)
	assert.Contains(t, body, `{"$oid":"`+oid.Hex()+`"}`)

	back, err := decodeBody(body)
	require.NoError(t, err)
	v, ok := lookup(back, "ref")
	require.True(t, ok)
	assert.Equal(t, oid, v)
}

func TestRelaxedJSON(t *testing.T) {
	s, err := relaxedJSON("a")
	require.NoError(t, err)
	assert.Equal(t, `"a"`, s)

	s, err = relaxedJSON(bson.A{1, "b"})
	require.NoError(t, err)
	assert.Equal(t, `[1,"b"]`, s)
}

func TestIDString(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, "", idString(nil))
	assert.Equal(t, "s", idString("s"))
	assert.Equal(t, oid.Hex(), idString(oid))
	assert.Equal(t, "12", idString(12))
}

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

package types

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the document key holding the entity identifier.
const IDField = "_id"

// Entity is a record with a mutable string identifier. Implementations are
// usually pointer types so SetID is visible to the caller:
//
//	type User struct {
//		ID   string `bson:"_id"`
//		Name string `bson:"name"`
//	}
//
//	func (u *User) GetID() string   { return u.ID }
//	func (u *User) SetID(id string) { u.ID = id }
type Entity interface {
	GetID() string
	SetID(id string)
}

// NewID returns a new globally unique identifier (24 hex characters).
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// Accessors maps a field name to a function reading that field from an
// entity. A nil result means the entity has no value for the field.
type Accessors[T any] map[string]func(T) interface{}

// Document is a schemaless entity.
type Document map[string]interface{}

var _ Entity = Document{}

func (d Document) GetID() string {
	switch v := d[IDField].(type) {
	case nil:
		return ""
	case string:
		return v
	case primitive.ObjectID:
		return v.Hex()
	default:
		return fmt.Sprint(v)
	}
}

// SetID stores id under IDField. It panics on a nil Document.
func (d Document) SetID(id string) {
	d[IDField] = id
}

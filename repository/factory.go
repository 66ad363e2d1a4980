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
	"github.com/tomoncle/docstore/database"
	"github.com/tomoncle/docstore/types"
)

// GetRepository returns a repository bound to the named collection of db.
// The collection is not checked; stores create it on first write.
func GetRepository[T types.Entity](db database.Database, collection string, opts ...Option[T]) Repository[T] {
	return NewRepository[T](db.Collection(collection), opts...)
}

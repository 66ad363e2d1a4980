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

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// Operator tags the variant held by a Filter.
type Operator int

const (
	OpAll Operator = iota
	OpEq
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpAnd
	OpOr
	OpRaw
	OpSQL
)

var operatorNames = [...]string{"all", "eq", "ne", "gt", "gte", "lt", "lte", "in", "and", "or", "raw", "sql"}

var operatorDescs = [...]string{
	"match every document",
	"field equals value",
	"field differs from value or is missing",
	"field greater than value",
	"field greater than or equal to value",
	"field less than value",
	"field less than or equal to value",
	"field equals one of the values",
	"all sub-filters match",
	"at least one sub-filter matches",
	"store-native query document",
	"SQL where fragment",
}

var _ BaseEnum = OpAll

func (o Operator) IsValid() bool { return o >= OpAll && o <= OpSQL }

func (o Operator) Number() int {
	if !o.IsValid() {
		return IllegalValue
	}
	return int(o)
}

func (o Operator) Name() string {
	if !o.IsValid() {
		return IllegalName
	}
	return operatorNames[o]
}

func (o Operator) String() string { return o.Name() }

func (o Operator) Desc() string {
	if !o.IsValid() {
		return IllegalDesc
	}
	return operatorDescs[o]
}

// SortDirection orders query results on a field.
type SortDirection int

const (
	Asc  SortDirection = 1
	Desc SortDirection = -1
)

var _ BaseEnum = Asc

func (d SortDirection) IsValid() bool { return d == Asc || d == Desc }

func (d SortDirection) Number() int {
	if !d.IsValid() {
		return IllegalValue
	}
	return int(d)
}

func (d SortDirection) Name() string {
	switch d {
	case Asc:
		return "ASC"
	case Desc:
		return "DESC"
	default:
		return IllegalName
	}
}

func (d SortDirection) String() string { return d.Name() }

func (d SortDirection) Desc() string {
	switch d {
	case Asc:
		return "ascending"
	case Desc:
		return "descending"
	default:
		return IllegalDesc
	}
}

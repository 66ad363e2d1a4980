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
	"strings"
)

// QueryFilter describes a SQL WHERE clause schema and its argument values.
// It is only understood by the SQL document store.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// Filter selects a subset of documents. The zero value matches everything.
//
// Which fields are meaningful depends on Op: comparison operators use Field
// and Value, OpIn uses Field and Values, OpAnd/OpOr use Children, OpRaw uses
// Raw and OpSQL uses SQL.
type Filter struct {
	Op       Operator
	Field    string
	Value    interface{}
	Values   []interface{}
	Children []Filter
	Raw      interface{}
	SQL      *QueryFilter
}

// All matches every document.
func All() Filter { return Filter{Op: OpAll} }

// Eq matches documents whose field equals value. A scalar value also
// matches an array field holding it, and a nil value also matches
// documents where the field is missing.
func Eq(field string, value interface{}) Filter {
	return Filter{Op: OpEq, Field: field, Value: value}
}

// ID matches the document with the given identifier.
func ID(id string) Filter { return Eq(IDField, id) }

func Ne(field string, value interface{}) Filter {
	return Filter{Op: OpNe, Field: field, Value: value}
}

func Gt(field string, value interface{}) Filter {
	return Filter{Op: OpGt, Field: field, Value: value}
}

func Gte(field string, value interface{}) Filter {
	return Filter{Op: OpGte, Field: field, Value: value}
}

func Lt(field string, value interface{}) Filter {
	return Filter{Op: OpLt, Field: field, Value: value}
}

func Lte(field string, value interface{}) Filter {
	return Filter{Op: OpLte, Field: field, Value: value}
}

// Between matches lo <= field <= hi.
func Between(field string, lo, hi interface{}) Filter {
	return And(Gte(field, lo), Lte(field, hi))
}

// In matches documents whose field equals any of values. An empty list
// matches nothing.
func In(field string, values ...interface{}) Filter {
	return Filter{Op: OpIn, Field: field, Values: values}
}

// And matches when every child matches. With no children it matches everything.
func And(filters ...Filter) Filter {
	return Filter{Op: OpAnd, Children: filters}
}

// Or matches when at least one child matches. With no children it matches nothing.
func Or(filters ...Filter) Filter {
	return Filter{Op: OpOr, Children: filters}
}

// Raw wraps a store-native query document (bson.D, bson.M) for the MongoDB backend.
func Raw(doc interface{}) Filter {
	return Filter{Op: OpRaw, Raw: doc}
}

// Where wraps a SQL WHERE fragment for the SQL document store. The fragment
// may reference the "id" and "body" columns.
func Where(schema string, args ...interface{}) Filter {
	return Filter{Op: OpSQL, SQL: NewQueryFilter(schema, args...)}
}

// IsAll reports whether the filter matches every document without inspecting them.
func (f Filter) IsAll() bool {
	return f.Op == OpAll || (f.Op == OpAnd && len(f.Children) == 0)
}

func (f Filter) String() string {
	switch f.Op {
	case OpAll:
		return "{}"
	case OpIn:
		return fmt.Sprintf("{%s %s %v}", f.Field, f.Op, f.Values)
	case OpAnd, OpOr:
		parts := make([]string, len(f.Children))
		for i, c := range f.Children {
			parts[i] = c.String()
		}
		return fmt.Sprintf("{%s [%s]}", f.Op, strings.Join(parts, ", "))
	case OpRaw:
		return fmt.Sprintf("{raw %v}", f.Raw)
	case OpSQL:
		if f.SQL == nil {
			return "{sql <nil>}"
		}
		return fmt.Sprintf("{sql %q %v}", f.SQL.Schema, f.SQL.Args)
	default:
		return fmt.Sprintf("{%s %s %v}", f.Field, f.Op, f.Value)
	}
}

// SortField orders results on one field.
type SortField struct {
	Field     string
	Direction SortDirection
}

// SortBy builds a sort field; an invalid direction falls back to ascending.
func SortBy(field string, direction SortDirection) SortField {
	if !direction.IsValid() {
		direction = Asc
	}
	return SortField{Field: field, Direction: direction}
}

// Grouping is the projection used to group documents before counting groups.
type Grouping struct {
	Fields []string
	Raw    interface{}
}

// GroupBy groups documents by the tuple of the given field values.
func GroupBy(fields ...string) Grouping { return Grouping{Fields: fields} }

// RawGroup uses a store-native $group body (the MongoDB backend only).
func RawGroup(doc interface{}) Grouping { return Grouping{Raw: doc} }

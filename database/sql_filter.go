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
	"fmt"
	"strings"

	"github.com/tomoncle/docstore/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// sqlExpr is a query fragment with '?' placeholders and its arguments.
type sqlExpr struct {
	query string
	args  []any
}

func (e sqlExpr) wrap(format string) sqlExpr {
	return sqlExpr{query: fmt.Sprintf(format, e.query), args: e.args}
}

// join concatenates fragments with sep.
func join(sep string, parts ...sqlExpr) sqlExpr {
	queries := make([]string, len(parts))
	var args []any
	for i, p := range parts {
		queries[i] = p.query
		args = append(args, p.args...)
	}
	return sqlExpr{query: strings.Join(queries, sep), args: args}
}

var (
	matchAll  = sqlExpr{query: "1 = 1"}
	matchNone = sqlExpr{query: "1 = 0"}
)

// sqlTranslator turns filters into WHERE fragments over the id and body
// columns for one dialect.
type sqlTranslator struct {
	dialect dialect.Name
}

// jsonPath renders a dotted field as a quoted JSON path ($."a"."b").
func jsonPath(field string) string {
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range strings.Split(field, ".") {
		b.WriteString(`."`)
		b.WriteString(strings.ReplaceAll(seg, `"`, `\"`))
		b.WriteByte('"')
	}
	return b.String()
}

// pgPath renders a dotted field as a PostgreSQL text array literal ({"a","b"}).
func pgPath(field string) string {
	segs := strings.Split(field, ".")
	for i, seg := range segs {
		seg = strings.ReplaceAll(seg, `\`, `\\`)
		segs[i] = `"` + strings.ReplaceAll(seg, `"`, `\"`) + `"`
	}
	return "{" + strings.Join(segs, ",") + "}"
}

func (t sqlTranslator) field(name string) sqlExpr {
	if name == types.IDField {
		return sqlExpr{query: "?", args: []any{bun.Ident("id")}}
	}
	body := bun.Ident("body")
	switch t.dialect {
	case dialect.PG:
		return sqlExpr{query: "(?::jsonb #> ?::text[])", args: []any{body, pgPath(name)}}
	case dialect.MySQL:
		return sqlExpr{query: "JSON_EXTRACT(?, ?)", args: []any{body, jsonPath(name)}}
	default:
		return sqlExpr{query: "json_extract(?, ?)", args: []any{body, jsonPath(name)}}
	}
}

// indexExpr is the expression indexed by CreateIndex for field.
func (t sqlTranslator) indexExpr(name string) sqlExpr {
	if name == types.IDField {
		return t.field(name)
	}
	if t.dialect == dialect.MySQL {
		// MySQL cannot index an expression of JSON type.
		return sqlExpr{
			query: "(CAST(JSON_UNQUOTE(JSON_EXTRACT(?, ?)) AS CHAR(255)))",
			args:  []any{bun.Ident("body"), jsonPath(name)},
		}
	}
	return t.field(name).wrap("(%s)")
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func (t sqlTranslator) value(field string, v any) (sqlExpr, error) {
	if field == types.IDField {
		return sqlExpr{query: "?", args: []any{idString(v)}}, nil
	}
	if t.dialect != dialect.PG && t.dialect != dialect.MySQL && isScalar(v) {
		return sqlExpr{query: "?", args: []any{v}}, nil
	}
	s, err := relaxedJSON(v)
	if err != nil {
		return sqlExpr{}, err
	}
	switch t.dialect {
	case dialect.PG:
		return sqlExpr{query: "?::jsonb", args: []any{s}}, nil
	case dialect.MySQL:
		return sqlExpr{query: "CAST(? AS JSON)", args: []any{s}}, nil
	default:
		return sqlExpr{query: "json(?)", args: []any{s}}, nil
	}
}

// isNull matches a missing field or an explicit JSON null.
func (t sqlTranslator) isNull(field string) sqlExpr {
	f := t.field(field)
	switch t.dialect {
	case dialect.PG:
		return join("", f.wrap("(%s IS NULL OR "), f.wrap("%s = 'null'::jsonb)"))
	case dialect.MySQL:
		return join("", f.wrap("(%s IS NULL OR "), f.wrap("%s = CAST('null' AS JSON))"))
	default:
		return f.wrap("%s IS NULL")
	}
}

func (t sqlTranslator) compare(f types.Filter, op string) (sqlExpr, error) {
	v, err := t.value(f.Field, f.Value)
	if err != nil {
		return sqlExpr{}, err
	}
	return join(" "+op+" ", t.field(f.Field), v), nil
}

// eq matches a field equal to the value or, for a scalar value, an array
// field holding it.
func (t sqlTranslator) eq(f types.Filter) (sqlExpr, error) {
	cmp, err := t.compare(f, "=")
	if err != nil || f.Field == types.IDField || !isScalar(f.Value) {
		return cmp, err
	}
	v, err := t.value(f.Field, f.Value)
	if err != nil {
		return sqlExpr{}, err
	}
	var member sqlExpr
	switch t.dialect {
	case dialect.PG:
		member = join(" @> ", t.field(f.Field), v)
	case dialect.MySQL:
		member = join(", ", t.field(f.Field), v).wrap("JSON_CONTAINS(%s)")
	default:
		body := bun.Ident("body")
		path := jsonPath(f.Field)
		member = join("",
			sqlExpr{query: "(json_type(?, ?) = 'array' AND EXISTS (SELECT 1 FROM json_each(?, ?) WHERE value = ", args: []any{body, path, body, path}},
			v.wrap("%s))"))
	}
	return join(" OR ", cmp, member).wrap("(%s)"), nil
}

// where translates f into a WHERE fragment.
func (t sqlTranslator) where(f types.Filter) (sqlExpr, error) {
	switch f.Op {
	case types.OpAll:
		return matchAll, nil
	case types.OpEq:
		if f.Value == nil {
			return t.isNull(f.Field), nil
		}
		return t.eq(f)
	case types.OpNe:
		if f.Value == nil {
			return t.isNull(f.Field).wrap("NOT (%s)"), nil
		}
		eq, err := t.eq(f)
		if err != nil {
			return sqlExpr{}, err
		}
		return join(" OR ", t.field(f.Field).wrap("%s IS NULL"), eq.wrap("NOT (%s)")).wrap("(%s)"), nil
	case types.OpGt:
		return t.compare(f, ">")
	case types.OpGte:
		return t.compare(f, ">=")
	case types.OpLt:
		return t.compare(f, "<")
	case types.OpLte:
		return t.compare(f, "<=")
	case types.OpIn:
		return t.in(f)
	case types.OpAnd, types.OpOr:
		if len(f.Children) == 0 {
			if f.Op == types.OpAnd {
				return matchAll, nil
			}
			return matchNone, nil
		}
		parts := make([]sqlExpr, 0, len(f.Children))
		for _, child := range f.Children {
			p, err := t.where(child)
			if err != nil {
				return sqlExpr{}, err
			}
			parts = append(parts, p.wrap("(%s)"))
		}
		sep := " AND "
		if f.Op == types.OpOr {
			sep = " OR "
		}
		return join(sep, parts...), nil
	case types.OpSQL:
		if f.SQL == nil || strings.TrimSpace(f.SQL.Schema) == "" {
			return matchAll, nil
		}
		return sqlExpr{query: "(" + f.SQL.Schema + ")", args: f.SQL.Args}, nil
	default:
		return sqlExpr{}, fmt.Errorf("%w: %s", ErrUnsupportedFilter, f)
	}
}

func (t sqlTranslator) in(f types.Filter) (sqlExpr, error) {
	values := make([]sqlExpr, 0, len(f.Values))
	hasNull := false
	for _, v := range f.Values {
		if v == nil {
			hasNull = true
			continue
		}
		e, err := t.value(f.Field, v)
		if err != nil {
			return sqlExpr{}, err
		}
		values = append(values, e)
	}
	var parts []sqlExpr
	if len(values) > 0 {
		parts = append(parts, join("", t.field(f.Field), join(", ", values...).wrap(" IN (%s)")))
	}
	if hasNull {
		parts = append(parts, t.isNull(f.Field))
	}
	switch len(parts) {
	case 0:
		return matchNone, nil
	case 1:
		return parts[0], nil
	default:
		return join(" OR ", parts...).wrap("(%s)"), nil
	}
}

// order translates sort fields into ORDER BY fragments.
func (t sqlTranslator) order(sorts []types.SortField) []sqlExpr {
	out := make([]sqlExpr, 0, len(sorts))
	for _, s := range sorts {
		dir := "ASC"
		if s.Direction == types.Desc {
			dir = "DESC"
		}
		out = append(out, t.field(s.Field).wrap("%s "+dir))
	}
	return out
}

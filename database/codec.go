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
	"reflect"
	"sort"
	"strings"

	"github.com/tomoncle/docstore/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Documents are kept in SQL tables as relaxed Extended JSON so that any
// value the bson codec can marshal survives a round trip.

// toDocument marshals v through the bson codec into an ordered document.
func toDocument(v any) (bson.D, error) {
	if d, ok := v.(bson.D); ok {
		return d, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func encodeBody(d bson.D) (string, error) {
	b, err := bson.MarshalExtJSON(d, false, false)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeBody(body string) (bson.D, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON([]byte(body), false, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// relaxedJSON renders a single value as relaxed Extended JSON.
func relaxedJSON(v any) (string, error) {
	b, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(string(b))
	s = strings.TrimPrefix(s, `{"v":`)
	s = strings.TrimSuffix(s, "}")
	return s, nil
}

// idString renders an identifier value as stored in the id column.
func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}

func lookup(d bson.D, key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// withID returns the document identifier, generating and prepending one when absent.
func withID(d bson.D) (bson.D, string) {
	if v, ok := lookup(d, types.IDField); ok && idString(v) != "" {
		return d, idString(v)
	}
	id := types.NewID()
	out := make(bson.D, 0, len(d)+1)
	out = append(out, bson.E{Key: types.IDField, Value: id})
	for _, e := range d {
		if e.Key != types.IDField {
			out = append(out, e)
		}
	}
	return out, id
}

// setPath assigns value at a dotted path, creating embedded documents as
// needed. An existing intermediate that is not a document is a conflict.
func setPath(d bson.D, path []string, value any) (bson.D, error) {
	out := make(bson.D, len(d))
	copy(out, d)
	for i, e := range out {
		if e.Key != path[0] {
			continue
		}
		if len(path) == 1 {
			out[i].Value = value
			return out, nil
		}
		child, ok := e.Value.(bson.D)
		if !ok {
			return nil, fmt.Errorf("%w: %q holds %T", ErrPathConflict, path[0], e.Value)
		}
		next, err := setPath(child, path[1:], value)
		if err != nil {
			return nil, err
		}
		out[i].Value = next
		return out, nil
	}
	if len(path) == 1 {
		return append(out, bson.E{Key: path[0], Value: value}), nil
	}
	child, err := setPath(nil, path[1:], value)
	if err != nil {
		return nil, err
	}
	return append(out, bson.E{Key: path[0], Value: child}), nil
}

// sameDocument reports whether a and b hold the same fields and values,
// ignoring field order.
func sameDocument(a, b bson.D) bool {
	ja, errA := encodeBody(canonical(a))
	jb, errB := encodeBody(canonical(b))
	return errA == nil && errB == nil && ja == jb
}

func canonical(d bson.D) bson.D {
	out := make(bson.D, len(d))
	for i, e := range d {
		out[i] = bson.E{Key: e.Key, Value: canonicalValue(e.Value)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func canonicalValue(v any) any {
	switch x := v.(type) {
	case bson.D:
		return canonical(x)
	case bson.A:
		out := make(bson.A, len(x))
		for i, e := range x {
			out[i] = canonicalValue(e)
		}
		return out
	default:
		return v
	}
}

// decodeBodies appends each body to the slice pointed to by results.
func decodeBodies(bodies []string, results any) error {
	rv := reflect.ValueOf(results)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("results argument must be a pointer to a slice, but was a %T", results)
	}
	slice := rv.Elem()
	elemType := slice.Type().Elem()
	out := reflect.MakeSlice(slice.Type(), 0, len(bodies))
	for _, body := range bodies {
		isPtr := elemType.Kind() == reflect.Ptr
		target := elemType
		if isPtr {
			target = elemType.Elem()
		}
		v := reflect.New(target)
		if err := bson.UnmarshalExtJSON([]byte(body), false, v.Interface()); err != nil {
			return err
		}
		if isPtr {
			out = reflect.Append(out, v)
		} else {
			out = reflect.Append(out, v.Elem())
		}
	}
	slice.Set(out)
	return nil
}

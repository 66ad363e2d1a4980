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
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"go.mongodb.org/mongo-driver/mongo"
)

type StoreError int

const (
	UnknownErr StoreError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
	NetworkErr
	TimeoutErr
)

var storeErrorNames = [...]string{
	"unknown", "no_rows", "no_index", "no_column", "exist_index", "no_table",
	"exist_table", "duplicate_key", "not_null_violation", "data_truncated",
	"invalid_type_cast", "network", "timeout",
}

func (e StoreError) String() string {
	if e < 0 || int(e) >= len(storeErrorNames) {
		return storeErrorNames[UnknownErr]
	}
	return storeErrorNames[e]
}

// MongoDB server codes for conflicting index definitions.
const (
	mongoIndexOptionsConflict  = 85
	mongoIndexKeySpecsConflict = 86
)

// ClassifyError reports whether err came from a store driver and, if so, its class.
func ClassifyError(err error) (is bool, storeErr StoreError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, ErrNoDocuments) || errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true, TimeoutErr
	}
	if is, storeErr = classifyMongoError(err); is {
		return is, storeErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1091:
			return true, NoIndexErr
		case 1054:
			return true, NoColumnErr
		case 1061:
			return true, ExistIndexErr
		case 1146:
			return true, NoTableErr
		case 1050:
			return true, ExistTableErr
		case 1062:
			return true, DuplicateKeyErr
		case 1048:
			return true, NotNullViolationErr
		case 1265:
			return true, DataTruncatedErr
		case 3140, 3141, 3143:
			return true, InvalidTypeCastErr
		default:
			return true, UnknownErr
		}
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "sqlstate 42703") ||
		strings.Contains(s, "undefined column") ||
		strings.Contains(s, "no such column") {
		return true, NoColumnErr
	}
	if strings.Contains(s, "sqlstate 42704") ||
		strings.Contains(s, "no such index") ||
		(strings.Contains(s, "does not exist") && strings.Contains(s, "index")) {
		return true, NoIndexErr
	}
	if strings.Contains(s, "sqlstate 42p01") ||
		strings.Contains(s, "undefined table") ||
		strings.Contains(s, "no such table") {
		return true, NoTableErr
	}
	if strings.Contains(s, "already exists") &&
		strings.Contains(s, "index") {
		return true, ExistIndexErr
	}
	if strings.Contains(s, "already exists") &&
		(strings.Contains(s, "table") || strings.Contains(s, "relation")) {
		return true, ExistTableErr
	}
	if strings.Contains(s, "duplicate key value") ||
		strings.Contains(s, "unique constraint failed") ||
		strings.Contains(s, "sqlstate 23505") {
		return true, DuplicateKeyErr
	}
	if strings.Contains(s, "not-null constraint") ||
		strings.Contains(s, "sqlstate 23502") ||
		strings.Contains(s, "not null constraint failed") {
		return true, NotNullViolationErr
	}
	if strings.Contains(s, "string data right truncation") ||
		strings.Contains(s, "sqlstate 22001") ||
		strings.Contains(s, "data truncated") {
		return true, DataTruncatedErr
	}
	if strings.Contains(s, "datatype mismatch") ||
		strings.Contains(s, "malformed json") ||
		strings.Contains(s, "invalid input syntax for type json") ||
		strings.Contains(s, "sqlstate 42804") {
		return true, InvalidTypeCastErr
	}
	return false, UnknownErr
}

func classifyMongoError(err error) (bool, StoreError) {
	switch {
	case mongo.IsDuplicateKeyError(err):
		return true, DuplicateKeyErr
	case mongo.IsTimeout(err):
		return true, TimeoutErr
	case mongo.IsNetworkError(err):
		return true, NetworkErr
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		if serverErr.HasErrorCode(mongoIndexOptionsConflict) || serverErr.HasErrorCode(mongoIndexKeySpecsConflict) {
			return true, ExistIndexErr
		}
		return true, UnknownErr
	}
	return false, UnknownErr
}

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
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/tomoncle/docstore/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.mongodb.org/mongo-driver/bson"
)

// documentRow is one stored document. Each collection is a table of rows
// ordered by seq (insertion order).
type documentRow struct {
	bun.BaseModel `bun:"alias:d"`

	Seq  int64  `bun:"seq,pk,autoincrement"`
	ID   string `bun:"id"`
	Body string `bun:"body"`
}

const (
	sqliteCreateTable = `CREATE TABLE IF NOT EXISTS ? (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id VARCHAR(255) NOT NULL UNIQUE,
	body TEXT NOT NULL
)`
	postgresCreateTable = `CREATE TABLE IF NOT EXISTS ? (
	seq BIGSERIAL PRIMARY KEY,
	id VARCHAR(255) NOT NULL UNIQUE,
	body TEXT NOT NULL
)`
	mysqlCreateTable = `CREATE TABLE IF NOT EXISTS ? (
	seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	id VARCHAR(255) NOT NULL UNIQUE,
	body LONGTEXT NOT NULL
) DEFAULT CHARSET=utf8mb4`
)

// sqlDatabase is a document database stored in SQL tables through Bun.
type sqlDatabase struct {
	db      *bun.DB
	name    string
	logger  Logger
	closeFn func(ctx context.Context) error

	mu     sync.Mutex
	tables map[string]bool
}

var _ Database = (*sqlDatabase)(nil)

func newSQLDatabase(db *bun.DB, name string, logger Logger, closeFn func(ctx context.Context) error) *sqlDatabase {
	if logger == nil {
		logger = GetLogger()
	}
	return &sqlDatabase{
		db:      db,
		name:    name,
		logger:  logger,
		closeFn: closeFn,
		tables:  make(map[string]bool),
	}
}

// NewSQLDatabase exposes an already opened Bun handle as a document database.
func NewSQLDatabase(db *bun.DB, name string) Database {
	return newSQLDatabase(db, name, GetLogger(), func(context.Context) error { return db.Close() })
}

func (d *sqlDatabase) Name() string { return d.name }

func (d *sqlDatabase) Collection(name string) Collection {
	return &sqlCollection{
		database: d,
		name:     name,
		tr:       sqlTranslator{dialect: d.db.Dialect().Name()},
	}
}

func (d *sqlDatabase) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *sqlDatabase) Close(ctx context.Context) error {
	if d.closeFn == nil {
		return d.db.Close()
	}
	return d.closeFn(ctx)
}

// ensureTable creates the collection table on first use.
func (d *sqlDatabase) ensureTable(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tables[name] {
		return nil
	}

	ddl := sqliteCreateTable
	switch d.db.Dialect().Name() {
	case dialect.PG:
		ddl = postgresCreateTable
	case dialect.MySQL:
		ddl = mysqlCreateTable
	}
	if _, err := d.db.NewRaw(ddl, bun.Ident(name)).Exec(ctx); err != nil {
		if is, kind := ClassifyError(err); !is || kind != ExistTableErr {
			return err
		}
	}
	d.tables[name] = true
	d.logger.Debug("Collection table ready", "database", d.name, "collection", name)
	return nil
}

type sqlCollection struct {
	database *sqlDatabase
	name     string
	tr       sqlTranslator
}

var _ Collection = (*sqlCollection)(nil)

func (c *sqlCollection) Name() string { return c.name }

func (c *sqlCollection) db() *bun.DB { return c.database.db }

func (c *sqlCollection) selectRows(db bun.IDB, rows any) *bun.SelectQuery {
	return db.NewSelect().Model(rows).ModelTableExpr("? AS ?", bun.Ident(c.name), bun.Ident("d"))
}

func (c *sqlCollection) CountDocuments(ctx context.Context, filter types.Filter) (int64, error) {
	if err := c.database.ensureTable(ctx, c.name); err != nil {
		return 0, err
	}
	where, err := c.tr.where(filter)
	if err != nil {
		return 0, err
	}
	n, err := c.db().NewSelect().
		TableExpr("? AS ?", bun.Ident(c.name), bun.Ident("d")).
		Where(where.query, where.args...).
		Count(ctx)
	return int64(n), err
}

func (c *sqlCollection) Find(ctx context.Context, filter types.Filter, opts *FindOptions, results any) error {
	if err := c.database.ensureTable(ctx, c.name); err != nil {
		return err
	}
	where, err := c.tr.where(filter)
	if err != nil {
		return err
	}

	var rows []documentRow
	q := c.selectRows(c.db(), &rows).Where(where.query, where.args...)
	if opts != nil {
		for _, o := range c.tr.order(opts.Sort) {
			q = q.OrderExpr(o.query, o.args...)
		}
	}
	q = q.OrderExpr("? ASC", bun.Ident("seq"))
	if opts != nil {
		switch {
		case opts.Limit > 0:
			q = q.Limit(int(opts.Limit))
		case opts.Skip > 0:
			q = q.Limit(math.MaxInt32)
		}
		if opts.Skip > 0 {
			q = q.Offset(int(opts.Skip))
		}
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	bodies := make([]string, len(rows))
	for i, row := range rows {
		bodies[i] = row.Body
	}
	return decodeBodies(bodies, results)
}

func (c *sqlCollection) InsertOne(ctx context.Context, doc any) error {
	if err := c.database.ensureTable(ctx, c.name); err != nil {
		return err
	}
	d, err := toDocument(doc)
	if err != nil {
		return err
	}
	d, id := withID(d)
	body, err := encodeBody(d)
	if err != nil {
		return err
	}
	_, err = c.db().NewRaw("INSERT INTO ? (?, ?) VALUES (?, ?)",
		bun.Ident(c.name), bun.Ident("id"), bun.Ident("body"), id, body).Exec(ctx)
	return err
}

func (c *sqlCollection) UpdateOne(ctx context.Context, filter types.Filter, set map[string]any) (*UpdateResult, error) {
	return c.modifyFirst(ctx, filter, func(current bson.D, id string) (bson.D, error) {
		next := current
		for field, value := range set {
			if field == types.IDField {
				if idString(value) != id {
					return nil, ErrImmutableID
				}
				continue
			}
			var err error
			if next, err = setPath(next, strings.Split(field, "."), value); err != nil {
				return nil, err
			}
		}
		return next, nil
	})
}

func (c *sqlCollection) ReplaceOne(ctx context.Context, filter types.Filter, replacement any) (*UpdateResult, error) {
	doc, err := toDocument(replacement)
	if err != nil {
		return nil, err
	}
	return c.modifyFirst(ctx, filter, func(current bson.D, id string) (bson.D, error) {
		if v, ok := lookup(doc, types.IDField); ok && idString(v) != "" {
			if idString(v) != id {
				return nil, ErrImmutableID
			}
			return doc, nil
		}
		next := make(bson.D, 0, len(doc)+1)
		next = append(next, bson.E{Key: types.IDField, Value: id})
		for _, e := range doc {
			if e.Key != types.IDField {
				next = append(next, e)
			}
		}
		return next, nil
	})
}

// modifyFirst rewrites the body of the first match inside a transaction.
// ModifiedCount is 0 when the rewritten document equals the stored one.
func (c *sqlCollection) modifyFirst(
	ctx context.Context,
	filter types.Filter,
	modify func(current bson.D, id string) (bson.D, error),
) (*UpdateResult, error) {
	if err := c.database.ensureTable(ctx, c.name); err != nil {
		return nil, err
	}
	where, err := c.tr.where(filter)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{}
	err = c.db().RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row, err := c.firstMatch(ctx, tx, where)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		result.MatchedCount = 1

		current, err := decodeBody(row.Body)
		if err != nil {
			return err
		}
		next, err := modify(current, row.ID)
		if err != nil {
			return err
		}
		if sameDocument(current, next) {
			return nil
		}
		body, err := encodeBody(next)
		if err != nil {
			return err
		}
		if _, err := tx.NewUpdate().
			TableExpr("?", bun.Ident(c.name)).
			Set("? = ?", bun.Ident("body"), body).
			Where("? = ?", bun.Ident("seq"), row.Seq).
			Exec(ctx); err != nil {
			return err
		}
		result.ModifiedCount = 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *sqlCollection) firstMatch(ctx context.Context, db bun.IDB, where sqlExpr) (*documentRow, error) {
	row := new(documentRow)
	err := c.selectRows(db, row).
		Where(where.query, where.args...).
		OrderExpr("? ASC", bun.Ident("seq")).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (c *sqlCollection) DeleteOne(ctx context.Context, filter types.Filter) (int64, error) {
	if err := c.database.ensureTable(ctx, c.name); err != nil {
		return 0, err
	}
	where, err := c.tr.where(filter)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = c.db().RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row, err := c.firstMatch(ctx, tx, where)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		res, err := tx.NewDelete().
			TableExpr("?", bun.Ident(c.name)).
			Where("? = ?", bun.Ident("seq"), row.Seq).
			Exec(ctx)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

func (c *sqlCollection) DeleteMany(ctx context.Context, filter types.Filter) (int64, error) {
	if err := c.database.ensureTable(ctx, c.name); err != nil {
		return 0, err
	}
	where, err := c.tr.where(filter)
	if err != nil {
		return 0, err
	}
	res, err := c.db().NewDelete().
		TableExpr("?", bun.Ident(c.name)).
		Where(where.query, where.args...).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *sqlCollection) CountGroups(ctx context.Context, grouping types.Grouping) (int64, error) {
	if grouping.Raw != nil {
		return 0, fmt.Errorf("%w: raw grouping", ErrUnsupportedFilter)
	}
	if err := c.database.ensureTable(ctx, c.name); err != nil {
		return 0, err
	}

	q := c.db().NewSelect().TableExpr("? AS ?", bun.Ident(c.name), bun.Ident("d"))
	if len(grouping.Fields) == 0 {
		// A single empty key groups every document together.
		n, err := q.Count(ctx)
		if err != nil || n == 0 {
			return 0, err
		}
		return 1, nil
	}
	for _, field := range grouping.Fields {
		e := c.tr.field(field)
		q = q.ColumnExpr(e.query, e.args...).GroupExpr(e.query, e.args...)
	}
	n, err := q.Count(ctx)
	return int64(n), err
}

func (c *sqlCollection) CreateIndex(ctx context.Context, field string) (string, error) {
	if err := c.database.ensureTable(ctx, c.name); err != nil {
		return "", err
	}
	name := indexName(c.name, field)
	e := c.tr.indexExpr(field)
	q := c.db().NewCreateIndex().
		TableExpr("?", bun.Ident(c.name)).
		Index(name).
		ColumnExpr(e.query, e.args...)
	if c.tr.dialect != dialect.MySQL {
		q = q.IfNotExists()
	}
	if _, err := q.Exec(ctx); err != nil {
		if is, kind := ClassifyError(err); !is || kind != ExistIndexErr {
			return "", err
		}
	}
	return name, nil
}

// indexName follows the MongoDB "<field>_1" convention, prefixed with the
// table since SQL index names share one namespace per schema.
func indexName(collection, field string) string {
	return collection + "_" + strings.ReplaceAll(field, ".", "_") + "_1"
}

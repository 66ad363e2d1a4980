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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tomoncle/docstore/database"
	"github.com/tomoncle/docstore/repository"
	"github.com/tomoncle/docstore/types"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
)

func documents(db database.Database, collection string) repository.Repository[types.Document] {
	return repository.GetRepository[types.Document](db, collection)
}

// parseValue reads a flag value as a YAML scalar so that numbers and
// booleans compare as such. An empty string means null.
func parseValue(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return v, nil
}

// fieldFilter builds an equality filter from --field/--value, or All.
func fieldFilter(cmd *cobra.Command) (types.Filter, error) {
	field, _ := cmd.Flags().GetString("field")
	if field == "" {
		return types.All(), nil
	}
	raw, _ := cmd.Flags().GetString("value")
	value, err := parseValue(raw)
	if err != nil {
		return types.Filter{}, err
	}
	return types.Eq(field, value), nil
}

func addFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("field", "", "Match documents on this field (dotted paths allowed)")
	cmd.Flags().String("value", "", "Value to compare --field with; empty matches null or missing")
}

// writeDocuments prints each document as relaxed Extended JSON on its own line.
func writeDocuments(w io.Writer, docs ...types.Document) error {
	for _, doc := range docs {
		out, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(out)); err != nil {
			return err
		}
	}
	return nil
}

func pingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the database is reachable",
		Args:  cobra.NoArgs,
		RunE: a.withDatabase(func(ctx context.Context, cmd *cobra.Command, db database.Database, _ []string) error {
			if err := db.Ping(ctx); err != nil {
				return err
			}
			status := database.GetHealthStatus(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s healthy=%t time=%s\n",
				db.Name(), status.Backend, status.Healthy, status.ResponseTime)
			return nil
		}),
	}
}

func insertCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <collection> <document>...",
		Short: "Insert documents given as Extended JSON",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.withDatabase(func(ctx context.Context, cmd *cobra.Command, db database.Database, args []string) error {
			repo := documents(db, args[0])
			for _, raw := range args[1:] {
				doc := types.Document{}
				if err := bson.UnmarshalExtJSON([]byte(raw), false, &doc); err != nil {
					return fmt.Errorf("invalid document %s: %w", raw, err)
				}
				if err := repo.Insert(ctx, doc); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), doc.GetID())
			}
			return nil
		}),
	}
}

func countCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count <collection>",
		Short: "Count documents, optionally matching --field/--value",
		Args:  cobra.ExactArgs(1),
	}
	addFieldFlags(cmd)
	cmd.RunE = a.withDatabase(func(ctx context.Context, cmd *cobra.Command, db database.Database, args []string) error {
		filter, err := fieldFilter(cmd)
		if err != nil {
			return err
		}
		n, err := documents(db, args[0]).CountBy(ctx, filter)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	})
	return cmd
}

func getCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Print one document by identifier",
		Args:  cobra.ExactArgs(2),
		RunE: a.withDatabase(func(ctx context.Context, cmd *cobra.Command, db database.Database, args []string) error {
			doc, err := documents(db, args[0]).GetByID(ctx, args[1])
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("document %s not found in %s", args[1], args[0])
			}
			return writeDocuments(cmd.OutOrStdout(), doc)
		}),
	}
}

func findCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <collection>",
		Short: "Print matching documents in insertion order",
		Args:  cobra.ExactArgs(1),
	}
	addFieldFlags(cmd)
	cmd.Flags().Int64("skip", 0, "Number of matches to skip")
	cmd.Flags().Int64("limit", 0, "Maximum number of documents to print (0 for all)")
	cmd.RunE = a.withDatabase(func(ctx context.Context, cmd *cobra.Command, db database.Database, args []string) error {
		filter, err := fieldFilter(cmd)
		if err != nil {
			return err
		}
		query, err := documents(db, args[0]).FindBy(ctx, filter)
		if err != nil || query == nil {
			return err
		}
		skip, _ := cmd.Flags().GetInt64("skip")
		limit, _ := cmd.Flags().GetInt64("limit")
		docs, err := query.Skip(skip).Limit(limit).All(ctx)
		if err != nil {
			return err
		}
		return writeDocuments(cmd.OutOrStdout(), docs...)
	})
	return cmd
}

func groupsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups <collection>",
		Short: "Count the distinct groups formed by --by fields",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringSlice("by", nil, "Comma separated fields forming the group key")
	cmd.RunE = a.withDatabase(func(ctx context.Context, cmd *cobra.Command, db database.Database, args []string) error {
		by, _ := cmd.Flags().GetStringSlice("by")
		n, err := documents(db, args[0]).SumBy(ctx, types.GroupBy(by...))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	})
	return cmd
}

var errNotConfirmed = errors.New("refusing to delete without --yes")

func purgeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge <collection>",
		Short: "Delete every document in a collection",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Bool("yes", false, "Confirm the deletion")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errNotConfirmed
		}
		return a.withDatabase(func(ctx context.Context, cmd *cobra.Command, db database.Database, args []string) error {
			n, err := documents(db, args[0]).DeleteAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", n)
			return nil
		})(cmd, args)
	}
	return cmd
}

func indexCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Create ascending indexes",
	}

	create := &cobra.Command{
		Use:   "create <collection> <field>",
		Short: "Create an index on one field",
		Args:  cobra.ExactArgs(2),
		RunE: a.withDatabase(func(ctx context.Context, cmd *cobra.Command, db database.Database, args []string) error {
			name, err := documents(db, args[0]).CreateIndex(ctx, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		}),
	}

	apply := &cobra.Command{
		Use:   "apply <file>",
		Short: "Create every index listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: a.withDatabase(func(ctx context.Context, cmd *cobra.Command, db database.Database, args []string) error {
			indexes, err := database.LoadIndexManager(database.GetLogger(), args[0])
			if err != nil {
				return err
			}
			if errs := indexes.Validate(); len(errs) > 0 {
				return errors.Join(errs...)
			}
			names, err := indexes.EnsureAll(ctx, db)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			return nil
		}),
	}

	cmd.AddCommand(create, apply)
	return cmd
}

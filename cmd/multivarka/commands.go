package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

const whereUsage = "condition field:op:value, op is eq|lt|gt|in with optional not. prefix (repeatable)"

func (c *cli) newFindCmd() *cobra.Command {
	var where []string

	cmd := &cobra.Command{
		Use:   "find <collection>",
		Short: "Print the records matching every condition",
		Example: `  multivarka find students --where group:eq:CS-301
  multivarka find students -w grade:gt:3 -w grade:lt:5
  multivarka find students -w "name:not.in:Anna,Petr"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config(cmd)
			if err != nil {
				return err
			}
			clauses, err := parseWheres(where)
			if err != nil {
				return err
			}

			ctx, cancel := actionContext(cmd.Context(), cfg)
			defer cancel()

			docs, err := applyWhere(c.newServer(cfg).Collection(args[0]), clauses).Find(ctx)
			if err != nil {
				return err
			}
			if docs == nil {
				docs = []multivarka.Document{}
			}
			return writeJSON(cmd.OutOrStdout(), docs)
		},
	}
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, whereUsage)
	return cmd
}

func (c *cli) newRemoveCmd() *cobra.Command {
	var where []string

	cmd := &cobra.Command{
		Use:   "remove <collection>",
		Short: "Delete the records matching every condition (all records without --where)",
		Example: `  multivarka remove students --where group:eq:CS-301`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config(cmd)
			if err != nil {
				return err
			}
			clauses, err := parseWheres(where)
			if err != nil {
				return err
			}

			ctx, cancel := actionContext(cmd.Context(), cfg)
			defer cancel()

			res, err := applyWhere(c.newServer(cfg).Collection(args[0]), clauses).Remove(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, whereUsage)
	return cmd
}

func (c *cli) newUpdateCmd() *cobra.Command {
	var (
		where []string
		set   []string
	)

	cmd := &cobra.Command{
		Use:   "update <collection>",
		Short: "Set fields on every record matching the conditions",
		Example: `  multivarka update students --where group:eq:CS-301 --set group=CS-401 --set year=4`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(set) == 0 {
				return errors.New("update needs at least one --set field=value")
			}
			cfg, err := c.config(cmd)
			if err != nil {
				return err
			}
			clauses, err := parseWheres(where)
			if err != nil {
				return err
			}
			assignments := make([]assignment, 0, len(set))
			for _, expr := range set {
				a, err := parseAssignment(expr)
				if err != nil {
					return err
				}
				assignments = append(assignments, a)
			}

			ctx, cancel := actionContext(cmd.Context(), cfg)
			defer cancel()

			filtered := applyWhere(c.newServer(cfg).Collection(args[0]), clauses)
			upd := filtered.Set(assignments[0].Field, assignments[0].Value)
			for _, a := range assignments[1:] {
				upd = upd.Set(a.Field, a.Value)
			}

			res, err := upd.Update(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, whereUsage)
	cmd.Flags().StringArrayVar(&set, "set", nil, "field=value to set, value parsed as JSON when possible (repeatable)")
	return cmd
}

func (c *cli) newInsertCmd() *cobra.Command {
	var (
		record   string
		file     string
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "insert <collection>",
		Short: "Insert one record, or every record of a JSON array file",
		Example: `  multivarka insert students --record '{"name":"Anna","group":"CS-301"}'
  multivarka insert students --file students.json --parallel 8`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (record == "") == (file == "") {
				return errors.New("insert needs exactly one of --record or --file")
			}
			cfg, err := c.config(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := actionContext(cmd.Context(), cfg)
			defer cancel()
			srv := c.newServer(cfg)

			if record != "" {
				var doc multivarka.Document
				if err := json.Unmarshal([]byte(record), &doc); err != nil {
					return fmt.Errorf("invalid --record: %w", err)
				}
				res, err := srv.Collection(args[0]).Insert(ctx, doc)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			}

			docs, err := readRecords(file)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				c.printWarning("%s holds no records", file)
			}
			results, err := insertAll(ctx, srv, args[0], docs, parallel)
			if err != nil {
				return err
			}
			if c.verbose {
				c.printSuccess("Inserted %d record(s) into %s", len(results), args[0])
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVarP(&record, "record", "r", "", "record as a JSON object")
	cmd.Flags().StringVarP(&file, "file", "f", "", "file holding a JSON array of records")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "concurrent inserts for --file (0 is unbounded)")
	return cmd
}

// readRecords loads a JSON array of objects
func readRecords(path string) ([]multivarka.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var docs []multivarka.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: expected a JSON array of objects: %w", path, err)
	}
	for i, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("failed to parse %s: record %d is null", path, i)
		}
	}
	return docs, nil
}

// insertAll inserts every record through its own chain. Results keep the
// input order; the first failure cancels the rest.
func insertAll(ctx context.Context, srv *multivarka.QueryBuilder, collection string, docs []multivarka.Document, parallel int) ([]*multivarka.InsertResult, error) {
	results := make([]*multivarka.InsertResult, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			res, err := srv.Collection(collection).Insert(ctx, doc)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// writeJSON prints v, indented when w is a terminal
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	if isTerminal(w) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// Package pgdriver stores collections in PostgreSQL, one JSONB table per
// collection. It registers itself for the postgres and postgresql schemes.
//
// Tables are created on first insert. Reading, updating or removing from a
// collection that has no table yet behaves like an empty collection.
package pgdriver

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

func init() {
	d := &Driver{}
	multivarka.RegisterDriver("postgres", d)
	multivarka.RegisterDriver("postgresql", d)
}

// Driver opens a single-connection pool per chain
type Driver struct{}

// Connect implements multivarka.Driver
func (d *Driver) Connect(ctx context.Context, address string) (multivarka.Conn, error) {
	poolConfig, err := pgxpool.ParseConfig(address)
	if err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}
	poolConfig.MaxConns = 1
	poolConfig.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return &conn{pool: pool}, nil
}

type conn struct {
	pool *pgxpool.Pool
}

func (c *conn) Collection(name string) multivarka.Collection {
	return &collection{pool: c.pool, name: name}
}

func (c *conn) Close(ctx context.Context) error {
	c.pool.Close()
	return nil
}

type collection struct {
	pool *pgxpool.Pool
	name string
}

func (c *collection) Find(ctx context.Context, filter multivarka.Document) (multivarka.Cursor, error) {
	sql, args, err := findSQL(c.name, filter)
	if err != nil {
		return nil, err
	}

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		if isUndefinedTable(err) {
			return &cursor{}, nil
		}
		return nil, err
	}
	return &cursor{rows: rows}, nil
}

func (c *collection) Insert(ctx context.Context, record multivarka.Document) (*multivarka.InsertResult, error) {
	sql, args, err := insertSQL(c.name, record)
	if err != nil {
		return nil, err
	}

	if _, err := c.pool.Exec(ctx, createTableSQL(c.name)); err != nil {
		return nil, mapError(err)
	}

	var id int64
	if err := c.pool.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return nil, mapError(err)
	}
	return &multivarka.InsertResult{InsertedID: id}, nil
}

func (c *collection) Update(ctx context.Context, filter, update multivarka.Document, opts multivarka.UpdateOptions) (*multivarka.UpdateResult, error) {
	sql, args, err := updateSQL(c.name, filter, update, opts.Multi)
	if err != nil {
		return nil, err
	}

	result := &multivarka.UpdateResult{}
	if err := c.pool.QueryRow(ctx, sql, args...).Scan(&result.Matched, &result.Modified); err != nil {
		if isUndefinedTable(err) {
			return result, nil
		}
		return nil, mapError(err)
	}
	return result, nil
}

func (c *collection) Remove(ctx context.Context, filter multivarka.Document) (*multivarka.RemoveResult, error) {
	sql, args, err := removeSQL(c.name, filter)
	if err != nil {
		return nil, err
	}

	tag, err := c.pool.Exec(ctx, sql, args...)
	if err != nil {
		if isUndefinedTable(err) {
			return &multivarka.RemoveResult{}, nil
		}
		return nil, mapError(err)
	}
	return &multivarka.RemoveResult{Removed: tag.RowsAffected()}, nil
}

type cursor struct {
	rows pgx.Rows
}

func (c *cursor) All(ctx context.Context) ([]multivarka.Document, error) {
	if c.rows == nil {
		return nil, nil
	}
	docs, err := pgx.CollectRows(c.rows, func(row pgx.CollectableRow) (multivarka.Document, error) {
		var doc map[string]interface{}
		if err := row.Scan(&doc); err != nil {
			return nil, err
		}
		return multivarka.Document(doc), nil
	})
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, mapError(err)
	}
	return docs, nil
}

// ============================================================
// ERRORS
// ============================================================

// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	codeUndefinedTable  = "42P01"
	codeUniqueViolation = "23505"
)

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUndefinedTable
}

// mapError keeps the *pgconn.PgError reachable through errors.As and adds its code
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("duplicate key (constraint %s): %w", pgErr.ConstraintName, err)
	default:
		return fmt.Errorf("%s (code: %s): %w", pgErr.Message, pgErr.Code, err)
	}
}

// schema.go lists databases, base tables and table columns.
//
// Each call opens a short-lived connection scoped to the call. Errors are
// *SchemaError and the caller is expected to stop the workflow rather than
// continue with partial state.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/metrics"
)

// TableRef identifies a base table.
type TableRef struct {
	Schema string
	Name   string
}

// String renders "schema.name".
func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Inspector reads the server catalog.
type Inspector struct {
	connector *Connector
}

// NewInspector returns an Inspector that connects through c.
func NewInspector(c *Connector) *Inspector {
	return &Inspector{connector: c}
}

// ListDatabases lists the databases on the server of cfg. It connects to
// the engine's system database whatever cfg.Database says.
func (i *Inspector) ListDatabases(ctx context.Context, cfg config.ConnectionConfig) (names []string, err error) {
	const op = "list databases"
	defer observeSchema(op, time.Now(), &err)

	err = i.withConn(ctx, op, cfg.WithDatabase(cfg.Engine.SystemDatabase()), func(d *DB) error {
		rows, err := d.SQL.QueryContext(ctx, d.Dialect.ListDatabasesSQL)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ListTables lists the base tables of cfg.Database. Views are excluded.
func (i *Inspector) ListTables(ctx context.Context, cfg config.ConnectionConfig) (tables []TableRef, err error) {
	const op = "list tables"
	defer observeSchema(op, time.Now(), &err)

	if cfg.Database == "" {
		return nil, &SchemaError{Op: op, Err: fmt.Errorf("no database selected")}
	}

	err = i.withConn(ctx, op, cfg, func(d *DB) error {
		rows, err := d.SQL.QueryContext(ctx, d.Dialect.ListTablesSQL)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t TableRef
			if err := rows.Scan(&t.Schema, &t.Name); err != nil {
				return err
			}
			tables = append(tables, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// ListColumns returns the column names of table in result-set order. At
// most one row is fetched; only its metadata is read.
func (i *Inspector) ListColumns(ctx context.Context, cfg config.ConnectionConfig, table TableRef) (columns []string, err error) {
	const op = "list columns"
	defer observeSchema(op, time.Now(), &err)

	if table.Name == "" {
		return nil, &SchemaError{Op: op, Err: fmt.Errorf("no table selected")}
	}

	err = i.withConn(ctx, op, cfg, func(d *DB) error {
		rows, err := d.SQL.QueryContext(ctx, d.Dialect.ColumnProbeSQL(table))
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, err = rows.Columns()
		return err
	})
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// withConn opens a connection for one catalog call and always closes it.
// Failures of any kind come back as *SchemaError.
func (i *Inspector) withConn(ctx context.Context, op string, cfg config.ConnectionConfig, fn func(*DB) error) error {
	d, err := i.connector.Connect(ctx, cfg)
	if err != nil {
		return &SchemaError{Op: op, Err: err}
	}
	defer d.Close()

	if err := fn(d); err != nil {
		return &SchemaError{Op: op, Err: err}
	}
	return nil
}

func observeSchema(op string, start time.Time, errp *error) {
	metrics.ObserveSchema(op, time.Since(start), *errp)
	applog.Timed("schema", op, start, *errp)
}

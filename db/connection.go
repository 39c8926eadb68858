// Package db connects to SQL Server or PostgreSQL through database/sql,
// inspects the catalog and executes generated statements.
//
// Design decisions:
//   - Every user action opens its own connection and closes it when done;
//     handles are capped at a single open connection, so there is no pool.
//   - SSH tunnel integration is transparent: if SSH is enabled the tunnel
//     is started first and the driver connects to the local endpoint.
//   - Drivers: go-mssqldb ("sqlserver") and pgx stdlib ("pgx").
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/ssh"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
)

// OpenFunc opens a database/sql handle. sql.Open satisfies it.
type OpenFunc func(driverName, dataSourceName string) (*sql.DB, error)

// DB is a live handle to one database, plus the tunnel it rides on.
type DB struct {
	SQL     *sql.DB
	Dialect Dialect
	Config  config.ConnectionConfig
	Tunnel  *ssh.Tunnel
}

// Close closes the handle and stops the tunnel.
func (d *DB) Close() error {
	var err error
	if d.SQL != nil {
		err = d.SQL.Close()
	}
	if d.Tunnel != nil {
		d.Tunnel.Stop()
	}
	return err
}

// Connector is the connection provider. The zero value is not usable;
// use NewConnector.
type Connector struct {
	open OpenFunc
}

// NewConnector returns a Connector that opens real drivers.
func NewConnector() *Connector {
	return &Connector{open: sql.Open}
}

// NewConnectorWithOpener returns a Connector using open instead of
// sql.Open; tests pass a sqlmock opener.
func NewConnectorWithOpener(open OpenFunc) *Connector {
	return &Connector{open: open}
}

// Connect validates cfg, opens a handle and pings it. Every failure is a
// *ConnectionError; nothing is retried.
func (c *Connector) Connect(ctx context.Context, cfg config.ConnectionConfig) (*DB, error) {
	start := time.Now()
	target := cfg.Label()

	if err := cfg.Validate(); err != nil {
		return nil, &ConnectionError{Target: target, Err: fmt.Errorf("invalid connection settings: %w", err)}
	}

	d := &DB{Dialect: DialectFor(cfg.Engine), Config: cfg}

	if cfg.SSH.Enabled {
		host, port := cfg.HostPort()
		tunnel, err := ssh.NewTunnel(cfg.SSH, host, port)
		if err != nil {
			return nil, &ConnectionError{Target: target, Err: fmt.Errorf("ssh tunnel: %w", err)}
		}
		localAddr, err := tunnel.Start(ctx)
		if err != nil {
			return nil, &ConnectionError{Target: target, Err: fmt.Errorf("ssh tunnel start: %w", err)}
		}
		d.Tunnel = tunnel

		// The driver talks to the local tunnel endpoint.
		cfg.Server = localAddr.Host
		cfg.Port = localAddr.Port
	}

	handle, err := c.open(d.Dialect.Driver, cfg.DSN())
	if err != nil {
		d.Close()
		return nil, &ConnectionError{Target: target, Err: err}
	}
	handle.SetMaxOpenConns(1)
	handle.SetMaxIdleConns(1)
	d.SQL = handle

	if err := handle.PingContext(ctx); err != nil {
		d.Close()
		applog.Timed("db", "connect "+target, start, err)
		return nil, &ConnectionError{Target: target, Err: err}
	}

	applog.Timed("db", "connect "+target, start, nil)
	return d, nil
}

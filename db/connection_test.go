package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DachengChen/askSQL/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectIntegratedOmitsCredentials(t *testing.T) {
	c, mock, calls := mockConnector(t)
	mock.ExpectPing()

	d, err := c.Connect(context.Background(), sqlServerConfig())
	require.NoError(t, err)
	assert.Equal(t, config.EngineSQLServer, d.Dialect.Engine)
	assert.Nil(t, d.Tunnel)

	require.Len(t, *calls, 1)
	assert.Equal(t, "sqlserver://localhost:1433?app+name=askSQL&database=shop", (*calls)[0].dsn)

	mock.ExpectClose()
	require.NoError(t, d.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectCredentialed(t *testing.T) {
	c, mock, calls := mockConnector(t)
	mock.ExpectPing()

	cfg := sqlServerConfig()
	cfg.AuthMode = config.AuthCredentialed
	cfg.Username = "sa"
	cfg.Password = "p@ss"

	d, err := c.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	assert.Contains(t, (*calls)[0].dsn, "sa:p%40ss@localhost:1433")
	assert.Equal(t, 1, d.SQL.Stats().MaxOpenConnections)
}

func TestConnectRejectsInvalidConfig(t *testing.T) {
	tests := map[string]func(*config.ConnectionConfig){
		"missing server": func(c *config.ConnectionConfig) { c.Server = "" },
		"credentialed without user": func(c *config.ConnectionConfig) {
			c.AuthMode = config.AuthCredentialed
		},
		"integrated with password": func(c *config.ConnectionConfig) { c.Password = "secret" },
		"ssh without key": func(c *config.ConnectionConfig) {
			c.SSH = config.SSHConfig{Enabled: true, Host: "bastion", User: "ops"}
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			opened := false
			c := NewConnectorWithOpener(func(string, string) (*sql.DB, error) {
				opened = true
				return nil, errors.New("unreachable")
			})
			cfg := sqlServerConfig()
			mutate(&cfg)

			_, err := c.Connect(context.Background(), cfg)
			var connErr *ConnectionError
			require.ErrorAs(t, err, &connErr)
			assert.False(t, opened, "opener must not be called for invalid settings")
		})
	}
}

func TestConnectOpenFailure(t *testing.T) {
	cause := errors.New("unknown driver")
	c := NewConnectorWithOpener(func(string, string) (*sql.DB, error) { return nil, cause })

	_, err := c.Connect(context.Background(), sqlServerConfig())
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "(integrated)@localhost:1433/shop", connErr.Target)
}

func TestConnectPingFailureClosesHandle(t *testing.T) {
	c, mock, _ := mockConnector(t)
	mock.ExpectPing().WillReturnError(errors.New("Login failed for user"))
	mock.ExpectClose()

	d, err := c.Connect(context.Background(), sqlServerConfig())
	assert.Nil(t, d)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

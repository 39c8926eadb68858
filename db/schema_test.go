package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/DachengChen/askSQL/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type openCall struct {
	driver string
	dsn    string
}

// mockConnector hands out one sqlmock handle and records how it was
// opened.
func mockConnector(t *testing.T) (*Connector, sqlmock.Sqlmock, *[]openCall) {
	t.Helper()
	mdb, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)

	var calls []openCall
	c := NewConnectorWithOpener(func(driver, dsn string) (*sql.DB, error) {
		calls = append(calls, openCall{driver: driver, dsn: dsn})
		return mdb, nil
	})
	return c, mock, &calls
}

func sqlServerConfig() config.ConnectionConfig {
	return config.ConnectionConfig{
		Engine:   config.EngineSQLServer,
		Server:   "localhost",
		Database: "shop",
		AuthMode: config.AuthIntegrated,
	}
}

func TestListDatabasesUsesSystemDatabase(t *testing.T) {
	c, mock, calls := mockConnector(t)
	mock.ExpectPing()
	mock.ExpectQuery(sqlServerDialect.ListDatabasesSQL).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("master").AddRow("shop"))
	mock.ExpectClose()

	names, err := NewInspector(c).ListDatabases(context.Background(), sqlServerConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"master", "shop"}, names)

	require.Len(t, *calls, 1)
	assert.Equal(t, "sqlserver", (*calls)[0].driver)
	assert.Contains(t, (*calls)[0].dsn, "database=master")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTablesReturnsBaseTablesOnly(t *testing.T) {
	c, mock, _ := mockConnector(t)
	mock.ExpectPing()
	mock.ExpectQuery(sqlServerDialect.ListTablesSQL).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_SCHEMA", "TABLE_NAME"}).
			AddRow("dbo", "Customers").
			AddRow("sales", "Orders"))
	mock.ExpectClose()

	tables, err := NewInspector(c).ListTables(context.Background(), sqlServerConfig())
	require.NoError(t, err)
	assert.Equal(t, []TableRef{{Schema: "dbo", Name: "Customers"}, {Schema: "sales", Name: "Orders"}}, tables)
	assert.Contains(t, sqlServerDialect.ListTablesSQL, "TABLE_TYPE = 'BASE TABLE'")
	assert.Contains(t, postgresDialect.ListTablesSQL, "table_type = 'BASE TABLE'")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTablesRequiresDatabase(t *testing.T) {
	c, _, calls := mockConnector(t)
	cfg := sqlServerConfig()
	cfg.Database = ""

	_, err := NewInspector(c).ListTables(context.Background(), cfg)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Empty(t, *calls)
}

func TestListColumnsProbesOneRow(t *testing.T) {
	c, mock, _ := mockConnector(t)
	mock.ExpectPing()
	mock.ExpectQuery("SELECT TOP 1 * FROM [dbo].[Order]]s]").
		WillReturnRows(sqlmock.NewRows([]string{"OrderID", "Total"}))
	mock.ExpectClose()

	cols, err := NewInspector(c).ListColumns(context.Background(), sqlServerConfig(), TableRef{Schema: "dbo", Name: "Order]s"})
	require.NoError(t, err)
	assert.Equal(t, []string{"OrderID", "Total"}, cols)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListColumnsPostgres(t *testing.T) {
	c, mock, calls := mockConnector(t)
	mock.ExpectPing()
	mock.ExpectQuery(`SELECT * FROM "public"."orders" LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectClose()

	cfg := sqlServerConfig()
	cfg.Engine = config.EnginePostgres
	cols, err := NewInspector(c).ListColumns(context.Background(), cfg, TableRef{Schema: "public", Name: "orders"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, cols)
	assert.Equal(t, "pgx", (*calls)[0].driver)
}

func TestCatalogFailureIsSchemaError(t *testing.T) {
	c, mock, _ := mockConnector(t)
	mock.ExpectPing()
	mock.ExpectQuery(sqlServerDialect.ListTablesSQL).WillReturnError(errors.New("permission denied"))
	mock.ExpectClose()

	tables, err := NewInspector(c).ListTables(context.Background(), sqlServerConfig())
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "list tables", schemaErr.Op)
	assert.Nil(t, tables)
}

func TestConnectFailureIsSchemaError(t *testing.T) {
	c, mock, _ := mockConnector(t)
	mock.ExpectPing().WillReturnError(errors.New("login failed"))
	mock.ExpectClose()

	_, err := NewInspector(c).ListDatabases(context.Background(), sqlServerConfig())
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

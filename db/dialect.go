package db

import (
	"strings"

	"github.com/DachengChen/askSQL/config"
)

// Dialect holds the engine-specific SQL used by the inspector and
// executor.
type Dialect struct {
	Engine config.Engine

	// Driver is the database/sql driver name.
	Driver string

	ListDatabasesSQL string
	ListTablesSQL    string

	// IdentityColumnSQL returns the identity column of the table named by
	// its single argument. Empty when the engine has no identity-insert
	// setting.
	IdentityColumnSQL string

	quote    func(string) string
	sampleFmt string
}

var sqlServerDialect = Dialect{
	Engine:           config.EngineSQLServer,
	Driver:           "sqlserver",
	ListDatabasesSQL: `SELECT name FROM sys.databases ORDER BY name`,
	ListTablesSQL: `SELECT TABLE_SCHEMA, TABLE_NAME
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_SCHEMA, TABLE_NAME`,
	IdentityColumnSQL: `SELECT name FROM sys.identity_columns WHERE object_id = OBJECT_ID(@p1)`,
	quote:             quoteBracket,
	sampleFmt:          "SELECT TOP 1 * FROM %s",
}

var postgresDialect = Dialect{
	Engine:           config.EnginePostgres,
	Driver:           "pgx",
	ListDatabasesSQL: `SELECT datname FROM pg_database WHERE NOT datistemplate ORDER BY datname`,
	ListTablesSQL: `SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name`,
	quote:    quoteDouble,
	sampleFmt: "SELECT * FROM %s LIMIT 1",
}

// DialectFor returns the dialect of an engine. Unknown engines get the
// SQL Server dialect.
func DialectFor(engine config.Engine) Dialect {
	if engine == config.EnginePostgres {
		return postgresDialect
	}
	return sqlServerDialect
}

// QuoteTable renders a schema-qualified, quoted table name.
func (d Dialect) QuoteTable(t TableRef) string {
	if t.Schema == "" {
		return d.quote(t.Name)
	}
	return d.quote(t.Schema) + "." + d.quote(t.Name)
}

// ColumnProbeSQL fetches at most one row of t so the result-set metadata
// can be read without scanning the table.
func (d Dialect) ColumnProbeSQL(t TableRef) string {
	return strings.Replace(d.sampleFmt, "%s", d.QuoteTable(t), 1)
}

func quoteBracket(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

func quoteDouble(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

package db

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/DachengChen/askSQL/config"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T, engine config.Engine) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mdb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mdb.Close() })
	return &DB{SQL: mdb, Dialect: DialectFor(engine)}, mock
}

func TestClassify(t *testing.T) {
	tests := []struct {
		query   string
		kind    StatementKind
		keyword string
	}{
		{"SELECT 1", KindRead, "SELECT"},
		{"  select top 5 * from T", KindRead, "SELECT"},
		{"WITH x AS (SELECT 1) SELECT * FROM x", KindRead, "WITH"},
		{"(SELECT 1)", KindRead, "SELECT"},
		{"insert into T (a) values (1)", KindInsert, "INSERT"},
		{"UPDATE T SET x=1", KindWrite, "UPDATE"},
		{"\n\tDELETE FROM T", KindWrite, "DELETE"},
		{"MERGE INTO T USING S ON 1=1 WHEN MATCHED THEN DELETE;", KindWrite, "MERGE"},
		{"-- top employees\nSELECT TOP 5 * FROM T", KindRead, "SELECT"},
		{"/* note */ -- and more\r\n  /* multi\nline */ insert into T values (1)", KindInsert, "INSERT"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			kind, keyword, err := Classify(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.keyword, keyword)
		})
	}

	_, _, err := Classify("   \n ")
	assert.Error(t, err)
	_, _, err = Classify("-- only a comment")
	assert.Error(t, err)
	_, _, err = Classify("/* unterminated SELECT 1")
	assert.Error(t, err)
}

func TestExecuteReadReturnsTable(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	query := "SELECT TOP 5 * FROM T"

	rows := sqlmock.NewRows([]string{"id", "name"})
	for i := 1; i <= 5; i++ {
		rows.AddRow(int64(i), []byte("row"))
	}
	mock.ExpectQuery(query).WillReturnRows(rows)

	res, err := NewExecutor().Execute(context.Background(), d, query)
	require.NoError(t, err)
	require.NotNil(t, res.Table)
	assert.Nil(t, res.Ack)
	assert.Equal(t, KindRead, res.Kind)
	assert.Equal(t, []string{"id", "name"}, res.Table.Columns)
	assert.LessOrEqual(t, len(res.Table.Rows), 5)
	assert.Equal(t, "row", res.Table.Rows[0][1], "[]byte values become strings")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteCommentedSelectIsRead(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	query := "-- top employees\nSELECT TOP 5 * FROM T"
	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	res, err := NewExecutor().Execute(context.Background(), d, query)
	require.NoError(t, err)
	assert.Equal(t, KindRead, res.Kind)
	require.NotNil(t, res.Table)
	assert.Nil(t, res.Ack)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteReadEmptyResultKeepsColumns(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	mock.ExpectQuery("SELECT id FROM T WHERE 1=0").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	res, err := NewExecutor().Execute(context.Background(), d, "SELECT id FROM T WHERE 1=0")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, res.Table.Columns)
	assert.Empty(t, res.Table.Rows)
	assert.NotNil(t, res.Table.Rows)
}

func TestExecuteUpdateRunsOnceAndCommitsOnce(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	query := "UPDATE T SET x=1"

	mock.ExpectBegin()
	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	res, err := NewExecutor().Execute(context.Background(), d, query)
	require.NoError(t, err)
	require.NotNil(t, res.Ack)
	assert.Nil(t, res.Table)
	assert.Equal(t, "UPDATE", res.Ack.Kind)
	assert.EqualValues(t, 3, res.Ack.RowsAffected)
	assert.Empty(t, res.Ack.IdentityInsert)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteDeleteNeverTouchesIdentityInsert(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	query := "DELETE FROM Employee WHERE id = 7"

	mock.ExpectBegin()
	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := NewExecutor().Execute(context.Background(), d, query)
	require.NoError(t, err)
	assert.Equal(t, "DELETE", res.Ack.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteInsertWithoutIdentityColumnSkipsToggle(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	query := "INSERT INTO Customers (Name, City) VALUES ('Ann', 'Oslo')"

	mock.ExpectBegin()
	mock.ExpectQuery(sqlServerDialect.IdentityColumnSQL).
		WithArgs("Customers").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("CustomerID"))
	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := NewExecutor().Execute(context.Background(), d, query)
	require.NoError(t, err)
	assert.Equal(t, "INSERT", res.Ack.Kind)
	assert.Empty(t, res.Ack.IdentityInsert)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteInsertTogglesIdentityOnItsOwnTarget(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	query := "INSERT INTO [dbo].[Customers] ([CustomerID], Name) VALUES (42, 'Ann')"

	mock.ExpectBegin()
	mock.ExpectQuery(sqlServerDialect.IdentityColumnSQL).
		WithArgs("[dbo].[Customers]").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("CustomerID"))
	mock.ExpectExec("SET IDENTITY_INSERT [dbo].[Customers] ON").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET IDENTITY_INSERT [dbo].[Customers] OFF").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	res, err := NewExecutor().Execute(context.Background(), d, query)
	require.NoError(t, err)
	assert.Equal(t, "[dbo].[Customers]", res.Ack.IdentityInsert)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteInsertTableWithoutIdentity(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	query := "INSERT INTO Audit (Note) VALUES ('x')"

	mock.ExpectBegin()
	mock.ExpectQuery(sqlServerDialect.IdentityColumnSQL).
		WithArgs("Audit").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := NewExecutor().Execute(context.Background(), d, query)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteInsertWithoutColumnListSkipsLookup(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	query := "INSERT INTO Audit VALUES ('x')"

	mock.ExpectBegin()
	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := NewExecutor().Execute(context.Background(), d, query)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteInsertPostgresHasNoToggle(t *testing.T) {
	d, mock := newMockDB(t, config.EnginePostgres)
	query := `INSERT INTO "public"."customers" (id, name) VALUES (1, 'Ann')`

	mock.ExpectBegin()
	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := NewExecutor().Execute(context.Background(), d, query)
	require.NoError(t, err)
	assert.Empty(t, res.Ack.IdentityInsert)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteWriteFailureRollsBack(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	query := "UPDATE T SET x = 'oops"
	cause := errors.New("Unclosed quotation mark")

	mock.ExpectBegin()
	mock.ExpectExec(query).WillReturnError(cause)
	mock.ExpectRollback()

	_, err := NewExecutor().Execute(context.Background(), d, query)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindWrite, execErr.Kind)
	assert.ErrorIs(t, err, cause)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteCommitFailure(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	query := "DELETE FROM T"

	mock.ExpectBegin()
	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("deadlock victim"))

	_, err := NewExecutor().Execute(context.Background(), d, query)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteReadFailure(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	mock.ExpectQuery("SELECT nope FROM T").WillReturnError(errors.New("Invalid column name 'nope'"))

	_, err := NewExecutor().Execute(context.Background(), d, "SELECT nope FROM T")
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindRead, execErr.Kind)
}

func TestExecuteEmptyStatement(t *testing.T) {
	d, mock := newMockDB(t, config.EngineSQLServer)
	_, err := NewExecutor().Execute(context.Background(), d, "  ")
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseInsert(t *testing.T) {
	tests := []struct {
		query string
		want  InsertStatement
	}{
		{
			query: "INSERT INTO Employee (EmployeeID, Name) VALUES (1, 'a')",
			want:  InsertStatement{Table: "Employee", Columns: []string{"EmployeeID", "Name"}},
		},
		{
			query: "insert [dbo].[Order Details]([Order ID],Qty) values (1,2)",
			want:  InsertStatement{Table: "[dbo].[Order Details]", Columns: []string{"Order ID", "Qty"}},
		},
		{
			query: "INSERT INTO sales . orders VALUES (1)",
			want:  InsertStatement{Table: "sales.orders"},
		},
		{
			query: "-- add one\nINSERT INTO Employee (EmployeeID) VALUES (1)",
			want:  InsertStatement{Table: "Employee", Columns: []string{"EmployeeID"}},
		},
		{
			query: `INSERT INTO "public"."t" ("id") SELECT 1`,
			want:  InsertStatement{Table: `"public"."t"`, Columns: []string{"id"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := ParseInsert(tt.query)
			require.True(t, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ParseInsert() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	_, ok := ParseInsert("UPDATE T SET x=1")
	assert.False(t, ok)
}

// executor.go classifies a generated statement and runs it.
//
// The leading keyword picks exactly one of three paths:
//
//	SELECT, WITH      read: rows and column names are materialised
//	INSERT            write in a transaction, with an identity-insert
//	                  toggle scoped to the statement's own target table
//	anything else     write in a transaction
//
// Writes commit once after the statement succeeds and roll back on any
// earlier failure. Reads run outside a transaction.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/metrics"
)

// StatementKind is the execution path of a statement.
type StatementKind int

const (
	KindRead StatementKind = iota
	KindInsert
	KindWrite
)

func (k StatementKind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindInsert:
		return "insert"
	default:
		return "write"
	}
}

// Classify returns the execution path and upper-cased leading keyword of
// query. Leading comments are skipped.
func Classify(query string) (StatementKind, string, error) {
	fields := strings.Fields(strings.TrimLeft(skipLeadingComments(query), "("))
	if len(fields) == 0 {
		return KindWrite, "", errors.New("empty statement")
	}
	keyword := strings.ToUpper(strings.TrimLeft(fields[0], "("))
	switch keyword {
	case "SELECT", "WITH":
		return KindRead, keyword, nil
	case "INSERT":
		return KindInsert, keyword, nil
	default:
		return KindWrite, keyword, nil
	}
}

// skipLeadingComments drops whitespace, "--" line comments and "/* */"
// block comments before the first token.
func skipLeadingComments(query string) string {
	for {
		query = strings.TrimSpace(query)
		switch {
		case strings.HasPrefix(query, "--"):
			i := strings.IndexAny(query, "\r\n")
			if i < 0 {
				return ""
			}
			query = query[i+1:]
		case strings.HasPrefix(query, "/*"):
			i := strings.Index(query[2:], "*/")
			if i < 0 {
				return ""
			}
			query = query[i+4:]
		default:
			return query
		}
	}
}

// TableResult is the tabular outcome of a read.
type TableResult struct {
	Columns []string
	Rows    [][]any
}

// Ack acknowledges a committed write.
type Ack struct {
	// Kind is the statement's leading keyword, e.g. "UPDATE".
	Kind         string
	RowsAffected int64
	// IdentityInsert names the table identity insert was enabled on, if any.
	IdentityInsert string
}

// ExecutionResult holds exactly one of Table or Ack.
type ExecutionResult struct {
	Kind  StatementKind
	Table *TableResult
	Ack   *Ack
}

// Executor runs generated statements.
type Executor struct{}

// NewExecutor returns an Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Execute classifies query and runs it on d. Failures are *ExecutionError.
func (e *Executor) Execute(ctx context.Context, d *DB, query string) (res ExecutionResult, err error) {
	start := time.Now()
	kind, keyword, err := Classify(query)
	if err != nil {
		return ExecutionResult{}, &ExecutionError{Kind: kind, Err: err}
	}
	defer func() {
		metrics.ObserveExecution(kind.String(), time.Since(start), err)
		applog.Timed("exec", keyword, start, err)
	}()

	switch kind {
	case KindRead:
		table, err := e.read(ctx, d, query)
		if err != nil {
			return ExecutionResult{}, &ExecutionError{Kind: kind, Err: err}
		}
		return ExecutionResult{Kind: kind, Table: table}, nil

	case KindInsert:
		ack, err := e.insert(ctx, d, query)
		if err != nil {
			return ExecutionResult{}, &ExecutionError{Kind: kind, Err: err}
		}
		ack.Kind = keyword
		return ExecutionResult{Kind: kind, Ack: ack}, nil

	default:
		ack, err := e.write(ctx, d, query)
		if err != nil {
			return ExecutionResult{}, &ExecutionError{Kind: kind, Err: err}
		}
		ack.Kind = keyword
		return ExecutionResult{Kind: kind, Ack: ack}, nil
	}
}

func (e *Executor) read(ctx context.Context, d *DB, query string) (*TableResult, error) {
	rows, err := d.SQL.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	result := &TableResult{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result.Rows = append(result.Rows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

func (e *Executor) write(ctx context.Context, d *DB, query string) (*Ack, error) {
	ack := &Ack{}
	err := inTx(ctx, d.SQL, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query)
		if err != nil {
			return err
		}
		ack.RowsAffected = rowsAffected(res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ack, nil
}

func (e *Executor) insert(ctx context.Context, d *DB, query string) (*Ack, error) {
	ack := &Ack{}
	err := inTx(ctx, d.SQL, func(tx *sql.Tx) error {
		target, err := identityInsertTarget(ctx, tx, d.Dialect, query)
		if err != nil {
			return fmt.Errorf("identity lookup: %w", err)
		}
		if target != "" {
			if _, err := tx.ExecContext(ctx, "SET IDENTITY_INSERT "+target+" ON"); err != nil {
				return fmt.Errorf("enable identity insert on %s: %w", target, err)
			}
			ack.IdentityInsert = target
		}

		res, err := tx.ExecContext(ctx, query)
		if err != nil {
			return err
		}
		ack.RowsAffected = rowsAffected(res)

		if target != "" {
			if _, err := tx.ExecContext(ctx, "SET IDENTITY_INSERT "+target+" OFF"); err != nil {
				return fmt.Errorf("disable identity insert on %s: %w", target, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ack, nil
}

// identityInsertTarget returns the table to enable identity insert on, or
// "" when the statement does not write an explicit value into the target
// table's identity column.
func identityInsertTarget(ctx context.Context, tx *sql.Tx, dialect Dialect, query string) (string, error) {
	if dialect.IdentityColumnSQL == "" {
		return "", nil
	}
	stmt, ok := ParseInsert(query)
	if !ok || len(stmt.Columns) == 0 {
		return "", nil
	}

	var identity string
	err := tx.QueryRowContext(ctx, dialect.IdentityColumnSQL, stmt.Table).Scan(&identity)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	for _, col := range stmt.Columns {
		if strings.EqualFold(col, identity) {
			return stmt.Table, nil
		}
	}
	return "", nil
}

// inTx runs fn in a transaction: commit exactly once on success, roll back
// on any error from fn.
func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			applog.Error("rollback: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return -1
	}
	return n
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

// InsertStatement is the target of an INSERT as written in the statement.
type InsertStatement struct {
	// Table is the target name exactly as written, e.g. "[dbo].[Employee]".
	Table string
	// Columns is the explicit column list, unquoted; nil if absent.
	Columns []string
}

var (
	identPattern  = `(?:\[[^\]]+\]|"[^"]+"|[\p{L}_#@][\p{L}\p{N}_#@$]*)`
	insertPattern = regexp.MustCompile(`(?is)^\s*INSERT\s+(?:INTO\s+)?(` +
		identPattern + `(?:\s*\.\s*` + identPattern + `){0,3})\s*(?:\(([^)]*)\))?`)
	dotSpace = regexp.MustCompile(`\s*\.\s*`)
)

// ParseInsert extracts the target table and explicit column list of an
// INSERT statement.
func ParseInsert(query string) (InsertStatement, bool) {
	m := insertPattern.FindStringSubmatch(skipLeadingComments(query))
	if m == nil {
		return InsertStatement{}, false
	}
	stmt := InsertStatement{Table: dotSpace.ReplaceAllString(m[1], ".")}
	if strings.TrimSpace(m[2]) != "" {
		for _, col := range strings.Split(m[2], ",") {
			stmt.Columns = append(stmt.Columns, unquoteIdent(strings.TrimSpace(col)))
		}
	}
	return stmt, true
}

func unquoteIdent(s string) string {
	switch {
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		return strings.ReplaceAll(s[1:len(s)-1], "]]", "]")
	case strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`):
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

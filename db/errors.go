package db

import "fmt"

// ConnectionError reports a failure to reach or authenticate against the
// database server. The caller should ask for new connection settings.
type ConnectionError struct {
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SchemaError reports a failed catalog lookup.
type SchemaError struct {
	Op  string // "list databases", "list tables", "list columns"
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ExecutionError reports a statement that failed to run or commit.
type ExecutionError struct {
	Kind StatementKind
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %s: %v", e.Kind, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

package session

import (
	"context"
	"errors"

	"github.com/DachengChen/askSQL/ai"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/db"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrNoDatabase   = errors.New("no database selected")
	ErrNoTable      = errors.New("no table selected")
)

// SchemaReader lists catalog objects. *db.Inspector implements it.
type SchemaReader interface {
	ListDatabases(ctx context.Context, cfg config.ConnectionConfig) ([]string, error)
	ListTables(ctx context.Context, cfg config.ConnectionConfig) ([]db.TableRef, error)
	ListColumns(ctx context.Context, cfg config.ConnectionConfig, table db.TableRef) ([]string, error)
}

// QueryGenerator produces one statement. *ai.Generator implements it.
type QueryGenerator interface {
	Generate(ctx context.Context, table string, columns []string, request string) (ai.GeneratedQuery, error)
}

// Connector opens a database handle. *db.Connector implements it.
type Connector interface {
	Connect(ctx context.Context, cfg config.ConnectionConfig) (*db.DB, error)
}

// StatementExecutor runs a statement. *db.Executor implements it.
type StatementExecutor interface {
	Execute(ctx context.Context, d *db.DB, query string) (db.ExecutionResult, error)
}

// Deps are the components an Assistant drives.
type Deps struct {
	Schema    SchemaReader
	Connector Connector
	Executor  StatementExecutor

	// Generator returns the generator for an engine, so the prompt's
	// syntax hint follows the session's connection.
	Generator func(config.Engine) QueryGenerator
}

// Assistant runs workflow steps against a Session.
type Assistant struct {
	deps Deps
}

// NewAssistant returns an Assistant using deps.
func NewAssistant(deps Deps) *Assistant {
	return &Assistant{deps: deps}
}

// Answer is the outcome of one question.
type Answer struct {
	// Query is the generated statement. It is set whenever generation
	// succeeded, even if execution then failed.
	Query  string
	Result db.ExecutionResult
}

// Connect lists the databases reachable with cfg and, on success, makes
// cfg the session's connection. Any earlier selection is cleared.
func (a *Assistant) Connect(ctx context.Context, s *Session, cfg config.ConnectionConfig) error {
	names, err := a.deps.Schema.ListDatabases(ctx, cfg)
	if err != nil {
		return err
	}
	*s = Session{
		Config:    cfg,
		Connected: true,
		Databases: names,
	}
	return nil
}

// SelectDatabase lists the base tables of name and makes it the selected
// database.
func (a *Assistant) SelectDatabase(ctx context.Context, s *Session, name string) error {
	if !s.Connected {
		return ErrNotConnected
	}
	cfg := s.Config.WithDatabase(name)
	tables, err := a.deps.Schema.ListTables(ctx, cfg)
	if err != nil {
		return err
	}
	s.Config = cfg
	s.Tables = tables
	s.Table = db.TableRef{}
	s.Columns = nil
	return nil
}

// SelectTable reads the columns of table and makes it the selected table.
func (a *Assistant) SelectTable(ctx context.Context, s *Session, table db.TableRef) error {
	if !s.Connected {
		return ErrNotConnected
	}
	if s.Database() == "" {
		return ErrNoDatabase
	}
	columns, err := a.deps.Schema.ListColumns(ctx, s.Config, table)
	if err != nil {
		return err
	}
	s.Table = table
	s.Columns = columns
	return nil
}

// Generate produces a statement for question against the selected table
// without running it.
func (a *Assistant) Generate(ctx context.Context, s *Session, question string) (ai.GeneratedQuery, error) {
	if !s.Connected {
		return ai.GeneratedQuery{}, ErrNotConnected
	}
	if !s.HasTable() {
		return ai.GeneratedQuery{}, ErrNoTable
	}
	gen := a.deps.Generator(s.Config.Engine)
	return gen.Generate(ctx, s.Table.String(), s.Columns, question)
}

// Ask generates a statement for question and executes it on a fresh
// connection to the selected database.
func (a *Assistant) Ask(ctx context.Context, s *Session, question string) (Answer, error) {
	q, err := a.Generate(ctx, s, question)
	if err != nil {
		return Answer{}, err
	}
	answer := Answer{Query: q.Text}

	handle, err := a.deps.Connector.Connect(ctx, s.Config)
	if err != nil {
		return answer, err
	}
	defer handle.Close()

	answer.Result, err = a.deps.Executor.Execute(ctx, handle, q.Text)
	if err != nil {
		return answer, err
	}
	return answer, nil
}

// Package session holds the state of one interactive session and the
// Assistant that drives the connect -> database -> table -> ask workflow.
//
// A Session is a plain value owned by its caller (the TUI model or a CLI
// command) and passed explicitly to every Assistant method. Methods
// update the session only after the underlying call succeeds, so a
// failed step never leaves partial state behind.
package session

import (
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/db"
)

// Session is the state of one interactive session.
type Session struct {
	// Config is the active connection. Config.Database is the selected
	// database, empty until one is chosen.
	Config config.ConnectionConfig

	Connected bool
	Databases []string
	Tables    []db.TableRef

	// Table is the selected table; the zero value means none.
	Table   db.TableRef
	Columns []string
}

// New returns an empty, disconnected session.
func New() *Session {
	return &Session{}
}

// Database returns the selected database name.
func (s *Session) Database() string {
	return s.Config.Database
}

// HasTable reports whether a table is selected.
func (s *Session) HasTable() bool {
	return s.Table.Name != ""
}

// Reset returns the session to its disconnected state.
func (s *Session) Reset() {
	*s = Session{}
}

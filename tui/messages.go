// messages.go defines Bubble Tea messages used for async communication.
//
// Views ask for work with a *RequestMsg; the App runs the request off the
// render loop and answers with SessionMsg or AnswerMsg, so the UI never
// blocks on the database or the model.
package tui

import (
	"time"

	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/session"
)

// Step names a workflow step.
type Step int

const (
	StepConnect Step = iota
	StepDatabase
	StepTable
)

// ConnectRequestMsg asks the App to connect with Config.
type ConnectRequestMsg struct {
	Config config.ConnectionConfig
}

// SelectDatabaseMsg asks the App to open a database.
type SelectDatabaseMsg struct {
	Name string
}

// SelectTableMsg asks the App to select a table.
type SelectTableMsg struct {
	Table db.TableRef
}

// AskMsg asks the App to generate and run a statement.
type AskMsg struct {
	Question string
}

// SessionMsg is sent when a workflow step completes. On error Session is
// the unchanged previous state.
type SessionMsg struct {
	Step    Step
	Session session.Session
	Err     error
}

// AnswerMsg is sent when a question has been answered or has failed.
type AnswerMsg struct {
	Question string
	Answer   session.Answer
	Err      error
	Elapsed  time.Duration
}

// ConnectLostMsg returns the user to the connect form with Err.
type ConnectLostMsg struct {
	Err error
}

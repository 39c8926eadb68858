// app.go is the top-level Bubble Tea model that orchestrates the views.
//
// Flow:
//  1. Start with ConnectView (connection form)
//  2. On successful connection, switch to the workspace
//  3. Ctrl+D, or a lost connection, returns to the connection form
//
// Views never touch the database or the model themselves. They emit
// request messages; the App runs the request in a tea.Cmd against a copy
// of the session and applies the resulting SessionMsg in Update, so the
// session is only ever written from the update loop. One request runs at
// a time.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const appVersion = "0.1.0"

// AppPhase tracks whether we're connecting or already connected.
type AppPhase int

const (
	PhaseConnect AppPhase = iota
	PhaseWorkspace
)

// App is the root Bubble Tea model.
type App struct {
	assistant *session.Assistant
	opts      Options
	session   session.Session

	phase       AppPhase
	connectView *ConnectView
	workspace   *WorkspaceView

	width     int
	height    int
	busy      bool
	showHelp  bool
	statusMsg string
}

// NewApp creates the application starting with the connection screen.
func NewApp(assistant *session.Assistant, opts Options) *App {
	return &App{
		assistant:   assistant,
		opts:        opts,
		phase:       PhaseConnect,
		connectView: NewConnectView(opts.Initial),
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.connectView.Init()
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case ConnectRequestMsg:
		return a, a.runStep(StepConnect, func(ctx context.Context, s *session.Session) error {
			return a.assistant.Connect(ctx, s, msg.Config)
		})

	case SelectDatabaseMsg:
		return a, a.runStep(StepDatabase, func(ctx context.Context, s *session.Session) error {
			return a.assistant.SelectDatabase(ctx, s, msg.Name)
		})

	case SelectTableMsg:
		return a, a.runStep(StepTable, func(ctx context.Context, s *session.Session) error {
			return a.assistant.SelectTable(ctx, s, msg.Table)
		})

	case AskMsg:
		return a, a.ask(msg.Question)

	case SessionMsg:
		return a.applySession(msg)

	case AnswerMsg:
		a.busy = false
		if isConnectionLost(msg.Err) {
			return a.lost(msg.Err)
		}
		if msg.Err == nil {
			a.statusMsg = "answered in " + msg.Elapsed.Round(time.Millisecond).String()
		}
		return a, a.forward(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, a.forward(msg)
}

// context bounds one request by the configured timeout.
func (a *App) context() (context.Context, context.CancelFunc) {
	if a.opts.Timeout > 0 {
		return context.WithTimeout(context.Background(), a.opts.Timeout)
	}
	return context.WithCancel(context.Background())
}

func (a *App) runStep(step Step, fn func(context.Context, *session.Session) error) tea.Cmd {
	if a.busy {
		a.statusMsg = "still working on the previous request"
		return nil
	}
	a.busy = true
	a.statusMsg = ""
	s := a.session
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		err := fn(ctx, &s)
		return SessionMsg{Step: step, Session: s, Err: err}
	}
}

func (a *App) ask(question string) tea.Cmd {
	if a.busy {
		a.statusMsg = "still working on the previous request"
		return nil
	}
	a.busy = true
	a.statusMsg = ""
	s := a.session
	return func() tea.Msg {
		ctx, cancel := a.context()
		defer cancel()
		start := time.Now()
		answer, err := a.assistant.Ask(ctx, &s, question)
		return AnswerMsg{Question: question, Answer: answer, Err: err, Elapsed: time.Since(start)}
	}
}

func (a *App) applySession(msg SessionMsg) (tea.Model, tea.Cmd) {
	a.busy = false
	if msg.Err != nil {
		// Opening a database the login cannot access also fails to connect;
		// the server is still there, so the user stays in the workspace.
		if msg.Step == StepTable && isConnectionLost(msg.Err) {
			return a.lost(msg.Err)
		}
		return a, a.forward(msg)
	}

	a.session = msg.Session
	if msg.Step == StepConnect {
		a.phase = PhaseWorkspace
		a.workspace = NewWorkspaceView(a.session)
		a.showHelp = false
		a.resize()
		return a, a.workspace.Init()
	}
	return a, a.forward(msg)
}

// isConnectionLost reports whether err means the server can no longer be
// reached with the session's settings.
func isConnectionLost(err error) bool {
	var connErr *db.ConnectionError
	return errors.As(err, &connErr)
}

func (a *App) lost(err error) (tea.Model, tea.Cmd) {
	a.disconnect()
	updated, cmd := a.connectView.Update(ConnectLostMsg{Err: err})
	a.connectView = updated.(*ConnectView)
	return a, cmd
}

func (a *App) disconnect() {
	a.connectView = NewConnectView(a.session.Config)
	a.session.Reset()
	a.phase = PhaseConnect
	a.workspace = nil
	a.showHelp = false
	a.statusMsg = ""
	a.resize()
}

// forward hands msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	if a.phase == PhaseConnect {
		updated, cmd := a.connectView.Update(msg)
		a.connectView = updated.(*ConnectView)
		return cmd
	}
	updated, cmd := a.workspace.Update(msg)
	a.workspace = updated.(*WorkspaceView)
	return cmd
}

func (a *App) active() View {
	if a.phase == PhaseConnect {
		return a.connectView
	}
	return a.workspace
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}
	a.statusMsg = ""
	if a.phase == PhaseWorkspace {
		switch msg.String() {
		case "ctrl+d":
			if a.busy {
				return a, nil
			}
			a.disconnect()
			return a, nil
		case "?":
			if !a.workspace.WantsTextInput() {
				a.showHelp = !a.showHelp
				return a, nil
			}
		}
	}
	if a.showHelp {
		if msg.String() == "esc" {
			a.showHelp = false
		}
		return a, nil
	}
	return a, a.forward(msg)
}

func (a *App) resize() {
	if a.width == 0 {
		return
	}
	// header(1) + border(2) + status bar(1)
	contentH := a.height - 4
	contentW := a.width - 2
	a.connectView.SetSize(contentW, contentH)
	if a.workspace != nil {
		a.workspace.SetSize(contentW, contentH)
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "loading..."
	}

	header := a.renderHeader()

	var inner string
	if a.showHelp {
		inner = a.renderHelp()
	} else {
		inner = a.active().View()
	}

	frameHeight := a.height - 4
	if frameHeight < 0 {
		frameHeight = 0
	}
	frame := StyleBorder.
		Width(a.width - 2).
		Height(frameHeight).
		Render(inner)

	return header + "\n" + frame + "\n" + a.renderStatusBar()
}

// renderHeader draws logo, version, connection and model provider.
func (a *App) renderHeader() string {
	left := StyleBold.Render("askSQL") + StyleDimmed.Render(" v"+appVersion)

	if a.phase == PhaseWorkspace {
		left += StyleSuccess.Render("  ⚡ " + a.session.Config.Label())
		if a.session.HasTable() {
			left += StyleDimmed.Render(" › " + a.session.Table.String())
		}
	}

	right := ""
	if a.opts.ProviderName != "" {
		right = StyleDimmed.Render("model: " + a.opts.ProviderName)
	}
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().
		Width(a.width).
		Render(left + strings.Repeat(" ", gap) + right)
}

func (a *App) renderStatusBar() string {
	content := a.statusMsg
	if content == "" {
		help := a.active().ShortHelp()
		if a.phase == PhaseWorkspace {
			help = append(help,
				KeyBinding{Key: "?", Desc: "help"},
				KeyBinding{Key: "Ctrl+D", Desc: "disconnect"},
				KeyBinding{Key: "Ctrl+C", Desc: "quit"})
		}
		content = renderKeyHelp(help)
	}
	return StyleStatusBar.Width(a.width).Padding(0, 1).Render(content)
}

func (a *App) renderHelp() string {
	help := []string{
		StyleTitle.Render("⌨ askSQL Keyboard Shortcuts"),
		"",
		StyleHelpKey.Render("Tab / Shift+Tab") + "  Move between tables, results and question",
		StyleHelpKey.Render("Enter") + "            Open database or table, send question",
		StyleHelpKey.Render("Esc") + "              Back to the database list",
		StyleHelpKey.Render("Ctrl+D") + "           Disconnect",
		StyleHelpKey.Render("?") + "                Toggle this help",
		StyleHelpKey.Render("Ctrl+C") + "           Quit",
		"",
		StyleTitle.Render("Results"),
		"",
		StyleHelpKey.Render("↑/↓ j/k") + "          Vertical scroll",
		StyleHelpKey.Render("←/→ h/l") + "          Horizontal scroll",
		StyleHelpKey.Render("PgUp/PgDn") + "        Page up/down",
		StyleHelpKey.Render("w") + "                Toggle wrapping",
		"",
		StyleDimmed.Render("Every question is turned into one SQL statement and run"),
		StyleDimmed.Render("against the selected database. Writes are committed."),
		"",
		StyleDimmed.Render("Press ? to close"),
	}

	return lipgloss.NewStyle().
		Width(a.width-4).
		Height(a.height-6).
		Padding(1, 2).
		Render(strings.Join(help, "\n"))
}

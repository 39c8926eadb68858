// view_workspace.go is the screen shown once connected.
//
// Layout:
//
//	┌ sidebar ───────┬ table + columns ─────────────────┐
//	│ Databases      │ SQL: SELECT TOP 5 ...            │
//	│   or Tables    │ results viewport                 │
//	│                ├──────────────────────────────────┤
//	│                │ Ask> question█                   │
//	└────────────────┴──────────────────────────────────┘
//
// The sidebar lists databases until one is opened, then that database's
// base tables. Esc goes back to the database list.
package tui

import (
	"strings"

	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	focusSidebar = iota
	focusResults
	focusInput
	focusCount
)

const (
	listDatabases = iota
	listTables
)

// WorkspaceView browses the schema and answers questions about a table.
type WorkspaceView struct {
	sess     session.Session
	listMode int
	cursor   int
	focus    int

	viewport *Viewport
	input    string
	history  []string
	histIdx  int

	lastQuestion string
	lastQuery    string
	err          error
	loading      bool

	width  int
	height int
}

// NewWorkspaceView returns a workspace showing s.
func NewWorkspaceView(s session.Session) *WorkspaceView {
	v := &WorkspaceView{
		viewport: NewViewport(80, 20),
		histIdx:  -1,
		focus:    focusSidebar,
	}
	v.setSession(s)
	if s.Database() != "" {
		v.listMode = listTables
	}
	v.viewport.SetContent(StyleDimmed.Render("Pick a database, then a table, then ask a question."))
	return v
}

func (v *WorkspaceView) setSession(s session.Session) {
	v.sess = s
	if v.cursor >= v.listLen() {
		v.cursor = 0
	}
}

func (v *WorkspaceView) Name() string { return "Workspace" }

func (v *WorkspaceView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *WorkspaceView) WantsTextInput() bool { return v.focus == focusInput }

func (v *WorkspaceView) ShortHelp() []KeyBinding {
	switch v.focus {
	case focusSidebar:
		help := []KeyBinding{
			{Key: "↑/↓", Desc: "navigate"},
			{Key: "Enter", Desc: "open"},
		}
		if v.listMode == listTables {
			help = append(help, KeyBinding{Key: "Esc", Desc: "databases"})
		}
		return append(help, KeyBinding{Key: "Tab", Desc: "focus results"})
	case focusResults:
		return []KeyBinding{
			{Key: "↑/↓", Desc: "scroll"},
			{Key: "←/→", Desc: "pan"},
			{Key: "w", Desc: "wrap"},
			{Key: "Tab", Desc: "focus input"},
		}
	}
	return []KeyBinding{
		{Key: "Enter", Desc: "ask"},
		{Key: "↑/↓", Desc: "history"},
		{Key: "Tab", Desc: "focus tables"},
	}
}

func (v *WorkspaceView) Init() tea.Cmd { return nil }

func (v *WorkspaceView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)

	case SessionMsg:
		v.loading = false
		v.err = msg.Err
		if msg.Err != nil {
			v.viewport.SetContent(StyleError.Render("✗ " + DescribeError(msg.Err)))
			return v, nil
		}
		v.setSession(msg.Session)
		switch msg.Step {
		case StepDatabase:
			v.listMode = listTables
			v.cursor = 0
			v.viewport.SetContent(StyleDimmed.Render("Opened " + msg.Session.Database() + ". Pick a table."))
		case StepTable:
			v.focus = focusInput
			v.viewport.SetContent(StyleDimmed.Render("Ask a question about " + msg.Session.Table.String() + "."))
		}
		return v, nil

	case AnswerMsg:
		v.loading = false
		v.err = msg.Err
		v.lastQuestion = msg.Question
		v.lastQuery = msg.Answer.Query
		if msg.Err != nil {
			v.viewport.SetContent("ERROR: " + DescribeError(msg.Err))
		} else {
			v.viewport.SetContentLines(FormatResult(msg.Answer.Result))
		}
		v.viewport.Home()
		return v, nil
	}
	return v, nil
}

func (v *WorkspaceView) handleKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "tab":
		v.focus = (v.focus + 1) % focusCount
		return v, nil
	case "shift+tab":
		v.focus = (v.focus + focusCount - 1) % focusCount
		return v, nil
	}

	switch v.focus {
	case focusSidebar:
		return v.handleSidebarKey(msg)
	case focusResults:
		return v.handleResultsKey(msg)
	default:
		return v.handleInputKey(msg)
	}
}

func (v *WorkspaceView) listLen() int {
	if v.listMode == listTables {
		return len(v.sess.Tables)
	}
	return len(v.sess.Databases)
}

func (v *WorkspaceView) handleSidebarKey(msg tea.KeyMsg) (View, tea.Cmd) {
	n := v.listLen()
	switch msg.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < n-1 {
			v.cursor++
		}
	case "home":
		v.cursor = 0
	case "end":
		if n > 0 {
			v.cursor = n - 1
		}
	case "esc", "backspace":
		if v.listMode == listTables {
			v.listMode = listDatabases
			v.cursor = indexOf(v.sess.Databases, v.sess.Database())
		}
	case "enter":
		if n == 0 || v.loading {
			return v, nil
		}
		v.loading = true
		v.err = nil
		if v.listMode == listDatabases {
			name := v.sess.Databases[v.cursor]
			return v, func() tea.Msg { return SelectDatabaseMsg{Name: name} }
		}
		table := v.sess.Tables[v.cursor]
		return v, func() tea.Msg { return SelectTableMsg{Table: table} }
	}
	return v, nil
}

func indexOf(items []string, s string) int {
	for i, item := range items {
		if item == s {
			return i
		}
	}
	return 0
}

func (v *WorkspaceView) handleResultsKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		v.viewport.ScrollUp(1)
	case "down", "j":
		v.viewport.ScrollDown(1)
	case "left", "h":
		v.viewport.ScrollLeft(4)
	case "right", "l":
		v.viewport.ScrollRight(4)
	case "pgup":
		v.viewport.PageUp()
	case "pgdown":
		v.viewport.PageDown()
	case "home":
		v.viewport.Home()
	case "end":
		v.viewport.End()
	case "w":
		v.viewport.ToggleWrap()
	}
	return v, nil
}

func (v *WorkspaceView) handleInputKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return v, v.ask()
	case "up":
		if len(v.history) > 0 {
			if v.histIdx < len(v.history)-1 {
				v.histIdx++
			}
			v.input = v.history[len(v.history)-1-v.histIdx]
		}
	case "down":
		if v.histIdx > 0 {
			v.histIdx--
			v.input = v.history[len(v.history)-1-v.histIdx]
		} else {
			v.histIdx = -1
			v.input = ""
		}
	case "backspace":
		if r := []rune(v.input); len(r) > 0 {
			v.input = string(r[:len(r)-1])
		}
	case "ctrl+u":
		v.input = ""
	case "esc":
		v.focus = focusSidebar
	default:
		v.input += typedText(msg)
	}
	return v, nil
}

func (v *WorkspaceView) ask() tea.Cmd {
	question := strings.TrimSpace(v.input)
	if question == "" || v.loading {
		return nil
	}
	if !v.sess.HasTable() {
		v.err = session.ErrNoTable
		v.viewport.SetContent(StyleError.Render("✗ Pick a table before asking."))
		return nil
	}
	v.history = append(v.history, question)
	v.histIdx = -1
	v.input = ""
	v.loading = true
	v.err = nil
	return func() tea.Msg { return AskMsg{Question: question} }
}

func (v *WorkspaceView) View() string {
	sidebarWidth := v.width / 5
	if sidebarWidth < 24 {
		sidebarWidth = 24
	}
	inputHeight := 3
	contentWidth := v.width - sidebarWidth - 1

	sidebar := v.renderSidebar(sidebarWidth)

	// Right side: context line, generated SQL, results, input.
	var top []string
	top = append(top, v.renderContext(contentWidth))
	if v.lastQuery != "" {
		top = append(top, StylePrompt.Render("SQL: ")+HighlightSQL(singleLine(v.lastQuery)))
	} else {
		top = append(top, "")
	}
	header := lipgloss.NewStyle().Width(contentWidth).Padding(0, 1).Render(strings.Join(top, "\n"))

	resultsHeight := v.height - inputHeight - lipgloss.Height(header) - 1
	if resultsHeight < 3 {
		resultsHeight = 3
	}
	v.viewport.SetSize(contentWidth-4, resultsHeight-2)

	resultsBorderColor := ColorDim
	resultsFocus := "  "
	if v.focus == focusResults {
		resultsBorderColor = ColorAccent
		resultsFocus = lipgloss.NewStyle().Foreground(ColorAccent).Render(" ●")
	}
	results := lipgloss.NewStyle().
		Width(contentWidth).
		Height(resultsHeight).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(resultsBorderColor).
		Render(resultsFocus + v.viewport.Render())

	inputFocus := "  "
	if v.focus == focusInput {
		inputFocus = lipgloss.NewStyle().Foreground(ColorAccent).Render("● ")
	}
	prompt := v.input
	switch {
	case v.loading:
		prompt = StyleDimmed.Render("working...")
	case v.focus == focusInput:
		prompt += "█"
	case prompt == "":
		prompt = StyleDimmed.Render("(press tab to focus input)")
	default:
		prompt = StyleDimmed.Render(prompt)
	}
	input := lipgloss.NewStyle().
		Width(contentWidth).
		Height(inputHeight).
		Padding(0, 1).
		Render(inputFocus + StylePrompt.Render("Ask> ") + prompt)

	right := lipgloss.JoinVertical(lipgloss.Left, header, results, input)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, right)
}

func (v *WorkspaceView) renderSidebar(width int) string {
	title := "Databases"
	var items []string
	if v.listMode == listTables {
		title = "Tables in " + v.sess.Database()
		for _, t := range v.sess.Tables {
			items = append(items, t.String())
		}
	} else {
		items = v.sess.Databases
	}

	headerStyle := StyleBold.BorderBottom(true).BorderForeground(ColorDim).Width(width - 2)
	marker := "  "
	if v.focus == focusSidebar {
		marker = lipgloss.NewStyle().Foreground(ColorAccent).Render(" ●")
	}
	lines := []string{headerStyle.Render(marker + " " + clip(title, width-6))}

	if len(items) == 0 {
		lines = append(lines, StyleDimmed.Render(" (none)"))
	}
	limit := v.height - 2
	if limit < 1 {
		limit = 1
	}
	start := 0
	if v.cursor > limit/2 {
		start = v.cursor - limit/2
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	for i := start; i < end; i++ {
		name := clip(items[i], width-4)
		selected := (v.listMode == listTables && v.sess.Table.String() == items[i]) ||
			(v.listMode == listDatabases && v.sess.Database() == items[i])
		switch {
		case i == v.cursor && v.focus == focusSidebar:
			lines = append(lines, StyleListItemActive.Render("▸ "+name))
		case selected:
			lines = append(lines, StyleSelected.Render("• "+name))
		case i == v.cursor:
			lines = append(lines, StyleDimmed.Render("▸ "+name))
		default:
			lines = append(lines, StyleDimmed.Render("  "+name))
		}
	}

	borderColor := ColorDim
	if v.focus == focusSidebar {
		borderColor = ColorAccent
	}
	return lipgloss.NewStyle().
		Width(width).
		Height(v.height).
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(borderColor).
		Render(strings.Join(lines, "\n"))
}

func (v *WorkspaceView) renderContext(width int) string {
	if !v.sess.HasTable() {
		return StyleDimmed.Render("No table selected")
	}
	cols := strings.Join(v.sess.Columns, ", ")
	line := StyleBold.Render(v.sess.Table.String()) + StyleDimmed.Render(" ("+cols+")")
	if lipgloss.Width(line) > width-2 {
		line = StyleBold.Render(v.sess.Table.String()) + StyleDimmed.Render(" ("+clip(cols, max(width-lipgloss.Width(v.sess.Table.String())-6, 1))+")")
	}
	return line
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SelectedTable returns the table currently highlighted in the sidebar.
func (v *WorkspaceView) SelectedTable() (db.TableRef, bool) {
	if v.listMode != listTables || v.cursor >= len(v.sess.Tables) {
		return db.TableRef{}, false
	}
	return v.sess.Tables[v.cursor], true
}

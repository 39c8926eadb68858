package tui

import (
	"time"

	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/session"
	tea "github.com/charmbracelet/bubbletea"
)

// Options configure the interactive UI.
type Options struct {
	// Initial prefills the connection form.
	Initial config.ConnectionConfig
	// Timeout bounds each connect, browse or ask request; zero means none.
	Timeout time.Duration
	// ProviderName is shown in the header.
	ProviderName string
}

// Start launches the TUI and blocks until the user quits.
func Start(assistant *session.Assistant, opts Options) error {
	p := tea.NewProgram(NewApp(assistant, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

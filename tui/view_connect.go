// view_connect.go is the connection form.
//
// This is the first screen shown when askSQL starts:
//
//	Engine, Server, Port, Auth, User, Password, Encrypt
//	SSH Tunnel (toggle) + SSH Host, Port, User, Key
//	[Connect]
//
// User and Password are only shown for credentialed auth; SSH fields only
// when the tunnel is enabled. Nothing typed here is saved to disk.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/DachengChen/askSQL/config"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	fieldEngine = iota
	fieldServer
	fieldPort
	fieldAuth
	fieldUser
	fieldPassword
	fieldEncrypt
	fieldSSHEnabled
	fieldSSHHost
	fieldSSHPort
	fieldSSHUser
	fieldSSHKey
	fieldConnect
	fieldCount // sentinel
)

var fieldLabels = map[int]string{
	fieldEngine:     "Engine",
	fieldServer:     "Server",
	fieldPort:       "Port",
	fieldAuth:       "Auth",
	fieldUser:       "User",
	fieldPassword:   "Password",
	fieldEncrypt:    "Encrypt",
	fieldSSHEnabled: "SSH Tunnel",
	fieldSSHHost:    "SSH Host",
	fieldSSHPort:    "SSH Port",
	fieldSSHUser:    "SSH User",
	fieldSSHKey:     "SSH Key",
	fieldConnect:    "Connect",
}

var authModes = []string{string(config.AuthIntegrated), string(config.AuthCredentialed)}

// encryptModes per engine: SQL Server "encrypt" values and PostgreSQL sslmodes.
var encryptModes = map[config.Engine][]string{
	config.EngineSQLServer: {"", "true", "false", "disable", "strict"},
	config.EnginePostgres:  {"", "prefer", "disable", "require", "verify-ca", "verify-full"},
}

// ConnectView is the connection form.
type ConnectView struct {
	fields     []string
	focusField int
	editing    bool
	err        error
	connecting bool
	width      int
	height     int
	sshKeys    []string
	sshKeyIdx  int
}

// NewConnectView returns the form prefilled from initial.
func NewConnectView(initial config.ConnectionConfig) *ConnectView {
	v := &ConnectView{
		fields:     make([]string, fieldCount),
		focusField: fieldServer,
	}
	v.load(initial)

	v.sshKeys = discoverSSHKeys()
	if len(v.sshKeys) > 0 && v.fields[fieldSSHKey] == "" {
		v.fields[fieldSSHKey] = v.sshKeys[0]
	}
	for i, k := range v.sshKeys {
		if k == v.fields[fieldSSHKey] {
			v.sshKeyIdx = i
			break
		}
	}
	return v
}

func (v *ConnectView) load(cfg config.ConnectionConfig) {
	engine := cfg.Engine
	if engine == "" {
		engine = config.EngineSQLServer
	}
	auth := cfg.AuthMode
	if auth == "" {
		auth = config.AuthIntegrated
	}
	v.fields[fieldEngine] = string(engine)
	v.fields[fieldServer] = cfg.Server
	if cfg.Server == "" {
		v.fields[fieldServer] = "localhost"
	}
	if cfg.Port != 0 {
		v.fields[fieldPort] = strconv.Itoa(cfg.Port)
	}
	v.fields[fieldAuth] = string(auth)
	v.fields[fieldUser] = cfg.Username
	v.fields[fieldPassword] = cfg.Password
	v.fields[fieldEncrypt] = cfg.Encrypt
	v.fields[fieldSSHEnabled] = "no"
	if cfg.SSH.Enabled {
		v.fields[fieldSSHEnabled] = "yes"
	}
	v.fields[fieldSSHHost] = cfg.SSH.Host
	if cfg.SSH.Port != 0 {
		v.fields[fieldSSHPort] = strconv.Itoa(cfg.SSH.Port)
	}
	v.fields[fieldSSHUser] = cfg.SSH.User
	v.fields[fieldSSHKey] = cfg.SSH.KeyPath
}

func (v *ConnectView) Name() string { return "Connect" }

func (v *ConnectView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *ConnectView) WantsTextInput() bool { return v.editing }

func (v *ConnectView) ShortHelp() []KeyBinding {
	if v.editing {
		return []KeyBinding{
			{Key: "Enter", Desc: "confirm"},
			{Key: "Esc", Desc: "done"},
			{Key: "Ctrl+U", Desc: "clear"},
		}
	}
	return []KeyBinding{
		{Key: "↑/↓", Desc: "navigate"},
		{Key: "←/→", Desc: "change"},
		{Key: "Enter", Desc: "edit/action"},
		{Key: "Ctrl+C", Desc: "quit"},
	}
}

func (v *ConnectView) Init() tea.Cmd { return nil }

func (v *ConnectView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.editing {
			return v.handleEditing(msg)
		}
		return v.handleNavigation(msg)

	case SessionMsg:
		v.connecting = false
		if msg.Step == StepConnect {
			v.err = msg.Err
		}
		return v, nil

	case ConnectLostMsg:
		v.connecting = false
		v.err = msg.Err
		return v, nil
	}
	return v, nil
}

func (v *ConnectView) handleNavigation(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "up", "k", "shift+tab":
		v.move(-1)
	case "down", "j", "tab":
		v.move(1)
	case "left", "h":
		v.cycle(-1)
	case "right", "l":
		v.cycle(1)
	case "enter":
		return v.handleAction()
	case "q":
		return v, tea.Quit
	}
	return v, nil
}

func (v *ConnectView) move(dir int) {
	for {
		v.focusField = (v.focusField + dir + fieldCount) % fieldCount
		if !v.hidden(v.focusField) {
			return
		}
	}
}

func (v *ConnectView) hidden(f int) bool {
	switch f {
	case fieldUser, fieldPassword:
		return v.fields[fieldAuth] != string(config.AuthCredentialed)
	case fieldSSHHost, fieldSSHPort, fieldSSHUser, fieldSSHKey:
		return !v.sshEnabled()
	}
	return false
}

func (v *ConnectView) sshEnabled() bool {
	return v.fields[fieldSSHEnabled] == "yes"
}

func (v *ConnectView) cycle(dir int) {
	switch v.focusField {
	case fieldEngine:
		engines := make([]string, len(config.Engines))
		for i, e := range config.Engines {
			engines[i] = string(e)
		}
		v.fields[fieldEngine] = cycleValue(engines, v.fields[fieldEngine], dir)
		v.fields[fieldEncrypt] = ""
	case fieldAuth:
		v.fields[fieldAuth] = cycleValue(authModes, v.fields[fieldAuth], dir)
	case fieldEncrypt:
		v.fields[fieldEncrypt] = cycleValue(encryptModes[config.Engine(v.fields[fieldEngine])], v.fields[fieldEncrypt], dir)
	case fieldSSHEnabled:
		v.toggleSSH()
	case fieldSSHKey:
		v.cycleSSHKey(dir)
	default:
		v.move(dir)
	}
}

func cycleValue(options []string, current string, dir int) string {
	if len(options) == 0 {
		return current
	}
	idx := 0
	for i, o := range options {
		if o == current {
			idx = i
			break
		}
	}
	return options[(idx+dir+len(options))%len(options)]
}

func (v *ConnectView) toggleSSH() {
	if v.sshEnabled() {
		v.fields[fieldSSHEnabled] = "no"
	} else {
		v.fields[fieldSSHEnabled] = "yes"
	}
}

func (v *ConnectView) cycleSSHKey(dir int) {
	if len(v.sshKeys) == 0 {
		return
	}
	v.sshKeyIdx = (v.sshKeyIdx + dir + len(v.sshKeys)) % len(v.sshKeys)
	v.fields[fieldSSHKey] = v.sshKeys[v.sshKeyIdx]
}

func (v *ConnectView) handleEditing(msg tea.KeyMsg) (View, tea.Cmd) {
	field := v.focusField

	switch msg.String() {
	case "enter", "esc":
		v.editing = false
		return v, nil

	case "backspace":
		if r := []rune(v.fields[field]); len(r) > 0 {
			v.fields[field] = string(r[:len(r)-1])
		}

	case "ctrl+u":
		v.fields[field] = ""

	default:
		v.fields[field] += typedText(msg)
	}
	return v, nil
}

func (v *ConnectView) handleAction() (View, tea.Cmd) {
	switch v.focusField {
	case fieldEngine, fieldAuth, fieldEncrypt:
		v.cycle(1)
		return v, nil

	case fieldSSHEnabled:
		v.toggleSSH()
		return v, nil

	case fieldSSHKey:
		// With discovered keys, cycle; otherwise allow manual edit
		if len(v.sshKeys) > 0 {
			v.cycleSSHKey(1)
		} else {
			v.editing = true
		}
		return v, nil

	case fieldConnect:
		return v, v.connect()

	default:
		v.editing = true
		return v, nil
	}
}

func (v *ConnectView) connect() tea.Cmd {
	if v.connecting {
		return nil
	}
	cfg, err := v.buildConfig()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		v.err = err
		return nil
	}

	v.connecting = true
	v.err = nil
	return func() tea.Msg { return ConnectRequestMsg{Config: cfg} }
}

// buildConfig turns the form into a ConnectionConfig. Hidden fields are
// dropped so an integrated connection never carries stale credentials.
func (v *ConnectView) buildConfig() (config.ConnectionConfig, error) {
	engine, err := config.ParseEngine(v.fields[fieldEngine])
	if err != nil {
		return config.ConnectionConfig{}, err
	}
	auth, err := config.ParseAuthMode(v.fields[fieldAuth])
	if err != nil {
		return config.ConnectionConfig{}, err
	}
	port, err := parsePort("port", v.fields[fieldPort])
	if err != nil {
		return config.ConnectionConfig{}, err
	}

	cfg := config.ConnectionConfig{
		Engine:   engine,
		Server:   strings.TrimSpace(v.fields[fieldServer]),
		Port:     port,
		AuthMode: auth,
		Encrypt:  v.fields[fieldEncrypt],
	}
	if auth == config.AuthCredentialed {
		cfg.Username = strings.TrimSpace(v.fields[fieldUser])
		cfg.Password = v.fields[fieldPassword]
	}
	if v.sshEnabled() {
		sshPort, err := parsePort("SSH port", v.fields[fieldSSHPort])
		if err != nil {
			return config.ConnectionConfig{}, err
		}
		cfg.SSH = config.SSHConfig{
			Enabled: true,
			Host:    strings.TrimSpace(v.fields[fieldSSHHost]),
			Port:    sshPort,
			User:    strings.TrimSpace(v.fields[fieldSSHUser]),
			KeyPath: strings.TrimSpace(v.fields[fieldSSHKey]),
		}
	}
	return cfg, nil
}

func parsePort(name, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return n, nil
}

// discoverSSHKeys scans ~/.ssh/ for private key files.
func discoverSSHKeys() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	sshDir := filepath.Join(homeDir, ".ssh")
	entries, err := os.ReadDir(sshDir)
	if err != nil {
		return nil
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".pub") {
			continue
		}
		fullPath := filepath.Join(sshDir, e.Name())

		// Quick check: read first bytes to see if it looks like a key
		f, err := os.Open(fullPath)
		if err != nil {
			continue
		}
		buf := make([]byte, 40)
		n, _ := f.Read(buf)
		f.Close()

		if strings.Contains(string(buf[:n]), "PRIVATE KEY") {
			keys = append(keys, fullPath)
		}
	}
	return keys
}

func (v *ConnectView) View() string {
	width := v.width * 6 / 10
	if width < 50 {
		width = 50
	}
	inputW := width - 24

	var lines []string
	lines = append(lines, StyleTitle.Render("Connection"))
	lines = append(lines, v.renderSelectField(fieldEngine))
	lines = append(lines, v.renderField(fieldServer, inputW, false))
	port := v.fields[fieldPort]
	if port == "" && v.focusField != fieldPort {
		port = StyleDimmed.Render(fmt.Sprintf("(default %d)", config.Engine(v.fields[fieldEngine]).DefaultPort()))
	}
	lines = append(lines, v.renderValue(fieldPort, port, inputW))
	lines = append(lines, v.renderSelectField(fieldAuth))
	if !v.hidden(fieldUser) {
		lines = append(lines, v.renderField(fieldUser, inputW, false))
		lines = append(lines, v.renderField(fieldPassword, inputW, true))
	}
	enc := v.fields[fieldEncrypt]
	if enc == "" {
		enc = "default"
	}
	lines = append(lines, v.renderValue(fieldEncrypt, enc, inputW))
	lines = append(lines, "")

	lines = append(lines, StyleTitle.Render("SSH Tunnel"))
	lines = append(lines, v.renderToggleField(fieldSSHEnabled))
	if v.sshEnabled() {
		lines = append(lines, v.renderField(fieldSSHHost, inputW, false))
		lines = append(lines, v.renderField(fieldSSHPort, inputW, false))
		lines = append(lines, v.renderField(fieldSSHUser, inputW, false))
		lines = append(lines, v.renderField(fieldSSHKey, inputW, false))
	}
	lines = append(lines, "", v.renderButton(fieldConnect))

	panel := StyleBorder.Padding(1, 2).Width(width).BorderForeground(ColorAccent).
		Render(strings.Join(lines, "\n"))

	var status string
	switch {
	case v.connecting:
		status = StyleDimmed.Render("⏳ Connecting...")
	case v.err != nil:
		status = StyleError.Render("✗ " + DescribeError(v.err))
	}
	content := panel
	if status != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, panel, status)
	}

	return lipgloss.NewStyle().
		Width(v.width).
		Height(v.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func (v *ConnectView) label(id int) string {
	if v.focusField == id {
		return lipgloss.NewStyle().Width(16).Foreground(ColorAccent).Bold(true).Render("▸ " + fieldLabels[id])
	}
	return lipgloss.NewStyle().Width(16).Foreground(ColorDim).Render(fieldLabels[id])
}

func (v *ConnectView) renderField(id, inputWidth int, masked bool) string {
	value := v.fields[id]
	if masked {
		value = strings.Repeat("•", len([]rune(value)))
	}
	return v.renderValue(id, value, inputWidth)
}

func (v *ConnectView) renderValue(id int, value string, inputWidth int) string {
	if v.focusField == id {
		cursor := ""
		if v.editing {
			cursor = "█"
		}
		return v.label(id) + " " + lipgloss.NewStyle().
			Width(inputWidth).
			Foreground(ColorPrimary).
			Render(value+cursor)
	}
	return v.label(id) + " " + StyleDimmed.Render(value)
}

func (v *ConnectView) renderSelectField(id int) string {
	if v.focusField == id {
		return v.label(id) + " " + lipgloss.NewStyle().
			Foreground(ColorAccent).
			Render(" ◂ "+v.fields[id]+" ▸ ")
	}
	return v.label(id) + " " + StyleDimmed.Render(v.fields[id])
}

func (v *ConnectView) renderToggleField(id int) string {
	if v.fields[id] == "yes" {
		return v.label(id) + " " + lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true).Render("● Enabled")
	}
	return v.label(id) + " " + StyleDimmed.Render("○ Disabled")
}

func (v *ConnectView) renderButton(id int) string {
	if v.focusField == id {
		return lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Background(ColorAccent).
			Padding(0, 2).
			Render("⏎ " + fieldLabels[id])
	}
	return lipgloss.NewStyle().
		Foreground(ColorDim).
		Padding(0, 2).
		Render("  " + fieldLabels[id])
}

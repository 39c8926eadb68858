// Package config defines the connection and application configuration.
//
// Separated from cmd so the db, ssh and tui packages can depend on
// config without importing Cobra.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Engine names the database engine a connection talks to.
type Engine string

const (
	EngineSQLServer Engine = "sqlserver"
	EnginePostgres  Engine = "postgres"
)

// Engines lists the supported engines in display order.
var Engines = []Engine{EngineSQLServer, EnginePostgres}

// DefaultPort returns the engine's well-known port.
func (e Engine) DefaultPort() int {
	if e == EnginePostgres {
		return 5432
	}
	return 1433
}

// SystemDatabase is the database used for server-level catalog queries.
func (e Engine) SystemDatabase() string {
	if e == EnginePostgres {
		return "postgres"
	}
	return "master"
}

// AuthMode selects how the connection authenticates.
type AuthMode string

const (
	// AuthIntegrated uses the ambient identity of the process.
	AuthIntegrated AuthMode = "integrated"
	// AuthCredentialed sends an explicit username and password.
	AuthCredentialed AuthMode = "credentialed"
)

// ConnectionConfig holds everything needed to reach one database.
type ConnectionConfig struct {
	Engine   Engine
	Server   string
	Port     int // 0 means the engine default
	Database string
	AuthMode AuthMode
	Username string
	Password string

	// SQL Server "encrypt" value or PostgreSQL sslmode. Empty picks a
	// per-engine default.
	Encrypt string

	SSH SSHConfig
}

// SSHConfig holds SSH tunnel settings.
type SSHConfig struct {
	Enabled       bool
	Host          string
	Port          int
	User          string
	KeyPath       string
	KeyPassphrase string
}

// Validate enforces that credentials are present iff AuthMode is
// AuthCredentialed.
func (c ConnectionConfig) Validate() error {
	credentialed := c.AuthMode == AuthCredentialed
	return validation.ValidateStruct(&c,
		validation.Field(&c.Engine, validation.Required, validation.In(EngineSQLServer, EnginePostgres)),
		validation.Field(&c.Server, validation.Required),
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.AuthMode, validation.Required, validation.In(AuthIntegrated, AuthCredentialed)),
		validation.Field(&c.Username,
			validation.When(credentialed, validation.Required).Else(validation.Empty)),
		validation.Field(&c.Password,
			validation.When(credentialed, validation.Required).Else(validation.Empty)),
		validation.Field(&c.SSH),
	)
}

func (s SSHConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Host, validation.When(s.Enabled, validation.Required)),
		validation.Field(&s.User, validation.When(s.Enabled, validation.Required)),
		validation.Field(&s.KeyPath, validation.When(s.Enabled, validation.Required)),
		validation.Field(&s.Port, validation.Min(0), validation.Max(65535)),
	)
}

// WithDatabase returns a copy of c targeting another database.
func (c ConnectionConfig) WithDatabase(name string) ConnectionConfig {
	c.Database = name
	return c
}

// Endpoint splits Server into host, SQL Server instance name and port.
// Accepted forms are host, host:port, host,port, host\instance and
// host\instance,port; an explicit Port wins. A named instance without a
// port yields port 0, which leaves the lookup to SQL Browser.
func (c ConnectionConfig) Endpoint() (host, instance string, port int) {
	host = strings.TrimSpace(c.Server)

	if i := strings.LastIndex(host, ","); i >= 0 {
		if p, err := strconv.Atoi(strings.TrimSpace(host[i+1:])); err == nil {
			port = p
		}
		host = strings.TrimSpace(host[:i])
	} else if h, p, err := net.SplitHostPort(host); err == nil {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
		host = h
	}
	if c.Engine != EnginePostgres {
		if i := strings.Index(host, `\`); i >= 0 {
			host, instance = host[:i], strings.TrimSpace(host[i+1:])
		}
	}

	if c.Port != 0 {
		port = c.Port
	}
	if port == 0 && instance == "" {
		port = c.Engine.DefaultPort()
	}
	return host, instance, port
}

// HostPort returns the host and a concrete port, for dialing through a
// tunnel. A named instance without a port maps to the engine default.
func (c ConnectionConfig) HostPort() (string, int) {
	host, _, port := c.Endpoint()
	if port == 0 {
		port = c.Engine.DefaultPort()
	}
	return host, port
}

// Label is a short human-readable target, e.g. "sa@localhost:1433/shop".
func (c ConnectionConfig) Label() string {
	host, instance, port := c.Endpoint()
	user := c.Username
	if c.AuthMode == AuthIntegrated {
		user = "(integrated)"
	}
	target := user + "@" + host
	if instance != "" {
		target += `\` + instance
	}
	if port != 0 {
		target += fmt.Sprintf(":%d", port)
	}
	if c.Database != "" {
		target += "/" + c.Database
	}
	return target
}

// DSN builds a driver connection string for the engine. Credentials are
// only included in credentialed mode.
func (c ConnectionConfig) DSN() string {
	if c.Engine == EnginePostgres {
		host, port := c.HostPort()
		return c.postgresDSN(host, port)
	}
	return c.sqlServerDSN()
}

// sqlServerDSN renders the go-mssqldb URL form, sqlserver://host/instance
// for named instances.
func (c ConnectionConfig) sqlServerDSN() string {
	host, instance, port := c.Endpoint()
	q := url.Values{}
	if c.Database != "" {
		q.Set("database", c.Database)
	}
	if c.Encrypt != "" {
		q.Set("encrypt", c.Encrypt)
	}
	q.Set("app name", "askSQL")

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     host,
		RawQuery: q.Encode(),
	}
	if port != 0 {
		u.Host = net.JoinHostPort(host, strconv.Itoa(port))
	}
	if instance != "" {
		u.Path = "/" + instance
	}
	if c.AuthMode == AuthCredentialed {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

func (c ConnectionConfig) postgresDSN(host string, port int) string {
	sslMode := c.Encrypt
	if sslMode == "" {
		sslMode = "prefer"
	}
	parts := []string{
		"host=" + quoteDSNValue(host),
		"port=" + strconv.Itoa(port),
		"sslmode=" + quoteDSNValue(sslMode),
		"application_name=askSQL",
	}
	if c.Database != "" {
		parts = append(parts, "dbname="+quoteDSNValue(c.Database))
	}
	if c.AuthMode == AuthCredentialed {
		parts = append(parts,
			"user="+quoteDSNValue(c.Username),
			"password="+quoteDSNValue(c.Password))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a libpq keyword/value when it needs it.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// ParseEngine maps user input to an Engine.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlserver", "mssql":
		return EngineSQLServer, nil
	case "postgres", "postgresql", "pg":
		return EnginePostgres, nil
	default:
		return "", fmt.Errorf("unknown engine %q (supported: sqlserver, postgres)", s)
	}
}

// ParseAuthMode maps user input to an AuthMode. "windows" and "sql" are
// accepted as SQL Server style aliases.
func ParseAuthMode(s string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "integrated", "windows", "trusted":
		return AuthIntegrated, nil
	case "credentialed", "sql", "password":
		return AuthCredentialed, nil
	default:
		return "", fmt.Errorf("unknown auth mode %q (supported: integrated, credentialed)", s)
	}
}

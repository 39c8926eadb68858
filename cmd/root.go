// Package cmd contains all Cobra commands for askSQL.
//
// Running `asksql` with no subcommand starts the interactive UI with a
// connection form. `asksql schema` and `asksql ask` run one step of the
// same workflow non-interactively.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/DachengChen/askSQL/ai"
	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/metrics"
	"github.com/DachengChen/askSQL/session"
	"github.com/DachengChen/askSQL/tui"
	"github.com/spf13/cobra"
)

// passwordEnv supplies the database password; it is never a flag.
const passwordEnv = "ASKSQL_DB_PASSWORD"

type options struct {
	provider    string
	model       string
	logLevel    string
	metricsAddr string
	timeout     time.Duration

	engine   string
	server   string
	port     int
	database string
	auth     string
	user     string
	encrypt  string
}

// runtime is everything a command needs once flags and config are read.
type runtime struct {
	assistant *session.Assistant
	provider  string
	timeout   time.Duration
	metrics   *metrics.Server
}

func (r *runtime) close() {
	if r.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = r.metrics.Shutdown(ctx)
	}
	ai.CloseLog()
	applog.Info("askSQL stopped")
	applog.Close()
}

// context bounds one command by the configured timeout.
func (r *runtime) context(parent context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(parent, r.timeout)
	}
	return context.WithCancel(parent)
}

type builder func(o *options) (*runtime, error)

// NewRootCmd returns the asksql command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(buildRuntime)
}

func newRootCmd(build builder) *cobra.Command {
	o := &options{}
	var rt *runtime

	root := &cobra.Command{
		Use:   "asksql",
		Short: "Ask questions of a SQL database in plain language",
		Long: `askSQL turns a natural-language request about one table into a single
SQL statement, runs it and shows the result:
  • SQL Server (integrated or SQL login) and PostgreSQL
  • Gemini, OpenAI, Anthropic or a local Ollama model
  • Optional SSH tunnel for remote servers
  • Keyboard-driven TUI

Run 'asksql' to start the TUI with a connection form.
The database password is read from ` + passwordEnv + `.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			rt, err = build(o)
			return err
		},
		// Running with no subcommand launches the TUI.
		RunE: func(cmd *cobra.Command, args []string) error {
			defer rt.close()
			return tui.Start(rt.assistant, tui.Options{
				Initial:      o.connection(),
				Timeout:      rt.timeout,
				ProviderName: rt.provider,
			})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.provider, "provider", "", "model provider: "+strings.Join(config.Providers, ", "))
	pf.StringVar(&o.model, "model", "", "model identifier for the selected provider")
	pf.StringVar(&o.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, disabled")
	pf.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")
	pf.DurationVar(&o.timeout, "timeout", 0, "per-request timeout (default from config, 60s)")

	pf.StringVar(&o.engine, "engine", string(config.EngineSQLServer), "database engine: sqlserver or postgres")
	pf.StringVarP(&o.server, "server", "S", "localhost", "database server, optionally host,port or host:port")
	pf.IntVar(&o.port, "port", 0, "database port (0 uses the engine default)")
	pf.StringVarP(&o.database, "database", "d", "", "database name")
	pf.StringVar(&o.auth, "auth", "", "authentication: integrated or credentialed (default: credentialed when --user is set)")
	pf.StringVarP(&o.user, "user", "U", "", "login name for credentialed authentication")
	pf.StringVar(&o.encrypt, "encrypt", "", "SQL Server encrypt value or PostgreSQL sslmode")

	root.AddCommand(newSchemaCmd(o, func() *runtime { return rt }))
	root.AddCommand(newAskCmd(o, func() *runtime { return rt }))
	return root
}

// connection builds the connection settings from flags. It is not
// validated here; the connector does that.
func (o *options) connection() config.ConnectionConfig {
	engine, err := config.ParseEngine(o.engine)
	if err != nil {
		engine = config.Engine(o.engine)
	}
	cfg := config.ConnectionConfig{
		Engine:   engine,
		Server:   o.server,
		Port:     o.port,
		Database: o.database,
		Encrypt:  o.encrypt,
		AuthMode: config.AuthIntegrated,
	}
	switch {
	case o.auth != "":
		if mode, err := config.ParseAuthMode(o.auth); err == nil {
			cfg.AuthMode = mode
		} else {
			cfg.AuthMode = config.AuthMode(o.auth)
		}
	case o.user != "":
		cfg.AuthMode = config.AuthCredentialed
	}
	if cfg.AuthMode == config.AuthCredentialed {
		cfg.Username = o.user
		cfg.Password = os.Getenv(passwordEnv)
	}
	return cfg
}

// buildRuntime loads config, applies flag overrides and wires the
// components together.
func buildRuntime(o *options) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.provider != "" {
		cfg.AI.Provider = strings.ToLower(o.provider)
	}
	if o.model != "" {
		cfg.AI.SetModel(o.model)
	}
	if o.logLevel != "" {
		cfg.LogLevel = strings.ToLower(o.logLevel)
	}
	if o.timeout > 0 {
		cfg.Timeout = o.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	if err := applog.Init(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "asksql: logging disabled: %v\n", err)
	}
	applog.Info("askSQL started (provider=%s, model=%s)", cfg.AI.Provider, cfg.AI.Model())

	provider, err := ai.NewProvider(cfg.AI, ai.HTTPOptions{
		Client: &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		assistant: newAssistant(db.NewConnector(), provider),
		provider:  provider.Name(),
		timeout:   cfg.Timeout,
	}
	if o.metricsAddr != "" {
		srv, err := metrics.Serve(o.metricsAddr)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		applog.Info("metrics listening on %s", srv.Addr())
		rt.metrics = srv
	}
	return rt, nil
}

// newAssistant wires the schema inspector, executor and generator around
// one connector and model provider.
func newAssistant(conn *db.Connector, provider ai.Provider) *session.Assistant {
	gen := ai.NewGenerator(provider, config.EngineSQLServer)
	return session.NewAssistant(session.Deps{
		Schema:    db.NewInspector(conn),
		Connector: conn,
		Executor:  db.NewExecutor(),
		Generator: func(e config.Engine) session.QueryGenerator {
			return gen.ForEngine(e)
		},
	})
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

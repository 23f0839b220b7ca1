package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/posterratings/internal/app"
	"github.com/lepinkainen/posterratings/internal/config"
	"github.com/lepinkainen/posterratings/internal/logging"
	"github.com/lepinkainen/posterratings/internal/server"
)

var (
	loadConfig = config.Load
	newApp     = app.New
	runServer  = func(ctx context.Context, srv *server.Server) error { return srv.ListenAndServe(ctx) }

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Globals are the flags shared by every command.
type Globals struct {
	Config    string `help:"Path to a YAML config file (default: ./config.yaml if present)" type:"path"`
	EnvFile   string `help:"Path to a dotenv file (default: ./.env if present)" type:"path"`
	LogLevel  string `help:"Log level: debug, info, warn, error"`
	LogFormat string `help:"Log format: human or json"`
}

// CLI represents the complete command structure for the posterratings application
type CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the add-on HTTP server"`
	Check   CheckCmd   `cmd:"" help:"Report configuration problems"`
	Catalog CatalogCmd `cmd:"" help:"Print an enriched catalog as JSON"`
	Meta    MetaCmd    `cmd:"" help:"Print an enriched meta as JSON"`
}

// ServeCmd runs the HTTP server
type ServeCmd struct {
	Port int    `help:"Port to listen on (overrides PORT)"`
	Host string `help:"Host to bind (overrides HOST)"`
}

// CheckCmd reports configuration problems without failing
type CheckCmd struct{}

// CatalogCmd prints one catalog
type CatalogCmd struct {
	Type  string   `arg:"" help:"Content type (movie or series)"`
	ID    string   `arg:"" help:"Catalog id, e.g. top"`
	Extra []string `short:"e" help:"Extra catalog parameter as key=value (repeatable)"`
}

// MetaCmd prints one meta
type MetaCmd struct {
	Type string `arg:"" help:"Content type (movie or series)"`
	ID   string `arg:"" help:"IMDb id, e.g. tt1375666"`
}

// Execute runs the Kong-based CLI
func Execute() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("posterratings"),
		kong.Description("Stremio add-on that overlays IMDb, Rotten Tomatoes and Metacritic ratings on posters."),
		kong.UsageOnError(),
	)

	if err := ctx.Run(&cli.Globals); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// setup loads the configuration, applies overrides and installs the logger.
// The returned cleanup closes the log file.
func (g *Globals) setup(override func(*config.Config)) (*config.Config, func(), error) {
	cfg, err := loadConfig(config.Options{ConfigFile: g.Config, EnvFile: g.EnvFile})
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Logging.Format = g.LogFormat
	}
	if override != nil {
		override(cfg)
	}

	closer := logging.Setup(cfg.Logging, stderr)
	return cfg, func() { _ = closer.Close() }, nil
}

func (g *Globals) buildApp(override func(*config.Config)) (*app.App, func(), error) {
	cfg, cleanup, err := g.setup(override)
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(cfg, slog.Default())
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, func() {
		_ = a.Close()
		cleanup()
	}, nil
}

func (s *ServeCmd) Run(g *Globals) error {
	a, cleanup, err := g.buildApp(func(cfg *config.Config) {
		if s.Port != 0 {
			cfg.Server.Port = s.Port
		}
		if s.Host != "" {
			cfg.Server.Host = s.Host
		}
	})
	if err != nil {
		return err
	}
	defer cleanup()

	a.WarnIfUnconfigured()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServer(ctx, a.Server())
}

func (c *CheckCmd) Run(g *Globals) error {
	cfg, cleanup, err := g.setup(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintln(stdout, "Poster Ratings Overlay configuration")
	if cfg.HasOMDbKey() {
		fmt.Fprintln(stdout, "  OMDb API key:  configured")
	} else {
		fmt.Fprintln(stdout, "  OMDb API key:  missing (OMDB_API_KEY); posters use bundled fallback ratings")
	}
	fmt.Fprintf(stdout, "  Cinemeta:      %s\n", cfg.Cinemeta.BaseURL)
	fmt.Fprintf(stdout, "  Listen:        %s\n", cfg.Addr())
	fmt.Fprintf(stdout, "  Ratings cache: %s\n", cfg.Cache.Backend)
	return nil
}

func (c *CatalogCmd) Run(g *Globals) error {
	extra, err := parseExtra(c.Extra)
	if err != nil {
		return err
	}

	a, cleanup, err := g.buildApp(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := a.Service.Catalog(context.Background(), c.Type, c.ID, extra)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func (m *MetaCmd) Run(g *Globals) error {
	a, cleanup, err := g.buildApp(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := a.Service.Meta(context.Background(), m.Type, m.ID)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

// parseExtra turns key=value pairs into catalog parameters; repeated keys
// accumulate.
func parseExtra(pairs []string) (url.Values, error) {
	extra := url.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid extra %q, expected key=value", pair)
		}
		extra.Add(strings.TrimSpace(key), value)
	}
	return extra, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

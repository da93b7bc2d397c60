// ABOUTME: Assembles the gateway from config: engine registry, session manager,
// ABOUTME: dispatch table, tool surface, history store, and the HTTP/stdio transports.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/2389/matlab-gateway/internal/auth"
	"github.com/2389/matlab-gateway/internal/config"
	"github.com/2389/matlab-gateway/internal/dispatch"
	"github.com/2389/matlab-gateway/internal/engine"
	"github.com/2389/matlab-gateway/internal/gate"
	"github.com/2389/matlab-gateway/internal/intent"
	"github.com/2389/matlab-gateway/internal/mcp"
	"github.com/2389/matlab-gateway/internal/session"
	"github.com/2389/matlab-gateway/internal/store"
	"github.com/2389/matlab-gateway/internal/tools"
	"github.com/2389/matlab-gateway/internal/webstatus"
)

// defaultLaunchCommand is the stock headless MATLAB worker invocation, used
// when engine.launch_command is not configured.
var defaultLaunchCommand = []string{
	"matlab", "-nodesktop", "-nosplash", "-batch", "matlabgateway.worker",
}

// shutdownTimeout bounds graceful HTTP shutdown on SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

// Gateway holds the assembled components.
type Gateway struct {
	cfg      *config.Config
	logger   *slog.Logger
	history  *store.SQLiteStore
	sessions *session.Manager
	groups   *gate.Gate
	table    *dispatch.Table
	mcpSrv   *mcp.Server
	status   *webstatus.Handler
}

// New builds a gateway from configuration. The MATLAB engine itself starts
// lazily on the first tool call, not here.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	history, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}

	launchCommand := cfg.Engine.LaunchCommand
	if len(launchCommand) == 0 {
		launchCommand = defaultLaunchCommand
	}
	registry := &engine.FileRegistry{
		Dir: cfg.Engine.DiscoveryDir,
		Launcher: &engine.Launcher{
			Command:        launchCommand,
			StartupTimeout: cfg.Engine.StartupTimeout,
			Logger:         logger,
		},
	}

	sessions := session.NewManager(registry, logger)

	// The sessions group starts enabled so a client can attach to a shared
	// instance before running anything.
	groups := gate.New(tools.Groups(), tools.GroupSessions)

	rules := intent.DefaultRules()
	if cfg.Intent.RulesPath != "" {
		rules, err = intent.LoadRules(cfg.Intent.RulesPath)
		if err != nil {
			history.Close()
			return nil, fmt.Errorf("loading intent rules: %w", err)
		}
	}
	classifier, err := intent.New(rules)
	if err != nil {
		history.Close()
		return nil, fmt.Errorf("building intent classifier: %w", err)
	}

	table := dispatch.NewTable(dispatch.Config{
		Gate:     groups,
		Runner:   sessions,
		Recorder: store.NewRecorder(history, logger),
		Logger:   logger,
	})
	if err := tools.RegisterAll(table, tools.Deps{
		Sessions:   sessions,
		Gate:       groups,
		Classifier: classifier,
		Artifacts:  history,
		Logger:     logger,
	}); err != nil {
		history.Close()
		return nil, err
	}

	readme := readOptional("README.md")
	resources := mcp.NewResources(mcp.ResourcesConfig{
		Sessions: sessions,
		Gate:     groups,
		History:  history,
		Readme:   readme,
	})

	verifier, requireAuth, err := buildVerifier(cfg.Auth)
	if err != nil {
		history.Close()
		return nil, err
	}
	mcpSrv, err := mcp.NewServer(mcp.Config{
		Table:         table,
		Resources:     resources,
		Logger:        logger,
		TokenVerifier: verifier,
		RequireAuth:   requireAuth,
	})
	if err != nil {
		history.Close()
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	var status *webstatus.Handler
	if cfg.WebStatus.Enabled {
		status = webstatus.New(webstatus.Config{
			Sessions: sessions,
			Gate:     groups,
			History:  history,
			Docs:     readme,
			Logger:   logger,
		})
	}

	return &Gateway{
		cfg:      cfg,
		logger:   logger,
		history:  history,
		sessions: sessions,
		groups:   groups,
		table:    table,
		mcpSrv:   mcpSrv,
		status:   status,
	}, nil
}

func buildVerifier(cfg config.AuthConfig) (auth.TokenVerifier, bool, error) {
	switch cfg.Mode {
	case "", "none":
		return nil, false, nil
	case "jwt":
		return auth.NewJWTVerifier([]byte(cfg.JWTSecret)), true, nil
	case "tokens":
		return auth.NewStaticVerifier(cfg.Tokens), true, nil
	}
	return nil, false, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully
// and releases the engine and the history store.
func (g *Gateway) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	g.mcpSrv.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	if g.status != nil {
		mux.Handle(g.cfg.WebStatus.Path, g.status)
	}

	srv := &http.Server{
		Addr:    g.cfg.Server.HTTPAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		g.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			g.logger.Warn("HTTP shutdown", "error", err)
		}
		<-errCh
	case err := <-errCh:
		if err != nil {
			g.close()
			return fmt.Errorf("HTTP server: %w", err)
		}
	}

	g.close()
	return nil
}

// RunStdio serves MCP over stdin/stdout until EOF or cancellation. Logging
// must already be routed to stderr; stdout belongs to the protocol.
func (g *Gateway) RunStdio(ctx context.Context) error {
	resources := mcp.NewResources(mcp.ResourcesConfig{
		Sessions: g.sessions,
		Gate:     g.groups,
		History:  g.history,
		Readme:   readOptional("README.md"),
	})
	srv, err := mcp.NewStdioServer(mcp.StdioConfig{
		Table:     g.table,
		Resources: resources,
		Logger:    g.logger,
		In:        os.Stdin,
		Out:       os.Stdout,
	})
	if err != nil {
		return err
	}
	defer g.close()
	return srv.Serve(ctx)
}

func (g *Gateway) close() {
	g.sessions.Close()
	if err := g.history.Close(); err != nil {
		g.logger.Warn("closing history store", "error", err)
	}
}

func readOptional(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

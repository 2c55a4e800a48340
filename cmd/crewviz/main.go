// crewviz watches a crew flow's message source and shows the flow graph,
// either served to browsers over HTTP/WebSocket or drawn in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/crewviz/pkg/api"
	"github.com/codeready-toolchain/crewviz/pkg/config"
	"github.com/codeready-toolchain/crewviz/pkg/dashboard"
	"github.com/codeready-toolchain/crewviz/pkg/events"
	"github.com/codeready-toolchain/crewviz/pkg/graph"
	"github.com/codeready-toolchain/crewviz/pkg/masking"
	"github.com/codeready-toolchain/crewviz/pkg/stream"
	"github.com/codeready-toolchain/crewviz/pkg/tui"
	"github.com/codeready-toolchain/crewviz/pkg/version"
)

const (
	modeServer = "server"
	modeTUI    = "tui"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseLevel reads a slog level name such as "debug" or "WARN".
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	mode := flag.String("mode",
		getEnv("CREWVIZ_MODE", modeServer),
		"Renderer: server (HTTP + WebSocket dashboard) or tui (terminal)")
	logFile := flag.String("log-file", "",
		"Write logs to this file in tui mode (default: show warnings in the status bar)")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	envErr := godotenv.Load(envPath)

	level := parseLevel(getEnv("LOG_LEVEL", "info"))
	var tuiLog *tui.LogHandler
	switch *mode {
	case modeServer:
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	case modeTUI:
		closeLog, handler, err := setupTUILogging(*logFile, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "crewviz: %v\n", err)
			os.Exit(1)
		}
		defer closeLog()
		tuiLog = handler
	default:
		fmt.Fprintf(os.Stderr, "crewviz: unknown mode %q (want %s or %s)\n", *mode, modeServer, modeTUI)
		os.Exit(2)
	}

	if envErr != nil {
		slog.Debug("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", envErr)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	slog.Info("Starting crewviz",
		"version", version.GitCommit,
		"mode", *mode,
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Create message channel and dashboard
	dialer := &stream.WebsocketDialer{
		ReadLimit:  cfg.Source.ReadLimit,
		HTTPHeader: http.Header{"User-Agent": []string{version.Full()}},
	}
	channel := stream.New(cfg.StreamConfig(), dialer)
	dash := dashboard.New(channel, graph.Builtin())

	if *mode == modeTUI {
		if err := runTUI(ctx, dash, tuiLog); err != nil {
			slog.Error("Terminal dashboard failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runServer(ctx, cfg, dash); err != nil {
		os.Exit(1)
	}
}

// setupTUILogging keeps logs off the terminal the TUI draws on.
func setupTUILogging(path string, level slog.Level) (func(), *tui.LogHandler, error) {
	if path == "" {
		handler := tui.NewLogHandler(max(level, slog.LevelWarn))
		slog.SetDefault(slog.New(handler))
		return func() {}, handler, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))
	return func() { _ = f.Close() }, nil, nil
}

func runServer(ctx context.Context, cfg *config.Config, dash *dashboard.Dashboard) error {
	// 3. Wire scene fan-out
	connManager := events.NewConnectionManager(dash, cfg.Server.WriteTimeout)
	unsubscribe := dash.Subscribe(connManager.PublishView)
	defer unsubscribe()

	// 4. Start dashboard (connects to the message source)
	if err := dash.Start(ctx); err != nil {
		slog.Error("Failed to start dashboard", "error", err)
		return err
	}
	defer dash.Stop()

	// 5. Start HTTP server (non-blocking)
	httpPort := getEnv("HTTP_PORT", "8080")
	httpServer := api.NewServer(cfg, dash, connManager)
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(":" + httpPort); err != nil {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("crewviz started successfully",
		"http_port", httpPort,
		"source_url", masking.URL(cfg.Source.URL))

	// 6. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	var runErr error
	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case runErr = <-errCh:
		slog.Error("Server error triggered shutdown", "error", runErr)
	}

	// 7. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("crewviz stopped")
	return runErr
}

func runTUI(ctx context.Context, dash *dashboard.Dashboard, logHandler *tui.LogHandler) error {
	// The dashboard is mounted from the program's Init: its views are sent
	// to the program, and sends block until the event loop runs.
	model := tui.NewModel(dash.View(), func() error {
		return dash.Reconnect(ctx)
	}).WithStart(func() error {
		return dash.Start(ctx)
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if logHandler != nil {
		logHandler.SetProgram(program)
	}

	stopForward := tui.Forward(dash, program, tui.DefaultRecent)
	defer stopForward()
	defer dash.Stop()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	// Anything logged after the program exits goes nowhere.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return nil
}

// crewsource is a stand-in message source: it serves the crew WebSocket
// protocol and replays a scripted flow, by default the education content flow.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/crewviz/pkg/source"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	addr := flag.String("addr", getEnv("SOURCE_ADDR", "localhost:8765"), "Listen address")
	scriptPath := flag.String("script", "", "YAML script to replay (default: built-in education flow)")
	step := flag.Duration("step", 1500*time.Millisecond, "Pause between updates of the built-in flow")
	startDelay := flag.Duration("start-delay", 2*time.Second, "Wait before the first replay")
	loop := flag.Bool("loop", false, "Replay the script until interrupted")
	backlog := flag.Int("backlog", source.DefaultBacklog, "Updates held while no client is connected (negative disables)")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment", "path", ".env")
	}

	// 1. Resolve script
	script := source.EduFlowScript(source.DefaultEduFlowInput(), *step)
	if *scriptPath != "" {
		s, err := source.LoadScript(*scriptPath)
		if err != nil {
			slog.Error("Failed to load script", "path", *scriptPath, "error", err)
			os.Exit(1)
		}
		script = s
	}

	// 2. Start WebSocket server (non-blocking)
	srv := source.NewServer(source.Options{Backlog: *backlog})
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("WebSocket server listening", "url", "ws://"+*addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("WebSocket server error", "error", err)
			errCh <- err
		}
	}()

	// 3. Replay in the background
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	replayDone := make(chan struct{})
	go func() {
		defer close(replayDone)
		if !sleep(ctx, *startDelay) {
			return
		}
		for {
			if err := source.Replay(ctx, srv, script); err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Error("Replay failed", "error", err)
				}
				return
			}
			if !*loop || !sleep(ctx, *startDelay) {
				return
			}
		}
	}()

	// 4. Wait for shutdown signal or server error
	exitCode := 0
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case <-errCh:
		exitCode = 1
		cancel()
	case <-replayDone:
		if !*loop {
			slog.Info("Replay complete, serving until interrupted", "clients", srv.Clients())
			select {
			case <-ctx.Done():
			case <-errCh:
				exitCode = 1
			}
		}
	}

	// 5. Graceful shutdown
	srv.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("WebSocket server shutdown error", "error", err)
	}
	<-replayDone
	os.Exit(exitCode)
}

// sleep waits for d and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

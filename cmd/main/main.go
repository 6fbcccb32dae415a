package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	baseLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	actionChan := make(chan string, 1)

	go func() {
		osSignalChan := make(chan os.Signal, 1)
		signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		for sig := range osSignalChan {
			if sig == syscall.SIGHUP {
				baseLogger.Info("SIGHUP received, reloading.")
				actionChan <- actionRestart
				continue
			}
			baseLogger.Info("OS signal received, initiating shutdown.", "signal", sig)
			actionChan <- actionShutdown
		}
	}()

	next, err := prepare(false)
	if err != nil {
		baseLogger.Error("Failed to prepare server, shutting down.", "error", err)
		os.Exit(1)
	}

	for {
		current := next
		reload := func() error {
			prepared, err := prepare(true)
			if err != nil {
				return err
			}
			next = prepared
			return nil
		}

		action, err := run(current, actionChan, reload)
		if err != nil {
			baseLogger.Error("An error occurred during server run, shutting down.", "error", err)
			os.Exit(1)
		}

		if action == actionRestart {
			baseLogger.Info("--- Server Restarting ---")
			continue
		}
		break
	}

	baseLogger.Info("Catdex has shut down.")
}

// cycle is a fully built server waiting to be bound.
type cycle struct {
	server *Server
	logger *slog.Logger
}

// prepare loads config and compiles templates for one server cycle. On reload
// the .env values replace whatever the previous cycle put in the environment.
func prepare(reload bool) (*cycle, error) {
	if err := LoadDotEnv(".env", reload); err != nil {
		return nil, err
	}

	config, err := LoadConfig(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	config.ApplyEnv()
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(config.Server.LogLevel)}))

	server, err := NewServer(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create server object: %w", err)
	}
	return &cycle{server: server, logger: logger}, nil
}

// run binds the prepared server and serves until an action arrives. The next
// cycle is built by reload while the current one is still answering, so a
// broken config or template on SIGHUP leaves the running server untouched.
func run(c *cycle, actionChan <-chan string, reload func() error) (string, error) {
	c.logger.Info("Starting server cycle...")

	httpServer := c.server.HTTPServer()
	ln, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to bind %s: %w", httpServer.Addr, err)
	}

	return serve(httpServer, ln, actionChan, reload, c.logger)
}

// serve runs httpServer on ln until an action is received or the server fails,
// then shuts it down gracefully. A restart only goes through once reload
// succeeds; a nil reload always restarts.
func serve(httpServer *http.Server, ln net.Listener, actionChan <-chan string, reload func() error, logger *slog.Logger) (string, error) {
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", "address", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var action string
wait:
	for {
		select {
		case action = <-actionChan:
			if action == actionRestart && reload != nil {
				if err := reload(); err != nil {
					logger.Error("Reload failed, keeping the current server", "error", err)
					continue
				}
			}
			break wait
		case err := <-serveErr:
			if err != nil {
				return "", fmt.Errorf("http server failed: %w", err)
			}
			return actionShutdown, nil
		}
	}

	logger.Info("Stopping server for " + action + "...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
		return action, fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("HTTP server stopped.")
	return action, nil
}

package main

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"
)

// TestServeLifecycle starts a real listener, checks it answers, then stops it
// through the action channel the way a signal would.
func TestServeLifecycle(t *testing.T) {
	for _, action := range []string{actionShutdown, actionRestart} {
		t.Run(action, func(t *testing.T) {
			config := newTestConfig(t)
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			srv, err := NewServer(config, logger)
			if err != nil {
				t.Fatalf("NewServer failed: %v", err)
			}

			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				t.Fatalf("failed to listen: %v", err)
			}

			actionChan := make(chan string, 1)
			type result struct {
				action string
				err    error
			}
			done := make(chan result, 1)
			go func() {
				a, err := serve(srv.HTTPServer(), ln, actionChan, nil, logger)
				done <- result{a, err}
			}()

			resp, err := http.Get("http://" + ln.Addr().String() + "/hello")
			if err != nil {
				t.Fatalf("GET /hello failed: %v", err)
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status: got %d, want 200", resp.StatusCode)
			}

			actionChan <- action

			select {
			case r := <-done:
				if r.err != nil {
					t.Fatalf("serve returned error: %v", r.err)
				}
				if r.action != action {
					t.Errorf("serve returned action %q, want %q", r.action, action)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("server did not stop in time")
			}

			if _, err = net.DialTimeout("tcp", ln.Addr().String(), 200*time.Millisecond); err == nil {
				t.Error("listener should be closed after shutdown")
			}
		})
	}
}

func TestServe_ListenerFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	_ = ln.Close()

	hs := &http.Server{Handler: http.NotFoundHandler()}
	if _, err = serve(hs, ln, make(chan string), nil, logger); err == nil {
		t.Fatal("expected serve to fail on a closed listener")
	}
}

// TestServe_ReloadFailureKeepsServing sends a restart whose reload fails and
// checks the running server keeps answering until a shutdown arrives.
func TestServe_ReloadFailureKeepsServing(t *testing.T) {
	config := newTestConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(config, logger)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	reloads := make(chan struct{}, 1)
	reload := func() error {
		reloads <- struct{}{}
		return errors.New("template parse failed")
	}

	actionChan := make(chan string, 1)
	done := make(chan string, 1)
	go func() {
		a, err := serve(srv.HTTPServer(), ln, actionChan, reload, logger)
		if err != nil {
			t.Errorf("serve returned error: %v", err)
		}
		done <- a
	}()

	actionChan <- actionRestart
	select {
	case <-reloads:
	case <-time.After(5 * time.Second):
		t.Fatal("reload was never attempted")
	}

	resp, err := http.Get("http://" + ln.Addr().String() + "/hello")
	if err != nil {
		t.Fatalf("server stopped answering after a failed reload: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}

	actionChan <- actionShutdown
	select {
	case a := <-done:
		if a != actionShutdown {
			t.Errorf("serve returned action %q, want %q", a, actionShutdown)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop in time")
	}
}

// TestServe_ReloadRunsBeforeShutdown checks the next cycle is built while the
// current listener is still accepting connections.
func TestServe_ReloadRunsBeforeShutdown(t *testing.T) {
	config := newTestConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(config, logger)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := ln.Addr().String()

	reload := func() error {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err != nil {
			return err
		}
		return conn.Close()
	}

	actionChan := make(chan string, 1)
	actionChan <- actionRestart
	action, err := serve(srv.HTTPServer(), ln, actionChan, reload, logger)
	if err != nil {
		t.Fatalf("serve returned error: %v", err)
	}
	if action != actionRestart {
		t.Errorf("serve returned action %q, want %q", action, actionRestart)
	}
}

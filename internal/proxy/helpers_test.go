package proxy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/n0madic/go-gradiogate/internal/config"
	"github.com/n0madic/go-gradiogate/internal/models"
	"github.com/n0madic/go-gradiogate/internal/payload"
	"github.com/n0madic/go-gradiogate/internal/session"
	"github.com/n0madic/go-gradiogate/internal/upstream"
)

// fakeBackend stands in for a Gradio Space. reply decides the outcome of each
// call by credential; connectErr rejects connections.
type fakeBackend struct {
	mu         sync.Mutex
	reply      func(credential string) (session.Result, error)
	connectErr func(credential string) error
	calls      []backendCall
	connects   int
}

type backendCall struct {
	credential string
	operation  string
	args       *payload.Payload
}

func (b *fakeBackend) connect(_ context.Context, _ string, credential string) (session.Handle, error) {
	b.mu.Lock()
	b.connects++
	connectErr := b.connectErr
	b.mu.Unlock()
	if connectErr != nil {
		if err := connectErr(credential); err != nil {
			return nil, err
		}
	}
	return &fakeHandle{backend: b, credential: credential}, nil
}

func (b *fakeBackend) snapshot() []backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backendCall(nil), b.calls...)
}

type fakeHandle struct {
	backend    *fakeBackend
	credential string
}

func (h *fakeHandle) Invoke(_ context.Context, operation string, args *payload.Payload) (session.Result, error) {
	h.backend.mu.Lock()
	h.backend.calls = append(h.backend.calls, backendCall{credential: h.credential, operation: operation, args: args})
	reply := h.backend.reply
	h.backend.mu.Unlock()
	if reply == nil {
		return session.Result{Values: []string{"ok"}}, nil
	}
	return reply(h.credential)
}

func single(s string) session.Result {
	return session.Result{Values: []string{s}}
}

func sequence(values ...string) session.Result {
	return session.Result{Values: values, Sequence: true}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 600 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Backend: config.BackendConfig{MaxConcurrency: 4},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Logging: config.LoggingConfig{Level: "info"},
	}
}

func newTestServer(t *testing.T, b *fakeBackend, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	coord := upstream.NewCoordinator(models.Builtin(), session.NewCache(), b.connect, upstream.Options{
		MaxConcurrency: cfg.Backend.MaxConcurrency,
	})
	return New(cfg, coord)
}

// Package proxy serves the OpenAI-compatible HTTP surface of the gateway.
package proxy

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"sync"

	"github.com/n0madic/go-gradiogate/internal/codec"
	"github.com/n0madic/go-gradiogate/internal/config"
	"github.com/n0madic/go-gradiogate/internal/metrics"
	"github.com/n0madic/go-gradiogate/internal/models"
	"github.com/n0madic/go-gradiogate/internal/tokens"
	"github.com/n0madic/go-gradiogate/internal/types"
	"github.com/n0madic/go-gradiogate/internal/upstream"
)

// invoker abstracts the invocation coordinator so handlers can be tested
// without a real backend.
type invoker interface {
	Invoke(ctx context.Context, req *types.ChatCompletionRequest, credential string) (*upstream.Result, error)
}

// Server is the gateway HTTP server.
type Server struct {
	Config      *config.Config
	Registry    *models.Registry
	httpServer  *http.Server
	coordinator invoker
	encoder     codec.ChatEncoder
	tokens      *tokens.Counter
	debugOut    io.Writer
	debugDumpMu sync.Mutex
}

// New creates a server with all routes registered. The coordinator owns the
// registry listed by /v1/models.
func New(cfg *config.Config, coord *upstream.Coordinator) *Server {
	s := &Server{
		Config:      cfg,
		Registry:    coord.Registry(),
		coordinator: coord,
		tokens:      tokens.NewCounter(),
		debugOut:    os.Stderr,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleHealth)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("GET /v1/models", s.handleListModels)

	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, metrics.Handler())
	}

	mux.HandleFunc("OPTIONS /", s.handleOptions)

	var handler http.Handler = s.corsMiddleware(s.verboseMiddleware(s.debugMiddleware(mux)))
	if cfg.Metrics.Enabled {
		handler = metrics.Middleware(handler)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	codec.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// corsMiddleware allows requests from any origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqHeaders := r.Header.Get("Access-Control-Request-Headers")
		if reqHeaders == "" {
			reqHeaders = "Authorization, Content-Type, Accept"
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// parseBearerAuthToken extracts the token from "Bearer <token>".
func parseBearerAuthToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func (s *Server) verboseMiddleware(next http.Handler) http.Handler {
	if !s.Config.Verbose {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Info("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) debugMiddleware(next http.Handler) http.Handler {
	if !s.Config.Debug {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dump, err := httputil.DumpRequest(r, true)
		if err != nil {
			slog.Error("request.dump.failed", "method", r.Method, "path", r.URL.Path, "error", err)
		} else {
			slog.Info("request.dump", "method", r.Method, "path", r.URL.Path)
			s.writeDebugDumpBlock("INBOUND REQUEST", redactAuthorization(dump))
		}
		next.ServeHTTP(w, r)
	})
}

// redactAuthorization masks the credential in a dumped request.
func redactAuthorization(dump []byte) []byte {
	lines := strings.SplitAfter(string(dump), "\n")
	for i, line := range lines {
		if len(line) > len("Authorization:") && strings.EqualFold(line[:len("Authorization:")], "Authorization:") {
			lines[i] = "Authorization: [redacted]\r\n"
		}
	}
	return []byte(strings.Join(lines, ""))
}

func (s *Server) writeDebugDumpBlock(title string, data []byte) {
	if s == nil || s.debugOut == nil {
		return
	}
	s.debugDumpMu.Lock()
	defer s.debugDumpMu.Unlock()

	var sb strings.Builder
	sb.WriteString("===== " + strings.TrimSpace(title) + " BEGIN =====\n")
	sb.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		sb.WriteByte('\n')
	}
	sb.WriteString("===== " + strings.TrimSpace(title) + " END =====\n")

	if _, err := io.WriteString(s.debugOut, sb.String()); err != nil {
		slog.Error("debug.dump.write.failed", "title", title, "error", err)
	}
}

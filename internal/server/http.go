package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/trakdhq/trakd-mcp/internal/config"
	"github.com/trakdhq/trakd-mcp/internal/session"
	"github.com/trakdhq/trakd-mcp/internal/telemetry"
)

// HTTPServer wraps MCP HTTP routing state.
type HTTPServer struct {
	cfg        config.Config
	version    string
	commit     string
	build      string
	contract   []byte
	dispatcher *Dispatcher
	authn      SessionAuthenticator
	logger     zerolog.Logger
}

// NewHTTPServer creates an HTTP transport server with health and MCP routes.
func NewHTTPServer(
	cfg config.Config,
	version, commit, buildDate string,
	contract []byte,
	dispatcher *Dispatcher,
	authn SessionAuthenticator,
	logger zerolog.Logger,
) *HTTPServer {
	return &HTTPServer{
		cfg:        cfg,
		version:    version,
		commit:     commit,
		build:      buildDate,
		contract:   contract,
		dispatcher: dispatcher,
		authn:      authn,
		logger:     logger,
	}
}

// Router builds the MCP HTTP router.
func (s *HTTPServer) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))

	registerHealthRoutes(r, s.version, s.commit, s.build, s.cfg.MetricsEnabled)

	r.Route("/mcp/v1", func(r chi.Router) {
		r.Post("/initialize", s.handleInitialize)
		r.Get("/tools", s.handleListTools)
		r.Post("/tools/call", s.handleCallTool)
		r.Post("/tools/call/sse", s.handleCallToolSSE)
	})

	r.Get("/api/tools.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(s.contract)
	})

	return r
}

func (s *HTTPServer) handleInitialize(w http.ResponseWriter, _ *http.Request) {
	result := initializeResult{ProtocolVersion: defaultProtocolVersion}
	result.ServerInfo.Name = defaultServerName
	result.ServerInfo.Version = strings.TrimSpace(s.version)
	result.Capabilities.Tools.ListChanged = false
	respondJSON(w, http.StatusOK, result)
}

// handleListTools publishes the filtered registry. Authentication is
// required because the advertised schemas depend on the session's bound
// constraints.
func (s *HTTPServer) handleListTools(w http.ResponseWriter, r *http.Request) {
	sess, err := s.authn.AuthenticateHTTP(r)
	if err != nil {
		status, detail := authFailureResponse(err)
		respondProblem(w, r, status, detail)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tools": s.dispatcher.Registry().Published(sess.Constraints),
	})
}

func (s *HTTPServer) handleCallTool(w http.ResponseWriter, r *http.Request) {
	sess, params, ok := s.parseCallRequest(w, r)
	if !ok {
		return
	}
	ctx := session.WithSession(r.Context(), sess)
	result := s.dispatcher.Dispatch(ctx, "http", requestIDFromContext(r.Context()), params.Name, params.Arguments)
	respondJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleCallToolSSE(w http.ResponseWriter, r *http.Request) {
	sess, params, ok := s.parseCallRequest(w, r)
	if !ok {
		return
	}

	controller := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if err := writeSSEEvent(r.Context(), w, "accepted", map[string]any{
		"tool":      strings.TrimSpace(params.Name),
		"status":    "accepted",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return
	}
	_ = controller.Flush()

	ctx := session.WithSession(r.Context(), sess)
	result := s.dispatcher.Dispatch(ctx, "http-sse", requestIDFromContext(r.Context()), params.Name, params.Arguments)

	if err := writeSSEEvent(r.Context(), w, "result", result); err != nil {
		return
	}
	_ = controller.Flush()
	_ = writeSSEEvent(r.Context(), w, "done", map[string]any{"status": "done"})
	_ = controller.Flush()
}

// parseCallRequest authenticates the call and decodes its body. Dispatch
// outcomes, including authorization denials, are not handled here: they are
// the dispatcher's to render into the result envelope.
func (s *HTTPServer) parseCallRequest(w http.ResponseWriter, r *http.Request) (*session.Session, callToolParams, bool) {
	sess, err := s.authn.AuthenticateHTTP(r)
	if err != nil {
		status, detail := authFailureResponse(err)
		respondProblem(w, r, status, detail)
		return nil, callToolParams{}, false
	}

	var params callToolParams
	if err := decodeJSONStrict(r, &params); err != nil {
		respondProblem(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return nil, callToolParams{}, false
	}
	if strings.TrimSpace(params.Name) == "" {
		respondProblem(w, r, http.StatusBadRequest, "tool name is required")
		return nil, callToolParams{}, false
	}
	return sess, params, true
}

func writeSSEEvent(ctx context.Context, w http.ResponseWriter, event string, payload any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", strings.TrimSpace(event)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

func registerHealthRoutes(r chi.Router, version, commit, buildDate string, metricsEnabled bool) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Get("/readiness", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"version": version,
			"commit":  commit,
			"build":   buildDate,
		})
	})
	if metricsEnabled {
		r.Method(http.MethodGet, "/metrics", telemetry.PrometheusHandler())
	}
}

// Package main is the entry point for the trakd-mcp service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/trakdhq/trakd-mcp/api"
	mcpauth "github.com/trakdhq/trakd-mcp/internal/auth"
	"github.com/trakdhq/trakd-mcp/internal/config"
	"github.com/trakdhq/trakd-mcp/internal/server"
	"github.com/trakdhq/trakd-mcp/internal/session"
	"github.com/trakdhq/trakd-mcp/internal/telemetry"
	"github.com/trakdhq/trakd-mcp/internal/tools"
	"github.com/trakdhq/trakd-mcp/internal/trackerapi"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "trakd-mcp").Str("version", version).Logger()

	logger := log.With().Str("component", "main").Logger()
	logger.Info().Str("transport", cfg.Transport).Msg("starting trakd-mcp")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "trakd-mcp",
		ServiceVersion: version,
		MetricsEnabled: cfg.MetricsEnabled,
		TracesEnabled:  cfg.TracesEnabled,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := shutdownTelemetry(shutdownCtx); shutdownErr != nil {
			logger.Error().Err(shutdownErr).Msg("failed to shut down telemetry")
		}
	}()

	registry, err := tools.NewRegistry(api.ToolsContract, cfg.ToolDenylist, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build tool registry")
	}

	resolvedToken, err := mcpauth.ResolveToken(mcpauth.TokenSourceOptions{
		AllowCLIConfigToken: cfg.AllowCLIConfigToken,
		CLIConfigPath:       cfg.CLIConfigPath,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve token source")
	}
	if resolvedToken.Token == "" {
		logger.Warn().Msg("no upstream token resolved from TRAKD_MCP_TOKEN, TRAKD_TOKEN, or CLI config")
	} else {
		logger.Info().Str("token_source", string(resolvedToken.Source)).Msg("resolved upstream token source")
	}

	sess, err := server.BuildSession(cfg, resolvedToken.Token, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid session configuration")
	}

	apiClient, err := trackerapi.New(trackerapi.Config{
		BaseURL:   cfg.APIBaseURL,
		RegionURL: sess.Constraints.Region,
		Token:     resolvedToken.Token,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize trakd API client")
	}

	dispatcher := server.NewDispatcher(registry, tools.NewRunner(apiClient), log.Logger)

	switch cfg.Transport {
	case config.TransportStdio:
		// One session per process: register the fallback for code paths
		// that cannot see the loop's context.
		session.SetProcessSession(sess)
		if runErr := server.RunStdio(ctx, os.Stdin, os.Stdout, dispatcher, sess, version, logger); runErr != nil {
			logger.Error().Err(runErr).Msg("stdio runtime stopped with error")
			os.Exit(1)
		}
		logger.Info().Msg("stdio runtime stopped")

	case config.TransportHTTP:
		authn := server.NewTokenSessionAuthenticator(resolvedToken.Token, sess)
		httpServer := server.NewHTTPServer(cfg, version, commit, buildDate, api.ToolsContract, dispatcher, authn, log.Logger)
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           httpServer.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      0, // allow SSE streaming without forcing writer timeout.
			IdleTimeout:       120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
			if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				errCh <- serveErr
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		case serveErr := <-errCh:
			logger.Error().Err(serveErr).Msg("HTTP server error")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
			os.Exit(1)
		}
		logger.Info().Msg("server stopped gracefully")

	default:
		logger.Fatal().Str("transport", cfg.Transport).Msg("unsupported transport")
	}
}

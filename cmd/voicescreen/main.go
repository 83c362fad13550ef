// Command voicescreen is the live voice-interview server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rehearsal-dev/voicescreen/internal/config"
	"github.com/rehearsal-dev/voicescreen/internal/health"
	"github.com/rehearsal-dev/voicescreen/internal/observe"
	"github.com/rehearsal-dev/voicescreen/internal/server"
	"github.com/rehearsal-dev/voicescreen/internal/session"
	"github.com/rehearsal-dev/voicescreen/pkg/provider/live/gemini"
	"github.com/rehearsal-dev/voicescreen/pkg/provider/questions"
	questionsopenai "github.com/rehearsal-dev/voicescreen/pkg/provider/questions/openai"
	"github.com/rehearsal-dev/voicescreen/pkg/provider/questions/static"
	scoringopenai "github.com/rehearsal-dev/voicescreen/pkg/provider/scoring/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voicescreen: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voicescreen: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voicescreen starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "voicescreen",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	srv, err := buildServer(cfg)
	if err != nil {
		slog.Error("failed to build server", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildServer wires providers, orchestrator, and store from configuration.
func buildServer(cfg *config.Config) (*server.Server, error) {
	upstreamKey := os.Getenv(cfg.Upstream.APIKeyEnv)
	if upstreamKey == "" {
		return nil, fmt.Errorf("environment variable %s (upstream API key) is empty", cfg.Upstream.APIKeyEnv)
	}
	scoringKey := os.Getenv(cfg.Scoring.APIKeyEnv)
	if scoringKey == "" {
		return nil, fmt.Errorf("environment variable %s (scoring API key) is empty", cfg.Scoring.APIKeyEnv)
	}

	var liveOpts []gemini.Option
	if cfg.Upstream.Model != "" {
		liveOpts = append(liveOpts, gemini.WithModel(cfg.Upstream.Model))
	}
	if cfg.Upstream.BaseURL != "" {
		liveOpts = append(liveOpts, gemini.WithBaseURL(cfg.Upstream.BaseURL))
	}
	liveProvider := gemini.New(upstreamKey, liveOpts...)

	var scoringOpts []scoringopenai.Option
	if cfg.Scoring.Model != "" {
		scoringOpts = append(scoringOpts, scoringopenai.WithModel(cfg.Scoring.Model))
	}
	if cfg.Scoring.BaseURL != "" {
		scoringOpts = append(scoringOpts, scoringopenai.WithBaseURL(cfg.Scoring.BaseURL))
	}
	if cfg.Scoring.Timeout > 0 {
		scoringOpts = append(scoringOpts, scoringopenai.WithTimeout(cfg.Scoring.Timeout))
	}
	scorer := scoringopenai.New(scoringKey, scoringOpts...)

	// Question generation falls back to the static bank when the backend
	// fails; with no backend configured the bank serves directly.
	var questionProvider questions.Provider = static.New()
	if cfg.Questions.APIKeyEnv != "" {
		key := os.Getenv(cfg.Questions.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("environment variable %s (questions API key) is empty", cfg.Questions.APIKeyEnv)
		}
		var qOpts []questionsopenai.Option
		if cfg.Questions.Model != "" {
			qOpts = append(qOpts, questionsopenai.WithModel(cfg.Questions.Model))
		}
		if cfg.Questions.BaseURL != "" {
			qOpts = append(qOpts, questionsopenai.WithBaseURL(cfg.Questions.BaseURL))
		}
		questionProvider = questionsopenai.New(key, qOpts...)
	}

	store := session.NewStore(session.StoreConfig{
		IdleAfter: cfg.Server.SessionIdleTimeout,
	})

	orch := session.NewOrchestrator(session.OrchestratorDeps{
		Live:              liveProvider,
		Questions:         questionProvider,
		FallbackQuestions: static.New(),
		Finalizer:         session.NewFinalizer(scorer),
		Store:             store,
	}, session.OrchestratorConfig{
		QuestionCount: cfg.Questions.Count,
		MinAnswer:     cfg.Interview.MinAnswer,
		MinChunks:     cfg.Interview.MinChunks,
		GraceDelay:    cfg.Interview.GraceDelay,
		SafetyTimeout: cfg.Interview.SafetyTimeout,
		Voice:         cfg.Upstream.Voice,
	})

	// Readiness degrades when this instance is saturated with sessions.
	const maxSessions = 256
	sessionsCheck := health.Named("sessions", func(ctx context.Context) error {
		if n := store.Len(); n >= maxSessions {
			return fmt.Errorf("%d active sessions (limit %d)", n, maxSessions)
		}
		return nil
	})

	return server.New(server.Config{ListenAddr: cfg.Server.ListenAddr}, orch, store, sessionsCheck), nil
}

// newLogger builds the process-wide slog logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

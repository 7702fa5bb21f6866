package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	slackapi "github.com/slack-go/slack"
	"golang.org/x/sync/errgroup"

	"github.com/jonny/askuser-bot/internal/adapter/inbound/mcp"
	"github.com/jonny/askuser-bot/internal/adapter/inbound/ops"
	"github.com/jonny/askuser-bot/internal/adapter/inbound/slackbot"
	slackchat "github.com/jonny/askuser-bot/internal/adapter/outbound/chat/slack"
	"github.com/jonny/askuser-bot/internal/adapter/outbound/history"
	"github.com/jonny/askuser-bot/internal/adapter/outbound/persistence/sqlite"
	"github.com/jonny/askuser-bot/internal/config"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
	"github.com/jonny/askuser-bot/internal/domain/service"
	"github.com/jonny/askuser-bot/pkg/health"
	"github.com/jonny/askuser-bot/pkg/metrics"
	"github.com/jonny/askuser-bot/pkg/version"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	printVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Fprintln(os.Stderr, version.String())
		os.Exit(0)
	}

	// stdout carries MCP traffic, so every log line goes to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Logging)

	// --- History ---
	var (
		historyRepo outbound.HistoryRepository = history.NewNoopHistory(logger)
		store       *sqlite.Store
	)
	if cfg.Database.Enabled {
		store, err = sqlite.NewStore(sqlite.Config{
			Path:              cfg.Database.SQLite.Path,
			MaxOpenConns:      cfg.Database.SQLite.MaxOpenConns,
			PragmaJournalMode: cfg.Database.SQLite.PragmaJournalMode,
			PragmaBusyTimeout: cfg.Database.SQLite.PragmaBusyTimeout,
		})
		if err != nil {
			logger.Error("failed to open sqlite store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		historyRepo = sqlite.NewHistoryRepo(store)
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)

	// --- Domain ---
	gate := service.NewGate()
	svc := service.NewService(gate, service.Options{
		History: historyRepo,
		Metrics: recorder,
		Logger:  logger,
	})

	// --- Slack ---
	client := slackapi.New(
		cfg.Slack.BotToken,
		slackapi.OptionAppLevelToken(cfg.Slack.AppToken),
		slackapi.OptionDebug(cfg.Slack.Debug),
	)
	channel := slackchat.NewChannel(client, cfg.Slack.ChannelID)
	bot := slackbot.NewBot(client, slackbot.Config{
		ChannelID:      cfg.Slack.ChannelID,
		ConnectTimeout: cfg.Slack.ConnectionTimeout(),
	}, channel, gate, svc, logger.With("component", "slack"))

	// --- Signal handling & startup ---
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := bot.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("slack socket mode: %w", err)
		}
		return nil
	})

	if err := bot.Connect(gCtx); err != nil {
		logger.Error("failed to connect to slack", "error", err)
		os.Exit(1)
	}

	// --- Ops server (optional) ---
	if cfg.Ops.Enabled {
		checker := health.NewChecker()
		checker.Register("slack", gate.HealthCheck)
		if store != nil {
			checker.Register("database", store.HealthCheck)
		}
		opsServer := ops.NewServer(ops.ServerConfig{
			Addr:              cfg.Ops.Addr,
			Token:             cfg.Ops.Token,
			RequestsPerMinute: cfg.Ops.RequestsPerMinute,
			ReadTimeout:       cfg.Ops.ReadTimeout,
			WriteTimeout:      cfg.Ops.WriteTimeout,
		}, ops.Deps{
			Checker: checker,
			Metrics: recorder.Handler(),
			Status:  svc,
			History: historyRepo,
		}, logger.With("component", "ops"))
		g.Go(func() error {
			return opsServer.Start(gCtx)
		})
	}

	// --- MCP over stdio ---
	mcpServer := mcp.NewServer(svc, logger.With("component", "mcp"))
	g.Go(func() error {
		defer cancel() // stdin closing ends the process
		return mcpServer.Run(gCtx, &mcpsdk.StdioTransport{})
	})

	logger.Info("askuser-bot started", "version", version.String(), "channel", cfg.Slack.ChannelID)

	err = g.Wait()
	bot.Disconnect()
	if err != nil {
		logger.Error("askuser-bot exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("askuser-bot stopped")
}

// buildLogger constructs a stderr slog.Logger based on config.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

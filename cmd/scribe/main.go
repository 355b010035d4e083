package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MikeSquared-Agency/scribe/internal/api"
	"github.com/MikeSquared-Agency/scribe/internal/archive"
	"github.com/MikeSquared-Agency/scribe/internal/browser"
	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/extract"
	"github.com/MikeSquared-Agency/scribe/internal/harvest"
	"github.com/MikeSquared-Agency/scribe/internal/hermes"
	"github.com/MikeSquared-Agency/scribe/internal/risk"
	"github.com/MikeSquared-Agency/scribe/internal/slack"
	"github.com/MikeSquared-Agency/scribe/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	cmd := "harvest"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "harvest":
		err = runHarvest(cfg)
	case "serve":
		err = runServe(cfg)
	case "analyze":
		err = runAnalyze(cfg)
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [harvest|serve|analyze]\n", os.Args[0])
		os.Exit(2)
	}
	if err != nil {
		slog.Error("scribe failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func runHarvest(cfg config.Config) error {
	slog.Info("scribe starting", "url", cfg.ConsoleURL, "days", cfg.Days, "data_dir", cfg.DataDir)

	if err := harvest.CheckCredentials(cfg.AuthFile); err != nil {
		slog.Error("run the manual login flow first to save the login state", "auth_file", cfg.AuthFile)
		return err
	}

	sel, err := config.LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []harvest.Option

	// Postgres mirror (optional)
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		opts = append(opts, harvest.WithMirror(db))
		slog.Info("database connected")
	}

	// NATS/Hermes (optional)
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer hermesClient.Close()
		opts = append(opts, harvest.WithPublisher(hermesClient))
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	// Risk analysis (on by default)
	if cfg.RiskAnalysis {
		opts = append(opts, harvest.WithAnnotator(risk.NewAnalyzer()))
	}

	// Slack (optional)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		opts = append(opts, harvest.WithNotifier(slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())))
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, run summary will only be logged")
	}

	session, err := browser.Open(ctx, browser.Options{
		URL:      cfg.ConsoleURL,
		AuthFile: cfg.AuthFile,
		Bin:      cfg.BrowserBin,
		Headless: cfg.Headless,
	}, sel, slog.Default())
	if err != nil {
		if errors.Is(err, browser.ErrCredentialInvalid) {
			slog.Error("saved login is no longer valid, log in again", "auth_file", cfg.AuthFile)
		}
		return err
	}
	defer session.Close()

	console := browser.NewConsole(session.Page(), sel, browser.DefaultTiming(), slog.Default())
	parser := extract.NewParser(extract.ParserConfig{
		ImageAlt:      sel.ImageAlt,
		ServiceStyles: sel.ServiceStyles,
		SystemPhrases: sel.SystemPhrases,
	})
	collector := extract.NewCollector(parser, extract.DefaultOptions(), slog.Default())
	orch := harvest.NewOrchestrator(console, collector, cfg.RowTimeout, slog.Default())

	runner := harvest.NewRunner(harvest.Config{Days: cfg.Days}, orch, archive.New(cfg.DataDir), slog.Default(), opts...)
	if _, err := runner.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("scribe interrupted")
			return nil
		}
		return err
	}

	slog.Info("scribe finished")
	return nil
}

func runServe(cfg config.Config) error {
	arc := archive.New(cfg.DataDir)
	srv := api.NewServer(cfg.Port, arc, risk.NewReviewer(arc, risk.NewAnalyzer(), slog.Default()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		slog.Info("shutting down")
	}
	return nil
}

// runAnalyze adds risk analyses to archived days written without them.
func runAnalyze(cfg config.Config) error {
	arc := archive.New(cfg.DataDir)
	n, err := risk.NewReviewer(arc, risk.NewAnalyzer(), slog.Default()).AnnotateArchive()
	if err != nil {
		return err
	}
	slog.Info("archive analyzed", "data_dir", arc.Dir(), "days_rewritten", n)
	return nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

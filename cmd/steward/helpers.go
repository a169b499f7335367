package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/catalog-steward/internal/classification"
	"github.com/Veraticus/catalog-steward/internal/cli"
	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/config"
	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/storage"
	"github.com/Veraticus/catalog-steward/internal/surface"
	"github.com/Veraticus/catalog-steward/internal/surface/browser"
)

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, common.NewUserError("Configuration is incomplete", err)
	}
	return cfg, nil
}

// newEngine builds the classification engine from the configured rules file
// and baseline codes.
func newEngine(cfg config.Config) (*classification.Engine, error) {
	rules, err := classification.LoadRules(cfg.Files.RulesFile)
	if err != nil {
		return nil, common.NewUserError("Could not load the rule tables", err)
	}
	engine, err := classification.NewEngine(rules, baselineFrom(cfg.Codes))
	if err != nil {
		return nil, common.NewUserError("The rule tables are invalid", err)
	}
	return engine, nil
}

func baselineFrom(codes config.CodesConfig) classification.Baseline {
	baseline := classification.DefaultBaseline()
	if codes.DefaultLedgerCode != "" {
		baseline.DefaultLedgerCode = codes.DefaultLedgerCode
	}
	if codes.SpecialLedgerCode != "" {
		baseline.SpecialLedgerCode = codes.SpecialLedgerCode
	}
	if codes.DefaultCategory != "" {
		baseline.DefaultCategory = codes.DefaultCategory
	}
	if codes.ExcludedCategory != "" {
		baseline.ExcludedCategory = codes.ExcludedCategory
	}
	return baseline
}

// openStore opens and migrates the run database.
func openStore(ctx context.Context, cfg config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.Open(ctx, cfg.Files.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	slog.Debug("Opened database", "path", store.Path())
	return store, nil
}

func closeStore(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}

// browserSession is a logged-in browser with the product page selected.
type browserSession struct {
	session *browser.Session
	handle  *surface.Handle
}

// startBrowser launches or attaches to Chrome, opens the login page and waits
// for the operator to log in. The caller closes the session.
func startBrowser(ctx context.Context, cfg config.Config, prompter *cli.Prompter) (*browserSession, error) {
	session, err := browser.Start(ctx, browser.Options{
		Browser: cfg.Browser,
		Product: cfg.Product,
		Timing:  cfg.Timing,
	})
	if err != nil {
		return nil, common.NewUserError("Could not start the browser", err)
	}

	if _, err := session.OpenLogin(ctx); err != nil {
		closeSession(session)
		return nil, fmt.Errorf("failed to open login page: %w", err)
	}
	if err := prompter.WaitForLogin(ctx); err != nil {
		closeSession(session)
		return nil, err
	}

	page, err := session.Acquire(ctx)
	if err != nil {
		closeSession(session)
		return nil, fmt.Errorf("failed to find the product page: %w", err)
	}
	slog.Info("Logged in, product page selected")

	return &browserSession{
		session: session,
		handle:  surface.NewHandle(page, session),
	}, nil
}

func closeSession(session *browser.Session) {
	if err := session.Close(); err != nil {
		slog.Warn("Failed to close browser", "error", err)
	}
}

// finishRun stores the run's final state. It uses a fresh context so an
// interrupted run still gets its summary row.
func finishRun(store *storage.SQLiteStorage, run *model.Run) {
	if err := store.FinishRun(context.Background(), run); err != nil {
		slog.Error("Failed to record run summary", "run_id", run.ID, "error", err)
	}
}

// waitToClose keeps a headed browser open until the operator is done looking.
func waitToClose(cfg config.Config, prompter *cli.Prompter) {
	if cfg.Browser.Headless {
		return
	}
	if err := prompter.WaitForEnter(context.Background(), "Press ENTER to close the browser... "); err != nil {
		slog.Debug("Close prompt ended", "error", err)
	}
}

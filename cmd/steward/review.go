package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/catalog-steward/internal/audit"
	"github.com/Veraticus/catalog-steward/internal/cli"
	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/review"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review and approve pending items",
		Long: `Open the inventory product, filter the item library to pending items and
work through them one by one. Items that classify cleanly are approved;
anything the product refuses is flagged for a person.

You log in by hand in the browser window; steward waits until you press ENTER.

Examples:
  steward review               # Review every pending item, up to the configured limit
  steward review --dry-run     # Classify and record what would happen without changing anything
  steward review --pause -n 5  # Step through five items, pausing after each`,
		RunE: runReview,
	}

	cmd.Flags().Bool("dry-run", false, "Read and classify items without modifying them")
	cmd.Flags().Bool("pause", false, "Wait for ENTER after every item")
	cmd.Flags().IntP("limit", "n", 0, "Stop after this many items (0 = limits.max_items_per_run)")

	_ = viper.BindPFlag("review.dry_run", cmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("review.pause", cmd.Flags().Lookup("pause"))
	_ = viper.BindPFlag("review.limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runReview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	dryRun := viper.GetBool("review.dry_run")
	pause := viper.GetBool("review.pause")
	limit := viper.GetInt("review.limit")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	csvSink, err := audit.NewCSVSink(cfg.Files.AuditLog, cfg.Files.FlaggedLog)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer func() {
		if closeErr := csvSink.Close(); closeErr != nil {
			slog.Error("Failed to close audit log", "error", closeErr)
		}
	}()

	out := cmd.OutOrStdout()
	prompter := cli.NewPrompter(cmd.InOrStdin(), out)

	bs, err := startBrowser(ctx, cfg, prompter)
	if err != nil {
		return err
	}
	defer closeSession(bs.session)
	defer waitToClose(cfg, prompter)

	if dryRun {
		fmt.Fprintln(out, cli.FormatInfo("Dry run: items are read and classified, nothing is changed"))
	} else if err := prompter.ConfirmLive(ctx); err != nil {
		return err
	}

	run := &model.Run{Mode: model.RunModeReview, StartedAt: time.Now(), DryRun: dryRun}
	if err := store.StartRun(ctx, run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	slog.Info("Starting review", "run_id", run.ID, "dry_run", dryRun, "limit", limit)

	opts := review.OptionsFromConfig(cfg)
	opts.RunID = run.ID
	opts.DryRun = dryRun
	opts.PauseEach = pause
	opts.Limit = limit

	var pauser review.Pauser
	if pause {
		pauser = prompter
	}
	reporter := cli.NewReporter(out, limit, "Reviewing items")
	sink := audit.MultiSink{csvSink, audit.Detached(store)}

	summary, runErr := review.New(bs.handle, engine, sink, opts, reporter, pauser).Run(ctx)
	reporter.Finish()

	run.StopReason = summary.StopReason
	run.Counters = summary.Counters
	if !summary.FinishedAt.IsZero() {
		finished := summary.FinishedAt
		run.FinishedAt = &finished
	}
	finishRun(store, run)

	fmt.Fprintln(out, cli.FormatReviewSummary(summary, dryRun))
	fmt.Fprintln(out, cli.FormatField("Audit log", cfg.Files.AuditLog))
	fmt.Fprintln(out, cli.FormatField("Flagged", cfg.Files.FlaggedLog))

	if runErr != nil {
		if review.IsBreakerTripped(runErr) {
			fmt.Fprintln(out, cli.RenderAlert("Run stopped early",
				"The product kept misbehaving. Check the screenshots and the audit log,\nthen run again to continue."))
		}
		return runErr
	}
	return nil
}

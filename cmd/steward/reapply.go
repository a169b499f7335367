package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/catalog-steward/internal/audit"
	"github.com/Veraticus/catalog-steward/internal/cli"
	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/reapply"
)

func reapplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reapply",
		Short: "Apply current rules to items that were already approved",
		Long: `Read previously approved items, classify them again with the current rule
tables and correct the category and ledger code of every item that changed.

Sources:
  history   the audit log written by review runs (default)
  database  approved and updated records in the run database
  export    a CSV export of the item library (--file)

Examples:
  steward reapply --dry-run                          # Preview the corrections
  steward reapply --source export --file items.csv   # Correct items from an export
  steward reapply -n 10 --pause                      # Correct ten items, pausing after each`,
		RunE: runReapply,
	}

	cmd.Flags().String("source", "history", "Where to read approved items from (history, database, export)")
	cmd.Flags().String("file", "", "CSV file for the history or export source")
	cmd.Flags().Bool("dry-run", false, "Preview the corrections without opening the browser")
	cmd.Flags().Bool("pause", false, "Wait for ENTER after every correction")
	cmd.Flags().IntP("limit", "n", 0, "Stop after this many corrections (0 = all)")
	cmd.Flags().Int("sample", 5, "Items shown per category in the preview")
	cmd.Flags().BoolP("yes", "y", false, "Do not ask before applying corrections")

	_ = viper.BindPFlag("reapply.source", cmd.Flags().Lookup("source"))
	_ = viper.BindPFlag("reapply.file", cmd.Flags().Lookup("file"))
	_ = viper.BindPFlag("reapply.dry_run", cmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("reapply.pause", cmd.Flags().Lookup("pause"))
	_ = viper.BindPFlag("reapply.limit", cmd.Flags().Lookup("limit"))
	_ = viper.BindPFlag("reapply.sample", cmd.Flags().Lookup("sample"))
	_ = viper.BindPFlag("reapply.yes", cmd.Flags().Lookup("yes"))

	return cmd
}

func runReapply(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	dryRun := viper.GetBool("reapply.dry_run")
	pause := viper.GetBool("reapply.pause")
	limit := viper.GetInt("reapply.limit")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	kind, err := reapply.ParseSourceKind(viper.GetString("reapply.source"))
	if err != nil {
		return common.NewUserError("Invalid reapply source", err)
	}
	path := viper.GetString("reapply.file")
	if path == "" && kind == reapply.SourceHistory {
		path = cfg.Files.AuditLog
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	source, err := reapply.NewSource(kind, path, store)
	if err != nil {
		return common.NewUserError("Invalid reapply source", err)
	}
	items, err := source.Items(ctx)
	if err != nil {
		return fmt.Errorf("failed to read %s source: %w", kind, err)
	}

	corrections := reapply.NewPlanner(engine).Plan(items)
	slog.Info("Planned corrections", "source", kind, "items", len(items), "corrections", len(corrections))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatPreview(reapply.Preview(corrections, viper.GetInt("reapply.sample"))))
	if dryRun || len(corrections) == 0 {
		return nil
	}

	prompter := cli.NewPrompter(cmd.InOrStdin(), out)
	if !viper.GetBool("reapply.yes") {
		n := len(corrections)
		if limit > 0 && limit < n {
			n = limit
		}
		ok, err := prompter.Confirm(ctx, fmt.Sprintf("Apply %d corrections?", n))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, cli.FormatInfo("Nothing changed"))
			return nil
		}
	}

	csvSink, err := audit.NewCSVSink(cfg.Files.ReapplyLog, cfg.Files.ReapplyErrors)
	if err != nil {
		return fmt.Errorf("failed to open reapply log: %w", err)
	}
	defer func() {
		if closeErr := csvSink.Close(); closeErr != nil {
			slog.Error("Failed to close reapply log", "error", closeErr)
		}
	}()

	bs, err := startBrowser(ctx, cfg, prompter)
	if err != nil {
		return err
	}
	defer closeSession(bs.session)
	defer waitToClose(cfg, prompter)

	run := &model.Run{Mode: model.RunModeReapply, StartedAt: time.Now()}
	if err := store.StartRun(ctx, run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	var stepper reapply.Prompter
	if pause {
		stepper = prompter
	}
	total := len(corrections)
	if limit > 0 && limit < total {
		total = limit
	}
	reporter := cli.NewReporter(out, total, "Reapplying rules")
	runner := reapply.NewRunner(bs.handle, audit.MultiSink{csvSink, audit.Detached(store)}, reapply.Options{
		RunID:     run.ID,
		Timing:    cfg.Timing,
		Limits:    cfg.Limits,
		Limit:     limit,
		PauseEach: pause,
	}, reporter, stepper)

	summary, runErr := runner.Run(ctx, corrections)
	reporter.Finish()

	run.StopReason = summary.StopReason
	run.Counters = summary.Counters.RunCounters()
	if !summary.FinishedAt.IsZero() {
		finished := summary.FinishedAt
		run.FinishedAt = &finished
	}
	finishRun(store, run)

	fmt.Fprintln(out, cli.FormatReapplySummary(summary))
	fmt.Fprintln(out, cli.FormatField("Log", cfg.Files.ReapplyLog))
	fmt.Fprintln(out, cli.FormatField("Errors", cfg.Files.ReapplyErrors))
	return runErr
}

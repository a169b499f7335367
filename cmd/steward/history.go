package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/catalog-steward/internal/cli"
	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/model"
)

// runSearchDepth bounds how many recent runs a --run prefix is matched against.
const runSearchDepth = 200

func historyCmd() *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Long: `List recent review and reapply runs from the run database, or the audit
records of a single run with --run.

Examples:
  steward history              # The ten most recent runs
  steward history --run 3f2a9c # Every record of one run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			out := cmd.OutOrStdout()
			if runID == "" {
				runs, err := store.RecentRuns(ctx, limit)
				if err != nil {
					return fmt.Errorf("failed to list runs: %w", err)
				}
				fmt.Fprintln(out, cli.FormatRuns(runs))
				return nil
			}

			runs, err := store.RecentRuns(ctx, runSearchDepth)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			id, err := resolveRunID(runID, runs)
			if err != nil {
				return err
			}
			records, err := store.RunRecords(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to read run %s: %w", id, err)
			}
			fmt.Fprintln(out, formatRecords(id, records))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the records of one run (id or unique prefix)")

	return cmd
}

// resolveRunID expands an id prefix to the one recent run it names. An
// unknown prefix is passed through so a full id of an older run still works.
func resolveRunID(prefix string, runs []model.Run) (string, error) {
	var matches []string
	for _, run := range runs {
		if strings.HasPrefix(run.ID, prefix) {
			matches = append(matches, run.ID)
		}
	}
	switch len(matches) {
	case 0:
		return prefix, nil
	case 1:
		return matches[0], nil
	default:
		return "", common.NewUserError(fmt.Sprintf("Run prefix %q matches %d runs", prefix, len(matches)), common.ErrInvalidConfig)
	}
}

func formatRecords(runID string, records []model.AuditRecord) string {
	if len(records) == 0 {
		return cli.FormatInfo("No records for run " + runID)
	}

	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s %s", r.Timestamp.Local().Format("15:04:05"), cli.FormatStatus(r.Status), r.Item)
		if r.Category != "" {
			b.WriteString(cli.SubtleStyle.Render(" -> " + r.Category + " / " + r.LedgerCode))
		}
		if r.Notes != "" {
			b.WriteString("\n  " + cli.SubtleStyle.Render(r.Notes))
		}
	}
	return cli.RenderBox("Run "+runID, b.String())
}

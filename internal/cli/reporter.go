package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/reapply"
	"github.com/Veraticus/catalog-steward/internal/review"
)

// Reporter shows run progress on the console. It implements review.Observer
// and reapply.Observer.
type Reporter struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
	mu     sync.Mutex
}

// NewReporter creates a reporter. A total of zero or less shows a spinner
// instead of a bar.
func NewReporter(writer io.Writer, total int, description string) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	if total <= 0 {
		total = -1
	}
	r := &Reporter{writer: writer}
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return r
}

// ItemProcessed prints items that need a person and advances the bar.
func (r *Reporter) ItemProcessed(outcome model.Outcome, counters model.Counters) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch outcome.Kind {
	case model.OutcomeFlagged:
		r.printLine(FormatStatus(model.StatusFlagged), outcome.Description, outcome.Notes)
	case model.OutcomeStuck:
		r.printLine(FormatStatus(model.StatusStuck), outcome.Description, outcome.Notes)
	case model.OutcomeBatchComplete:
		r.printLine(FormatInfo("Batch complete"), "", "")
	}

	r.bar.Describe(fmt.Sprintf("[green]%d approved[reset] [yellow]%d flagged[reset] %d skipped",
		counters.Approved, counters.Flagged, counters.Skipped))
	if outcome.CountsAsProcessed() {
		r.add()
	}
}

// CorrectionApplied prints failed corrections and advances the bar.
func (r *Reporter) CorrectionApplied(c reapply.Correction, status model.RecordStatus, counters reapply.Counters) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if status.IsException() {
		r.printLine(FormatStatus(status), c.Item.Description, "")
	}
	r.bar.Describe(fmt.Sprintf("[green]%d updated[reset] %d unchanged [red]%d failed[reset]",
		counters.Updated, counters.Unchanged, counters.NotFound+counters.Errors))
	r.add()
}

// Finish completes the bar.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}

func (r *Reporter) printLine(label, description, notes string) {
	if err := r.bar.Clear(); err != nil {
		slog.Warn("Failed to clear progress bar", "error", err)
	}
	line := label
	if description != "" {
		line += " " + description
	}
	if notes != "" {
		line += SubtleStyle.Render(" (" + notes + ")")
	}
	if _, err := fmt.Fprintln(r.writer, line); err != nil {
		slog.Warn("Failed to write progress line", "error", err)
	}
}

func (r *Reporter) add() {
	if err := r.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// FormatReviewSummary renders the end-of-run box for a review run.
func FormatReviewSummary(s review.Summary, dryRun bool) string {
	c := s.Counters
	var b strings.Builder
	fmt.Fprintf(&b, "%s Statistics:\n", ChartIcon)
	b.WriteString(FormatField("Processed", humanize.Comma(int64(c.Processed))) + "\n")
	if dryRun {
		b.WriteString(FormatField("Previewed", humanize.Comma(int64(c.DryRun))) + "\n")
	} else {
		b.WriteString(FormatField("Approved", humanize.Comma(int64(c.Approved))+percent(c.Approved, c.Processed)) + "\n")
	}
	b.WriteString(FormatField("Flagged", humanize.Comma(int64(c.Flagged))) + "\n")
	b.WriteString(FormatField("Skipped", humanize.Comma(int64(c.Skipped))) + "\n")
	if c.Stuck > 0 {
		b.WriteString(FormatField("Stuck", humanize.Comma(int64(c.Stuck))) + "\n")
	}
	b.WriteString(FormatField("Time taken", s.Duration().Round(time.Second).String()) + "\n")
	b.WriteString(FormatField("Stopped", s.StopReason))

	title := "Review Complete"
	if dryRun {
		title = "Dry Run Complete"
	}
	return RenderBox(title, b.String())
}

// FormatReapplySummary renders the end-of-run box for a reapply run.
func FormatReapplySummary(s reapply.Summary) string {
	c := s.Counters
	var b strings.Builder
	fmt.Fprintf(&b, "%s Statistics:\n", ChartIcon)
	b.WriteString(FormatField("Planned", humanize.Comma(int64(s.Planned))) + "\n")
	b.WriteString(FormatField("Attempted", humanize.Comma(int64(c.Processed))) + "\n")
	b.WriteString(FormatField("Updated", humanize.Comma(int64(c.Updated))+percent(c.Updated, c.Processed)) + "\n")
	b.WriteString(FormatField("Unchanged", humanize.Comma(int64(c.Unchanged))) + "\n")
	b.WriteString(FormatField("Not found", humanize.Comma(int64(c.NotFound))) + "\n")
	b.WriteString(FormatField("Errors", humanize.Comma(int64(c.Errors))) + "\n")
	b.WriteString(FormatField("Time taken", s.Duration().Round(time.Second).String()) + "\n")
	b.WriteString(FormatField("Stopped", s.StopReason))
	return RenderBox("Reapply Complete", b.String())
}

// FormatPreview renders the planned corrections grouped by target category.
func FormatPreview(groups []reapply.PreviewGroup) string {
	if len(groups) == 0 {
		return FormatSuccess("Every approved item already matches the current rules")
	}

	var b strings.Builder
	total := 0
	for _, g := range groups {
		total += g.Total
		fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render(g.Category), SubtleStyle.Render("("+humanize.Comma(int64(g.Total))+")"))
		for _, c := range g.Sample {
			line := "  " + c.Item.Description
			if c.CategoryChanged() {
				line += SubtleStyle.Render(" from " + displayValue(c.Item.Category))
			}
			if c.LedgerChanged() {
				line += SubtleStyle.Render(" ledger " + displayValue(c.Item.LedgerCode) + " -> " + displayValue(c.TargetLedgerCode))
			}
			b.WriteString(line + "\n")
		}
		if more := g.Total - len(g.Sample); more > 0 {
			fmt.Fprintf(&b, "  %s\n", SubtleStyle.Render(fmt.Sprintf("... and %s more", humanize.Comma(int64(more)))))
		}
	}
	fmt.Fprintf(&b, "\n%s corrections planned", humanize.Comma(int64(total)))
	return RenderBox("Planned Corrections", b.String())
}

// FormatRuns renders recent runs, newest first as given.
func FormatRuns(runs []model.Run) string {
	if len(runs) == 0 {
		return FormatInfo("No runs recorded yet")
	}

	var b strings.Builder
	for i, run := range runs {
		if i > 0 {
			b.WriteString("\n")
		}
		mode := string(run.Mode)
		if run.DryRun {
			mode += " (dry run)"
		}
		fmt.Fprintf(&b, "%s %s %s\n", BoldStyle.Render(mode), SubtleStyle.Render(shortID(run.ID)), humanize.Time(run.StartedAt))
		c := run.Counters
		fmt.Fprintf(&b, "  %d processed, %d approved, %d flagged, %d skipped, %d stuck\n",
			c.Processed, c.Approved, c.Flagged, c.Skipped, c.Stuck)
		switch {
		case run.FinishedAt == nil:
			b.WriteString("  " + WarningStyle.Render("did not finish"))
		default:
			b.WriteString("  " + SubtleStyle.Render(run.StopReason))
		}
	}
	return RenderBox("Recent Runs", b.String())
}

func percent(part, total int) string {
	if total == 0 {
		return ""
	}
	return fmt.Sprintf(" (%.1f%%)", float64(part)/float64(total)*100)
}

func displayValue(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

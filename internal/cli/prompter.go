package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/catalog-steward/internal/model"
)

// Prompter asks the operator for the few decisions a run needs: finishing
// the login, starting a live run and stepping through items.
type Prompter struct {
	writer io.Writer
	reader *NonBlockingReader
}

// NewPrompter creates a prompter. Nil arguments fall back to stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		writer: writer,
		reader: NewNonBlockingReader(reader),
	}
}

// WaitForEnter prints prompt and blocks until the operator presses ENTER.
func (p *Prompter) WaitForEnter(ctx context.Context, prompt string) error {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
		return fmt.Errorf("failed to write prompt: %w", err)
	}
	if _, err := p.reader.ReadLine(ctx); err != nil {
		if errors.Is(err, ErrInputCancelled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to read operator input: %w", err)
	}
	return nil
}

// WaitForLogin shows the manual login steps and waits for the operator.
func (p *Prompter) WaitForLogin(ctx context.Context) error {
	steps := strings.Join([]string{
		"1. Complete the browser challenge",
		"2. Enter your email and password",
		"3. Complete MFA if prompted",
		"4. Wait until the dashboard loads",
	}, "\n")
	if _, err := fmt.Fprintln(p.writer, RenderAlert("Log in manually now", steps)); err != nil {
		return fmt.Errorf("failed to write login instructions: %w", err)
	}
	return p.WaitForEnter(ctx, "Press ENTER when you are logged in and see the dashboard... ")
}

// ConfirmLive warns that the run will modify items and waits for ENTER.
func (p *Prompter) ConfirmLive(ctx context.Context) error {
	msg := "This will modify items in the inventory product.\nPress ENTER to start, or Ctrl+C to abort."
	if _, err := fmt.Fprintln(p.writer, RenderAlert("Ready to start live processing", msg)); err != nil {
		return fmt.Errorf("failed to write confirmation: %w", err)
	}
	return p.WaitForEnter(ctx, "Press ENTER to begin processing... ")
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(question+" [y/N] ")); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}
	answer, err := p.reader.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, ErrInputCancelled) && ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("failed to read operator input: %w", err)
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Pause implements review.Pauser. It shows what happened to the last item
// and waits before the next one.
func (p *Prompter) Pause(ctx context.Context, outcome model.Outcome) error {
	line := fmt.Sprintf("%s %s", BoldStyle.Render(string(outcome.Kind)), outcome.Description)
	if outcome.Notes != "" {
		line += SubtleStyle.Render(" (" + outcome.Notes + ")")
	}
	if _, err := fmt.Fprintln(p.writer, line); err != nil {
		return fmt.Errorf("failed to write outcome: %w", err)
	}
	return p.WaitForEnter(ctx, "Press ENTER for next item (Ctrl+C to stop)... ")
}

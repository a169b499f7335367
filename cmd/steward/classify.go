package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/catalog-steward/internal/classification"
	"github.com/Veraticus/catalog-steward/internal/cli"
)

func classifyCmd() *cobra.Command {
	var vendor string

	cmd := &cobra.Command{
		Use:   "classify DESCRIPTION...",
		Short: "Show how the rules classify an item",
		Long: `Run item descriptions through the classification engine and print the
category, ledger code, product name and unit class a review would assign.
Nothing is opened or changed.

Examples:
  steward classify "SAKE JUNMAI 720ML" --vendor "Empire Distributors"
  steward classify "MADAI WHOLE FISH" "PAPER TOWEL ROLL"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, err := newEngine(cfg)
			if err != nil {
				return err
			}

			for _, description := range args {
				fmt.Fprintln(cmd.OutOrStdout(), formatClassification(description, vendor, engine.Classify(description, vendor)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vendor, "vendor", "", "Vendor name shown on the item")

	return cmd
}

func formatClassification(description, vendor string, result classification.Result) string {
	lines := []string{
		cli.FormatField("Category", result.Category),
		cli.FormatField("Ledger code", result.TargetLedgerCode()),
		cli.FormatField("Product", result.ProductName),
		cli.FormatField("Unit class", string(result.UnitClass)),
	}
	if vendor != "" {
		lines = append([]string{cli.FormatField("Vendor", vendor)}, lines...)
	}
	if notes := result.Notes(); notes != "" {
		lines = append(lines, cli.FormatField("Why", notes))
	} else {
		lines = append(lines, cli.FormatField("Why", cli.SubtleStyle.Render("baseline")))
	}
	return cli.RenderBox(description, strings.Join(lines, "\n"))
}

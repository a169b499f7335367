package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/catalog-steward/internal/classification"
	"github.com/Veraticus/catalog-steward/internal/common"
)

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the effective rule tables",
		Long: `Print the rule tables the engine would use, as YAML: the built-in rules
with the --rules file (or files.rules) merged over them. The output is a
valid rules file and can be edited and passed back with --rules.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			rules, err := classification.LoadRules(cfg.Files.RulesFile)
			if err != nil {
				return common.NewUserError("Could not load the rule tables", err)
			}
			out, err := classification.MarshalRules(rules)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}

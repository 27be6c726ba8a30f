// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGuard/services/guard/rules"
)

var rulesCategory string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the registered rules",
	Long: `Rules prints the rule catalogue as a table: id, category, severity
and summary. Rule ids are what GUARD_DISABLED_RULES accepts.`,
	Run: runRulesCommand,
}

func init() {
	rulesCmd.Flags().StringVar(&rulesCategory, "category", "",
		"Only show rules in this category")
}

func runRulesCommand(cmd *cobra.Command, args []string) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"ID", "Category", "Severity", "Summary"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
	})

	shown := 0
	for _, r := range rules.All() {
		if rulesCategory != "" && string(r.Category) != rulesCategory {
			continue
		}
		table.Append([]string{r.ID, string(r.Category), string(r.Severity), r.Summary})
		shown++
	}

	table.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d rule(s)\n", shown)
}

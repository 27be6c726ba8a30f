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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGuard/services/guard"
	"github.com/AleutianAI/AleutianGuard/services/guard/rules"
	"github.com/AleutianAI/AleutianGuard/services/guard/verdict"
)

// Severity styles for terminal output. Rendering degrades to plain text
// when stdout is not a TTY.
var (
	styleCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
	styleHigh     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")).Bold(true)
	styleMedium   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C"))
	styleLow      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD"))
	styleRuleID   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7"))
	styleDim      = lipgloss.NewStyle().Faint(true)
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan [file...]",
	Short: "Scan Python files and print findings",
	Long: `Scan analyzes each file with the full rule set and prints findings
to stdout. Exit status is 1 when any file produces a blocking verdict,
0 otherwise, so the command slots into CI pipelines.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runScanCommand,
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false,
		"Emit one JSON outcome object per file instead of text")
}

func runScanCommand(cmd *cobra.Command, args []string) {
	logger := newLogger(false)
	defer logger.Close()

	engine := guard.NewEngine(guard.ConfigFromEnv(), logger)
	colorize := isatty.IsTerminal(os.Stdout.Fd()) && !scanJSON

	blocked := false
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, path := range args {
		out := engine.AnalyzeFile(cmd.Context(), path)
		if out.Decision == verdict.DecisionBlock {
			blocked = true
		}

		if scanJSON {
			if err := enc.Encode(out); err != nil {
				logger.Error("failed to encode outcome", "file", path, "error", err.Error())
			}
			continue
		}
		printOutcome(cmd, out, colorize)
	}

	if blocked {
		os.Exit(1)
	}
}

func printOutcome(cmd *cobra.Command, out guard.Outcome, colorize bool) {
	w := cmd.OutOrStdout()

	if out.Skipped {
		line := fmt.Sprintf("%s: skipped (%s)", out.Path, out.SkipReason)
		if colorize {
			line = styleDim.Render(line)
		}
		fmt.Fprintln(w, line)
		return
	}
	if out.Decision == verdict.DecisionSilent {
		fmt.Fprintf(w, "%s: clean\n", out.Path)
		return
	}

	fmt.Fprintf(w, "%s: %d finding(s)\n", out.Path, len(out.Summary.Findings))
	for _, f := range out.Summary.Findings {
		sev := string(f.Severity)
		id := f.RuleID
		if colorize {
			sev = severityStyle(f.Severity).Render(sev)
			id = styleRuleID.Render(id)
		}
		fmt.Fprintf(w, "  %s:%d:%d %s %s %s\n", out.Path, f.Line, f.Col, sev, id, f.Message)
		if f.Snippet != "" {
			snippet := "    | " + strings.TrimSpace(f.Snippet)
			if colorize {
				snippet = styleDim.Render(snippet)
			}
			fmt.Fprintln(w, snippet)
		}
	}
}

func severityStyle(sev rules.Severity) lipgloss.Style {
	switch sev {
	case rules.SeverityCritical:
		return styleCritical
	case rules.SeverityHigh:
		return styleHigh
	case rules.SeverityMedium:
		return styleMedium
	default:
		return styleLow
	}
}

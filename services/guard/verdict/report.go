// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package verdict

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianGuard/services/guard/rules"
)

// FeedbackText renders the Warn payload: findings grouped by severity,
// each naming the rule id, line, cause and remediation, with a summary
// count line. maxIssues caps how many findings are rendered; findings
// beyond the cap are summarized, never silently dropped.
//
// Returns "" for a Silent summary.
func FeedbackText(path string, s Summary, maxIssues int) string {
	if s.Decision == DecisionSilent || len(s.Findings) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Guard found %d issue(s) in %s (%s):\n", len(s.Findings), path, countLine(s.Counts))

	rendered := 0
	for _, sev := range rules.Severities() {
		if s.Counts[sev] == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", sev)
		for _, f := range s.Findings {
			if f.Severity != sev {
				continue
			}
			if maxIssues > 0 && rendered >= maxIssues {
				break
			}
			fmt.Fprintf(&b, "  [%s] line %d: %s\n", f.RuleID, f.Line, f.Message)
			if f.Suggestion != "" {
				fmt.Fprintf(&b, "      fix: %s\n", f.Suggestion)
			}
			rendered++
		}
		if maxIssues > 0 && rendered >= maxIssues {
			break
		}
	}

	if remaining := len(s.Findings) - rendered; remaining > 0 {
		fmt.Fprintf(&b, "\n(%d more issue(s) not shown)\n", remaining)
	}

	return b.String()
}

// BlockReason renders the Block payload from the CRITICAL findings only.
// Lower severities never contribute to a blocking reason.
//
// Returns "" when the summary contains no CRITICAL finding.
func BlockReason(path string, s Summary) string {
	var parts []string
	for _, f := range s.Findings {
		if f.Severity != rules.SeverityCritical {
			continue
		}
		part := fmt.Sprintf("[%s] line %d: %s", f.RuleID, f.Line, f.Message)
		if f.Suggestion != "" {
			part += fmt.Sprintf(" (fix: %s)", f.Suggestion)
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("Blocked: %d critical issue(s) in %s. %s",
		len(parts), path, strings.Join(parts, "; "))
}

// countLine formats per-severity counts as "1 critical, 2 high".
func countLine(counts map[rules.Severity]int) string {
	var parts []string
	for _, sev := range rules.Severities() {
		if counts[sev] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[sev], strings.ToLower(string(sev))))
		}
	}
	return strings.Join(parts, ", ")
}

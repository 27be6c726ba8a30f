// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package verdict turns raw findings into the engine's final decision:
// configuration filtering, per-severity counts, the Silent/Warn/Block
// policy, and the rendered payload text.
package verdict

import (
	"sort"

	"github.com/AleutianAI/AleutianGuard/services/guard/rules"
)

// Decision is the engine's output classification for one invocation.
type Decision string

const (
	// DecisionSilent means nothing actionable was found.
	DecisionSilent Decision = "silent"

	// DecisionWarn carries a non-blocking contextual message.
	DecisionWarn Decision = "warn"

	// DecisionBlock halts the caller with a reason string.
	DecisionBlock Decision = "block"
)

// Options are the policy-relevant slice of the engine configuration.
type Options struct {
	// EnabledSeverities is the set of severities kept after filtering.
	EnabledSeverities map[rules.Severity]bool

	// DisabledRules drops findings by rule id.
	DisabledRules map[string]bool

	// BlockOnCritical enables the Block decision for CRITICAL findings.
	BlockOnCritical bool
}

// Summary is the computed verdict for one invocation. Immutable once
// returned by Evaluate; consumed only by the reporter.
type Summary struct {
	// Decision is Silent, Warn or Block.
	Decision Decision `json:"decision"`

	// Findings is the filtered set, ordered by line, column, rule id.
	Findings []rules.Finding `json:"findings"`

	// Counts holds per-severity totals of the filtered set.
	Counts map[rules.Severity]int `json:"counts"`
}

// Evaluate filters findings against the options, computes counts, and
// applies the decision policy:
//
//	empty filtered set                      -> Silent
//	any CRITICAL and BlockOnCritical set    -> Block
//	otherwise                               -> Warn
//
// The rendered-issue cap is deliberately not an input here: truncation is
// a reporter concern and must never turn a Block into a Warn.
func Evaluate(findings []rules.Finding, opts Options) Summary {
	filtered := make([]rules.Finding, 0, len(findings))
	counts := make(map[rules.Severity]int)

	for _, f := range findings {
		if opts.DisabledRules[f.RuleID] {
			continue
		}
		if len(opts.EnabledSeverities) > 0 && !opts.EnabledSeverities[f.Severity] {
			continue
		}
		filtered = append(filtered, f)
		counts[f.Severity]++
	}

	// Deterministic order: two runs over identical input and configuration
	// must produce an identical finding list.
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.RuleID < b.RuleID
	})

	decision := DecisionSilent
	switch {
	case len(filtered) == 0:
		decision = DecisionSilent
	case counts[rules.SeverityCritical] > 0 && opts.BlockOnCritical:
		decision = DecisionBlock
	default:
		decision = DecisionWarn
	}

	return Summary{
		Decision: decision,
		Findings: filtered,
		Counts:   counts,
	}
}

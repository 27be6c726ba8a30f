// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules defines the antipattern detection catalogue for Aleutian
// Guard: severity and category taxonomy, the Finding value produced by a
// detection, the traversal context handed to every check, and the static
// registry of all rules.
//
// Rules are pure functions of (node, context). They hold no state between
// invocations and never mutate the tree or the context they are given.
//
// Thread Safety: the registry is built once and is read-only afterwards.
// All types in this package are safe for concurrent use by independent
// scans.
package rules

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity is the ordinal classification of a finding.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Rank returns a numeric rank for ordering. CRITICAL ranks highest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Severities lists all severities from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
}

// =============================================================================
// CATEGORY
// =============================================================================

// Category groups rules by the kind of hazard they detect.
type Category string

const (
	CategoryRuntime      Category = "runtime"
	CategoryPerformance  Category = "performance"
	CategoryComplexity   Category = "complexity"
	CategorySecurity     Category = "security"
	CategoryOrganization Category = "organization"
	CategoryResource     Category = "resource"
	CategoryGotcha       Category = "gotcha"
)

// =============================================================================
// FINDING
// =============================================================================

// Finding is one concrete occurrence of a rule predicate being satisfied
// at a specific source location. Immutable once created.
type Finding struct {
	// RuleID is the stable identifier of the rule that produced this finding.
	RuleID string `json:"rule_id"`

	// Severity is copied from the rule at creation time.
	Severity Severity `json:"severity"`

	// Category is copied from the rule at creation time.
	Category Category `json:"category"`

	// Line is the 1-indexed source line.
	Line int `json:"line"`

	// Col is the 0-indexed column, matching tree-sitter points.
	Col int `json:"col"`

	// Message is a one-line cause description.
	Message string `json:"message"`

	// Suggestion is a concrete remediation hint.
	Suggestion string `json:"suggestion,omitempty"`

	// Snippet is the offending source line, if it was extracted.
	Snippet string `json:"snippet,omitempty"`
}

// =============================================================================
// RULE
// =============================================================================

// CheckFunc inspects a node in its traversal context and returns a Finding,
// or nil when the pattern is not present.
type CheckFunc func(n *sitter.Node, ctx *Context) *Finding

// ExitFunc inspects a completed scope frame when it pops off the context
// stack and returns a Finding, or nil.
type ExitFunc func(f *Frame, ctx *Context) *Finding

// Rule is a single registered detector.
//
// A rule is either node-triggered (NodeKinds + Check) or scope-triggered
// (ExitKinds + OnExit), never both. Node-triggered rules run when the
// traversal enters a node whose kind is in NodeKinds, before the node's own
// frame (if any) is pushed, so the context reflects strictly enclosing
// constructs. Scope-triggered rules run when a frame of a matching kind pops,
// with the frame's accumulated counters available.
type Rule struct {
	// ID is the unique, stable rule identifier (kebab-case).
	ID string

	// Category classifies the hazard.
	Category Category

	// Severity is the severity assigned to findings of this rule.
	Severity Severity

	// Summary is a short human-readable description for catalogue listings.
	Summary string

	// NodeKinds are the tree-sitter node types this rule is interested in.
	NodeKinds []string

	// Check is the node-triggered predicate. Nil for scope-triggered rules.
	Check CheckFunc

	// ExitKinds are the frame kinds this rule inspects on scope exit.
	ExitKinds []FrameKind

	// OnExit is the scope-triggered predicate. Nil for node-triggered rules.
	OnExit ExitFunc
}

// finding builds a Finding for this rule at the given node.
func (r *Rule) finding(n *sitter.Node, ctx *Context, msg, suggestion string) *Finding {
	return &Finding{
		RuleID:     r.ID,
		Severity:   r.Severity,
		Category:   r.Category,
		Line:       int(n.StartPoint().Row) + 1,
		Col:        int(n.StartPoint().Column),
		Message:    msg,
		Suggestion: suggestion,
		Snippet:    ctx.LineText(int(n.StartPoint().Row)),
	}
}

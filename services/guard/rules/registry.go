// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"fmt"
	"sort"
	"sync"
)

// =============================================================================
// REGISTRY
// =============================================================================

// The registry is assembled once, on first use. Rules are static: adding a
// detector means appending it to its category constructor, never touching
// the traversal.
var (
	registryOnce sync.Once

	allRules  []*Rule
	rulesByID map[string]*Rule
	byNode    map[string][]*Rule
	byExit    map[FrameKind][]*Rule
)

func buildRegistry() {
	var catalogue []*Rule
	catalogue = append(catalogue, runtimeRules()...)
	catalogue = append(catalogue, performanceRules()...)
	catalogue = append(catalogue, complexityRules()...)
	catalogue = append(catalogue, securityRules()...)
	catalogue = append(catalogue, organizationRules()...)
	catalogue = append(catalogue, resourceRules()...)
	catalogue = append(catalogue, gotchaRules()...)

	rulesByID = make(map[string]*Rule, len(catalogue))
	byNode = make(map[string][]*Rule)
	byExit = make(map[FrameKind][]*Rule)

	for _, r := range catalogue {
		if r.ID == "" {
			panic("rules: registered rule with empty id")
		}
		if _, dup := rulesByID[r.ID]; dup {
			panic(fmt.Sprintf("rules: duplicate rule id %q", r.ID))
		}
		if !r.Severity.Valid() {
			panic(fmt.Sprintf("rules: rule %q has invalid severity %q", r.ID, r.Severity))
		}
		if (r.Check == nil) == (r.OnExit == nil) {
			panic(fmt.Sprintf("rules: rule %q must be node-triggered or scope-triggered, not both", r.ID))
		}
		rulesByID[r.ID] = r
		for _, kind := range r.NodeKinds {
			byNode[kind] = append(byNode[kind], r)
		}
		for _, kind := range r.ExitKinds {
			byExit[kind] = append(byExit[kind], r)
		}
	}

	allRules = catalogue
}

// All returns every registered rule, ordered by category then id. The
// returned slice is shared; callers must not modify it.
func All() []*Rule {
	registryOnce.Do(buildRegistry)
	out := make([]*Rule, len(allRules))
	copy(out, allRules)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Lookup returns the rule with the given id and whether it exists.
func Lookup(id string) (*Rule, bool) {
	registryOnce.Do(buildRegistry)
	r, ok := rulesByID[id]
	return r, ok
}

// ForNode returns the rules interested in the given tree-sitter node kind,
// in registration order. Registration order is fixed, which keeps finding
// order deterministic across runs.
func ForNode(kind string) []*Rule {
	registryOnce.Do(buildRegistry)
	return byNode[kind]
}

// ForExit returns the scope-triggered rules for the given frame kind.
func ForExit(kind FrameKind) []*Rule {
	registryOnce.Do(buildRegistry)
	return byExit[kind]
}

// Count returns the total number of registered rules.
func Count() int {
	registryOnce.Do(buildRegistry)
	return len(allRules)
}

// =============================================================================
// SHARED NAME SETS
// =============================================================================

// loggingMethods are callee names that count as logging inside an except
// handler. Matching is on the final attribute segment, plus bare print.
var loggingMethods = map[string]bool{
	"debug":     true,
	"info":      true,
	"warning":   true,
	"error":     true,
	"critical":  true,
	"exception": true,
	"log":       true,
	"print":     true,
}

// isLoggingCallee reports whether a callee name satisfies the logging
// convention.
func isLoggingCallee(callee string) bool {
	return callee != "" && loggingMethods[lastSegment(callee)]
}

// dbOperationMethods are attribute callees treated as database or
// persistence operations that want an enclosing try.
var dbOperationMethods = map[string]bool{
	"execute":       true,
	"executemany":   true,
	"executescript": true,
	"query":         true,
	"filter":        true,
	"commit":        true,
	"rollback":      true,
	"save":          true,
	"create":        true,
	"insert":        true,
	"update":        true,
	"delete":        true,
	"add":           true,
	"bulk_create":   true,
	"get_or_create": true,
}

// executeCallees are callee segments checked by the injection heuristic.
var executeCallees = map[string]bool{
	"execute":       true,
	"executemany":   true,
	"executescript": true,
	"raw":           true,
}

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

	sitter "github.com/smacker/go-tree-sitter"
)

// Complexity thresholds. Chosen to match common Python linters (radon,
// pylint defaults) rather than to be strict.
const (
	maxCyclomaticComplexity = 10
	maxFunctionLines        = 50
	maxParameters           = 5
	maxReturns              = 4
	maxBlockDepth           = 4
)

// complexityRules flag functions that have grown past reviewable size.
// Branch, return and depth counters are accumulated by the traversal on the
// enclosing function frame, so these checks stay O(1) at scope exit.
func complexityRules() []*Rule {
	cyclomatic := &Rule{
		ID:        "cyclomatic-complexity",
		Category:  CategoryComplexity,
		Severity:  SeverityMedium,
		Summary:   fmt.Sprintf("cyclomatic complexity above %d", maxCyclomaticComplexity),
		ExitKinds: []FrameKind{FrameFunction, FrameAsyncFunction},
	}
	cyclomatic.OnExit = func(f *Frame, ctx *Context) *Finding {
		complexity := f.Branches + 1
		if complexity <= maxCyclomaticComplexity {
			return nil
		}
		return cyclomatic.finding(f.Node, ctx,
			fmt.Sprintf("function %q has cyclomatic complexity %d (limit %d)", f.Name, complexity, maxCyclomaticComplexity),
			"split the branching into smaller functions or replace branches with a dispatch table")
	}

	functionTooLong := &Rule{
		ID:        "function-too-long",
		Category:  CategoryComplexity,
		Severity:  SeverityMedium,
		Summary:   fmt.Sprintf("function body longer than %d lines", maxFunctionLines),
		NodeKinds: []string{nodeFunctionDef},
	}
	functionTooLong.Check = func(n *sitter.Node, ctx *Context) *Finding {
		lines := int(n.EndPoint().Row) - int(n.StartPoint().Row) + 1
		if lines <= maxFunctionLines {
			return nil
		}
		name := ctx.Text(n.ChildByFieldName("name"))
		return functionTooLong.finding(n, ctx,
			fmt.Sprintf("function %q spans %d lines (limit %d)", name, lines, maxFunctionLines),
			"extract cohesive chunks into named helper functions")
	}

	tooManyParams := &Rule{
		ID:        "too-many-params",
		Category:  CategoryComplexity,
		Severity:  SeverityMedium,
		Summary:   fmt.Sprintf("more than %d parameters", maxParameters),
		NodeKinds: []string{nodeFunctionDef},
	}
	tooManyParams.Check = func(n *sitter.Node, ctx *Context) *Finding {
		count := parameterCount(n.ChildByFieldName("parameters"), ctx)
		if count <= maxParameters {
			return nil
		}
		name := ctx.Text(n.ChildByFieldName("name"))
		return tooManyParams.finding(n, ctx,
			fmt.Sprintf("function %q takes %d parameters (limit %d)", name, count, maxParameters),
			"group related parameters into a dataclass or configuration object")
	}

	tooManyReturns := &Rule{
		ID:        "too-many-returns",
		Category:  CategoryComplexity,
		Severity:  SeverityLow,
		Summary:   fmt.Sprintf("more than %d return statements", maxReturns),
		ExitKinds: []FrameKind{FrameFunction, FrameAsyncFunction},
	}
	tooManyReturns.OnExit = func(f *Frame, ctx *Context) *Finding {
		if f.Returns <= maxReturns {
			return nil
		}
		return tooManyReturns.finding(f.Node, ctx,
			fmt.Sprintf("function %q has %d return statements (limit %d)", f.Name, f.Returns, maxReturns),
			"consolidate exits or split the function by outcome")
	}

	deepNesting := &Rule{
		ID:        "deep-nesting",
		Category:  CategoryComplexity,
		Severity:  SeverityMedium,
		Summary:   fmt.Sprintf("block nesting deeper than %d levels", maxBlockDepth),
		ExitKinds: []FrameKind{FrameFunction, FrameAsyncFunction},
	}
	deepNesting.OnExit = func(f *Frame, ctx *Context) *Finding {
		if f.MaxDepth <= maxBlockDepth {
			return nil
		}
		return deepNesting.finding(f.Node, ctx,
			fmt.Sprintf("function %q nests blocks %d levels deep (limit %d)", f.Name, f.MaxDepth, maxBlockDepth),
			"use guard clauses and early returns to flatten the happy path")
	}

	lambdaConditional := &Rule{
		ID:        "lambda-conditional",
		Category:  CategoryComplexity,
		Severity:  SeverityLow,
		Summary:   "lambda with embedded conditional expression",
		NodeKinds: []string{nodeLambda},
	}
	lambdaConditional.Check = func(n *sitter.Node, ctx *Context) *Finding {
		body := n.ChildByFieldName("body")
		if body == nil || body.Type() != nodeConditionalExpr {
			return nil
		}
		return lambdaConditional.finding(n, ctx,
			"conditional logic inside a lambda is hard to read and impossible to test in isolation",
			"promote the lambda to a named function")
	}

	return []*Rule{
		cyclomatic,
		functionTooLong,
		tooManyParams,
		tooManyReturns,
		deepNesting,
		lambdaConditional,
	}
}

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

// runtimeRules detect shared-state and exception-handling hazards that bite
// at run time rather than at review time.
func runtimeRules() []*Rule {
	mutableDefault := &Rule{
		ID:        "mutable-default",
		Category:  CategoryRuntime,
		Severity:  SeverityHigh,
		Summary:   "mutable default parameter value shared across calls",
		NodeKinds: []string{nodeFunctionDef, nodeLambda},
	}
	mutableDefault.Check = func(n *sitter.Node, ctx *Context) *Finding {
		params := n.ChildByFieldName("parameters")
		for _, p := range defaultParameterNodes(params) {
			value := p.ChildByFieldName("value")
			if value == nil {
				continue
			}
			switch value.Type() {
			case nodeList, nodeDictionary, nodeSet,
				"list_comprehension", "dictionary_comprehension", "set_comprehension":
				return mutableDefault.finding(value, ctx,
					fmt.Sprintf("default value %q is a mutable object shared across all calls", ctx.Text(value)),
					"default to None and create the object inside the function body")
			}
		}
		return nil
	}

	bareExcept := &Rule{
		ID:        "bare-except",
		Category:  CategoryRuntime,
		Severity:  SeverityHigh,
		Summary:   "bare except swallows every exception including SystemExit",
		NodeKinds: []string{nodeExceptClause},
	}
	bareExcept.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if exceptType(n) != nil {
			return nil
		}
		return bareExcept.finding(n, ctx,
			"bare except catches everything, including KeyboardInterrupt and SystemExit",
			"catch the narrowest exception type that the block can actually raise")
	}

	broadExcept := &Rule{
		ID:        "broad-except",
		Category:  CategoryRuntime,
		Severity:  SeverityMedium,
		Summary:   "handler catches Exception or BaseException",
		NodeKinds: []string{nodeExceptClause},
	}
	broadExcept.Check = func(n *sitter.Node, ctx *Context) *Finding {
		typ := exceptType(n)
		if typ == nil {
			return nil
		}
		name := ctx.Text(typ)
		// `except Exception as e` parses the type as the full expression.
		if len(name) > 0 {
			name = lastSegment(firstToken(name))
		}
		if name != "Exception" && name != "BaseException" {
			return nil
		}
		return broadExcept.finding(n, ctx,
			fmt.Sprintf("except %s hides unrelated failures behind one handler", name),
			"catch the specific exception types this block is expected to raise")
	}

	silentExcept := &Rule{
		ID:        "silent-except",
		Category:  CategoryRuntime,
		Severity:  SeverityMedium,
		Summary:   "handler body is only pass",
		NodeKinds: []string{nodeExceptClause},
	}
	silentExcept.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if !isPassOnlyBlock(exceptBlock(n)) {
			return nil
		}
		return silentExcept.finding(n, ctx,
			"exception is silently discarded",
			"log the exception, or re-raise it if this handler cannot recover")
	}

	exceptNoLogging := &Rule{
		ID:        "except-no-logging",
		Category:  CategoryRuntime,
		Severity:  SeverityMedium,
		Summary:   "handler neither logs nor prints the failure",
		NodeKinds: []string{nodeExceptClause},
	}
	exceptNoLogging.Check = func(n *sitter.Node, ctx *Context) *Finding {
		block := exceptBlock(n)
		if block == nil || isPassOnlyBlock(block) {
			// pass-only handlers are silent-except territory
			return nil
		}
		if directCallIn(block, ctx, isLoggingCallee) {
			return nil
		}
		return exceptNoLogging.finding(n, ctx,
			"exception handler does not record the failure",
			"call logging.error/exception (or at least print) inside the handler")
	}

	asyncNoErrorHandling := &Rule{
		ID:        "async-no-error-handling",
		Category:  CategoryRuntime,
		Severity:  SeverityMedium,
		Summary:   "async function has no try/except anywhere in its body",
		ExitKinds: []FrameKind{FrameAsyncFunction},
	}
	asyncNoErrorHandling.OnExit = func(f *Frame, ctx *Context) *Finding {
		if f.SawTry {
			return nil
		}
		return asyncNoErrorHandling.finding(f.Node, ctx,
			fmt.Sprintf("async function %q has no error handling; a raised exception is lost in the task", f.Name),
			"wrap awaited work in try/except so task failures are observed")
	}

	returnInFinally := &Rule{
		ID:        "return-in-finally",
		Category:  CategoryRuntime,
		Severity:  SeverityHigh,
		Summary:   "return inside finally swallows in-flight exceptions",
		NodeKinds: []string{nodeReturnStatement},
	}
	returnInFinally.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if !ctx.InFinally() {
			return nil
		}
		return returnInFinally.finding(n, ctx,
			"return in a finally clause discards any exception raised in the try body",
			"move the return after the try statement")
	}

	assertForValidation := &Rule{
		ID:        "assert-for-validation",
		Category:  CategoryRuntime,
		Severity:  SeverityMedium,
		Summary:   "assert used for runtime validation",
		NodeKinds: []string{nodeAssertStatement},
	}
	assertForValidation.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if fn := ctx.EnclosingFunction(); fn != nil && isTestName(fn.Name) {
			return nil
		}
		return assertForValidation.finding(n, ctx,
			"assert statements are stripped under python -O, so this check can vanish in production",
			"raise ValueError (or a domain error) for runtime validation")
	}

	whileTrueNoBreak := &Rule{
		ID:        "while-true-no-break",
		Category:  CategoryRuntime,
		Severity:  SeverityMedium,
		Summary:   "while True loop with no break, return or raise",
		ExitKinds: []FrameKind{FrameLoop},
	}
	whileTrueNoBreak.OnExit = func(f *Frame, ctx *Context) *Finding {
		if !f.WhileTrue || f.Breaks > 0 || f.Returns > 0 || f.Raises > 0 {
			return nil
		}
		return whileTrueNoBreak.finding(f.Node, ctx,
			"while True loop has no reachable exit",
			"add a break/return condition or loop over an explicit predicate")
	}

	globalMutation := &Rule{
		ID:        "global-mutation",
		Category:  CategoryRuntime,
		Severity:  SeverityMedium,
		Summary:   "function rebinds module globals",
		NodeKinds: []string{nodeGlobalStatement},
	}
	globalMutation.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if ctx.EnclosingFunction() == nil {
			return nil
		}
		return globalMutation.finding(n, ctx,
			"global statement couples this function to mutable module state",
			"pass the value in and return the new value, or hold state on a class")
	}

	return []*Rule{
		mutableDefault,
		bareExcept,
		broadExcept,
		silentExcept,
		exceptNoLogging,
		asyncNoErrorHandling,
		returnInFinally,
		assertForValidation,
		whileTrueNoBreak,
		globalMutation,
	}
}

// isPassOnlyBlock reports whether a block contains only pass statements
// (comments aside).
func isPassOnlyBlock(block *sitter.Node) bool {
	if block == nil {
		return false
	}
	sawPass := false
	for i := 0; i < int(block.NamedChildCount()); i++ {
		switch block.NamedChild(i).Type() {
		case nodePassStatement:
			sawPass = true
		case nodeComment:
		default:
			return false
		}
	}
	return sawPass
}

// firstToken cuts an expression text at the first space, so
// "Exception as e" -> "Exception".
func firstToken(s string) string {
	for i, r := range s {
		if r == ' ' || r == '(' {
			return s[:i]
		}
	}
	return s
}

// isTestName reports whether a function name follows pytest/unittest
// conventions.
func isTestName(name string) bool {
	return len(name) >= 4 && (name[:4] == "test" || name[:4] == "Test")
}

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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// performanceRules detect patterns that are correct but needlessly slow or
// memory-hungry, mostly around loops and the event loop.
func performanceRules() []*Rule {
	stringConcatInLoop := &Rule{
		ID:        "string-concat-in-loop",
		Category:  CategoryPerformance,
		Severity:  SeverityMedium,
		Summary:   "string built with += inside a loop",
		NodeKinds: []string{nodeAugmentedAssign},
	}
	stringConcatInLoop.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if !ctx.InLoop() {
			return nil
		}
		op := n.ChildByFieldName("operator")
		if op == nil || op.Type() != "+=" {
			return nil
		}
		right := n.ChildByFieldName("right")
		if right == nil {
			return nil
		}
		if !isStringLiteral(right.Type()) && !isFString(right, ctx) &&
			!containsStringPiece(right, ctx) && !isStrCall(right, ctx) {
			return nil
		}
		return stringConcatInLoop.finding(n, ctx,
			"string concatenation in a loop copies the accumulator on every iteration",
			"collect the pieces in a list and join them once after the loop")
	}

	awaitInLoop := &Rule{
		ID:        "await-in-loop",
		Category:  CategoryPerformance,
		Severity:  SeverityMedium,
		Summary:   "sequential await inside a loop",
		NodeKinds: []string{nodeAwait},
	}
	awaitInLoop.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if !ctx.InLoop() {
			return nil
		}
		return awaitInLoop.finding(n, ctx,
			"awaiting inside a loop serializes work that could run concurrently",
			"gather the awaitables and use asyncio.gather, or bound them with a semaphore")
	}

	sleepInAsync := &Rule{
		ID:        "sleep-in-async",
		Category:  CategoryPerformance,
		Severity:  SeverityHigh,
		Summary:   "time.sleep blocks the event loop",
		NodeKinds: []string{nodeCall},
	}
	sleepInAsync.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if calleeName(n, ctx) != "time.sleep" {
			return nil
		}
		fn := ctx.EnclosingFunction()
		if fn == nil || fn.Kind != FrameAsyncFunction {
			return nil
		}
		return sleepInAsync.finding(n, ctx,
			"time.sleep blocks the entire event loop inside an async function",
			"use await asyncio.sleep(...) instead")
	}

	rangeLenIteration := &Rule{
		ID:        "range-len-iteration",
		Category:  CategoryPerformance,
		Severity:  SeverityLow,
		Summary:   "for i in range(len(seq)) indexing pattern",
		NodeKinds: []string{nodeForStatement},
	}
	rangeLenIteration.Check = func(n *sitter.Node, ctx *Context) *Finding {
		right := n.ChildByFieldName("right")
		if right == nil || right.Type() != nodeCall || calleeName(right, ctx) != "range" {
			return nil
		}
		arg := firstPositionalArg(right)
		if arg == nil || arg.Type() != nodeCall || calleeName(arg, ctx) != "len" {
			return nil
		}
		args := callArguments(right)
		if args != nil && args.NamedChildCount() > 1 {
			// range(1, len(x)) style offsets are usually deliberate
			return nil
		}
		return rangeLenIteration.finding(n, ctx,
			"iterating over range(len(...)) and indexing is slower and less clear than direct iteration",
			"iterate the sequence directly, or use enumerate() when the index is needed")
	}

	lenInLoopCondition := &Rule{
		ID:        "len-in-loop-condition",
		Category:  CategoryPerformance,
		Severity:  SeverityLow,
		Summary:   "len() recomputed in a while condition",
		NodeKinds: []string{nodeWhileStatement},
	}
	lenInLoopCondition.Check = func(n *sitter.Node, ctx *Context) *Finding {
		cond := n.ChildByFieldName("condition")
		if cond == nil {
			return nil
		}
		if !subtreeHasCall(cond, ctx, func(callee string) bool { return callee == "len" }) {
			return nil
		}
		return lenInLoopCondition.finding(n, ctx,
			"len() is re-evaluated on every loop iteration",
			"hoist the length into a variable if the sequence size is stable")
	}

	nestedLoops := &Rule{
		ID:        "nested-loops",
		Category:  CategoryPerformance,
		Severity:  SeverityMedium,
		Summary:   "three or more nested loops",
		NodeKinds: []string{nodeForStatement, nodeWhileStatement},
	}
	nestedLoops.Check = func(n *sitter.Node, ctx *Context) *Finding {
		// dispatch happens before this loop's own frame is pushed
		if ctx.LoopDepth() < 2 {
			return nil
		}
		return nestedLoops.finding(n, ctx,
			"loop nesting is three levels or deeper",
			"extract the inner loops into helpers or restructure the data to avoid O(n^3) scans")
	}

	readlinesWholeFile := &Rule{
		ID:        "readlines-whole-file",
		Category:  CategoryPerformance,
		Severity:  SeverityLow,
		Summary:   "readlines() loads the whole file into memory",
		NodeKinds: []string{nodeCall},
	}
	readlinesWholeFile.Check = func(n *sitter.Node, ctx *Context) *Finding {
		callee := calleeName(n, ctx)
		if callee == "" || lastSegment(callee) != "readlines" || !strings.Contains(callee, ".") {
			return nil
		}
		return readlinesWholeFile.finding(n, ctx,
			"readlines() materializes every line in memory at once",
			"iterate the file object directly; it yields lines lazily")
	}

	fstringInLogging := &Rule{
		ID:        "fstring-in-logging",
		Category:  CategoryPerformance,
		Severity:  SeverityLow,
		Summary:   "f-string formatted eagerly in a logging call",
		NodeKinds: []string{nodeCall},
	}
	fstringInLogging.Check = func(n *sitter.Node, ctx *Context) *Finding {
		callee := calleeName(n, ctx)
		if !isLoggerCallee(callee) {
			return nil
		}
		arg := firstPositionalArg(n)
		if arg == nil || !isFString(arg, ctx) {
			return nil
		}
		return fstringInLogging.finding(n, ctx,
			"f-string arguments are formatted even when the log level is disabled",
			"pass a %-style format string and arguments to the logger instead")
	}

	return []*Rule{
		stringConcatInLoop,
		awaitInLoop,
		sleepInAsync,
		rangeLenIteration,
		lenInLoopCondition,
		nestedLoops,
		readlinesWholeFile,
		fstringInLogging,
	}
}

// isStrCall reports whether an expression is a str(...) conversion.
func isStrCall(n *sitter.Node, ctx *Context) bool {
	return n.Type() == nodeCall && calleeName(n, ctx) == "str"
}

// isLoggerCallee reports whether a callee looks like a logger method:
// a dotted call whose object segment names a logger and whose method is a
// level method (print excluded here).
func isLoggerCallee(callee string) bool {
	i := strings.LastIndex(callee, ".")
	if i < 0 {
		return false
	}
	method := callee[i+1:]
	if method == "print" || !loggingMethods[method] {
		return false
	}
	object := strings.ToLower(callee[:i])
	return strings.Contains(object, "log")
}

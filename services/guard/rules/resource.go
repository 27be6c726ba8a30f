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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// requestMethods are requests-library verbs checked for a timeout.
var requestMethods = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true,
	"patch": true, "head": true, "options": true, "request": true,
}

// resourceRules detect leaks: handles opened without a context manager,
// unguarded persistence calls, and network calls that can hang forever.
func resourceRules() []*Rule {
	openNoContext := &Rule{
		ID:        "open-no-context",
		Category:  CategoryResource,
		Severity:  SeverityHigh,
		Summary:   "open() outside a with statement",
		NodeKinds: []string{nodeCall},
	}
	openNoContext.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if calleeName(n, ctx) != "open" || ctx.InWith() {
			return nil
		}
		return openNoContext.finding(n, ctx,
			"file handle from open() is not closed if an exception is raised before close()",
			"use `with open(...) as f:` so the handle is always released")
	}

	dbOpNoGuard := &Rule{
		ID:        "db-op-no-guard",
		Category:  CategoryResource,
		Severity:  SeverityMedium,
		Summary:   "database operation without an enclosing try",
		NodeKinds: []string{nodeCall},
	}
	dbOpNoGuard.Check = func(n *sitter.Node, ctx *Context) *Finding {
		callee := calleeName(n, ctx)
		// only dotted calls: a bare update() is usually a dict method
		if callee == "" || !strings.Contains(callee, ".") || !dbOperationMethods[lastSegment(callee)] {
			return nil
		}
		if ctx.InGuard() {
			return nil
		}
		return dbOpNoGuard.finding(n, ctx,
			fmt.Sprintf("%s can raise on connection loss or constraint violation but has no error handling", callee),
			"wrap the operation in try/except and roll back or retry on failure")
	}

	requestNoTimeout := &Rule{
		ID:        "request-no-timeout",
		Category:  CategoryResource,
		Severity:  SeverityMedium,
		Summary:   "HTTP request without a timeout",
		NodeKinds: []string{nodeCall},
	}
	requestNoTimeout.Check = func(n *sitter.Node, ctx *Context) *Finding {
		callee := calleeName(n, ctx)
		if !strings.HasPrefix(callee, "requests.") || !requestMethods[lastSegment(callee)] {
			return nil
		}
		if keywordArg(n, "timeout", ctx) != nil {
			return nil
		}
		return requestNoTimeout.finding(n, ctx,
			fmt.Sprintf("%s has no timeout and can block forever on a stuck connection", callee),
			"pass timeout=<seconds>; requests does not time out by default")
	}

	openInLoop := &Rule{
		ID:        "open-in-loop",
		Category:  CategoryResource,
		Severity:  SeverityMedium,
		Summary:   "file opened inside a loop",
		NodeKinds: []string{nodeCall},
	}
	openInLoop.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if calleeName(n, ctx) != "open" || !ctx.InLoop() {
			return nil
		}
		return openInLoop.finding(n, ctx,
			"opening a file on every loop iteration churns file descriptors",
			"open the file once before the loop, or batch the writes")
	}

	socketNoContext := &Rule{
		ID:        "socket-no-context",
		Category:  CategoryResource,
		Severity:  SeverityMedium,
		Summary:   "socket created outside a with statement",
		NodeKinds: []string{nodeCall},
	}
	socketNoContext.Check = func(n *sitter.Node, ctx *Context) *Finding {
		if calleeName(n, ctx) != "socket.socket" || ctx.InWith() {
			return nil
		}
		return socketNoContext.finding(n, ctx,
			"socket is not closed on error paths",
			"use `with socket.socket(...) as s:` (sockets are context managers)")
	}

	return []*Rule{
		openNoContext,
		dbOpNoGuard,
		requestNoTimeout,
		openInLoop,
		socketNoContext,
	}
}
